// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// EveryoneExternalID is the external ID of the built-in public role. Every
// primary role is a member of it.
const EveryoneExternalID = "Everyone"

// Role is an actor or a group of actors that content can be shared with.
// Roles nest through memberships; a role holds every share granted to any
// group it belongs to.
type Role struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Description  string    `json:"description"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	TOTPSecret   *string   `json:"-"` // Nullable; set during 2FA setup
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// CanLogIn returns true if the role has credentials and may open a session.
// Group roles never do.
func (r *Role) CanLogIn() bool {
	return r.PasswordHash != ""
}
