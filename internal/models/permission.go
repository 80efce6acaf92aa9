// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// FlavorPermission pre-declares the capabilities a role receives on every
// blurb of TargetFlavor posted anywhere below AncestorID. Records are never
// updated and duplicates are allowed; Seq orders them by creation.
type FlavorPermission struct {
	ID           uuid.UUID     `json:"id"`
	Seq          int64         `json:"seq"`
	AncestorID   uuid.UUID     `json:"ancestor_id"`
	TargetFlavor Flavor        `json:"target_flavor"`
	RoleID       uuid.UUID     `json:"role_id"`
	Capabilities CapabilitySet `json:"capabilities"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Share grants one role a capability-scoped view of a blurb. Several shares
// may carry the same ShareID; together they fan the blurb out to many roles
// under a single reference.
type Share struct {
	ID           uuid.UUID     `json:"id"`
	ShareID      string        `json:"share_id"`
	BlurbID      uuid.UUID     `json:"blurb_id"`
	RoleID       uuid.UUID     `json:"role_id"`
	Capabilities CapabilitySet `json:"capabilities"`
	CreatedAt    time.Time     `json:"created_at"`
}
