// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package sharing allocates share identifiers and resolves them back into
// capability-scoped views of a blurb for a presented role.
package sharing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

var (
	// ErrNoSuchShare is returned when the presented role (and none of the
	// groups it belongs to) holds a share under the requested ID.
	ErrNoSuchShare = errors.New("no such share")

	// ErrCapabilityDenied is returned when a shared blurb is used for an
	// operation its capabilities do not cover.
	ErrCapabilityDenied = errors.New("capability denied")

	// ErrIllegalEdit is returned when a role without Author tries to edit.
	// It wraps ErrCapabilityDenied.
	ErrIllegalEdit = fmt.Errorf("illegal edit attempt: %w", ErrCapabilityDenied)
)

// ShareStore persists shares.
type ShareStore interface {
	Create(ctx context.Context, s *models.Share) (*models.Share, error)
	FindByShareID(ctx context.Context, shareID string, roleIDs []uuid.UUID) ([]models.Share, error)
	ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.Share, error)
	DeleteByBlurb(ctx context.Context, blurbID uuid.UUID) error
}

// Allocator creates shares. It is the allocation half of the resolver and
// is what the publishing engine fans shares out through.
type Allocator struct {
	shares ShareStore
}

// NewAllocator creates an Allocator over the given share store.
func NewAllocator(shares ShareStore) *Allocator {
	return &Allocator{shares: shares}
}

// Allocate shares blurbID with roleID. An empty reuseShareID mints a new
// share ID; passing the ID from an earlier call files this share under the
// same reference.
func (a *Allocator) Allocate(ctx context.Context, blurbID, roleID uuid.UUID, caps models.CapabilitySet, reuseShareID string) (string, error) {
	shareID := reuseShareID
	if shareID == "" {
		shareID = NewShareID()
	}

	if _, err := a.shares.Create(ctx, &models.Share{
		ShareID:      shareID,
		BlurbID:      blurbID,
		RoleID:       roleID,
		Capabilities: caps,
	}); err != nil {
		return "", fmt.Errorf("create share: %w", err)
	}
	return shareID, nil
}

// NewShareID mints a fresh opaque share identifier.
func NewShareID() string {
	return uuid.NewString()
}
