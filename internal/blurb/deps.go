// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blurb

import (
	"context"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// ContentStore persists blurbs. Find returns (nil, nil) when the blurb
// does not exist.
type ContentStore interface {
	Create(ctx context.Context, b *models.Blurb) (*models.Blurb, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Blurb, error)
	Update(ctx context.Context, b *models.Blurb) error
	IncrementHits(ctx context.Context, id uuid.UUID) (int64, error)
	Query(ctx context.Context, f models.BlurbFilter) ([]models.Blurb, error)
}

// HistoryStore persists PastBlurb snapshots.
type HistoryStore interface {
	Create(ctx context.Context, p *models.PastBlurb) (*models.PastBlurb, error)
	ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.PastBlurb, error)
}

// MetaStore persists MetaBlurb key/value pairs.
type MetaStore interface {
	Set(ctx context.Context, blurbID uuid.UUID, key, value string) (*models.MetaBlurb, error)
	ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.MetaBlurb, error)
}

// PermissionRegistry stores FlavorPermission records. Lookup returns every
// record for the (ancestor, flavor) pair in no particular order.
type PermissionRegistry interface {
	Grant(ctx context.Context, p *models.FlavorPermission) (*models.FlavorPermission, error)
	Lookup(ctx context.Context, ancestorID uuid.UUID, flavor models.Flavor) ([]models.FlavorPermission, error)
}

// RoleDirectory is the part of the role directory the engine needs to
// publish top-level blurbs.
type RoleDirectory interface {
	Everyone(ctx context.Context) (*models.Role, error)
	Create(ctx context.Context, externalID, description string) (*models.Role, error)
	BecomeMemberOf(ctx context.Context, memberID, groupID uuid.UUID) error
}

// ShareAllocator grants a role access to a blurb. An empty reuseShareID
// allocates a fresh share ID; otherwise the share is filed under the given
// ID. The ID actually used is returned.
type ShareAllocator interface {
	Allocate(ctx context.Context, blurbID, roleID uuid.UUID, caps models.CapabilitySet, reuseShareID string) (string, error)
}

// Transactor runs fn atomically. Stores must pick up the transaction from
// the context passed to fn.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}
