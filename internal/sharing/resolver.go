// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package sharing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/models"
)

// RoleGraph expands a role into itself plus every group it belongs to,
// directly or transitively.
type RoleGraph interface {
	AllRoles(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
}

// Content is the publishing engine as seen through a share.
type Content interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Blurb, error)
	Children(ctx context.Context, parentID uuid.UUID) ([]models.Blurb, error)
	Post(ctx context.Context, parentID uuid.UUID, title, body string, authorID uuid.UUID) (*blurb.PostResult, error)
	Edit(ctx context.Context, id uuid.UUID, title, body string, authorID uuid.UUID) (*models.Blurb, error)
	PermitChildren(ctx context.Context, ancestorID, roleID uuid.UUID, flavor models.Flavor, caps models.CapabilitySet) (*models.FlavorPermission, error)
	History(ctx context.Context, id uuid.UUID) ([]models.PastBlurb, error)
	Meta(ctx context.Context, id uuid.UUID) ([]models.MetaBlurb, error)
	SetMeta(ctx context.Context, id uuid.UUID, key, value string) (*models.MetaBlurb, error)
}

// Resolver turns a share ID and a presented role into a SharedBlurb.
type Resolver struct {
	shares  ShareStore
	roles   RoleGraph
	content Content
}

// NewResolver creates a Resolver.
func NewResolver(shares ShareStore, roles RoleGraph, content Content) *Resolver {
	return &Resolver{shares: shares, roles: roles, content: content}
}

// GetShare returns the blurb filed under shareID, scoped to the union of
// capabilities held by roleID and every group it belongs to.
func (r *Resolver) GetShare(ctx context.Context, roleID uuid.UUID, shareID string) (*SharedBlurb, error) {
	roleIDs, err := r.roles.AllRoles(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("expand role %s: %w", roleID, err)
	}

	shares, err := r.shares.FindByShareID(ctx, shareID, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("find share: %w", err)
	}
	if len(shares) == 0 {
		return nil, fmt.Errorf("share %q: %w", shareID, ErrNoSuchShare)
	}

	blurbID := shares[0].BlurbID
	var caps models.CapabilitySet
	for _, s := range shares {
		if s.BlurbID != blurbID {
			return nil, fmt.Errorf("share %q points at more than one blurb", shareID)
		}
		caps = caps.Union(s.Capabilities)
	}

	b, err := r.content.Get(ctx, blurbID)
	if err != nil {
		return nil, err
	}

	return &SharedBlurb{
		shareID: shareID,
		roleID:  roleID,
		caps:    caps,
		item:    b,
		content: r.content,
		shares:  r.shares,
	}, nil
}

// Listing pairs a blurb with a share ID the presenting role can open it by.
type Listing struct {
	ShareID string       `json:"share_id"`
	Blurb   models.Blurb `json:"blurb"`
}

// Visible keeps the items that roleID, or a group it belongs to, holds a
// share of, each paired with that share's ID. Order is preserved.
func (r *Resolver) Visible(ctx context.Context, roleID uuid.UUID, items []models.Blurb) ([]Listing, error) {
	roleIDs, err := r.roles.AllRoles(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("expand role %s: %w", roleID, err)
	}
	held := make(map[uuid.UUID]bool, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = true
	}

	out := make([]Listing, 0, len(items))
	for _, b := range items {
		shares, err := r.shares.ListByBlurb(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("list shares of %s: %w", b.ID, err)
		}
		for _, s := range shares {
			if held[s.RoleID] {
				out = append(out, Listing{ShareID: s.ShareID, Blurb: b})
				break
			}
		}
	}
	return out, nil
}
