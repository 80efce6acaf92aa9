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

// SharedBlurb is a blurb as seen by one role through one share. Every
// operation checks the role's capabilities before touching the blurb.
type SharedBlurb struct {
	shareID string
	roleID  uuid.UUID
	caps    models.CapabilitySet
	item    *models.Blurb
	content Content
	shares  ShareStore
}

// ShareID returns the reference this view was resolved from.
func (s *SharedBlurb) ShareID() string { return s.shareID }

// Capabilities returns what the presenting role may do.
func (s *SharedBlurb) Capabilities() models.CapabilitySet { return s.caps }

// Can reports whether the presenting role holds c.
func (s *SharedBlurb) Can(c models.Capability) bool { return s.caps.Allows(c) }

func (s *SharedBlurb) require(c models.Capability) error {
	if !s.caps.Allows(c) {
		if c == models.CapAuthor {
			return ErrIllegalEdit
		}
		return fmt.Errorf("%s on share %q: %w", c, s.shareID, ErrCapabilityDenied)
	}
	return nil
}

// View returns the blurb's title, body and metadata fields.
func (s *SharedBlurb) View() (*models.Blurb, error) {
	if err := s.require(models.CapViewer); err != nil {
		return nil, err
	}
	b := *s.item
	return &b, nil
}

// Children lists the blurbs posted directly under this one.
func (s *SharedBlurb) Children(ctx context.Context) ([]models.Blurb, error) {
	if err := s.require(models.CapViewer); err != nil {
		return nil, err
	}
	return s.content.Children(ctx, s.item.ID)
}

// Post publishes a child under the shared blurb. Needs Commenter.
func (s *SharedBlurb) Post(ctx context.Context, title, body string, authorID uuid.UUID) (*blurb.PostResult, error) {
	if err := s.require(models.CapCommenter); err != nil {
		return nil, err
	}
	return s.content.Post(ctx, s.item.ID, title, body, authorID)
}

// Edit replaces the shared blurb's text. Needs Author; anything less is
// ErrIllegalEdit.
func (s *SharedBlurb) Edit(ctx context.Context, title, body string, authorID uuid.UUID) (*models.Blurb, error) {
	if err := s.require(models.CapAuthor); err != nil {
		return nil, err
	}
	b, err := s.content.Edit(ctx, s.item.ID, title, body, authorID)
	if err != nil {
		return nil, err
	}
	s.item = b
	return b, nil
}

// PermitChildren pre-declares access for children of flavor below the
// shared blurb. Needs Author.
func (s *SharedBlurb) PermitChildren(ctx context.Context, roleID uuid.UUID, flavor models.Flavor, caps models.CapabilitySet) (*models.FlavorPermission, error) {
	if err := s.require(models.CapAuthor); err != nil {
		return nil, err
	}
	return s.content.PermitChildren(ctx, s.item.ID, roleID, flavor, caps)
}

// History returns earlier versions of the shared blurb.
func (s *SharedBlurb) History(ctx context.Context) ([]models.PastBlurb, error) {
	if err := s.require(models.CapViewer); err != nil {
		return nil, err
	}
	return s.content.History(ctx, s.item.ID)
}

// Meta returns the shared blurb's metadata.
func (s *SharedBlurb) Meta(ctx context.Context) ([]models.MetaBlurb, error) {
	if err := s.require(models.CapViewer); err != nil {
		return nil, err
	}
	return s.content.Meta(ctx, s.item.ID)
}

// SetMeta attaches metadata to the shared blurb. Needs Author.
func (s *SharedBlurb) SetMeta(ctx context.Context, key, value string) (*models.MetaBlurb, error) {
	if err := s.require(models.CapAuthor); err != nil {
		return nil, err
	}
	return s.content.SetMeta(ctx, s.item.ID, key, value)
}

// Shares lists every share of the blurb, including those held by other
// roles. Needs Author.
func (s *SharedBlurb) Shares(ctx context.Context) ([]models.Share, error) {
	if err := s.require(models.CapAuthor); err != nil {
		return nil, err
	}
	shares, err := s.shares.ListByBlurb(ctx, s.item.ID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return shares, nil
}

// Retract withdraws every share of the blurb, this one included, and
// returns what was removed. The blurb itself is kept. Needs Author.
func (s *SharedBlurb) Retract(ctx context.Context) ([]models.Share, error) {
	shares, err := s.Shares(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.shares.DeleteByBlurb(ctx, s.item.ID); err != nil {
		return nil, fmt.Errorf("retract shares: %w", err)
	}
	return shares, nil
}

// ItemID returns the underlying blurb ID. Unlike View it needs no
// capability: the caller already proved it holds a share.
func (s *SharedBlurb) ItemID() uuid.UUID { return s.item.ID }
