// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blurb implements the publishing engine: posting children under a
// blurb with inherited sharing, editing with history, and pre-declaring
// which roles may see content of a given flavor below an ancestor.
//
// Every collaborator is passed in explicitly. Operations that write more
// than one row run inside a single transaction so a post and all of its
// shares become visible together or not at all.
package blurb

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// Service is the publishing engine.
type Service struct {
	tx      Transactor
	blurbs  ContentStore
	history HistoryStore
	meta    MetaStore
	grants  PermissionRegistry
	roles   RoleDirectory
	shares  ShareAllocator
	now     func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the source of creation and edit times.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the engine over the given collaborators.
func NewService(tx Transactor, blurbs ContentStore, history HistoryStore, meta MetaStore,
	grants PermissionRegistry, roles RoleDirectory, shares ShareAllocator, opts ...Option) *Service {
	s := &Service{
		tx:      tx,
		blurbs:  blurbs,
		history: history,
		meta:    meta,
		grants:  grants,
		roles:   roles,
		shares:  shares,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PostResult describes a freshly published blurb and who it was shared with.
type PostResult struct {
	Blurb   *models.Blurb
	ShareID string
	Grants  map[uuid.UUID]models.CapabilitySet
}

// TopLevelInput holds the fields for publishing a parentless blurb.
type TopLevelInput struct {
	Title    string
	Body     string
	Flavor   models.Flavor
	AuthorID uuid.UUID
	// Public additionally shares the blurb read-only with Everyone.
	Public bool
}

// Create publishes a top-level blurb of any flavor. A fresh group role is
// created for the blurb and the author joins it. The blurb
// is shared with the group as Author (and with Everyone as Viewer when
// Public is set) under one share ID.
func (s *Service) Create(ctx context.Context, in TopLevelInput) (*PostResult, error) {
	if in.AuthorID == uuid.Nil {
		return nil, ErrMissingAuthor
	}
	if !in.Flavor.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, in.Flavor)
	}

	var result *PostResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		now := s.now()
		b, err := s.blurbs.Create(ctx, &models.Blurb{
			Flavor:         in.Flavor,
			Title:          in.Title,
			Body:           in.Body,
			AuthorID:       in.AuthorID,
			DateCreated:    now,
			DateLastEdited: now,
		})
		if err != nil {
			return fmt.Errorf("create top-level blurb: %w", err)
		}

		group, err := s.roles.Create(ctx, GroupExternalID(b), groupName(in.Title, in.Flavor))
		if err != nil {
			return fmt.Errorf("group role: %w", err)
		}
		if err := s.roles.BecomeMemberOf(ctx, in.AuthorID, group.ID); err != nil {
			return fmt.Errorf("join group role: %w", err)
		}

		grants := newGrantSet()
		grants.add(group.ID, models.NewCapabilitySet(models.CapAuthor))
		if in.Public {
			everyone, err := s.roles.Everyone(ctx)
			if err != nil {
				return fmt.Errorf("everyone role: %w", err)
			}
			grants.add(everyone.ID, models.NewCapabilitySet(models.CapViewer))
		}

		shareID, err := s.fanOut(ctx, b.ID, grants)
		if err != nil {
			return err
		}
		result = &PostResult{Blurb: b, ShareID: shareID, Grants: grants.caps}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("top-level blurb published",
		"blurb_id", result.Blurb.ID,
		"flavor", result.Blurb.Flavor,
		"share_id", result.ShareID,
	)
	return result, nil
}

// groupName is the human label of the group role that owns a top-level
// blurb, e.g. "Cooking blog". Titles are not unique, so it is kept in the
// role's description only.
func groupName(title string, f models.Flavor) string {
	return strings.TrimSpace(title) + " " + f.Kind()
}

// GroupExternalID is the external ID of the group role created for a
// top-level blurb, e.g. "Cooking blog 5c1e...". The blurb ID keeps it
// distinct from every other role.
func GroupExternalID(b *models.Blurb) string {
	return groupName(b.Title, b.Flavor) + " " + b.ID.String()
}

// Post creates a child under parentID and shares it with the author (as
// Author) and with every role that a permission record on the parent or
// one of its ancestors names for the child's flavor. Nearer ancestors
// shadow farther ones. All shares are filed under the returned share ID.
func (s *Service) Post(ctx context.Context, parentID uuid.UUID, title, body string, authorID uuid.UUID) (*PostResult, error) {
	if authorID == uuid.Nil {
		return nil, ErrMissingAuthor
	}

	var result *PostResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		parent, err := s.blurbs.FindByID(ctx, parentID)
		if err != nil {
			return fmt.Errorf("find parent: %w", err)
		}
		if parent == nil {
			return fmt.Errorf("parent %s: %w", parentID, ErrNotFound)
		}

		flavor, ok := parent.Flavor.Child()
		if !ok {
			return fmt.Errorf("post under %s: %w", parent.Flavor, ErrUnpostableFlavor)
		}

		now := s.now()
		child, err := s.blurbs.Create(ctx, &models.Blurb{
			ParentID:       &parent.ID,
			Flavor:         flavor,
			Title:          title,
			Body:           body,
			AuthorID:       authorID,
			DateCreated:    now,
			DateLastEdited: now,
		})
		if err != nil {
			return fmt.Errorf("create child blurb: %w", err)
		}

		grants, err := s.inheritGrants(ctx, parent, flavor, authorID)
		if err != nil {
			return err
		}

		shareID, err := s.fanOut(ctx, child.ID, grants)
		if err != nil {
			return err
		}
		result = &PostResult{Blurb: child, ShareID: shareID, Grants: grants.caps}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("blurb posted",
		"blurb_id", result.Blurb.ID,
		"parent_id", parentID,
		"flavor", result.Blurb.Flavor,
		"share_id", result.ShareID,
		"roles", len(result.Grants),
	)
	return result, nil
}

// Edit snapshots the current state of a blurb into its history and then
// replaces its title, body and author. Callers must have checked that the
// acting role holds Author on the blurb.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, title, body string, authorID uuid.UUID) (*models.Blurb, error) {
	if authorID == uuid.Nil {
		return nil, ErrMissingAuthor
	}

	var edited *models.Blurb
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		b, err := s.blurbs.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("find blurb: %w", err)
		}
		if b == nil {
			return fmt.Errorf("blurb %s: %w", id, ErrNotFound)
		}

		if _, err := s.history.Create(ctx, &models.PastBlurb{
			BlurbID:    b.ID,
			Title:      b.Title,
			Body:       b.Body,
			Hits:       b.Hits,
			AuthorID:   b.AuthorID,
			DateEdited: b.DateLastEdited,
		}); err != nil {
			return fmt.Errorf("snapshot blurb: %w", err)
		}

		// Edit times never run backwards, even if the clock does.
		editDate := s.now()
		if editDate.Before(b.DateLastEdited) {
			editDate = b.DateLastEdited
		}

		b.Title = title
		b.Body = body
		b.AuthorID = authorID
		b.DateLastEdited = editDate
		if err := s.blurbs.Update(ctx, b); err != nil {
			return fmt.Errorf("update blurb: %w", err)
		}
		edited = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return edited, nil
}

// PermitChildren records that roleID receives caps on every blurb of
// flavor posted anywhere below ancestorID. Each call adds a new record.
func (s *Service) PermitChildren(ctx context.Context, ancestorID, roleID uuid.UUID, flavor models.Flavor, caps models.CapabilitySet) (*models.FlavorPermission, error) {
	if !flavor.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFlavor, flavor)
	}
	if len(caps) == 0 {
		return nil, fmt.Errorf("%w: no capabilities", ErrInvalidGrant)
	}
	for _, c := range caps {
		if !c.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidGrant, c)
		}
	}

	ancestor, err := s.blurbs.FindByID(ctx, ancestorID)
	if err != nil {
		return nil, fmt.Errorf("find ancestor: %w", err)
	}
	if ancestor == nil {
		return nil, fmt.Errorf("ancestor %s: %w", ancestorID, ErrNotFound)
	}

	p, err := s.grants.Grant(ctx, &models.FlavorPermission{
		AncestorID:   ancestorID,
		TargetFlavor: flavor,
		RoleID:       roleID,
		Capabilities: models.NewCapabilitySet(caps...),
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("grant: %w", err)
	}
	return p, nil
}

// Get returns a blurb by ID, or ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Blurb, error) {
	b, err := s.blurbs.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find blurb: %w", err)
	}
	if b == nil {
		return nil, fmt.Errorf("blurb %s: %w", id, ErrNotFound)
	}
	return b, nil
}

// List returns blurbs matching the filter.
func (s *Service) List(ctx context.Context, f models.BlurbFilter) ([]models.Blurb, error) {
	items, err := s.blurbs.Query(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list blurbs: %w", err)
	}
	return items, nil
}

// TopLevel returns every blurb without a parent, oldest first.
func (s *Service) TopLevel(ctx context.Context) ([]models.Blurb, error) {
	return s.List(ctx, models.BlurbFilter{TopLevel: true})
}

// Children returns the direct children of a blurb.
func (s *Service) Children(ctx context.Context, parentID uuid.UUID) ([]models.Blurb, error) {
	return s.List(ctx, models.BlurbFilter{ParentID: &parentID})
}

// Hit records that a blurb was displayed and returns its hit count.
func (s *Service) Hit(ctx context.Context, id uuid.UUID) (int64, error) {
	hits, err := s.blurbs.IncrementHits(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("count hit: %w", err)
	}
	return hits, nil
}

// History returns the snapshots of a blurb, newest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]models.PastBlurb, error) {
	past, err := s.history.ListByBlurb(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return past, nil
}

// SetMeta attaches or replaces a metadata value on a blurb.
func (s *Service) SetMeta(ctx context.Context, id uuid.UUID, key, value string) (*models.MetaBlurb, error) {
	m, err := s.meta.Set(ctx, id, key, value)
	if err != nil {
		return nil, fmt.Errorf("set meta: %w", err)
	}
	return m, nil
}

// Meta returns the metadata attached to a blurb.
func (s *Service) Meta(ctx context.Context, id uuid.UUID) ([]models.MetaBlurb, error) {
	m, err := s.meta.ListByBlurb(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}
	return m, nil
}
