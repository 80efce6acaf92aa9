// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blurb

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// grantSet maps roles to capabilities and remembers insertion order so
// shares are always allocated author first.
type grantSet struct {
	order []uuid.UUID
	caps  map[uuid.UUID]models.CapabilitySet
}

func newGrantSet() *grantSet {
	return &grantSet{caps: make(map[uuid.UUID]models.CapabilitySet)}
}

// add inserts the role unless it is already present. It reports whether
// the role was added.
func (g *grantSet) add(roleID uuid.UUID, caps models.CapabilitySet) bool {
	if _, ok := g.caps[roleID]; ok {
		return false
	}
	g.order = append(g.order, roleID)
	g.caps[roleID] = caps
	return true
}

// inheritGrants walks from parent up to its root and collects, for every
// role, the capabilities of the nearest permission record naming it for
// flavor. The author is seeded with Author and cannot be overridden.
func (s *Service) inheritGrants(ctx context.Context, parent *models.Blurb, flavor models.Flavor, authorID uuid.UUID) (*grantSet, error) {
	grants := newGrantSet()
	grants.add(authorID, models.NewCapabilitySet(models.CapAuthor))

	visited := make(map[uuid.UUID]bool)
	for ancestor := parent; ancestor != nil; {
		if visited[ancestor.ID] {
			return nil, fmt.Errorf("blurb %s: %w", ancestor.ID, ErrAncestorCycle)
		}
		visited[ancestor.ID] = true

		records, err := s.grants.Lookup(ctx, ancestor.ID, flavor)
		if err != nil {
			return nil, fmt.Errorf("lookup permissions on %s: %w", ancestor.ID, err)
		}
		// Duplicate records for one role on one ancestor: newest wins.
		slices.SortStableFunc(records, func(a, b models.FlavorPermission) int {
			return cmp.Compare(b.Seq, a.Seq)
		})
		for _, r := range records {
			grants.add(r.RoleID, r.Capabilities)
		}

		if ancestor.ParentID == nil {
			break
		}
		next, err := s.blurbs.FindByID(ctx, *ancestor.ParentID)
		if err != nil {
			return nil, fmt.Errorf("find ancestor %s: %w", *ancestor.ParentID, err)
		}
		if next == nil {
			slog.Warn("dangling parent reference, stopping ancestor walk",
				"blurb_id", ancestor.ID,
				"parent_id", *ancestor.ParentID,
			)
		}
		ancestor = next
	}
	return grants, nil
}

// fanOut shares blurbID with every role in grants under a single share ID.
func (s *Service) fanOut(ctx context.Context, blurbID uuid.UUID, grants *grantSet) (string, error) {
	var shareID string
	for _, roleID := range grants.order {
		id, err := s.shares.Allocate(ctx, blurbID, roleID, grants.caps[roleID], shareID)
		if err != nil {
			return "", fmt.Errorf("share with role %s: %w", roleID, err)
		}
		shareID = id
	}
	return shareID, nil
}
