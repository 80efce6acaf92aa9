// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/models"
)

// SeedRoles is the part of a role store the seeder uses. Both storage
// backends satisfy it.
type SeedRoles interface {
	Self(ctx context.Context) (*models.Role, error)
	Everyone(ctx context.Context) (*models.Role, error)
	BecomeMemberOf(ctx context.Context, memberID, groupID uuid.UUID) error
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
}

// Seed prepares a fresh installation. It makes sure the Everyone and Self
// roles exist, gives Self a password when it has none, and publishes a
// starter blog when there is no top-level content yet. Running it again
// changes nothing.
func Seed(ctx context.Context, roles SeedRoles, content *blurb.Service, ownerPassword string) error {
	everyone, err := roles.Everyone(ctx)
	if err != nil {
		return fmt.Errorf("seed everyone role: %w", err)
	}
	self, err := roles.Self(ctx)
	if err != nil {
		return fmt.Errorf("seed self role: %w", err)
	}
	if err := roles.BecomeMemberOf(ctx, self.ID, everyone.ID); err != nil {
		return fmt.Errorf("seed self membership: %w", err)
	}

	if !self.CanLogIn() && ownerPassword != "" {
		if err := roles.SetPassword(ctx, self.ID, ownerPassword); err != nil {
			return fmt.Errorf("seed owner password: %w", err)
		}
		slog.Info("owner password set", "owner", self.ExternalID)
	}

	existing, err := content.TopLevel(ctx)
	if err != nil {
		return fmt.Errorf("seed check content: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	blog, err := content.Create(ctx, blurb.TopLevelInput{
		Title:    "Notes",
		Body:     "Things worth writing down.",
		Flavor:   models.FlavorBlog,
		AuthorID: self.ID,
		Public:   true,
	})
	if err != nil {
		return fmt.Errorf("seed blog: %w", err)
	}

	// Readers may see and comment on every post, and see every comment.
	if _, err := content.PermitChildren(ctx, blog.Blurb.ID, everyone.ID, models.FlavorBlogPost,
		models.NewCapabilitySet(models.CapViewer, models.CapCommenter)); err != nil {
		return fmt.Errorf("seed post permission: %w", err)
	}
	if _, err := content.PermitChildren(ctx, blog.Blurb.ID, everyone.ID, models.FlavorBlogComment,
		models.NewCapabilitySet(models.CapViewer)); err != nil {
		return fmt.Errorf("seed comment permission: %w", err)
	}

	post, err := content.Post(ctx, blog.Blurb.ID, "Hello, world", "The first post.", self.ID)
	if err != nil {
		return fmt.Errorf("seed first post: %w", err)
	}

	slog.Info("database seeded",
		"blog_share", blog.ShareID,
		"post_share", post.ShareID,
	)
	return nil
}
