// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/config"
	"blurbpress/internal/database"
	"blurbpress/internal/kvstore"
	"blurbpress/internal/models"
	"blurbpress/internal/sharing"
	"blurbpress/internal/store"
)

// roleStore is everything the server needs from a role directory.
type roleStore interface {
	Everyone(ctx context.Context) (*models.Role, error)
	Self(ctx context.Context) (*models.Role, error)
	PrimaryRole(ctx context.Context, externalID string, create bool) (*models.Role, error)
	Create(ctx context.Context, externalID, description string) (*models.Role, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Role, error)
	BecomeMemberOf(ctx context.Context, memberID, groupID uuid.UUID) error
	AllRoles(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	SetPassword(ctx context.Context, id uuid.UUID, password string) error
	CheckPassword(r *models.Role, password string) bool
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
}

// backend bundles the stores of one storage implementation.
type backend struct {
	tx      blurb.Transactor
	blurbs  blurb.ContentStore
	history blurb.HistoryStore
	meta    blurb.MetaStore
	grants  blurb.PermissionRegistry
	roles   roleStore
	shares  sharing.ShareStore

	ping  func(ctx context.Context) error
	gc    func(ctx context.Context)
	close func() error
}

// openBackend connects the storage backend selected in cfg. PostgreSQL
// is migrated before use.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Storage {
	case config.StorageEmbedded:
		kv, err := kvstore.Open(cfg.EmbeddedDir)
		if err != nil {
			return nil, err
		}
		return &backend{
			tx:      kv,
			blurbs:  kvstore.NewBlurbStore(kv),
			history: kvstore.NewHistoryStore(kv),
			meta:    kvstore.NewMetaStore(kv),
			grants:  kvstore.NewPermissionStore(kv),
			roles:   kvstore.NewRoleStore(kv, cfg.OwnerID),
			shares:  kvstore.NewShareStore(kv),
			ping:    func(context.Context) error { return nil },
			gc:      func(ctx context.Context) { kv.RunGC(ctx, 10*time.Minute) },
			close:   kv.Close,
		}, nil

	case config.StoragePostgres:
		db, err := database.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		return &backend{
			tx:      store.NewTxManager(db),
			blurbs:  store.NewBlurbStore(db),
			history: store.NewHistoryStore(db),
			meta:    store.NewMetaStore(db),
			grants:  store.NewPermissionStore(db),
			roles:   store.NewRoleStore(db, cfg.OwnerID),
			shares:  store.NewShareStore(db),
			ping:    db.PingContext,
			gc:      func(context.Context) {},
			close:   db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
}

// engine builds the publishing engine and the share resolver over b.
func (b *backend) engine() (*blurb.Service, *sharing.Resolver) {
	svc := blurb.NewService(b.tx, b.blurbs, b.history, b.meta, b.grants, b.roles,
		sharing.NewAllocator(b.shares))
	return svc, sharing.NewResolver(b.shares, b.roles, svc)
}
