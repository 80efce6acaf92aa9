// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kvstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// Key layout:
//
//	perm/<ancestor>/<flavor>/<id>  FlavorPermission
//	seq/perm                       last issued Seq

// PermissionStore is the embedded permission registry.
type PermissionStore struct {
	db *DB
}

// NewPermissionStore creates a PermissionStore.
func NewPermissionStore(db *DB) *PermissionStore {
	return &PermissionStore{db: db}
}

// Grant stores a new record. Duplicates are kept.
func (s *PermissionStore) Grant(ctx context.Context, p *models.FlavorPermission) (*models.FlavorPermission, error) {
	created := *p
	created.ID = uuid.New()
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now()
	}

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		seq, err := nextSeq(txn, key("seq", "perm"))
		if err != nil {
			return err
		}
		created.Seq = seq
		return setJSON(txn, key("perm", created.AncestorID.String(), string(created.TargetFlavor), created.ID.String()), &created)
	})
	if err != nil {
		return nil, fmt.Errorf("grant flavor permission: %w", err)
	}
	return &created, nil
}

// Lookup returns every record for the (ancestor, flavor) pair.
func (s *PermissionStore) Lookup(ctx context.Context, ancestorID uuid.UUID, flavor models.Flavor) ([]models.FlavorPermission, error) {
	var records []models.FlavorPermission
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		records, err = scanJSON[models.FlavorPermission](txn, prefix("perm", ancestorID.String(), string(flavor)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("lookup flavor permissions: %w", err)
	}
	return records, nil
}
