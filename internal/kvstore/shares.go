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
//	share/<share id>/<role>                Share
//	share_blurb/<blurb>/<share id>/<role>  index by blurb

// ShareStore keeps shares.
type ShareStore struct {
	db *DB
}

// NewShareStore creates a ShareStore.
func NewShareStore(db *DB) *ShareStore {
	return &ShareStore{db: db}
}

// Create stores a share. A role can hold only one share per share ID.
func (s *ShareStore) Create(ctx context.Context, sh *models.Share) (*models.Share, error) {
	created := *sh
	created.ID = uuid.New()
	created.CreatedAt = time.Now()

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		k := key("share", created.ShareID, created.RoleID.String())
		taken, err := exists(txn, k)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("share %q for role %s: %w", created.ShareID, created.RoleID, ErrAlreadyExists)
		}
		if err := setJSON(txn, k, &created); err != nil {
			return err
		}
		return txn.Set(key("share_blurb", created.BlurbID.String(), created.ShareID, created.RoleID.String()), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	return &created, nil
}

// FindByShareID returns the shares filed under shareID for any of roleIDs.
func (s *ShareStore) FindByShareID(ctx context.Context, shareID string, roleIDs []uuid.UUID) ([]models.Share, error) {
	var found []models.Share
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for _, roleID := range roleIDs {
			var sh models.Share
			ok, err := getJSON(txn, key("share", shareID, roleID.String()), &sh)
			if err != nil {
				return err
			}
			if ok {
				found = append(found, sh)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find shares: %w", err)
	}
	return found, nil
}

// ListByBlurb returns every share of a blurb.
func (s *ShareStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.Share, error) {
	var shares []models.Share
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		p := prefix("share_blurb", blurbID.String())
		for _, k := range keysWithPrefix(txn, p) {
			// <share id>/<role>; share IDs never contain '/'.
			rest := string(k[len(p):])
			var sh models.Share
			ok, err := getJSON(txn, append([]byte("share/"), rest...), &sh)
			if err != nil {
				return err
			}
			if ok {
				shares = append(shares, sh)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list shares by blurb: %w", err)
	}
	return shares, nil
}

// DeleteByBlurb retracts every share of a blurb.
func (s *ShareStore) DeleteByBlurb(ctx context.Context, blurbID uuid.UUID) error {
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		p := prefix("share_blurb", blurbID.String())
		for _, k := range keysWithPrefix(txn, p) {
			if err := txn.Delete(append([]byte("share/"), k[len(p):]...)); err != nil {
				return err
			}
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete shares: %w", err)
	}
	return nil
}
