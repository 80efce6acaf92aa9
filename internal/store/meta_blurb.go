// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// MetaStore provides access to blurb key/value metadata in PostgreSQL.
type MetaStore struct {
	db *sql.DB
}

// NewMetaStore creates a new MetaStore backed by the given database.
func NewMetaStore(db *sql.DB) *MetaStore {
	return &MetaStore{db: db}
}

// Set inserts or replaces the value stored under key for a blurb.
func (s *MetaStore) Set(ctx context.Context, blurbID uuid.UUID, key, value string) (*models.MetaBlurb, error) {
	var m models.MetaBlurb
	err := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO meta_blurbs (blurb_id, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (blurb_id, key) DO UPDATE SET value = EXCLUDED.value
		RETURNING id, blurb_id, key, value`,
		blurbID, key, value,
	).Scan(&m.ID, &m.BlurbID, &m.Key, &m.Value)
	if err != nil {
		return nil, fmt.Errorf("set meta blurb: %w", err)
	}
	return &m, nil
}

// ListByBlurb returns all metadata of a blurb ordered by key.
func (s *MetaStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.MetaBlurb, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT id, blurb_id, key, value FROM meta_blurbs WHERE blurb_id = $1 ORDER BY key`, blurbID)
	if err != nil {
		return nil, fmt.Errorf("list meta blurbs: %w", err)
	}
	defer rows.Close()

	var items []models.MetaBlurb
	for rows.Next() {
		var m models.MetaBlurb
		if err := rows.Scan(&m.ID, &m.BlurbID, &m.Key, &m.Value); err != nil {
			return nil, fmt.Errorf("scan meta blurb: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
