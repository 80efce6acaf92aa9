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

const pastBlurbColumns = `id, blurb_id, title, body, hits, author_id, date_edited, created_at`

// HistoryStore provides access to blurb snapshots in PostgreSQL.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore creates a new HistoryStore backed by the given database.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

func scanPastBlurb(scanner interface{ Scan(...any) error }) (*models.PastBlurb, error) {
	var p models.PastBlurb
	err := scanner.Scan(&p.ID, &p.BlurbID, &p.Title, &p.Body, &p.Hits, &p.AuthorID, &p.DateEdited, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a snapshot and returns it with the generated ID.
func (s *HistoryStore) Create(ctx context.Context, p *models.PastBlurb) (*models.PastBlurb, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO past_blurbs (blurb_id, title, body, hits, author_id, date_edited)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+pastBlurbColumns,
		p.BlurbID, p.Title, p.Body, p.Hits, p.AuthorID, p.DateEdited,
	)
	out, err := scanPastBlurb(row)
	if err != nil {
		return nil, fmt.Errorf("create past blurb: %w", err)
	}
	return out, nil
}

// ListByBlurb returns every snapshot of a blurb, newest first.
func (s *HistoryStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.PastBlurb, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+pastBlurbColumns+` FROM past_blurbs
		WHERE blurb_id = $1
		ORDER BY date_edited DESC, created_at DESC`, blurbID)
	if err != nil {
		return nil, fmt.Errorf("list past blurbs: %w", err)
	}
	defer rows.Close()

	var items []models.PastBlurb
	for rows.Next() {
		p, err := scanPastBlurb(rows)
		if err != nil {
			return nil, fmt.Errorf("scan past blurb: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
