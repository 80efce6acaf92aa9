// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package store provides PostgreSQL-backed persistence for blurbs, roles,
// flavor permissions and shares. Every method takes a context; calls made
// with a context from TxManager.RunInTx run inside that transaction.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// blurbColumns lists all columns for blurbs SELECTs.
const blurbColumns = `id, parent_id, flavor, title, body, hits, author_id,
	date_created, date_last_edited`

// psql builds PostgreSQL statements with numbered placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BlurbStore provides access to blurbs in PostgreSQL.
type BlurbStore struct {
	db *sql.DB
}

// NewBlurbStore creates a new BlurbStore backed by the given database.
func NewBlurbStore(db *sql.DB) *BlurbStore {
	return &BlurbStore{db: db}
}

// scanBlurb scans a single blurbs row into a Blurb.
func scanBlurb(scanner interface{ Scan(...any) error }) (*models.Blurb, error) {
	var b models.Blurb
	err := scanner.Scan(
		&b.ID, &b.ParentID, &b.Flavor, &b.Title, &b.Body, &b.Hits,
		&b.AuthorID, &b.DateCreated, &b.DateLastEdited,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// Create inserts a new blurb and returns it with the generated ID.
// Zero timestamps default to the current time.
func (s *BlurbStore) Create(ctx context.Context, b *models.Blurb) (*models.Blurb, error) {
	created := b.DateCreated
	if created.IsZero() {
		created = time.Now()
	}
	edited := b.DateLastEdited
	if edited.IsZero() {
		edited = created
	}

	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO blurbs (parent_id, flavor, title, body, hits, author_id, date_created, date_last_edited)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+blurbColumns,
		b.ParentID, b.Flavor, b.Title, b.Body, b.Hits, b.AuthorID, created, edited,
	)
	out, err := scanBlurb(row)
	if err != nil {
		return nil, fmt.Errorf("create blurb: %w", err)
	}
	return out, nil
}

// FindByID retrieves a blurb by its UUID. Returns nil if not found.
func (s *BlurbStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Blurb, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+blurbColumns+` FROM blurbs WHERE id = $1`, id)
	b, err := scanBlurb(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find blurb by id: %w", err)
	}
	return b, nil
}

// Update saves the editable fields of a blurb.
func (s *BlurbStore) Update(ctx context.Context, b *models.Blurb) error {
	res, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE blurbs
		SET title = $1, body = $2, author_id = $3, date_last_edited = $4
		WHERE id = $5`,
		b.Title, b.Body, b.AuthorID, b.DateLastEdited, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update blurb: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update blurb: %s not found", b.ID)
	}
	return nil
}

// IncrementHits adds one to the display counter and returns the new
// count. A missing blurb counts nothing and returns 0.
func (s *BlurbStore) IncrementHits(ctx context.Context, id uuid.UUID) (int64, error) {
	var hits int64
	err := conn(ctx, s.db).QueryRowContext(ctx,
		`UPDATE blurbs SET hits = hits + 1 WHERE id = $1 RETURNING hits`, id).Scan(&hits)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("increment hits: %w", err)
	}
	return hits, nil
}

// Query returns blurbs matching f, oldest first.
func (s *BlurbStore) Query(ctx context.Context, f models.BlurbFilter) ([]models.Blurb, error) {
	q := psql.Select(blurbColumns).From("blurbs").OrderBy("date_created ASC", "id ASC")

	switch {
	case f.TopLevel:
		q = q.Where(sq.Eq{"parent_id": nil})
	case f.ParentID != nil:
		q = q.Where(sq.Eq{"parent_id": *f.ParentID})
	}
	if f.Flavor != "" {
		q = q.Where(sq.Eq{"flavor": f.Flavor})
	}
	if f.AuthorID != nil {
		q = q.Where(sq.Eq{"author_id": *f.AuthorID})
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build blurb query: %w", err)
	}

	rows, err := conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query blurbs: %w", err)
	}
	defer rows.Close()

	var items []models.Blurb
	for rows.Next() {
		b, err := scanBlurb(rows)
		if err != nil {
			return nil, fmt.Errorf("scan blurb: %w", err)
		}
		items = append(items, *b)
	}
	return items, rows.Err()
}
