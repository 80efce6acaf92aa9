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

const shareColumns = `id, share_id, blurb_id, role_id, capabilities, created_at`

// ShareStore provides access to shares in PostgreSQL.
type ShareStore struct {
	db *sql.DB
}

// NewShareStore creates a new ShareStore backed by the given database.
func NewShareStore(db *sql.DB) *ShareStore {
	return &ShareStore{db: db}
}

func scanShare(scanner interface{ Scan(...any) error }) (*models.Share, error) {
	var (
		sh   models.Share
		caps string
	)
	if err := scanner.Scan(&sh.ID, &sh.ShareID, &sh.BlurbID, &sh.RoleID, &caps, &sh.CreatedAt); err != nil {
		return nil, err
	}
	set, err := models.ParseCapabilitySet(caps)
	if err != nil {
		return nil, fmt.Errorf("share %s: %w", sh.ID, err)
	}
	sh.Capabilities = set
	return &sh, nil
}

func collectShares(rows *sql.Rows) ([]models.Share, error) {
	defer rows.Close()
	var items []models.Share
	for rows.Next() {
		sh, err := scanShare(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		items = append(items, *sh)
	}
	return items, rows.Err()
}

// Create inserts a share. Returns ErrAlreadyExists if the role already
// holds a share under the same share ID.
func (s *ShareStore) Create(ctx context.Context, sh *models.Share) (*models.Share, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO shares (share_id, blurb_id, role_id, capabilities)
		VALUES ($1, $2, $3, $4)
		RETURNING `+shareColumns,
		sh.ShareID, sh.BlurbID, sh.RoleID, sh.Capabilities.String(),
	)
	out, err := scanShare(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create share %s: %w", sh.ShareID, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("create share: %w", err)
	}
	return out, nil
}

// FindByShareID returns the shares filed under shareID that are held by
// any of roleIDs.
func (s *ShareStore) FindByShareID(ctx context.Context, shareID string, roleIDs []uuid.UUID) ([]models.Share, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(roleIDs))
	for i, id := range roleIDs {
		ids[i] = id.String()
	}

	rows, err := conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+shareColumns+` FROM shares
		WHERE share_id = $1 AND role_id = ANY($2::text[]::uuid[])
		ORDER BY created_at`, shareID, ids)
	if err != nil {
		return nil, fmt.Errorf("find shares: %w", err)
	}
	return collectShares(rows)
}

// ListByBlurb returns every share of a blurb.
func (s *ShareStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.Share, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx,
		`SELECT `+shareColumns+` FROM shares WHERE blurb_id = $1 ORDER BY created_at`, blurbID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	return collectShares(rows)
}

// DeleteByBlurb retracts every share of a blurb.
func (s *ShareStore) DeleteByBlurb(ctx context.Context, blurbID uuid.UUID) error {
	if _, err := conn(ctx, s.db).ExecContext(ctx, `DELETE FROM shares WHERE blurb_id = $1`, blurbID); err != nil {
		return fmt.Errorf("delete shares: %w", err)
	}
	return nil
}
