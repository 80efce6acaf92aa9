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

const permissionColumns = `id, seq, ancestor_id, target_flavor, role_id, capabilities, created_at`

// PermissionStore keeps flavor permission records in PostgreSQL. Records
// are append-only; seq orders them by creation.
type PermissionStore struct {
	db *sql.DB
}

// NewPermissionStore creates a new PermissionStore backed by the given database.
func NewPermissionStore(db *sql.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

func scanPermission(scanner interface{ Scan(...any) error }) (*models.FlavorPermission, error) {
	var (
		p    models.FlavorPermission
		caps string
	)
	if err := scanner.Scan(&p.ID, &p.Seq, &p.AncestorID, &p.TargetFlavor, &p.RoleID, &caps, &p.CreatedAt); err != nil {
		return nil, err
	}
	set, err := models.ParseCapabilitySet(caps)
	if err != nil {
		return nil, fmt.Errorf("permission %s: %w", p.ID, err)
	}
	p.Capabilities = set
	return &p, nil
}

// Grant appends a permission record.
func (s *PermissionStore) Grant(ctx context.Context, p *models.FlavorPermission) (*models.FlavorPermission, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO flavor_permissions (ancestor_id, target_flavor, role_id, capabilities)
		VALUES ($1, $2, $3, $4)
		RETURNING `+permissionColumns,
		p.AncestorID, p.TargetFlavor, p.RoleID, p.Capabilities.String(),
	)
	out, err := scanPermission(row)
	if err != nil {
		return nil, fmt.Errorf("grant flavor permission: %w", err)
	}
	return out, nil
}

// Lookup returns every record declared on ancestorID for flavor, oldest
// first.
func (s *PermissionStore) Lookup(ctx context.Context, ancestorID uuid.UUID, flavor models.Flavor) ([]models.FlavorPermission, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `
		SELECT `+permissionColumns+` FROM flavor_permissions
		WHERE ancestor_id = $1 AND target_flavor = $2
		ORDER BY seq`, ancestorID, flavor)
	if err != nil {
		return nil, fmt.Errorf("lookup flavor permissions: %w", err)
	}
	defer rows.Close()

	var items []models.FlavorPermission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flavor permission: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}
