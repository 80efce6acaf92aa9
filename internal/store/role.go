// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blurbpress/internal/models"
)

// roleColumns lists all columns for roles SELECTs.
const roleColumns = `id, external_id, description, password_hash, totp_secret, totp_enabled, created_at`

// RoleStore provides access to roles and their memberships in PostgreSQL.
type RoleStore struct {
	db     *sql.DB
	selfID string
}

// NewRoleStore creates a new RoleStore. selfID is the external ID of the
// site owner's role.
func NewRoleStore(db *sql.DB, selfID string) *RoleStore {
	return &RoleStore{db: db, selfID: selfID}
}

func scanRole(scanner interface{ Scan(...any) error }) (*models.Role, error) {
	var r models.Role
	if err := scanner.Scan(&r.ID, &r.ExternalID, &r.Description, &r.PasswordHash, &r.TOTPSecret, &r.TOTPEnabled, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a role without credentials. Returns ErrAlreadyExists if
// the external ID is taken.
func (s *RoleStore) Create(ctx context.Context, externalID, description string) (*models.Role, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO roles (external_id, description)
		VALUES ($1, $2)
		RETURNING `+roleColumns,
		externalID, description,
	)
	r, err := scanRole(row)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("create role %q: %w", externalID, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return r, nil
}

// FindByID retrieves a role by its UUID. Returns nil if not found.
func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	r, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	return r, nil
}

// FindByExternalID retrieves a role by its external ID. Returns nil if not
// found.
func (s *RoleStore) FindByExternalID(ctx context.Context, externalID string) (*models.Role, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `SELECT `+roleColumns+` FROM roles WHERE external_id = $1`, externalID)
	r, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find role by external id: %w", err)
	}
	return r, nil
}

// PrimaryRole returns the role for externalID. With create set a missing
// role is created and made a member of Everyone.
func (s *RoleStore) PrimaryRole(ctx context.Context, externalID string, create bool) (*models.Role, error) {
	r, err := s.FindByExternalID(ctx, externalID)
	if err != nil || r != nil || !create {
		return r, err
	}

	everyone, err := s.Everyone(ctx)
	if err != nil {
		return nil, err
	}
	r, err = s.Create(ctx, externalID, "")
	if errors.Is(err, ErrAlreadyExists) {
		return s.FindByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.BecomeMemberOf(ctx, r.ID, everyone.ID); err != nil {
		return nil, err
	}
	return r, nil
}

// Everyone returns the public role, creating it on first use.
func (s *RoleStore) Everyone(ctx context.Context) (*models.Role, error) {
	return s.wellKnown(ctx, models.EveryoneExternalID, "everyone")
}

// Self returns the site owner's role, creating it on first use.
func (s *RoleStore) Self(ctx context.Context) (*models.Role, error) {
	return s.wellKnown(ctx, s.selfID, "self")
}

func (s *RoleStore) wellKnown(ctx context.Context, externalID, description string) (*models.Role, error) {
	row := conn(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO roles (external_id, description)
		VALUES ($1, $2)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING `+roleColumns,
		externalID, description,
	)
	r, err := scanRole(row)
	if errors.Is(err, sql.ErrNoRows) {
		return s.FindByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure role %q: %w", externalID, err)
	}
	return r, nil
}

// BecomeMemberOf makes memberID a member of groupID. Repeating it is a
// no-op.
func (s *RoleStore) BecomeMemberOf(ctx context.Context, memberID, groupID uuid.UUID) error {
	if memberID == groupID {
		return nil
	}
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		INSERT INTO role_memberships (member_id, group_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING`,
		memberID, groupID,
	)
	if err != nil {
		return fmt.Errorf("add membership: %w", err)
	}
	return nil
}

// IsMemberOf reports whether memberID belongs to groupID, directly or
// through another group.
func (s *RoleStore) IsMemberOf(ctx context.Context, memberID, groupID uuid.UUID) (bool, error) {
	all, err := s.AllRoles(ctx, memberID)
	if err != nil {
		return false, err
	}
	for _, id := range all[1:] {
		if id == groupID {
			return true, nil
		}
	}
	return false, nil
}

// AllRoles returns roleID followed by every group it belongs to. UNION
// (not UNION ALL) keeps the recursion finite when memberships form a loop.
func (s *RoleStore) AllRoles(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := conn(ctx, s.db).QueryContext(ctx, `
		WITH RECURSIVE closure(id) AS (
			SELECT m.group_id FROM role_memberships m WHERE m.member_id = $1
			UNION
			SELECT m.group_id FROM role_memberships m JOIN closure c ON m.member_id = c.id
		)
		SELECT id FROM closure WHERE id <> $1`, roleID)
	if err != nil {
		return nil, fmt.Errorf("expand role memberships: %w", err)
	}
	defer rows.Close()

	all := []uuid.UUID{roleID}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role id: %w", err)
		}
		all = append(all, id)
	}
	return all, rows.Err()
}

// SetPassword stores a bcrypt hash of password so the role can log in.
func (s *RoleStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	res, err := conn(ctx, s.db).ExecContext(ctx, `UPDATE roles SET password_hash = $1 WHERE id = $2`, string(hash), id)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set password: role %s does not exist", id)
	}
	return nil
}

// CheckPassword verifies a plaintext password against the role's hash.
func (s *RoleStore) CheckPassword(r *models.Role, password string) bool {
	if !r.CanLogIn() {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(r.PasswordHash), []byte(password)) == nil
}

// SetTOTPSecret saves a pending TOTP secret. The second factor stays off
// until EnableTOTP confirms it.
func (s *RoleStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE roles SET totp_secret = $1, totp_enabled = FALSE WHERE id = $2`,
		secret, id,
	)
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active after the first code was verified.
func (s *RoleStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, s.db).ExecContext(ctx, `
		UPDATE roles SET totp_enabled = TRUE WHERE id = $1 AND totp_secret IS NOT NULL`, id)
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
	}
	return nil
}
