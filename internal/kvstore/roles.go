// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"blurbpress/internal/models"
)

// Key layout:
//
//	role/<id>                  Role
//	role_ext/<external id>     role ID
//	member/<member>/<group>    membership edge

// roleRecord is the stored form of a role. models.Role hides the password
// hash from JSON, so it cannot be stored directly.
type roleRecord struct {
	ID           uuid.UUID `json:"id"`
	ExternalID   string    `json:"external_id"`
	Description  string    `json:"description"`
	PasswordHash string    `json:"password_hash,omitempty"`
	TOTPSecret   *string   `json:"totp_secret,omitempty"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

func (rec *roleRecord) role() *models.Role {
	return &models.Role{
		ID:           rec.ID,
		ExternalID:   rec.ExternalID,
		Description:  rec.Description,
		PasswordHash: rec.PasswordHash,
		TOTPSecret:   rec.TOTPSecret,
		TOTPEnabled:  rec.TOTPEnabled,
		CreatedAt:    rec.CreatedAt,
	}
}

// RoleStore is the embedded role directory.
type RoleStore struct {
	db     *DB
	selfID string
}

// NewRoleStore creates a RoleStore. selfID is the external ID of the site
// owner's role.
func NewRoleStore(db *DB, selfID string) *RoleStore {
	return &RoleStore{db: db, selfID: selfID}
}

// Create stores a new role. The external ID must be unique.
func (s *RoleStore) Create(ctx context.Context, externalID, description string) (*models.Role, error) {
	r := roleRecord{
		ID:          uuid.New(),
		ExternalID:  externalID,
		Description: description,
		CreatedAt:   time.Now(),
	}
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		taken, err := exists(txn, key("role_ext", externalID))
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("role %q: %w", externalID, ErrAlreadyExists)
		}
		if err := setJSON(txn, key("role", r.ID.String()), &r); err != nil {
			return err
		}
		return txn.Set(key("role_ext", externalID), []byte(r.ID.String()))
	})
	if err != nil {
		return nil, fmt.Errorf("create role: %w", err)
	}
	return r.role(), nil
}

// FindByID returns a role, or nil if it does not exist.
func (s *RoleStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var r roleRecord
	var found bool
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, key("role", id.String()), &r)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find role by id: %w", err)
	}
	if !found {
		return nil, nil
	}
	return r.role(), nil
}

// FindByExternalID returns a role by external ID, or nil.
func (s *RoleStore) FindByExternalID(ctx context.Context, externalID string) (*models.Role, error) {
	var r *models.Role
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		item, err := txn.Get(key("role_ext", externalID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		idBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var found roleRecord
		ok, err := getJSON(txn, key("role", string(idBytes)), &found)
		if err != nil || !ok {
			return err
		}
		r = found.role()
		return nil
	})
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

	err = s.db.RunInTx(ctx, func(ctx context.Context) error {
		r, err = s.Create(ctx, externalID, "")
		if err != nil {
			return err
		}
		everyone, err := s.Everyone(ctx)
		if err != nil {
			return err
		}
		return s.BecomeMemberOf(ctx, r.ID, everyone.ID)
	})
	if err != nil {
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
	r, err := s.FindByExternalID(ctx, externalID)
	if err != nil || r != nil {
		return r, err
	}
	r, err = s.Create(ctx, externalID, description)
	if errors.Is(err, ErrAlreadyExists) {
		return s.FindByExternalID(ctx, externalID)
	}
	return r, err
}

// BecomeMemberOf makes memberID a member of groupID. Repeating it is a
// no-op.
func (s *RoleStore) BecomeMemberOf(ctx context.Context, memberID, groupID uuid.UUID) error {
	if memberID == groupID {
		return nil
	}
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		return txn.Set(key("member", memberID.String(), groupID.String()), nil)
	})
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
	for _, id := range all {
		if id == groupID && id != memberID {
			return true, nil
		}
	}
	return false, nil
}

// AllRoles returns roleID followed by every group it belongs to.
func (s *RoleStore) AllRoles(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{roleID: true}
	all := []uuid.UUID{roleID}
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		for i := 0; i < len(all); i++ {
			p := prefix("member", all[i].String())
			for _, k := range keysWithPrefix(txn, p) {
				groupID, err := uuid.ParseBytes(k[len(p):])
				if err != nil {
					return fmt.Errorf("membership key %s: %w", k, err)
				}
				if !seen[groupID] {
					seen[groupID] = true
					all = append(all, groupID)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("expand role memberships: %w", err)
	}
	return all, nil
}

// SetPassword stores a bcrypt hash of password so the role can log in.
func (s *RoleStore) SetPassword(ctx context.Context, id uuid.UUID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	err = s.modify(ctx, id, func(r *roleRecord) {
		r.PasswordHash = string(hash)
	})
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// modify applies fn to the stored record of role id.
func (s *RoleStore) modify(ctx context.Context, id uuid.UUID, fn func(*roleRecord)) error {
	return s.db.update(ctx, func(txn *badger.Txn) error {
		var r roleRecord
		found, err := getJSON(txn, key("role", id.String()), &r)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("role %s does not exist", id)
		}
		fn(&r)
		return setJSON(txn, key("role", id.String()), &r)
	})
}

// SetTOTPSecret saves a pending TOTP secret and turns 2FA off until
// EnableTOTP confirms it.
func (s *RoleStore) SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error {
	err := s.modify(ctx, id, func(r *roleRecord) {
		r.TOTPSecret = &secret
		r.TOTPEnabled = false
	})
	if err != nil {
		return fmt.Errorf("set totp secret: %w", err)
	}
	return nil
}

// EnableTOTP marks 2FA as active. It does nothing without a secret.
func (s *RoleStore) EnableTOTP(ctx context.Context, id uuid.UUID) error {
	err := s.modify(ctx, id, func(r *roleRecord) {
		r.TOTPEnabled = r.TOTPSecret != nil
	})
	if err != nil {
		return fmt.Errorf("enable totp: %w", err)
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
