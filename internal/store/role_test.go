// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"blurbpress/internal/models"
)

func TestRoleStoreCreateDuplicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner")
	r := testRole(t, db, "dup")

	_, err := s.Create(ctx, r.ExternalID, "again")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate external id: got %v, want ErrAlreadyExists", err)
	}

	found, err := s.FindByExternalID(ctx, r.ExternalID)
	if err != nil || found == nil {
		t.Fatalf("FindByExternalID: %v %v", found, err)
	}
	if found.ID != r.ID {
		t.Errorf("ID mismatch: got %s, want %s", found.ID, r.ID)
	}
}

func TestRoleStorePrimaryRole(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner")
	name := "primary-" + uuid.NewString()
	t.Cleanup(func() { db.Exec("DELETE FROM roles WHERE external_id = $1", name) })

	r, err := s.PrimaryRole(ctx, name, false)
	if err != nil {
		t.Fatalf("PrimaryRole without create: %v", err)
	}
	if r != nil {
		t.Fatal("expected nil without create")
	}

	r, err = s.PrimaryRole(ctx, name, true)
	if err != nil || r == nil {
		t.Fatalf("PrimaryRole: %v %v", r, err)
	}
	everyone, err := s.Everyone(ctx)
	if err != nil {
		t.Fatalf("Everyone: %v", err)
	}
	member, err := s.IsMemberOf(ctx, r.ID, everyone.ID)
	if err != nil {
		t.Fatalf("IsMemberOf: %v", err)
	}
	if !member {
		t.Error("new primary role should be a member of Everyone")
	}

	again, err := s.PrimaryRole(ctx, name, true)
	if err != nil {
		t.Fatalf("PrimaryRole again: %v", err)
	}
	if again.ID != r.ID {
		t.Errorf("PrimaryRole should be stable: got %s, want %s", again.ID, r.ID)
	}
}

func TestRoleStoreAllRolesWithLoop(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner")
	a := testRole(t, db, "loop-a")
	b := testRole(t, db, "loop-b")
	c := testRole(t, db, "loop-c")

	for _, m := range [][2]uuid.UUID{{a.ID, b.ID}, {b.ID, c.ID}, {c.ID, a.ID}, {a.ID, b.ID}} {
		if err := s.BecomeMemberOf(ctx, m[0], m[1]); err != nil {
			t.Fatalf("BecomeMemberOf: %v", err)
		}
	}

	all, err := s.AllRoles(ctx, a.ID)
	if err != nil {
		t.Fatalf("AllRoles: %v", err)
	}
	if len(all) != 3 || all[0] != a.ID {
		t.Fatalf("AllRoles: got %v, want a first then b and c", all)
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range all {
		seen[id] = true
	}
	if !seen[b.ID] || !seen[c.ID] {
		t.Errorf("AllRoles missing transitive groups: %v", all)
	}
}

func TestRoleStorePassword(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner")
	r := testRole(t, db, "login")

	if s.CheckPassword(r, "") {
		t.Error("role without credentials must not log in")
	}
	if err := s.SetPassword(ctx, r.ID, "correct horse"); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	r, err := s.FindByID(ctx, r.ID)
	if err != nil || r == nil {
		t.Fatalf("FindByID: %v %v", r, err)
	}
	if r.PasswordHash == "correct horse" {
		t.Error("password hash must not be plaintext")
	}
	if !s.CheckPassword(r, "correct horse") {
		t.Error("expected correct password to pass")
	}
	if s.CheckPassword(r, "wrong") {
		t.Error("expected wrong password to fail")
	}
	if err := s.SetPassword(ctx, uuid.New(), "x"); err == nil {
		t.Error("expected error for missing role")
	}
}

func TestRoleStoreTOTP(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner")
	r := testRole(t, db, "totp")

	if err := s.EnableTOTP(ctx, r.ID); err != nil {
		t.Fatalf("EnableTOTP without secret: %v", err)
	}
	got, _ := s.FindByID(ctx, r.ID)
	if got.TOTPEnabled {
		t.Error("2FA enabled without a secret")
	}

	if err := s.SetTOTPSecret(ctx, r.ID, "JBSWY3DPEHPK3PXP"); err != nil {
		t.Fatalf("SetTOTPSecret: %v", err)
	}
	got, _ = s.FindByID(ctx, r.ID)
	if got.TOTPSecret == nil || *got.TOTPSecret != "JBSWY3DPEHPK3PXP" || got.TOTPEnabled {
		t.Fatalf("after SetTOTPSecret: secret %v enabled %v", got.TOTPSecret, got.TOTPEnabled)
	}

	if err := s.EnableTOTP(ctx, r.ID); err != nil {
		t.Fatalf("EnableTOTP: %v", err)
	}
	got, _ = s.FindByID(ctx, r.ID)
	if !got.TOTPEnabled {
		t.Error("2FA should be enabled")
	}
}

func TestRoleStoreWellKnown(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	s := NewRoleStore(db, "owner-"+uuid.NewString())
	self, err := s.Self(ctx)
	if err != nil {
		t.Fatalf("Self: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM roles WHERE id = $1", self.ID) })

	again, err := s.Self(ctx)
	if err != nil {
		t.Fatalf("Self again: %v", err)
	}
	if again.ID != self.ID {
		t.Errorf("Self should be stable: got %s, want %s", again.ID, self.ID)
	}

	everyone, err := s.Everyone(ctx)
	if err != nil {
		t.Fatalf("Everyone: %v", err)
	}
	if everyone.ExternalID != models.EveryoneExternalID {
		t.Errorf("external id: got %q, want %q", everyone.ExternalID, models.EveryoneExternalID)
	}
}
