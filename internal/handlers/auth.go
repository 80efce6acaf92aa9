// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	"blurbpress/internal/middleware"
	"blurbpress/internal/models"
	"blurbpress/internal/session"
)

// Credentials looks roles up and manages their login factors.
type Credentials interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Role, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Role, error)
	CheckPassword(r *models.Role, password string) bool
	SetTOTPSecret(ctx context.Context, id uuid.UUID, secret string) error
	EnableTOTP(ctx context.Context, id uuid.UUID) error
}

// SessionManager opens and closes sessions.
type SessionManager interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
	RevokeOthers(ctx context.Context, roleID uuid.UUID, keepID string) (int, error)
}

// Auth groups the session endpoints.
type Auth struct {
	sessions SessionManager
	roles    Credentials
}

// NewAuth creates a new Auth handler group.
func NewAuth(sessions SessionManager, roles Credentials) *Auth {
	return &Auth{sessions: sessions, roles: roles}
}

type sessionResponse struct {
	RoleID     string `json:"role_id"`
	ExternalID string `json:"external_id"`
}

// Login handles POST /api/session. Unknown roles, roles without a
// password and wrong passwords all get the same 401. Roles with 2FA
// enabled must also send a current TOTP code.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	role, err := a.roles.FindByExternalID(r.Context(), in.ExternalID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if role == nil || !a.roles.CheckPassword(role, in.Password) {
		slog.Info("login failed", "external_id", in.ExternalID)
		writeError(w, r, errUnauthorized)
		return
	}
	if role.TOTPEnabled {
		if in.Code == "" {
			writeJSON(w, http.StatusUnauthorized, errResponse{Error: "totp code required"})
			return
		}
		if !totp.Validate(in.Code, *role.TOTPSecret) {
			slog.Info("login failed: bad totp code", "external_id", in.ExternalID)
			writeError(w, r, errUnauthorized)
			return
		}
	}

	if _, err := a.sessions.Create(r.Context(), w, &session.Data{
		RoleID:     role.ID,
		ExternalID: role.ExternalID,
	}); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("login succeeded", "role", role.ExternalID)
	writeJSON(w, http.StatusOK, sessionResponse{RoleID: role.ID.String(), ExternalID: role.ExternalID})
}

// Current handles GET /api/session.
func (a *Auth) Current(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		writeJSON(w, http.StatusUnauthorized, errResponse{Error: "not logged in"})
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{RoleID: sess.RoleID.String(), ExternalID: sess.ExternalID})
}

// Logout handles DELETE /api/session.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
