// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/base64"
	"log/slog"
	"net/http"

	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"

	"blurbpress/internal/middleware"
)

// totpIssuer names the site in authenticator apps.
const totpIssuer = "blurbpress"

type totpSetupResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
	QRPNG  string `json:"qr_png"` // base64
}

// TOTPSetup handles POST /api/session/totp. It generates a new secret for
// the logged-in role and returns it with a QR code. 2FA stays off until
// TOTPVerify confirms a code.
func (a *Auth) TOTPSetup(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	role, err := a.roles.FindByID(r.Context(), sess.RoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if role == nil {
		writeJSON(w, http.StatusUnauthorized, errResponse{Error: "role no longer exists"})
		return
	}
	if role.TOTPEnabled {
		writeJSON(w, http.StatusConflict, errResponse{Error: "2FA is already enabled"})
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: role.ExternalID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.roles.SetTOTPSecret(r.Context(), role.ID, key.Secret()); err != nil {
		writeError(w, r, err)
		return
	}

	png, err := qrcode.Encode(key.URL(), qrcode.Medium, 256)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totpSetupResponse{
		Secret: key.Secret(),
		URL:    key.URL(),
		QRPNG:  base64.StdEncoding.EncodeToString(png),
	})
}

// TOTPVerify handles POST /api/session/totp/verify. A valid code for the
// pending secret turns 2FA on and ends the role's other sessions.
func (a *Auth) TOTPVerify(w http.ResponseWriter, r *http.Request) {
	var in codeInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	sess := middleware.SessionFromCtx(r.Context())
	role, err := a.roles.FindByID(r.Context(), sess.RoleID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if role == nil || role.TOTPSecret == nil {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "2FA setup has not been started"})
		return
	}
	if !totp.Validate(in.Code, *role.TOTPSecret) {
		writeJSON(w, http.StatusBadRequest, errResponse{Error: "invalid code"})
		return
	}

	if err := a.roles.EnableTOTP(r.Context(), role.ID); err != nil {
		writeError(w, r, err)
		return
	}
	// Sessions opened with the password alone are signed out.
	revoked, err := a.sessions.RevokeOthers(r.Context(), role.ID, sess.ID)
	if err != nil {
		slog.Warn("revoking sessions after enabling 2FA failed", "role", role.ExternalID, "error", err)
	}
	slog.Info("2FA enabled", "role", role.ExternalID, "revoked_sessions", revoked)
	writeJSON(w, http.StatusOK, map[string]bool{"totp_enabled": true})
}
