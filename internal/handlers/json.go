// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API over the publishing engine and
// the share resolver.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"blurbpress/internal/apperr"
	"blurbpress/internal/blurb"
	"blurbpress/internal/sharing"
)

// maxRequestBytes caps every JSON request body.
const maxRequestBytes = 1 << 20

var (
	errBadRequest   = errors.New("bad request")
	errUnauthorized = errors.New("invalid credentials")
)

type errResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", "error", err)
	}
}

// decodeJSON reads a single JSON object into v and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, v validation.Validatable) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return v.Validate()
}

// statusFor maps an error to its HTTP status and the message shown to
// the client.
func statusFor(err error) (int, string) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		return http.StatusBadRequest, verrs.Error()
	case errors.Is(err, errBadRequest),
		errors.Is(err, blurb.ErrUnknownFlavor),
		errors.Is(err, blurb.ErrInvalidGrant),
		errors.Is(err, blurb.ErrMissingAuthor):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, errUnauthorized):
		return http.StatusUnauthorized, errUnauthorized.Error()
	case errors.Is(err, sharing.ErrIllegalEdit):
		return http.StatusForbidden, "illegal edit attempt"
	case errors.Is(err, sharing.ErrCapabilityDenied):
		return http.StatusForbidden, "capability denied"
	case errors.Is(err, sharing.ErrNoSuchShare), errors.Is(err, blurb.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, apperr.ErrAlreadyExists):
		return http.StatusConflict, "already exists"
	case errors.Is(err, blurb.ErrUnpostableFlavor):
		return http.StatusUnprocessableEntity, blurb.ErrUnpostableFlavor.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// writeError answers with the status statusFor picks. Server errors are
// logged with the request they failed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errResponse{Error: msg})
}
