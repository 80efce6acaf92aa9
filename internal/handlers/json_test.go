// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"blurbpress/internal/apperr"
	"blurbpress/internal/blurb"
	"blurbpress/internal/sharing"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", validation.Errors{"title": errors.New("cannot be blank")}, http.StatusBadRequest},
		{"bad request", fmt.Errorf("%w: eof", errBadRequest), http.StatusBadRequest},
		{"unknown flavor", blurb.ErrUnknownFlavor, http.StatusBadRequest},
		{"unauthorized", errUnauthorized, http.StatusUnauthorized},
		{"illegal edit", sharing.ErrIllegalEdit, http.StatusForbidden},
		{"denied", fmt.Errorf("post: %w", sharing.ErrCapabilityDenied), http.StatusForbidden},
		{"no share", sharing.ErrNoSuchShare, http.StatusNotFound},
		{"not found", blurb.ErrNotFound, http.StatusNotFound},
		{"conflict", apperr.ErrAlreadyExists, http.StatusConflict},
		{"unpostable", blurb.ErrUnpostableFlavor, http.StatusUnprocessableEntity},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusForHidesInternalErrors(t *testing.T) {
	_, msg := statusFor(errors.New("pq: password authentication failed"))
	if msg != "internal error" {
		t.Errorf("message: got %q", msg)
	}
}
