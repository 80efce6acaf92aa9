// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/handlers"
	"blurbpress/internal/kvstore"
	"blurbpress/internal/middleware"
	"blurbpress/internal/session"
	"blurbpress/internal/sharing"
)

// noSessions is a SessionLoader for anonymous traffic.
type noSessions struct{}

func (noSessions) Get(context.Context, *http.Request) (*session.Data, error) { return nil, nil }

// nopSessions satisfies handlers.SessionManager without storing anything.
type nopSessions struct{}

func (nopSessions) Create(context.Context, http.ResponseWriter, *session.Data) (string, error) {
	return "", nil
}

func (nopSessions) Destroy(context.Context, http.ResponseWriter, *http.Request) error { return nil }

func (nopSessions) RevokeOthers(context.Context, uuid.UUID, string) (int, error) { return 0, nil }

func testRouter(t *testing.T, loginLimit int) http.Handler {
	t.Helper()

	kv, err := kvstore.Open("")
	if err != nil {
		t.Fatalf("open kvstore: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	roles := kvstore.NewRoleStore(kv, "owner")
	shares := kvstore.NewShareStore(kv)
	svc := blurb.NewService(kv,
		kvstore.NewBlurbStore(kv), kvstore.NewHistoryStore(kv), kvstore.NewMetaStore(kv),
		kvstore.NewPermissionStore(kv), roles, sharing.NewAllocator(shares))

	counter := middleware.NewMemoryCounter()
	t.Cleanup(counter.Stop)
	limiter := middleware.NewRateLimiter(counter, "login", loginLimit, time.Minute)

	return New(noSessions{}, limiter, nil,
		handlers.NewAuth(nopSessions{}, roles),
		handlers.NewContent(svc, sharing.NewResolver(shares, roles, svc), roles, nil))
}

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(func(context.Context) error { return nil })(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

func TestHealthHandlerUnavailable(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(func(context.Context) error { return errors.New("valkey down") })(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestRoutes(t *testing.T) {
	h := testRouter(t, 10)

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"health", http.MethodGet, "/health", "", "", http.StatusOK},
		{"anonymous listing", http.MethodGet, "/api/blurbs", "", "", http.StatusOK},
		{"create needs session", http.MethodPost, "/api/blurbs", "application/json", "{}", http.StatusUnauthorized},
		{"create needs json", http.MethodPost, "/api/blurbs", "application/x-www-form-urlencoded", "title=x", http.StatusUnsupportedMediaType},
		{"unknown share", http.MethodGet, "/api/shares/nope", "", "", http.StatusNotFound},
		{"edit needs session", http.MethodPut, "/api/shares/nope", "application/json", "{}", http.StatusUnauthorized},
		{"retract needs session", http.MethodDelete, "/api/shares/nope", "", "", http.StatusUnauthorized},
		{"no session", http.MethodGet, "/api/session", "", "", http.StatusUnauthorized},
		{"totp setup needs session", http.MethodPost, "/api/session/totp", "application/json", "{}", http.StatusUnauthorized},
		{"logout without body", http.MethodDelete, "/api/session", "", "", http.StatusNoContent},
		{"unknown route", http.MethodGet, "/api/nothing", "", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s %s: got %d, want %d (body %s)", tt.method, tt.path, w.Code, tt.want, w.Body.String())
			}
			if w.Header().Get("X-Content-Type-Options") != "nosniff" {
				t.Error("security headers missing")
			}
		})
	}
}

func TestLoginRateLimited(t *testing.T) {
	h := testRouter(t, 2)

	var last int
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/session",
			strings.NewReader(`{"external_id":"owner","password":"wrong"}`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		last = w.Code
	}

	if last != http.StatusTooManyRequests {
		t.Errorf("third login: got %d, want 429", last)
	}
}
