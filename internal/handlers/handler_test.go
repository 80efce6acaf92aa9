// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// Content lives in an in-memory embedded store, so no external services
// are needed.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/cache"
	"blurbpress/internal/kvstore"
	"blurbpress/internal/middleware"
	"blurbpress/internal/models"
	"blurbpress/internal/session"
	"blurbpress/internal/sharing"
)

// fakeSessions records sessions instead of talking to Valkey.
type fakeSessions struct {
	created   []*session.Data
	destroyed int
	revoked   []uuid.UUID
}

func (f *fakeSessions) Create(_ context.Context, w http.ResponseWriter, data *session.Data) (string, error) {
	f.created = append(f.created, data)
	http.SetCookie(w, &http.Cookie{Name: session.CookieName, Value: "test-session"})
	return "test-session", nil
}

func (f *fakeSessions) Destroy(_ context.Context, _ http.ResponseWriter, _ *http.Request) error {
	f.destroyed++
	return nil
}

func (f *fakeSessions) RevokeOthers(_ context.Context, roleID uuid.UUID, _ string) (int, error) {
	f.revoked = append(f.revoked, roleID)
	return 0, nil
}

// memViews is an in-process ViewCache.
type memViews struct {
	mu    sync.Mutex
	views map[string]*cache.View
}

func newMemViews() *memViews {
	return &memViews{views: make(map[string]*cache.View)}
}

func (m *memViews) Get(_ context.Context, shareID string) (*cache.View, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.views[shareID]
	return v, ok
}

func (m *memViews) Set(_ context.Context, shareID string, v *cache.View) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views[shareID] = v
}

func (m *memViews) Invalidate(_ context.Context, shareID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.views, shareID)
}

// testEnv bundles the engine, its stores and a router exposing the
// handlers under test.
type testEnv struct {
	roles    *kvstore.RoleStore
	svc      *blurb.Service
	sessions *fakeSessions
	views    *memViews
	router   chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
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
	resolver := sharing.NewResolver(shares, roles, svc)

	env := &testEnv{
		roles:    roles,
		svc:      svc,
		sessions: &fakeSessions{},
		views:    newMemViews(),
	}
	auth := NewAuth(env.sessions, roles)
	content := NewContent(svc, resolver, roles, env.views)

	r := chi.NewRouter()
	r.Post("/api/session", auth.Login)
	r.Get("/api/session", auth.Current)
	r.Delete("/api/session", auth.Logout)
	r.With(middleware.RequireAuth).Post("/api/session/totp", auth.TOTPSetup)
	r.With(middleware.RequireAuth).Post("/api/session/totp/verify", auth.TOTPVerify)
	r.Get("/api/blurbs", content.List)
	r.With(middleware.RequireAuth).Post("/api/blurbs", content.Create)
	r.Route("/api/shares/{shareID}", func(r chi.Router) {
		r.Get("/", content.View)
		r.Get("/children", content.Children)
		r.Get("/history", content.History)
		r.Get("/meta", content.Meta)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Put("/", content.Edit)
			r.Delete("/", content.Retract)
			r.Get("/grants", content.Grants)
			r.Post("/children", content.Post)
			r.Post("/permissions", content.Permit)
			r.Put("/meta", content.SetMeta)
		})
	})
	env.router = r
	return env
}

// role creates a role that can log in and joins it to Everyone.
func (e *testEnv) role(t *testing.T, externalID string) *models.Role {
	t.Helper()
	ctx := context.Background()
	r, err := e.roles.PrimaryRole(ctx, externalID, true)
	if err != nil {
		t.Fatalf("PrimaryRole(%s): %v", externalID, err)
	}
	if err := e.roles.SetPassword(ctx, r.ID, "pw-"+externalID); err != nil {
		t.Fatalf("SetPassword: %v", err)
	}
	return r
}

// do sends a JSON request, acting as the given role when it is non-nil.
func (e *testEnv) do(t *testing.T, as *models.Role, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req = req.WithContext(middleware.WithSession(req.Context(), &session.Data{
			RoleID:     as.ID,
			ExternalID: as.ExternalID,
		}))
	}

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// decode unmarshals a response body, failing the test on error.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func wantStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status: got %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

// publish creates a top-level blurb as owner and returns its share ID.
func (e *testEnv) publish(t *testing.T, owner *models.Role, title string, flavor models.Flavor, public bool) postResponse {
	t.Helper()
	rec := e.do(t, owner, http.MethodPost, "/api/blurbs", map[string]any{
		"title": title, "body": "about " + title, "flavor": string(flavor), "public": public,
	})
	wantStatus(t, rec, http.StatusCreated)
	return decode[postResponse](t, rec)
}

