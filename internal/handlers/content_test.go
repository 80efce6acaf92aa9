// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"
	"slices"
	"strings"
	"testing"

	"blurbpress/internal/models"
	"blurbpress/internal/sharing"
)

func TestCreateRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, nil, http.MethodPost, "/api/blurbs",
		map[string]any{"title": "Cooking", "flavor": string(models.FlavorBlog)})
	wantStatus(t, rec, http.StatusUnauthorized)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"unknown flavor", map[string]any{"title": "Cooking", "flavor": "FLAVOR.DIARY"}},
		{"missing flavor", map[string]any{"title": "Cooking"}},
		{"blank title", map[string]any{"title": "   ", "flavor": string(models.FlavorBlog)}},
		{"title too long", map[string]any{"title": strings.Repeat("a", maxTitleLen+1), "flavor": string(models.FlavorBlog)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, alice, http.MethodPost, "/api/blurbs", tt.body)
			wantStatus(t, rec, http.StatusBadRequest)
		})
	}
}

func TestPublicBlogView(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	created := env.publish(t, alice, "Cooking", models.FlavorBlog, true)

	if created.ShareID == "" {
		t.Fatal("expected a share ID")
	}

	rec := env.do(t, nil, http.MethodGet, "/api/shares/"+created.ShareID, nil)
	wantStatus(t, rec, http.StatusOK)
	view := decode[shareView](t, rec)
	if !slices.Equal(view.Capabilities, []string{string(models.CapViewer)}) {
		t.Errorf("anonymous capabilities: got %v", view.Capabilities)
	}
	if view.Blurb.Title != "Cooking" {
		t.Errorf("title: got %q", view.Blurb.Title)
	}

	// The second anonymous read comes from the view cache but still counts.
	rec = env.do(t, nil, http.MethodGet, "/api/shares/"+created.ShareID, nil)
	wantStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Cache") != "HIT" {
		t.Error("expected a cached view")
	}

	b, err := env.svc.Get(t.Context(), created.Blurb.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Hits != 2 {
		t.Errorf("hits: got %d, want 2", b.Hits)
	}

	rec = env.do(t, alice, http.MethodGet, "/api/shares/"+created.ShareID, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[shareView](t, rec).Capabilities; !slices.Contains(got, string(models.CapAuthor)) {
		t.Errorf("author capabilities: got %v", got)
	}
}

func TestCachedViewReportsCurrentHits(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	created := env.publish(t, alice, "Cooking", models.FlavorBlog, true)
	path := "/api/shares/" + created.ShareID

	for want := int64(1); want <= 3; want++ {
		rec := env.do(t, nil, http.MethodGet, path, nil)
		wantStatus(t, rec, http.StatusOK)
		if cached := rec.Header().Get("X-Cache") == "HIT"; cached != (want > 1) {
			t.Errorf("view %d: cached = %v", want, cached)
		}
		if got := decode[shareView](t, rec).Blurb.Hits; got != want {
			t.Errorf("view %d: hits = %d, want %d", want, got, want)
		}
	}

	// A signed-in view bypasses the cache and sees the same counter.
	rec := env.do(t, alice, http.MethodGet, path, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[shareView](t, rec).Blurb.Hits; got != 4 {
		t.Errorf("author view: hits = %d, want 4", got)
	}
}

func TestPrivateBlogHiddenFromOthers(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	bob := env.role(t, "bob")
	created := env.publish(t, alice, "Diary", models.FlavorBlog, false)

	wantStatus(t, env.do(t, nil, http.MethodGet, "/api/shares/"+created.ShareID, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, bob, http.MethodGet, "/api/shares/"+created.ShareID, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, bob, http.MethodPost, "/api/shares/"+created.ShareID+"/children",
		map[string]string{"title": "hi", "body": "let me in"}), http.StatusNotFound)

	rec := env.do(t, nil, http.MethodGet, "/api/blurbs", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]sharing.Listing](t, rec); len(got) != 0 {
		t.Errorf("anonymous listing: got %d items, want 0", len(got))
	}

	rec = env.do(t, alice, http.MethodGet, "/api/blurbs", nil)
	wantStatus(t, rec, http.StatusOK)
	got := decode[[]sharing.Listing](t, rec)
	if len(got) != 1 || got[0].ShareID != created.ShareID {
		t.Errorf("owner listing: got %+v", got)
	}
}

func TestEdit(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	bob := env.role(t, "bob")
	created := env.publish(t, alice, "Cooking", models.FlavorBlog, true)
	path := "/api/shares/" + created.ShareID

	// Warm the anonymous cache so the edit has something to invalidate.
	wantStatus(t, env.do(t, nil, http.MethodGet, path, nil), http.StatusOK)

	wantStatus(t, env.do(t, nil, http.MethodPut, path,
		map[string]string{"title": "x", "body": "y"}), http.StatusUnauthorized)

	rec := env.do(t, bob, http.MethodPut, path, map[string]string{"title": "Hacked", "body": "oops"})
	wantStatus(t, rec, http.StatusForbidden)
	if got := decode[errResponse](t, rec).Error; got != "illegal edit attempt" {
		t.Errorf("error: got %q", got)
	}

	rec = env.do(t, alice, http.MethodPut, path, map[string]string{"title": "Cooking!", "body": "new body"})
	wantStatus(t, rec, http.StatusOK)

	rec = env.do(t, nil, http.MethodGet, path, nil)
	wantStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Cache") == "HIT" {
		t.Error("edit should invalidate the cached view")
	}
	if got := decode[shareView](t, rec).Blurb.Title; got != "Cooking!" {
		t.Errorf("title after edit: got %q", got)
	}

	rec = env.do(t, nil, http.MethodGet, path+"/history", nil)
	wantStatus(t, rec, http.StatusOK)
	past := decode[[]models.PastBlurb](t, rec)
	if len(past) != 1 || past[0].Title != "Cooking" {
		t.Errorf("history: got %+v", past)
	}
}

func TestPermitAndPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	bob := env.role(t, "bob")
	blog := env.publish(t, alice, "Cooking", models.FlavorBlog, true)
	blogPath := "/api/shares/" + blog.ShareID

	// Without a grant, Everyone only sees the blog itself.
	rec := env.do(t, bob, http.MethodPost, blogPath+"/children", map[string]string{"title": "Mine", "body": "text"})
	wantStatus(t, rec, http.StatusForbidden)
	if got := decode[errResponse](t, rec).Error; got != "capability denied" {
		t.Errorf("error: got %q", got)
	}

	wantStatus(t, env.do(t, bob, http.MethodPost, blogPath+"/permissions", map[string]any{
		"role": "Everyone", "flavor": string(models.FlavorBlogPost), "capabilities": []string{"IViewer"},
	}), http.StatusForbidden)

	wantStatus(t, env.do(t, alice, http.MethodPost, blogPath+"/permissions", map[string]any{
		"role": "nobody", "flavor": string(models.FlavorBlogPost), "capabilities": []string{"IViewer"},
	}), http.StatusBadRequest)

	wantStatus(t, env.do(t, alice, http.MethodPost, blogPath+"/permissions", map[string]any{
		"role": "Everyone", "flavor": string(models.FlavorBlogPost), "capabilities": []string{"IOwner"},
	}), http.StatusBadRequest)

	rec = env.do(t, alice, http.MethodPost, blogPath+"/permissions", map[string]any{
		"role":         "Everyone",
		"flavor":       string(models.FlavorBlogPost),
		"capabilities": []string{"IViewer", "ICommenter"},
	})
	wantStatus(t, rec, http.StatusCreated)

	rec = env.do(t, alice, http.MethodPost, blogPath+"/children", map[string]string{"title": "Soup", "body": "Boil water."})
	wantStatus(t, rec, http.StatusCreated)
	post := decode[postResponse](t, rec)
	if post.Blurb.Flavor != models.FlavorBlogPost {
		t.Errorf("child flavor: got %s", post.Blurb.Flavor)
	}

	rec = env.do(t, nil, http.MethodGet, blogPath+"/children", nil)
	wantStatus(t, rec, http.StatusOK)
	children := decode[[]sharing.Listing](t, rec)
	if len(children) != 1 || children[0].ShareID != post.ShareID {
		t.Fatalf("children: got %+v", children)
	}

	// Bob comments through Everyone's Commenter grant on the post.
	rec = env.do(t, bob, http.MethodPost, "/api/shares/"+post.ShareID+"/children",
		map[string]string{"body": "Tasty."})
	wantStatus(t, rec, http.StatusCreated)
	comment := decode[postResponse](t, rec)
	if comment.Blurb.Flavor != models.FlavorBlogComment || comment.Blurb.AuthorID != bob.ID {
		t.Errorf("comment: got %+v", comment.Blurb)
	}

	// No grant covers comments, so only the commenter sees it.
	rec = env.do(t, nil, http.MethodGet, "/api/shares/"+post.ShareID+"/children", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]sharing.Listing](t, rec); len(got) != 0 {
		t.Errorf("anonymous comments: got %d, want 0", len(got))
	}
	rec = env.do(t, bob, http.MethodGet, "/api/shares/"+post.ShareID+"/children", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decode[[]sharing.Listing](t, rec); len(got) != 1 {
		t.Errorf("bob's comments: got %d, want 1", len(got))
	}
}

func TestMeta(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	bob := env.role(t, "bob")
	created := env.publish(t, alice, "Cooking", models.FlavorBlog, true)
	path := "/api/shares/" + created.ShareID + "/meta"

	wantStatus(t, env.do(t, bob, http.MethodPut, path, map[string]string{"key": "tags", "value": "x"}), http.StatusForbidden)
	wantStatus(t, env.do(t, alice, http.MethodPut, path, map[string]string{"key": " ", "value": "x"}), http.StatusBadRequest)
	wantStatus(t, env.do(t, alice, http.MethodPut, path, map[string]string{"key": "tags", "value": "food"}), http.StatusOK)
	wantStatus(t, env.do(t, alice, http.MethodPut, path, map[string]string{"key": "tags", "value": "food,soup"}), http.StatusOK)

	rec := env.do(t, nil, http.MethodGet, path, nil)
	wantStatus(t, rec, http.StatusOK)
	meta := decode[[]models.MetaBlurb](t, rec)
	if len(meta) != 1 || meta[0].Value != "food,soup" {
		t.Errorf("meta: got %+v", meta)
	}
}

func TestUnknownShare(t *testing.T) {
	env := newTestEnv(t)
	wantStatus(t, env.do(t, nil, http.MethodGet, "/api/shares/does-not-exist", nil), http.StatusNotFound)
}

func TestRetract(t *testing.T) {
	env := newTestEnv(t)
	alice := env.role(t, "alice")
	bob := env.role(t, "bob")
	created := env.publish(t, alice, "Cooking", models.FlavorBlog, true)
	path := "/api/shares/" + created.ShareID

	wantStatus(t, env.do(t, nil, http.MethodGet, path, nil), http.StatusOK)
	if _, ok := env.views.Get(t.Context(), created.ShareID); !ok {
		t.Fatal("expected the anonymous view to be cached")
	}

	wantStatus(t, env.do(t, bob, http.MethodGet, path+"/grants", nil), http.StatusForbidden)
	wantStatus(t, env.do(t, bob, http.MethodDelete, path, nil), http.StatusForbidden)

	rec := env.do(t, alice, http.MethodGet, path+"/grants", nil)
	wantStatus(t, rec, http.StatusOK)
	if grants := decode[[]models.Share](t, rec); len(grants) != 2 {
		t.Errorf("grants: got %d, want 2", len(grants))
	}

	wantStatus(t, env.do(t, alice, http.MethodDelete, path, nil), http.StatusNoContent)
	if _, ok := env.views.Get(t.Context(), created.ShareID); ok {
		t.Error("retracting must drop the cached view")
	}
	wantStatus(t, env.do(t, nil, http.MethodGet, path, nil), http.StatusNotFound)
	wantStatus(t, env.do(t, alice, http.MethodGet, path, nil), http.StatusNotFound)
}
