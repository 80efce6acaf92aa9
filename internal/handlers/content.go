// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"blurbpress/internal/blurb"
	"blurbpress/internal/cache"
	"blurbpress/internal/middleware"
	"blurbpress/internal/models"
	"blurbpress/internal/sharing"
)

// Publisher creates top-level blurbs and lists content.
type Publisher interface {
	Create(ctx context.Context, in blurb.TopLevelInput) (*blurb.PostResult, error)
	TopLevel(ctx context.Context) ([]models.Blurb, error)
	Hit(ctx context.Context, id uuid.UUID) (int64, error)
}

// ShareResolver opens shares for a role.
type ShareResolver interface {
	GetShare(ctx context.Context, roleID uuid.UUID, shareID string) (*sharing.SharedBlurb, error)
	Visible(ctx context.Context, roleID uuid.UUID, items []models.Blurb) ([]sharing.Listing, error)
}

// RoleLookup finds roles named in requests.
type RoleLookup interface {
	Everyone(ctx context.Context) (*models.Role, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Role, error)
}

// ViewCache holds rendered anonymous share views.
type ViewCache interface {
	Get(ctx context.Context, shareID string) (*cache.View, bool)
	Set(ctx context.Context, shareID string, v *cache.View)
	Invalidate(ctx context.Context, shareID string)
}

// Content groups the blurb and share endpoints.
type Content struct {
	publisher Publisher
	shares    ShareResolver
	roles     RoleLookup
	views     ViewCache
}

// NewContent creates a new Content handler group. views may be nil, in
// which case share views are never cached.
func NewContent(publisher Publisher, shares ShareResolver, roles RoleLookup, views ViewCache) *Content {
	return &Content{publisher: publisher, shares: shares, roles: roles, views: views}
}

// shareView is the JSON form of a blurb seen through a share.
type shareView struct {
	ShareID      string        `json:"share_id"`
	Capabilities []string      `json:"capabilities"`
	Blurb        *models.Blurb `json:"blurb"`
}

// postResponse answers every request that publishes a blurb.
type postResponse struct {
	ShareID string        `json:"share_id"`
	Blurb   *models.Blurb `json:"blurb"`
}

// visitor returns the role a request acts as: the logged-in role, or
// Everyone for anonymous requests.
func (h *Content) visitor(r *http.Request) (uuid.UUID, error) {
	if sess := middleware.SessionFromCtx(r.Context()); sess != nil {
		return sess.RoleID, nil
	}
	everyone, err := h.roles.Everyone(r.Context())
	if err != nil {
		return uuid.Nil, fmt.Errorf("everyone role: %w", err)
	}
	return everyone.ID, nil
}

// open resolves the share in the URL for the requesting role.
func (h *Content) open(r *http.Request) (*sharing.SharedBlurb, error) {
	roleID, err := h.visitor(r)
	if err != nil {
		return nil, err
	}
	return h.shares.GetShare(r.Context(), roleID, chi.URLParam(r, "shareID"))
}

// author returns the logged-in role. Routes that call it sit behind
// RequireAuth.
func author(r *http.Request) uuid.UUID {
	return middleware.SessionFromCtx(r.Context()).RoleID
}

// List handles GET /api/blurbs: every top-level blurb the visitor holds
// a share of.
func (h *Content) List(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.visitor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, err := h.publisher.TopLevel(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	visible, err := h.shares.Visible(r.Context(), roleID, items)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visible)
}

// Create handles POST /api/blurbs.
func (h *Content) Create(w http.ResponseWriter, r *http.Request) {
	var in createInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.publisher.Create(r.Context(), blurb.TopLevelInput{
		Title:    in.Title,
		Body:     in.Body,
		Flavor:   models.Flavor(in.Flavor),
		AuthorID: author(r),
		Public:   in.Public,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, postResponse{ShareID: res.ShareID, Blurb: res.Blurb})
}

// View handles GET /api/shares/{shareID}. Anonymous views are served
// from the view cache when one is configured; every view counts a hit and
// reports the count including itself, cached or not.
func (h *Content) View(w http.ResponseWriter, r *http.Request) {
	shareID := chi.URLParam(r, "shareID")
	anonymous := middleware.SessionFromCtx(r.Context()) == nil

	if anonymous && h.views != nil {
		if v, ok := h.views.Get(r.Context(), shareID); ok {
			var resp shareView
			if err := json.Unmarshal(v.Body, &resp); err == nil && resp.Blurb != nil {
				resp.Blurb.Hits = h.hit(r, v.BlurbID, resp.Blurb.Hits)
				w.Header().Set("X-Cache", "HIT")
				writeJSON(w, http.StatusOK, resp)
				return
			}
			slog.Warn("undecodable cached view", "share_id", shareID)
		}
	}

	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := shared.View()
	if err != nil {
		writeError(w, r, err)
		return
	}
	b.Hits = h.hit(r, b.ID, b.Hits)

	resp := shareView{
		ShareID:      shared.ShareID(),
		Capabilities: shared.Capabilities().Strings(),
		Blurb:        b,
	}
	if anonymous && h.views != nil {
		if body, err := json.Marshal(resp); err == nil {
			h.views.Set(r.Context(), shareID, &cache.View{BlurbID: b.ID, Body: body})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// hit counts a view of id and returns the new count, or known when the
// count could not be taken.
func (h *Content) hit(r *http.Request, id uuid.UUID, known int64) int64 {
	hits, err := h.publisher.Hit(r.Context(), id)
	if err != nil {
		slog.Warn("hit count failed", "blurb_id", id, "error", err)
		return known
	}
	return hits
}

// Edit handles PUT /api/shares/{shareID}.
func (h *Content) Edit(w http.ResponseWriter, r *http.Request) {
	var in textInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := shared.Edit(r.Context(), in.Title, in.Body, author(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.invalidate(r.Context(), shared.ShareID())

	writeJSON(w, http.StatusOK, shareView{
		ShareID:      shared.ShareID(),
		Capabilities: shared.Capabilities().Strings(),
		Blurb:        b,
	})
}

// Children handles GET /api/shares/{shareID}/children. Only children the
// visitor holds a share of are listed.
func (h *Content) Children(w http.ResponseWriter, r *http.Request) {
	roleID, err := h.visitor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shared, err := h.shares.GetShare(r.Context(), roleID, chi.URLParam(r, "shareID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	children, err := shared.Children(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	visible, err := h.shares.Visible(r.Context(), roleID, children)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visible)
}

// Post handles POST /api/shares/{shareID}/children.
func (h *Content) Post(w http.ResponseWriter, r *http.Request) {
	var in textInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := shared.Post(r.Context(), in.Title, in.Body, author(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, postResponse{ShareID: res.ShareID, Blurb: res.Blurb})
}

// Permit handles POST /api/shares/{shareID}/permissions.
func (h *Content) Permit(w http.ResponseWriter, r *http.Request) {
	var in permitInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := h.roles.FindByExternalID(r.Context(), in.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if role == nil {
		writeError(w, r, fmt.Errorf("%w: unknown role %q", errBadRequest, in.Role))
		return
	}
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	perm, err := shared.PermitChildren(r.Context(), role.ID, models.Flavor(in.Flavor), in.capabilities())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, perm)
}

// History handles GET /api/shares/{shareID}/history.
func (h *Content) History(w http.ResponseWriter, r *http.Request) {
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	past, err := shared.History(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, past)
}

// Meta handles GET /api/shares/{shareID}/meta.
func (h *Content) Meta(w http.ResponseWriter, r *http.Request) {
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	meta, err := shared.Meta(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

// SetMeta handles PUT /api/shares/{shareID}/meta.
func (h *Content) SetMeta(w http.ResponseWriter, r *http.Request) {
	var in metaInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	m, err := shared.SetMeta(r.Context(), in.Key, in.Value)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Grants handles GET /api/shares/{shareID}/grants: every share of the
// blurb, for its authors.
func (h *Content) Grants(w http.ResponseWriter, r *http.Request) {
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	shares, err := shared.Shares(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// Retract handles DELETE /api/shares/{shareID}. It withdraws every share
// of the blurb so nobody can open it any more.
func (h *Content) Retract(w http.ResponseWriter, r *http.Request) {
	shared, err := h.open(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	retracted, err := shared.Retract(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	seen := make(map[string]bool)
	for _, s := range retracted {
		if !seen[s.ShareID] {
			seen[s.ShareID] = true
			h.invalidate(r.Context(), s.ShareID)
		}
	}
	slog.Info("shares retracted", "blurb_id", shared.ItemID(), "count", len(retracted))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Content) invalidate(ctx context.Context, shareID string) {
	if h.views != nil {
		h.views.Invalidate(ctx, shareID)
	}
}
