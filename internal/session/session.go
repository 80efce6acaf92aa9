// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session keeps logged-in roles in Valkey. A session is a JSON
// record under a random ID carried in a cookie; each role also has an
// index of its live sessions so they can be revoked together.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// CookieName is the session cookie.
	CookieName = "bp_session"

	// DefaultTTL applies when the store is created with a zero TTL.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"
	idLength  = 32 // random bytes, hex encoded
)

// Data is what a session remembers: the role the visitor logged in as.
type Data struct {
	ID         string    `json:"-"`
	RoleID     uuid.UUID `json:"role_id"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store manages sessions in Valkey. Reads slide the expiry, so a session
// lasts ttl past its last use.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool
}

// NewStore creates a session store. secure marks the cookie TLS-only.
func NewStore(client *redis.Client, ttl time.Duration, secure bool) *Store {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl, secure: secure}
}

func sessionKey(id string) string { return keyPrefix + id }

func roleKey(roleID uuid.UUID) string { return keyPrefix + "role:" + roleID.String() }

// Create stores data under a fresh ID, files the ID in the role's index
// and sets the cookie. It returns the ID.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := generateID()
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	data.ID = id
	data.CreatedAt = time.Now()

	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(id), payload, s.ttl)
	pipe.SAdd(ctx, roleKey(data.RoleID), id)
	pipe.Expire(ctx, roleKey(data.RoleID), s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	s.setCookie(w, id, int(s.ttl.Seconds()))
	return id, nil
}

// Get returns the session named by the request cookie, or nil when there
// is none or it expired. The role's session index slides with it so that
// RevokeOthers still finds a session kept alive past its first TTL.
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil, nil
	}

	payload, err := s.client.GetEx(ctx, sessionKey(cookie.Value), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	data.ID = cookie.Value

	if err := s.client.Expire(ctx, roleKey(data.RoleID), s.ttl).Err(); err != nil {
		slog.Warn("session index refresh failed", "role_id", data.RoleID, "error", err)
	}
	return &data, nil
}

// Destroy ends the request's session and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return nil
	}

	payload, err := s.client.GetDel(ctx, sessionKey(cookie.Value)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("destroy session: %w", err)
	default:
		var data Data
		if json.Unmarshal(payload, &data) == nil {
			s.client.SRem(ctx, roleKey(data.RoleID), cookie.Value)
		}
	}

	s.setCookie(w, "", -1)
	return nil
}

// RevokeOthers ends every session of roleID except keepID and returns how
// many were ended.
func (s *Store) RevokeOthers(ctx context.Context, roleID uuid.UUID, keepID string) (int, error) {
	ids, err := s.client.SMembers(ctx, roleKey(roleID)).Result()
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	var keys []string
	var members []any
	for _, id := range ids {
		if id == keepID {
			continue
		}
		keys = append(keys, sessionKey(id))
		members = append(members, id)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, roleKey(roleID), members...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	return len(keys), nil
}

func (s *Store) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
