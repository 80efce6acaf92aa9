// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package kvstore

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"blurbpress/internal/models"
)

// Key layout:
//
//	blurb/<id>                 Blurb
//	blurb_top/<id>             index of parentless blurbs
//	blurb_child/<parent>/<id>  index of children
//	past/<blurb>/<id>          PastBlurb
//	meta/<blurb>/<key>         MetaBlurb

// BlurbStore keeps blurbs.
type BlurbStore struct {
	db *DB
}

// NewBlurbStore creates a BlurbStore.
func NewBlurbStore(db *DB) *BlurbStore {
	return &BlurbStore{db: db}
}

// Create stores a new blurb with a generated ID.
func (s *BlurbStore) Create(ctx context.Context, b *models.Blurb) (*models.Blurb, error) {
	created := *b
	created.ID = uuid.New()
	if created.DateCreated.IsZero() {
		created.DateCreated = time.Now()
	}
	if created.DateLastEdited.IsZero() {
		created.DateLastEdited = created.DateCreated
	}

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		if err := setJSON(txn, key("blurb", created.ID.String()), &created); err != nil {
			return err
		}
		if created.ParentID == nil {
			return txn.Set(key("blurb_top", created.ID.String()), nil)
		}
		return txn.Set(key("blurb_child", created.ParentID.String(), created.ID.String()), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("create blurb: %w", err)
	}
	return &created, nil
}

// FindByID returns a blurb, or nil if it does not exist.
func (s *BlurbStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Blurb, error) {
	var b models.Blurb
	var found bool
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		found, err = getJSON(txn, key("blurb", id.String()), &b)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("find blurb by id: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &b, nil
}

// Update overwrites title, body, author and last-edited time.
func (s *BlurbStore) Update(ctx context.Context, b *models.Blurb) error {
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var cur models.Blurb
		found, err := getJSON(txn, key("blurb", b.ID.String()), &cur)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("blurb %s does not exist", b.ID)
		}
		cur.Title = b.Title
		cur.Body = b.Body
		cur.AuthorID = b.AuthorID
		cur.DateLastEdited = b.DateLastEdited
		return setJSON(txn, key("blurb", b.ID.String()), &cur)
	})
	if err != nil {
		return fmt.Errorf("update blurb: %w", err)
	}
	return nil
}

// IncrementHits adds one to the display counter and returns the new
// count. A missing blurb counts nothing and returns 0.
func (s *BlurbStore) IncrementHits(ctx context.Context, id uuid.UUID) (int64, error) {
	var hits int64
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		var cur models.Blurb
		found, err := getJSON(txn, key("blurb", id.String()), &cur)
		if err != nil || !found {
			return err
		}
		cur.Hits++
		hits = cur.Hits
		return setJSON(txn, key("blurb", id.String()), &cur)
	})
	if err != nil {
		return 0, fmt.Errorf("increment hits: %w", err)
	}
	return hits, nil
}

// Query returns blurbs matching f, oldest first.
func (s *BlurbStore) Query(ctx context.Context, f models.BlurbFilter) ([]models.Blurb, error) {
	var items []models.Blurb
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var candidates []models.Blurb
		switch {
		case f.TopLevel:
			for _, k := range keysWithPrefix(txn, prefix("blurb_top")) {
				b, err := s.load(txn, k[len("blurb_top/"):])
				if err != nil {
					return err
				}
				if b != nil {
					candidates = append(candidates, *b)
				}
			}
		case f.ParentID != nil:
			p := prefix("blurb_child", f.ParentID.String())
			for _, k := range keysWithPrefix(txn, p) {
				b, err := s.load(txn, k[len(p):])
				if err != nil {
					return err
				}
				if b != nil {
					candidates = append(candidates, *b)
				}
			}
		default:
			all, err := scanJSON[models.Blurb](txn, prefix("blurb"))
			if err != nil {
				return err
			}
			candidates = all
		}

		for _, b := range candidates {
			if f.Flavor != "" && b.Flavor != f.Flavor {
				continue
			}
			if f.AuthorID != nil && b.AuthorID != *f.AuthorID {
				continue
			}
			items = append(items, b)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query blurbs: %w", err)
	}

	slices.SortStableFunc(items, func(a, b models.Blurb) int {
		return a.DateCreated.Compare(b.DateCreated)
	})
	if f.Limit > 0 && uint64(len(items)) > f.Limit {
		items = items[:f.Limit]
	}
	return items, nil
}

func (s *BlurbStore) load(txn *badger.Txn, id []byte) (*models.Blurb, error) {
	var b models.Blurb
	found, err := getJSON(txn, key("blurb", string(id)), &b)
	if err != nil || !found {
		return nil, err
	}
	return &b, nil
}

// HistoryStore keeps PastBlurb snapshots.
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a HistoryStore.
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Create stores a snapshot.
func (s *HistoryStore) Create(ctx context.Context, p *models.PastBlurb) (*models.PastBlurb, error) {
	created := *p
	created.ID = uuid.New()
	created.CreatedAt = time.Now()

	err := s.db.update(ctx, func(txn *badger.Txn) error {
		return setJSON(txn, key("past", created.BlurbID.String(), created.ID.String()), &created)
	})
	if err != nil {
		return nil, fmt.Errorf("create past blurb: %w", err)
	}
	return &created, nil
}

// ListByBlurb returns the snapshots of a blurb, newest first.
func (s *HistoryStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.PastBlurb, error) {
	var past []models.PastBlurb
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		past, err = scanJSON[models.PastBlurb](txn, prefix("past", blurbID.String()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list past blurbs: %w", err)
	}
	slices.SortStableFunc(past, func(a, b models.PastBlurb) int {
		if c := b.DateEdited.Compare(a.DateEdited); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return past, nil
}

// MetaStore keeps MetaBlurb pairs.
type MetaStore struct {
	db *DB
}

// NewMetaStore creates a MetaStore.
func NewMetaStore(db *DB) *MetaStore {
	return &MetaStore{db: db}
}

// Set stores value under key for the blurb, replacing any earlier value.
func (s *MetaStore) Set(ctx context.Context, blurbID uuid.UUID, k, value string) (*models.MetaBlurb, error) {
	var m models.MetaBlurb
	err := s.db.update(ctx, func(txn *badger.Txn) error {
		mk := key("meta", blurbID.String(), k)
		found, err := getJSON(txn, mk, &m)
		if err != nil {
			return err
		}
		if !found {
			m = models.MetaBlurb{ID: uuid.New(), BlurbID: blurbID, Key: k}
		}
		m.Value = value
		return setJSON(txn, mk, &m)
	})
	if err != nil {
		return nil, fmt.Errorf("set meta: %w", err)
	}
	return &m, nil
}

// ListByBlurb returns the metadata of a blurb ordered by key.
func (s *MetaStore) ListByBlurb(ctx context.Context, blurbID uuid.UUID) ([]models.MetaBlurb, error) {
	var items []models.MetaBlurb
	err := s.db.view(ctx, func(txn *badger.Txn) error {
		var err error
		items, err = scanJSON[models.MetaBlurb](txn, prefix("meta", blurbID.String()))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}
	slices.SortFunc(items, func(a, b models.MetaBlurb) int { return cmp.Compare(a.Key, b.Key) })
	return items, nil
}
