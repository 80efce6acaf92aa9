// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package kvstore is the embedded storage backend. It keeps blurbs, roles,
// permission records and shares in a badger key/value store, either on
// disk or purely in memory, and implements the same store interfaces as
// the PostgreSQL backend. Secondary indexes are plain keys with empty
// values.
package kvstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"blurbpress/internal/apperr"
)

// ErrAlreadyExists is returned when a unique key is already taken.
var ErrAlreadyExists = apperr.ErrAlreadyExists

// DB wraps a badger database.
type DB struct {
	bdb      *badger.DB
	inMemory bool
}

// Open opens the store at dir. An empty dir keeps everything in memory.
func Open(dir string) (*DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	bdb, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}

	slog.Info("embedded store opened", "dir", dir, "in_memory", dir == "")
	return &DB{bdb: bdb, inMemory: dir == ""}, nil
}

// Close flushes and closes the store.
func (db *DB) Close() error {
	return db.bdb.Close()
}

// RunGC reclaims value log space every interval until ctx is cancelled.
// It is a no-op for in-memory stores.
func (db *DB) RunGC(ctx context.Context, interval time.Duration) {
	if db.inMemory {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				// Keep rewriting until badger reports nothing left to reclaim.
				if err := db.bdb.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) {
						slog.Warn("embedded store gc failed", "error", err)
					}
					break
				}
			}
		}
	}
}

// txnCtxKey stores the active badger transaction in a context.
type txnCtxKey struct{}

// maxTxnAttempts bounds how often a transaction is run when badger
// reports a write conflict.
const maxTxnAttempts = 5

// RunInTx executes fn in one read-write transaction. Stores called with
// the context handed to fn join that transaction. On error nothing fn wrote
// is kept. Transactions are optimistic: if a key fn read was changed by
// another commit, fn runs again from scratch, up to maxTxnAttempts times.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txnCtxKey{}).(*badger.Txn); ok {
		return fn(ctx)
	}
	return db.retryConflicts(ctx, func() error {
		return db.bdb.Update(func(txn *badger.Txn) error {
			return fn(context.WithValue(ctx, txnCtxKey{}, txn))
		})
	})
}

// update runs fn in the context's transaction, or in a new one.
func (db *DB) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if txn, ok := ctx.Value(txnCtxKey{}).(*badger.Txn); ok {
		return fn(txn)
	}
	return db.retryConflicts(ctx, func() error { return db.bdb.Update(fn) })
}

func (db *DB) retryConflicts(ctx context.Context, commit func() error) error {
	var err error
	for attempt := 1; attempt <= maxTxnAttempts; attempt++ {
		err = commit()
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}
		slog.Debug("badger transaction conflict, retrying", "attempt", attempt)
	}
	return err
}

// view runs fn in the context's transaction, or in a new read-only one.
func (db *DB) view(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if txn, ok := ctx.Value(txnCtxKey{}).(*badger.Txn); ok {
		return fn(txn)
	}
	return db.bdb.View(fn)
}

// getJSON decodes the value at key into v. It reports false if the key
// does not exist.
func getJSON(txn *badger.Txn, key []byte, v any) (bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// setJSON encodes v and stores it at key.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return txn.Set(key, data)
}

// exists reports whether key is present.
func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// keysWithPrefix returns every key under prefix, in key order.
func keysWithPrefix(txn *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return keys
}

// scanJSON decodes every value under prefix, in key order.
func scanJSON[T any](txn *badger.Txn, prefix []byte) ([]T, error) {
	it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix, PrefetchValues: true, PrefetchSize: 100})
	defer it.Close()

	var out []T
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var v T
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &v)
		}); err != nil {
			return nil, fmt.Errorf("decode %s: %w", it.Item().Key(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// nextSeq increments and returns the counter stored at key.
func nextSeq(txn *badger.Txn, key []byte) (int64, error) {
	var n uint64
	item, err := txn.Get(key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		if err := item.Value(func(val []byte) error {
			n = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	}
	n++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	if err := txn.Set(key, buf); err != nil {
		return 0, err
	}
	return int64(n), nil
}

// key joins parts with '/' into a badger key.
func key(parts ...string) []byte {
	n := 0
	for _, p := range parts {
		n += len(p) + 1
	}
	b := make([]byte, 0, n)
	for i, p := range parts {
		if i > 0 {
			b = append(b, '/')
		}
		b = append(b, p...)
	}
	return b
}

// prefix is key with a trailing separator.
func prefix(parts ...string) []byte {
	return append(key(parts...), '/')
}
