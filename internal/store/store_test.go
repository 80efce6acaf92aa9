// store_test.go provides a shared test database helper for all store
// integration tests. Tests are skipped if PostgreSQL is not available.
package store

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"blurbpress/internal/database"
	"blurbpress/internal/models"
)

// testDSN returns the PostgreSQL connection string for testing.
func testDSN() string {
	host := envOr("POSTGRES_HOST", "localhost")
	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "blurbpress")
	pass := envOr("POSTGRES_PASSWORD", "changeme")
	name := envOr("POSTGRES_DB", "blurbpress")
	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=disable"
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testDB opens a connection to the test database and runs migrations.
// If the database is unavailable, the test is skipped.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("pgx", testDSN())
	if err != nil {
		t.Skipf("skipping integration test: cannot open DB: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}

	if err := database.Migrate(context.Background(), db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// testRole creates a throwaway role and removes it, together with
// everything it authored, when the test ends.
func testRole(t *testing.T, db *sql.DB, name string) *models.Role {
	t.Helper()
	r, err := NewRoleStore(db, "owner").Create(context.Background(), name+"-"+uuid.NewString(), "test")
	if err != nil {
		t.Fatalf("create test role: %v", err)
	}
	t.Cleanup(func() {
		db.Exec("DELETE FROM blurbs WHERE author_id = $1", r.ID)
		db.Exec("DELETE FROM roles WHERE id = $1", r.ID)
	})
	return r
}

// testBlurb inserts a blurb authored by authorID.
func testBlurb(t *testing.T, db *sql.DB, parentID *uuid.UUID, flavor models.Flavor, authorID uuid.UUID) *models.Blurb {
	t.Helper()
	b, err := NewBlurbStore(db).Create(context.Background(), &models.Blurb{
		ParentID: parentID,
		Flavor:   flavor,
		Title:    "test " + string(flavor),
		AuthorID: authorID,
	})
	if err != nil {
		t.Fatalf("create test blurb: %v", err)
	}
	t.Cleanup(func() { db.Exec("DELETE FROM blurbs WHERE id = $1", b.ID) })
	return b
}
