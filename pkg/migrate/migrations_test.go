package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wecr8/damp-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}

func TestMigrationsContainUniqueKeys(t *testing.T) {
	cases := map[string][]string{
		"*_create_votes_table.sql": {
			"CREATE TABLE IF NOT EXISTS votes",
			"CREATE UNIQUE INDEX IF NOT EXISTS votes_voter_id_key ON votes (voter_id)",
			"DROP TABLE IF EXISTS votes",
		},
		"*_create_waitlist_entries_table.sql": {
			"CREATE TABLE IF NOT EXISTS waitlist_entries",
			"CREATE UNIQUE INDEX IF NOT EXISTS waitlist_entries_email_key ON waitlist_entries (email)",
		},
		"*_create_orders_table.sql": {
			"CREATE TABLE IF NOT EXISTS orders",
			"CREATE UNIQUE INDEX IF NOT EXISTS orders_checkout_session_id_key",
		},
	}

	for pattern, checks := range cases {
		matches, err := filepath.Glob(filepath.Join("migrations", pattern))
		if err != nil {
			t.Fatalf("glob migrations: %v", err)
		}
		if len(matches) != 1 {
			t.Fatalf("expected one migration for %s, got %d", pattern, len(matches))
		}
		data, err := os.ReadFile(matches[0])
		if err != nil {
			t.Fatalf("read migration file: %v", err)
		}
		for _, sub := range checks {
			if !strings.Contains(string(data), sub) {
				t.Errorf("%s missing expected statement %q", matches[0], sub)
			}
		}
	}
}

func TestGooseDialect(t *testing.T) {
	cases := map[string]string{"postgres": "postgres", "": "postgres", "sqlite": "sqlite3"}
	for in, want := range cases {
		got, err := migrate.GooseDialect(in)
		if err != nil || got != want {
			t.Fatalf("GooseDialect(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := migrate.GooseDialect("mysql"); err == nil {
		t.Fatal("expected unsupported dialect error")
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Vote Source!")
	if err != nil {
		t.Fatalf("CreateSQLMigration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_vote_source.sql") {
		t.Fatalf("unexpected filename %s", path)
	}
	if err := migrate.ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}
	if _, err := migrate.CreateSQLMigration(dir, "!!!"); err == nil {
		t.Fatal("expected empty sanitized name to fail")
	}
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"bad_name.sql":                      "-- +goose Up\n-- +goose Down\n",
		"20250101000000_Mixed_Case.sql":     "-- +goose Up\n-- +goose Down\n",
		"20251399000000_bad_month.sql":      "-- +goose Up\n-- +goose Down\n",
		"20250101000000_missing_down.sql":   "-- +goose Up\nSELECT 1;\n",
		"20250101000000_reversed_order.sql": "-- +goose Down\n-- +goose Up\n",
	}
	for name, body := range cases {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if err := migrate.ValidateDir(dir); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestValidateDirRejectsDuplicateVersions(t *testing.T) {
	dir := t.TempDir()
	body := []byte("-- +goose Up\n-- +goose Down\n")
	for _, name := range []string{"20250101000000_first.sql", "20250101000000_second.sql"} {
		if err := os.WriteFile(filepath.Join(dir, name), body, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	err := migrate.ValidateDir(dir)
	if err == nil || !strings.Contains(err.Error(), "20250101000000") {
		t.Fatalf("expected duplicate version error, got %v", err)
	}
}

func TestRunnerRequiresDB(t *testing.T) {
	if _, err := migrate.NewRunner(nil, "sqlite", "migrations"); err == nil {
		t.Fatal("expected error without a database")
	}
}
