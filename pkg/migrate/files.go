package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	versionLayout = "20060102150405"
	upMarker      = "-- +goose Up"
	downMarker    = "-- +goose Down"
)

const sqlSkeleton = upMarker + `
-- +goose StatementBegin
-- TODO(%[1]s): forward statements
-- +goose StatementEnd

` + downMarker + `
-- +goose StatementBegin
-- TODO(%[1]s): rollback statements
-- +goose StatementEnd
`

// migrationFile is a parsed <version>_<slug>.sql filename.
type migrationFile struct {
	Version int64
	Slug    string
	Name    string
}

func parseMigrationName(name string) (migrationFile, error) {
	base, ok := strings.CutSuffix(name, ".sql")
	if !ok {
		return migrationFile{}, fmt.Errorf("%q is not a .sql file", name)
	}
	version, slug, ok := strings.Cut(base, "_")
	if !ok || len(version) != len(versionLayout) || slug == "" {
		return migrationFile{}, fmt.Errorf("invalid migration filename %q (want %s_<slug>.sql)", name, versionLayout)
	}
	if _, err := time.Parse(versionLayout, version); err != nil {
		return migrationFile{}, fmt.Errorf("migration %q has a malformed timestamp: %w", name, err)
	}
	if slugify(slug) != slug {
		return migrationFile{}, fmt.Errorf("migration %q slug must be lowercase snake_case", name)
	}
	v, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return migrationFile{}, fmt.Errorf("migration %q version: %w", name, err)
	}
	return migrationFile{Version: v, Slug: slug, Name: name}, nil
}

// slugify lowercases name and joins its alphanumeric runs with underscores.
func slugify(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	return strings.Join(words, "_")
}

// CreateSQLMigration writes an empty goose migration named after the current
// UTC second and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	if dir == "" {
		return "", errors.New("migration dir is required")
	}
	slug := slugify(name)
	if slug == "" {
		return "", fmt.Errorf("migration name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, time.Now().UTC().Format(versionLayout)+"_"+slug+".sql")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create migration: %w", err)
	}
	if _, err := fmt.Fprintf(f, sqlSkeleton, slug); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// ValidateDir checks every .sql file in dir: the filename shape, unique
// versions, and an Up section followed by a Down section.
func ValidateDir(dir string) error {
	if dir == "" {
		return errors.New("migration dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read %s: %w", dir, err)
	}

	versions := make(map[int64]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		mf, err := parseMigrationName(entry.Name())
		if err != nil {
			return err
		}
		if other, dup := versions[mf.Version]; dup {
			return fmt.Errorf("version %d used by both %s and %s", mf.Version, other, mf.Name)
		}
		versions[mf.Version] = mf.Name

		body, err := os.ReadFile(filepath.Join(dir, mf.Name))
		if err != nil {
			return fmt.Errorf("read %s: %w", mf.Name, err)
		}
		if err := checkSections(string(body)); err != nil {
			return fmt.Errorf("%s: %w", mf.Name, err)
		}
	}
	return nil
}

func checkSections(sql string) error {
	up := strings.Index(sql, upMarker)
	down := strings.Index(sql, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", upMarker)
	case down < 0:
		return fmt.Errorf("missing %q", downMarker)
	case down < up:
		return errors.New("down section precedes up section")
	}
	return nil
}
