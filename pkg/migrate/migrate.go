package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pressly/goose/v3"
)

const DefaultDir = "pkg/migrate/migrations"

// GooseDialect maps a gorm dialector name onto the goose dialect string.
func GooseDialect(gormDialect string) (string, error) {
	switch gormDialect {
	case "", "postgres":
		return string(goose.DialectPostgres), nil
	case "sqlite":
		return string(goose.DialectSQLite3), nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", gormDialect)
	}
}

// Step is one migration applied or rolled back by a Runner.
type Step struct {
	Version   int64
	Path      string
	Direction string
	Duration  time.Duration
}

// State describes one migration file against the database.
type State struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// Runner drives goose over a single migrations directory.
type Runner struct {
	provider *goose.Provider
}

// NewRunner does not take ownership of db.
func NewRunner(db *sql.DB, gormDialect, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("migrate: db is required")
	}
	if dir == "" {
		return nil, errors.New("migrate: dir is required")
	}
	dialect, err := GooseDialect(gormDialect)
	if err != nil {
		return nil, err
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, os.DirFS(dir))
	if err != nil {
		return nil, fmt.Errorf("goose provider for %s: %w", dir, err)
	}
	return &Runner{provider: provider}, nil
}

func (r *Runner) Up(ctx context.Context) ([]Step, error) {
	results, err := r.provider.Up(ctx)
	return steps(results), wrap("up", err)
}

// Down rolls back the most recent migration only.
func (r *Runner) Down(ctx context.Context) ([]Step, error) {
	result, err := r.provider.Down(ctx)
	if result == nil {
		return nil, wrap("down", err)
	}
	return steps([]*goose.MigrationResult{result}), wrap("down", err)
}

// Reset rolls every migration back.
func (r *Runner) Reset(ctx context.Context) ([]Step, error) {
	results, err := r.provider.DownTo(ctx, 0)
	return steps(results), wrap("reset", err)
}

// To moves the schema up or down to the YYYYMMDDHHMMSS version given.
func (r *Runner) To(ctx context.Context, version string) ([]Step, error) {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil || len(version) != len(versionLayout) {
		return nil, fmt.Errorf("invalid version %q (want %s)", version, versionLayout)
	}
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, wrap("version", err)
	}
	if current == target {
		return nil, nil
	}
	if current < target {
		results, err := r.provider.UpTo(ctx, target)
		return steps(results), wrap("up-to", err)
	}
	results, err := r.provider.DownTo(ctx, target)
	return steps(results), wrap("down-to", err)
}

func (r *Runner) Status(ctx context.Context) ([]State, error) {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return nil, wrap("status", err)
	}
	out := make([]State, 0, len(statuses))
	for _, s := range statuses {
		st := State{Applied: s.State == goose.StateApplied, AppliedAt: s.AppliedAt}
		if s.Source != nil {
			st.Version, st.Path = s.Source.Version, s.Source.Path
		}
		out = append(out, st)
	}
	return out, nil
}

func steps(results []*goose.MigrationResult) []Step {
	out := make([]Step, 0, len(results))
	for _, res := range results {
		if res == nil || res.Source == nil {
			continue
		}
		out = append(out, Step{
			Version:   res.Source.Version,
			Path:      res.Source.Path,
			Direction: res.Direction,
			Duration:  res.Duration,
		})
	}
	return out
}

func wrap(op string, err error) error {
	if err == nil || errors.Is(err, goose.ErrNoNextVersion) {
		return nil
	}
	return fmt.Errorf("goose %s: %w", op, err)
}
