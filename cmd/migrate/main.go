package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/db"
	pkgerrors "github.com/wecr8/damp-backend/pkg/errors"
	"github.com/wecr8/damp-backend/pkg/logger"
	"github.com/wecr8/damp-backend/pkg/migrate"
)

type migrator struct {
	dir  string
	out  io.Writer
	logg *logger.Logger
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := &migrator{
		out:  os.Stdout,
		logg: logger.New(logger.Options{ServiceName: "migrate", Level: logger.ParseLevel(os.Getenv(config.EnvLogLevel))}),
	}
	if err := m.root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		stop()
		os.Exit(1)
	}
}

func (m *migrator) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the DAMP SQL schema with goose",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&m.dir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Write an empty timestamped migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(_ *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(m.dir, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(m.out, "created", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration filenames and goose markers",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				if err := migrate.ValidateDir(m.dir); err != nil {
					return err
				}
				fmt.Fprintln(m.out, "ok")
				return nil
			},
		},
		m.stepCmd("up", "Apply every pending migration", (*migrate.Runner).Up),
		m.stepCmd("down", "Roll back the latest migration", (*migrate.Runner).Down),
		m.resetCmd(),
		m.toCmd(),
		m.statusCmd(),
	)
	return root
}

// withRunner opens the configured database for the duration of fn. Postgres
// goes through lib/pq here; the API's gorm pool uses pgx.
func (m *migrator) withRunner(ctx context.Context, fn func(*migrate.Runner, *config.Config) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx = m.logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": m.dir})

	sqlDB, dialect, err := m.open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			m.logg.Error(ctx, "failed to close database", err)
		}
	}()

	runner, err := migrate.NewRunner(sqlDB, dialect, m.dir)
	if err != nil {
		return err
	}
	if err := fn(runner, cfg); err != nil {
		m.logg.Error(m.logg.WithFields(ctx, pkgerrors.LogFields(err)), "migration failed", err)
		return err
	}
	return nil
}

func (m *migrator) open(ctx context.Context, cfg *config.Config) (*sql.DB, string, error) {
	if cfg.FeatureFlags.UseSQLite {
		client, err := db.New(ctx, cfg.DB, true, m.logg)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		sqlDB, err := client.DB().DB()
		return sqlDB, client.Dialect(), err
	}

	sqlDB, err := sql.Open("postgres", cfg.DB.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("open postgres: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, "", fmt.Errorf("ping postgres: %w", err)
	}
	return sqlDB, "postgres", nil
}

func (m *migrator) stepCmd(use, short string, step func(*migrate.Runner, context.Context) ([]migrate.Step, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return m.withRunner(cmd.Context(), func(r *migrate.Runner, _ *config.Config) error {
				done, err := step(r, cmd.Context())
				m.printSteps(done)
				return err
			})
		},
	}
}

func (m *migrator) resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Roll back every migration (refused in prod)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return m.withRunner(cmd.Context(), func(r *migrate.Runner, cfg *config.Config) error {
				if cfg.App.IsProd() {
					return errors.New("reset is disabled in prod")
				}
				done, err := r.Reset(cmd.Context())
				m.printSteps(done)
				return err
			})
		},
	}
}

func (m *migrator) toCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "to <YYYYMMDDHHMMSS>",
		Short: "Migrate up or down to an exact version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.withRunner(cmd.Context(), func(r *migrate.Runner, _ *config.Config) error {
				done, err := r.To(cmd.Context(), args[0])
				m.printSteps(done)
				return err
			})
		},
	}
}

func (m *migrator) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether each is applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return m.withRunner(cmd.Context(), func(r *migrate.Runner, _ *config.Config) error {
				states, err := r.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(m.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
				for _, s := range states {
					applied := "pending"
					if s.Applied {
						applied = s.AppliedAt.UTC().Format("2006-01-02 15:04:05")
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, applied, s.Path)
				}
				return tw.Flush()
			})
		},
	}
}

func (m *migrator) printSteps(steps []migrate.Step) {
	if len(steps) == 0 {
		fmt.Fprintln(m.out, "nothing to do")
		return
	}
	for _, s := range steps {
		fmt.Fprintf(m.out, "%-4s %d %s (%s)\n", s.Direction, s.Version, s.Path, s.Duration)
	}
}
