package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/wecr8/damp-backend/internal/auth"
	"github.com/wecr8/damp-backend/pkg/config"
	"github.com/wecr8/damp-backend/pkg/logger"
)

type cli struct {
	out  io.Writer
	logg *logger.Logger

	loadSection func(dst any) error
	newProvider func(cfg config.FirebaseConfig) (auth.Provider, error)
}

func main() {
	_ = godotenv.Load()

	c := &cli{
		out:  os.Stdout,
		logg: logger.New(logger.Options{ServiceName: "dampctl", Level: logger.ParseLevel(os.Getenv(config.EnvLogLevel))}),
		loadSection: config.LoadSection,
		newProvider: func(cfg config.FirebaseConfig) (auth.Provider, error) {
			return auth.NewProvider(cfg)
		},
	}
	if err := c.root().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (c *cli) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "dampctl",
		Short:         "Operator tooling for the DAMP pre-order backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(c.authCmd(), c.catalogCmd(), c.campaignCmd(), c.analyticsCmd())
	return root
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
