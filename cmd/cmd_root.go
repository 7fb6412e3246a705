// Copyright 2025 The BuildingID Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jcodagnone/buildingid/config"
	"github.com/jcodagnone/buildingid/extraction"
	"github.com/jcodagnone/buildingid/gazetteer"
	"github.com/jcodagnone/buildingid/identify"
	"github.com/jcodagnone/buildingid/store"
	"github.com/jcodagnone/buildingid/validator"
)

var rootOptions struct {
	ConfigPath string
	LogLevel   string
}

// cfg is loaded before any subcommand runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "buildingid",
	Short: "identify the building of short-term rental listings",
	Long: `
buildingid finds the building an apartment listing is in, from the listing
text and coordinates, and checks the match against the building's official
location.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		c, err := config.Load(rootOptions.ConfigPath)
		if err != nil {
			return err
		}

		if rootOptions.LogLevel != "" {
			c.Log.Level = rootOptions.LogLevel
		}

		if err := config.InitLogger(c.Log); err != nil {
			return err
		}

		cfg = c

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	_ = zap.L().Sync()

	if err != nil {
		var integrity *gazetteer.IntegrityError
		if errors.As(err, &integrity) {
			for _, p := range integrity.Problems {
				fmt.Fprintln(os.Stderr, "  -", p)
			}
		}

		os.Exit(1)
	}
}

// newService wires the identification service from the loaded configuration.
func newService() (*identify.Service, error) {
	reg, err := gazetteer.Open(cfg.Gazetteer.Path)
	if err != nil {
		return nil, err
	}

	return identify.New(
		reg,
		extraction.NewExtractor(reg, extraction.WithExclusionWindow(cfg.Extraction.ExclusionWindow)),
		validator.New(reg, validator.WithThreshold(cfg.Validation.ThresholdMeters)),
		identify.WithDefaultArea(cfg.Gazetteer.DefaultArea),
	), nil
}

// openRepository opens the configured result store and makes sure its schema
// exists.
func openRepository(cmd *cobra.Command) (*sql.DB, store.Repository, error) {
	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, nil, err
	}

	repo := store.NewRepository(db)
	if err := repo.CreateSchema(cmd.Context()); err != nil {
		return nil, nil, errors.Join(err, db.Close())
	}

	return db, repo, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOptions.ConfigPath, "config", "", "configuration file (default ./buildingid.yaml)")
	rootCmd.PersistentFlags().StringVar(&rootOptions.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}
