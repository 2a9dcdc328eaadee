// Package commands implements the filingstore CLI.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fino-data/filingstore/collection"
	"github.com/fino-data/filingstore/filing"
	"github.com/fino-data/filingstore/internal/cli/config"
)

var dirFlag string

// NewRootCommand creates the filingstore root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filingstore",
		Short: "Schema-aware catalog for content-addressed filings",
		Long: `filingstore maintains a local collection of immutable, content-addressed
documents: content is stored under a checksum gate, metadata is indexed in an
embedded catalog, and records can be searched and reconstructed with their
original declared type.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&dirFlag, "dir", "", "Collection directory (default .filingstore, or filingstore.yml)")

	cmd.AddCommand(newAddCommand())
	cmd.AddCommand(newGetCommand())
	cmd.AddCommand(newSearchCommand())
	cmd.AddCommand(newStatsCommand())

	return cmd
}

// openCollection builds a collection from flags and configuration.
func openCollection() (*collection.Collection, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dir := dirFlag
	if dir == "" {
		dir = cfg.Collection.Dir
	}

	logger, err := buildLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	resolver := filing.NewResolver()
	if err := resolver.Register(filing.EDINETSchema()); err != nil {
		return nil, err
	}
	if err := resolver.Register(filing.EDGARSchema()); err != nil {
		return nil, err
	}

	return collection.New(collection.Options{
		Dir:      dir,
		Resolver: resolver,
		Logger:   logger,
	})
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	return cfg.Build()
}
