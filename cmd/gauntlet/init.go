package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/metalagman/gauntlet/internal/config"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/scenario"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a gauntlet directory",
		Long:  "Initialize a gauntlet directory with a default config and a starter scenario catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Info().Str("dir", dir).Msg("creating gauntlet directory")
			for _, sub := range []string{"runs", "pending", "locks"} {
				if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
					return fmt.Errorf("create %s dir: %w", sub, err)
				}
			}

			if err := config.WriteDefault(cfgFile); errors.Is(err, config.ErrExists) {
				log.Info().Str("path", cfgFile).Msg("config already exists, skipping")
			} else if err != nil {
				return err
			} else {
				log.Info().Str("path", cfgFile).Msg("installed default config")
			}

			catalogPath := filepath.Join(dir, "catalog.toml")
			if _, err := os.Stat(catalogPath); err == nil {
				log.Info().Str("path", catalogPath).Msg("catalog already exists, skipping")
			} else if err := writeStarterCatalog(catalogPath); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "gauntlet initialized successfully")
			return nil
		},
	}
}

// writeStarterCatalog writes one generic entry per domain.
func writeStarterCatalog(path string) error {
	var cat scenario.Catalog
	for _, d := range model.AllDomains() {
		cat.Entries = append(cat.Entries, scenario.CatalogEntry{Domain: string(d), Content: scenario.Template(d)})
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create catalog: %w", err)
	}
	if err := toml.NewEncoder(f).Encode(cat); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close catalog: %w", err)
	}
	log.Info().Str("path", path).Int("entries", len(cat.Entries)).Msg("installed starter catalog")
	return nil
}
