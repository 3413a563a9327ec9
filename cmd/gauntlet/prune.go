package main

import (
	"fmt"

	"github.com/metalagman/gauntlet/internal/db"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func pruneCmd() *cobra.Command {
	var (
		keepLast int
		keepDays int
		dryRun   bool
	)
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Prune old competitions and their events from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.stop()

			policy := db.RetentionPolicy{KeepLast: keepLast, KeepDays: keepDays}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				policy = db.RetentionPolicy{
					KeepLast: sess.cfg.Retention.KeepLast,
					KeepDays: sess.cfg.Retention.KeepDays,
				}
			}
			if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
				return fmt.Errorf("set --keep-last or --keep-days (or configure retention in %s)", cfgFile)
			}

			return withLock(func() error {
				res, err := db.Prune(cmd.Context(), sess.store.DB(), policy, dryRun)
				if err != nil {
					return err
				}
				mode := "deleted"
				if dryRun {
					mode = "would delete"
				}
				log.Info().Msgf("%s %d competitions (kept %d of %d)", mode, res.Deleted, res.Kept, res.Considered)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&keepLast, "keep-last", 0, "keep the newest N competitions")
	cmd.Flags().IntVar(&keepDays, "keep-days", 0, "keep competitions newer than N days")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pruned without deleting")
	return cmd
}
