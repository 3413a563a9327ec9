package main

import (
	"fmt"

	"github.com/metalagman/gauntlet/internal/arena"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func reconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Apply rewards left pending by failed profile writes",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.stop()

			lock, ok, err := arena.TryAcquireLock(dir)
			if err != nil {
				return err
			}
			if !ok {
				log.Info().Msg("another gauntlet process holds the lock, skipping reconcile")
				return nil
			}
			defer func() { _ = lock.Release() }()

			res, err := sess.engine.ApplyPending(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%d pending files: %d rewards applied, %d still pending\n", res.Files, res.Applied, res.StillPending)
			return err
		},
	}
}
