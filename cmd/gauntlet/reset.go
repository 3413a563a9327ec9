package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resetCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset <agent-id>",
		Short: "Clear all progression of an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("reset discards all XP and history of %s; pass --yes to confirm", args[0])
			}
			sess, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.stop()

			return withLock(func() error {
				if _, err := sess.engine.ResetProfile(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "profile %s reset\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
