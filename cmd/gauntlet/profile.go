package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/metalagman/gauntlet/internal/profile"
	"github.com/spf13/cobra"
)

func profileCmd() *cobra.Command {
	var events int
	cmd := &cobra.Command{
		Use:   "profile <agent-id>",
		Short: "Print a stored agent profile and its recent events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.stop()

			p, err := sess.store.Get(cmd.Context(), args[0])
			if errors.Is(err, profile.ErrNotFound) {
				return fmt.Errorf("agent %q has no profile yet", args[0])
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(p); err != nil {
				return err
			}
			if events <= 0 {
				return nil
			}
			list, err := sess.store.Events(cmd.Context(), p.ID, events)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				return nil
			}
			out, err := renderMarkdown(eventsMarkdown(list))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&events, "events", 20, "number of recent events to show")
	return cmd
}
