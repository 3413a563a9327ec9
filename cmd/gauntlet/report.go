package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func reportCmd() *cobra.Command {
	var (
		competitions int
		jsonOut      bool
	)
	cmd := &cobra.Command{
		Use:   "report [agent-id]",
		Short: "Show progress for one agent or the whole roster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agentID := ""
			if len(args) == 1 {
				agentID = args[0]
			}
			sess, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer sess.stop()

			summary, err := sess.engine.GetProgressReport(cmd.Context(), agentID)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			md := summaryMarkdown(summary)
			if competitions > 0 && agentID == "" {
				rows, err := sess.store.ListCompetitions(cmd.Context(), competitions)
				if err != nil {
					return err
				}
				if len(rows) > 0 {
					md += competitionsMarkdown(rows)
				}
			}
			out, err := renderMarkdown(md)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().IntVar(&competitions, "competitions", 10, "number of recent competitions to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the summary as JSON")
	return cmd
}
