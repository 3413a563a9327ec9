package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func scenarioCmd() *cobra.Command {
	var (
		flags   competitionFlags
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "scenario",
		Short: "Generate a scenario without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			hints, err := flags.hints()
			if err != nil {
				return err
			}
			sess, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer sess.stop()

			s, err := sess.engine.GenerateScenario(cmd.Context(), flags.participants(sess.engine), hints)
			if err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			out, err := renderMarkdown(scenarioMarkdown(s))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the scenario as JSON")
	return cmd
}
