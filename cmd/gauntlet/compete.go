package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/metalagman/gauntlet/internal/arena"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// competitionFlags are shared by compete and scenario.
type competitionFlags struct {
	agents      []string
	domain      string
	complexity  string
	weaknesses  []string
	rewardLevel string
}

func (f *competitionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.agents, "agents", nil, "participating agent ids (default: whole roster)")
	cmd.Flags().StringVar(&f.domain, "domain", "", "force a scenario domain")
	cmd.Flags().StringVar(&f.complexity, "complexity", "", "force a complexity tier")
	cmd.Flags().StringSliceVar(&f.weaknesses, "weakness", nil, "weakness tags to target")
	cmd.Flags().StringVar(&f.rewardLevel, "reward-level", "", "reward level: low, standard, high or extreme")
}

func (f *competitionFlags) hints() (arena.Hints, error) {
	h := arena.Hints{TargetWeaknesses: f.weaknesses, RewardLevel: model.RewardLevel(f.rewardLevel)}
	if f.domain != "" {
		d, err := model.ParseDomain(f.domain)
		if err != nil {
			return arena.Hints{}, err
		}
		h.Domain = d
	}
	if f.complexity != "" {
		c, err := model.ParseComplexity(f.complexity)
		if err != nil {
			return arena.Hints{}, err
		}
		h.Complexity = c
	}
	switch h.RewardLevel {
	case "", model.RewardLow, model.RewardStandard, model.RewardHigh, model.RewardExtreme:
	default:
		return arena.Hints{}, fmt.Errorf("unknown reward level %q", f.rewardLevel)
	}
	return h, nil
}

// participants returns the requested agents, lowercased to match roster keys, or the
// whole roster.
func (f *competitionFlags) participants(e *arena.Engine) []string {
	if len(f.agents) == 0 {
		return e.Roster()
	}
	out := make([]string, 0, len(f.agents))
	for _, id := range f.agents {
		out = append(out, strings.ToLower(strings.TrimSpace(id)))
	}
	return out
}

func competeCmd() *cobra.Command {
	var (
		flags   competitionFlags
		rounds  int
		useTUI  bool
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "compete",
		Short: "Generate a scenario and run a competition",
		Long:  "Generate an adaptive scenario for the participants, dispatch it to every agent, score and rank the responses and apply the rewards.",
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

			return withLock(func() error {
				for i := 0; i < rounds; i++ {
					rec, err := runRound(cmd.Context(), sess.engine, flags.participants(sess.engine), hints, useTUI)
					if err != nil && !errors.Is(err, arena.ErrPersistence) {
						return err
					}
					if perr := printRecord(cmd.OutOrStdout(), rec, jsonOut); perr != nil {
						return perr
					}
					if err != nil {
						log.Error().Err(err).Str("scenario_id", rec.Scenario.ID).Msg("rewards pending, run gauntlet reconcile")
						return err
					}
				}
				return nil
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&rounds, "rounds", 1, "number of competitions to run")
	cmd.Flags().BoolVar(&useTUI, "tui", false, "show a progress spinner while agents respond")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the competition record as JSON")
	return cmd
}

func runRound(ctx context.Context, e *arena.Engine, participants []string, hints arena.Hints, useTUI bool) (model.CompetitionRecord, error) {
	s, err := e.GenerateScenario(ctx, participants, hints)
	if err != nil {
		return model.CompetitionRecord{}, err
	}
	if useTUI {
		return competeWithSpinner(ctx, e, s)
	}
	return e.Compete(ctx, s)
}

func printRecord(w io.Writer, rec model.CompetitionRecord, jsonOut bool) error {
	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}
	_, err := fmt.Fprintln(w, renderOutcome(rec))
	return err
}
