package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/metalagman/gauntlet/internal/config"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/progress"
	"github.com/metalagman/gauntlet/internal/scenario"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompetitionFlags_Hints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		flags   competitionFlags
		want    arenaHintsView
		wantErr bool
	}{
		{
			name:  "empty",
			flags: competitionFlags{},
			want:  arenaHintsView{},
		},
		{
			name:  "forced",
			flags: competitionFlags{domain: "security_challenges", complexity: "expert", rewardLevel: "high"},
			want:  arenaHintsView{domain: model.DomainSecurity, complexity: model.ComplexityExpert, level: model.RewardHigh},
		},
		{name: "bad domain", flags: competitionFlags{domain: "chess"}, wantErr: true},
		{name: "bad complexity", flags: competitionFlags{complexity: "legendary"}, wantErr: true},
		{name: "bad reward level", flags: competitionFlags{rewardLevel: "huge"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h, err := tt.flags.hints()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("hints() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("hints() error = %v", err)
			}
			got := arenaHintsView{domain: h.Domain, complexity: h.Complexity, level: h.RewardLevel}
			if got != tt.want {
				t.Fatalf("hints() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type arenaHintsView struct {
	domain     model.Domain
	complexity model.Complexity
	level      model.RewardLevel
}

func TestCompetitionFlags_ParticipantsMatchRosterKeys(t *testing.T) {
	t.Parallel()

	f := competitionFlags{agents: []string{"Codex", " GEMINI "}}

	assert.Equal(t, []string{"codex", "gemini"}, f.participants(nil))
}

func TestLoadConfig_UsesConfigFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.WriteDefault(path); err != nil {
		t.Fatalf("write default config: %v", err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("config", path)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Roster) == 0 {
		t.Fatalf("roster is empty")
	}
}

func TestWriteStarterCatalog_IsLoadable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "catalog.toml")
	require.NoError(t, writeStarterCatalog(path))

	cat, err := scenario.LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, cat.Entries, len(model.AllDomains()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[[scenario]]")
}

func TestSummaryMarkdown(t *testing.T) {
	t.Parallel()

	s := progress.Summary{
		Agents: []progress.AgentSummary{
			{AgentID: "alpha", Level: 2, XP: 1200, NextLevelXP: 5000, Wins: 3, Losses: 1, PassRate: 0.75, Trend: "improving",
				Weaknesses: []string{"weak_in_security"}, LastCompetedAt: time.Now().Add(-time.Hour)},
			{AgentID: "beta", Level: 1, Trend: "stable"},
		},
		TotalParticipations: 4,
		TotalWins:           3,
		DomainHistogram:     map[model.Domain]int{model.DomainSecurity: 4},
		ComplexityHistogram: map[model.Complexity]int{model.ComplexityBasic: 4},
		GeneratedAt:         time.Now(),
	}

	md := summaryMarkdown(s)

	assert.Contains(t, md, "| alpha | 2 | 1,200 | 5,000 |")
	assert.Contains(t, md, "| beta | 1 |")
	assert.Contains(t, md, "never")
	assert.Contains(t, md, "- security_challenges: 4")
	assert.Contains(t, md, "- basic: 4")
	assert.Contains(t, md, "weaknesses: weak_in_security")
}

func TestRenderOutcome(t *testing.T) {
	t.Parallel()

	rec := model.CompetitionRecord{
		Scenario: model.Scenario{ID: "scn-1", Domain: model.DomainCreative, Complexity: model.ComplexityBasic, TimeLimitSeconds: 300},
		Responses: map[string]model.ResponseRecord{
			"alpha": {AgentID: "alpha", ResponseMethod: "exec#0"},
			"beta":  {AgentID: "beta", ResponseMethod: model.ResponseMethodFallback},
		},
		Outcome: model.CompetitionOutcome{
			Winners:         []string{"alpha"},
			Losers:          []string{"beta"},
			CompetitionType: model.CompetitionClearWinner,
			Rankings: []model.Ranking{
				{AgentID: "alpha", Rank: 1, Score: 88},
				{AgentID: "beta", Rank: 2, Score: 20},
			},
		},
		Rewards: map[string]model.RewardTransaction{
			"alpha": {XPDelta: 69, NewLevel: 1},
			"beta":  {XPDelta: 10, NewLevel: 1, Pending: true},
		},
	}

	out := renderOutcome(rec)

	for _, want := range []string{"scn-1", "alpha", "beta", "+69", "pending", "fallback", "clear_winner"} {
		if !strings.Contains(out, want) {
			t.Fatalf("renderOutcome missing %q:\n%s", want, out)
		}
	}
}

func TestScenarioMarkdown(t *testing.T) {
	t.Parallel()

	md := scenarioMarkdown(model.Scenario{
		ID:         "scn-2",
		Domain:     model.DomainSecurity,
		Complexity: model.ComplexityAdvanced,
		Objectives: []string{"Threat detection"},
	})

	assert.Contains(t, md, "# Scenario scn-2")
	assert.Contains(t, md, "## Objectives\n\n- Threat detection")
	assert.NotContains(t, md, "## Constraints")
}
