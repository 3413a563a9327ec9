// Package progress summarizes stored competition history. It never modifies profiles.
package progress

import (
	"sort"
	"time"

	"github.com/metalagman/gauntlet/internal/capability"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/reward"
)

// AgentSummary is the progress of one agent.
type AgentSummary struct {
	AgentID              string                   `json:"agent_id"`
	Level                int                      `json:"level"`
	XP                   int                      `json:"xp"`
	NextLevelXP          int                      `json:"next_level_xp"`
	CustodyXP            int                      `json:"custody_xp"`
	CustodyLevel         int                      `json:"custody_level"`
	Participations       int                      `json:"participations"`
	Wins                 int                      `json:"wins"`
	Losses               int                      `json:"losses"`
	PassRate             float64                  `json:"pass_rate"`
	MeanScore            float64                  `json:"mean_score"`
	CapabilityScore      float64                  `json:"capability_score"`
	DifficultyMultiplier float64                  `json:"difficulty_multiplier"`
	Trend                string                   `json:"trend"`
	DomainHistogram      map[model.Domain]int     `json:"domain_histogram"`
	ComplexityHistogram  map[model.Complexity]int `json:"complexity_histogram"`
	Strengths            []string                 `json:"strengths"`
	Weaknesses           []string                 `json:"weaknesses"`
	LastCompetedAt       time.Time                `json:"last_competed_at,omitzero"`
}

// Summary covers a set of agents.
type Summary struct {
	Agents              []AgentSummary           `json:"agents"`
	TotalParticipations int                      `json:"total_participations"`
	TotalWins           int                      `json:"total_wins"`
	MeanScore           float64                  `json:"mean_score"`
	DomainHistogram     map[model.Domain]int     `json:"domain_histogram"`
	ComplexityHistogram map[model.Complexity]int `json:"complexity_histogram"`
	LevelDistribution   map[int]int              `json:"level_distribution"`
	GeneratedAt         time.Time                `json:"generated_at"`
}

// Reporter builds summaries.
type Reporter struct {
	analyzer capability.Analyzer
	now      func() time.Time
}

// NewReporter returns a Reporter.
func NewReporter() *Reporter {
	return &Reporter{analyzer: capability.NewAnalyzer(), now: time.Now}
}

// Agent summarizes one profile.
func (r *Reporter) Agent(p model.AgentProfile) AgentSummary {
	a := r.analyzer.Analyze(p)
	s := AgentSummary{
		AgentID:              p.ID,
		Level:                reward.LevelFromXP(p.XP),
		XP:                   p.XP,
		NextLevelXP:          reward.NextLevelXP(p.XP),
		CustodyXP:            p.CustodyXP,
		CustodyLevel:         reward.CustodyLevelFromXP(p.CustodyXP),
		Participations:       p.TestsTaken,
		Wins:                 p.Wins,
		Losses:               p.Losses,
		PassRate:             p.PassRate,
		CapabilityScore:      a.CapabilityScore,
		DifficultyMultiplier: p.DifficultyMultiplier,
		Trend:                a.RecentTrend,
		DomainHistogram:      make(map[model.Domain]int),
		ComplexityHistogram:  make(map[model.Complexity]int),
		Strengths:            a.Strengths,
		Weaknesses:           a.Weaknesses,
		LastCompetedAt:       p.LastCompetedAt,
	}
	var sum float64
	for _, rec := range p.TestHistory {
		s.DomainHistogram[rec.Domain]++
		s.ComplexityHistogram[rec.Complexity]++
		sum += rec.Score
	}
	if n := len(p.TestHistory); n > 0 {
		s.MeanScore = sum / float64(n)
	}
	return s
}

// Report summarizes profiles. Agents are ordered by XP, highest first, then by id.
func (r *Reporter) Report(profiles []model.AgentProfile) Summary {
	out := Summary{
		Agents:              make([]AgentSummary, 0, len(profiles)),
		DomainHistogram:     make(map[model.Domain]int),
		ComplexityHistogram: make(map[model.Complexity]int),
		LevelDistribution:   make(map[int]int),
		GeneratedAt:         r.now().UTC(),
	}
	var scoreSum float64
	var records int
	for _, p := range profiles {
		a := r.Agent(p)
		out.Agents = append(out.Agents, a)
		out.TotalParticipations += a.Participations
		out.TotalWins += a.Wins
		out.LevelDistribution[a.Level]++
		for d, n := range a.DomainHistogram {
			out.DomainHistogram[d] += n
		}
		for c, n := range a.ComplexityHistogram {
			out.ComplexityHistogram[c] += n
		}
		for _, rec := range p.TestHistory {
			scoreSum += rec.Score
			records++
		}
	}
	if records > 0 {
		out.MeanScore = scoreSum / float64(records)
	}
	sort.SliceStable(out.Agents, func(i, j int) bool {
		if out.Agents[i].XP != out.Agents[j].XP {
			return out.Agents[i].XP > out.Agents[j].XP
		}
		return out.Agents[i].AgentID < out.Agents[j].AgentID
	})
	return out
}
