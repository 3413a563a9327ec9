package model

import "time"

// TestRecord is one completed competition entry in an agent's history.
type TestRecord struct {
	ScenarioID string     `json:"scenario_id"`
	Domain     Domain     `json:"domain"`
	Complexity Complexity `json:"complexity"`
	Score      float64    `json:"score"`
	Passed     bool       `json:"passed"`
	XPAwarded  int        `json:"xp_awarded"`
	Result     string     `json:"result,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// AgentProfile is the persistent progression state of one agent.
type AgentProfile struct {
	ID                   string       `json:"id"`
	Level                int          `json:"level"`
	XP                   int          `json:"xp"`
	CustodyXP            int          `json:"custody_xp"`
	Wins                 int          `json:"wins"`
	Losses               int          `json:"losses"`
	ConsecutiveSuccesses int          `json:"consecutive_successes"`
	ConsecutiveFailures  int          `json:"consecutive_failures"`
	TestsTaken           int          `json:"tests_taken"`
	TestsPassed          int          `json:"tests_passed"`
	PassRate             float64      `json:"pass_rate"`
	FailureRate          float64      `json:"failure_rate"`
	DifficultyMultiplier float64      `json:"difficulty_multiplier"`
	TestHistory          []TestRecord `json:"test_history"`
	Strengths            []string     `json:"strengths"`
	Weaknesses           []string     `json:"weaknesses"`
	LastCompetedAt       time.Time    `json:"last_competed_at,omitzero"`
	UpdatedAt            time.Time    `json:"updated_at,omitzero"`
}

// NewAgentProfile returns a level 1 profile with no history.
func NewAgentProfile(id string) AgentProfile {
	return AgentProfile{
		ID:                   id,
		Level:                1,
		DifficultyMultiplier: 1.0,
	}
}

// Clone returns a deep copy of the profile.
func (p AgentProfile) Clone() AgentProfile {
	out := p
	out.TestHistory = append([]TestRecord(nil), p.TestHistory...)
	out.Strengths = append([]string(nil), p.Strengths...)
	out.Weaknesses = append([]string(nil), p.Weaknesses...)
	return out
}

// AppendRecord adds rec to the history, evicting the oldest records beyond MaxTestHistory.
func (p *AgentProfile) AppendRecord(rec TestRecord) {
	p.TestHistory = append(p.TestHistory, rec)
	if over := len(p.TestHistory) - MaxTestHistory; over > 0 {
		kept := make([]TestRecord, MaxTestHistory)
		copy(kept, p.TestHistory[over:])
		p.TestHistory = kept
	}
}

// HasScenario reports whether the retained history already holds a record for scenarioID.
func (p AgentProfile) HasScenario(scenarioID string) bool {
	for _, rec := range p.TestHistory {
		if rec.ScenarioID == scenarioID {
			return true
		}
	}
	return false
}

// RecordAttempt updates the attempt counters, streaks and derived rates.
// A pass resets the failure streak and vice versa.
func (p *AgentProfile) RecordAttempt(passed bool) {
	p.TestsTaken++
	if passed {
		p.TestsPassed++
		p.ConsecutiveSuccesses++
		p.ConsecutiveFailures = 0
	} else {
		p.ConsecutiveFailures++
		p.ConsecutiveSuccesses = 0
	}
	p.recomputeRates()
}

func (p *AgentProfile) recomputeRates() {
	if p.TestsTaken <= 0 {
		p.PassRate = 0
		p.FailureRate = 0
		return
	}
	p.PassRate = float64(p.TestsPassed) / float64(p.TestsTaken)
	p.FailureRate = 1 - p.PassRate
}

// HasHistory reports whether the agent has completed at least one test.
func (p AgentProfile) HasHistory() bool {
	return p.TestsTaken > 0
}
