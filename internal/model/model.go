// Package model defines the value types shared by every stage of a competition.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxTestHistory is the number of test records retained per agent profile.
const MaxTestHistory = 50

// Domain is a category of challenge.
type Domain string

// Scenario domains.
const (
	DomainSystemLevel           Domain = "system_level"
	DomainComplexProblemSolving Domain = "complex_problem_solving"
	DomainPhysicalSimulated     Domain = "physical_simulated"
	DomainSecurity              Domain = "security_challenges"
	DomainCreative              Domain = "creative_tasks"
	DomainCollaboration         Domain = "collaboration_competition"
)

// AllDomains returns every domain in declaration order.
func AllDomains() []Domain {
	return []Domain{
		DomainSystemLevel,
		DomainComplexProblemSolving,
		DomainPhysicalSimulated,
		DomainSecurity,
		DomainCreative,
		DomainCollaboration,
	}
}

// ParseDomain resolves a domain by its wire name.
func ParseDomain(s string) (Domain, error) {
	for _, d := range AllDomains() {
		if string(d) == strings.TrimSpace(strings.ToLower(s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// Tag is the short name used in strength and weakness tags, e.g. "weak_in_security".
func (d Domain) Tag() string {
	switch d {
	case DomainSecurity:
		return "security"
	case DomainCreative:
		return "creativity"
	case DomainCollaboration:
		return "collaboration"
	default:
		return string(d)
	}
}

// Complexity is an ordered difficulty tier.
type Complexity int

// Complexity tiers, lowest first.
const (
	ComplexityBasic Complexity = iota + 1
	ComplexityIntermediate
	ComplexityAdvanced
	ComplexityExpert
	ComplexityMaster
)

var complexityNames = map[Complexity]string{
	ComplexityBasic:        "basic",
	ComplexityIntermediate: "intermediate",
	ComplexityAdvanced:     "advanced",
	ComplexityExpert:       "expert",
	ComplexityMaster:       "master",
}

// AllComplexities returns every tier from BASIC to MASTER.
func AllComplexities() []Complexity {
	return []Complexity{
		ComplexityBasic,
		ComplexityIntermediate,
		ComplexityAdvanced,
		ComplexityExpert,
		ComplexityMaster,
	}
}

// Valid reports whether c is a known tier.
func (c Complexity) Valid() bool {
	return c >= ComplexityBasic && c <= ComplexityMaster
}

// Clamp bounds c to BASIC..MASTER.
func (c Complexity) Clamp() Complexity {
	if c < ComplexityBasic {
		return ComplexityBasic
	}
	if c > ComplexityMaster {
		return ComplexityMaster
	}
	return c
}

func (c Complexity) String() string {
	if name, ok := complexityNames[c]; ok {
		return name
	}
	return fmt.Sprintf("complexity(%d)", int(c))
}

// ParseComplexity resolves a tier by name.
func ParseComplexity(s string) (Complexity, error) {
	want := strings.TrimSpace(strings.ToLower(s))
	for c, name := range complexityNames {
		if name == want {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown complexity %q", s)
}

// MarshalText encodes the tier by name.
func (c Complexity) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid complexity %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText decodes a tier name.
func (c *Complexity) UnmarshalText(text []byte) error {
	parsed, err := ParseComplexity(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// RewardLevel scales the XP a scenario is worth.
type RewardLevel string

// Reward levels.
const (
	RewardLow      RewardLevel = "low"
	RewardStandard RewardLevel = "standard"
	RewardHigh     RewardLevel = "high"
	RewardExtreme  RewardLevel = "extreme"
)

// Multiplier returns the XP multiplier for the level. Unknown levels count as standard.
func (r RewardLevel) Multiplier() float64 {
	switch r {
	case RewardLow:
		return 0.5
	case RewardHigh:
		return 2.0
	case RewardExtreme:
		return 3.0
	default:
		return 1.0
	}
}

// Content is the text body of a scenario.
type Content struct {
	Description     string   `json:"description"      toml:"description"`
	Objectives      []string `json:"objectives"       toml:"objectives"`
	Constraints     []string `json:"constraints"      toml:"constraints"`
	SuccessCriteria []string `json:"success_criteria" toml:"success_criteria"`
	RequiredSkills  []string `json:"required_skills"  toml:"required_skills"`
}

// Usable reports whether the content carries enough structure to run a competition.
func (c Content) Usable() bool {
	return nonEmpty(c.Objectives) && nonEmpty(c.SuccessCriteria)
}

func nonEmpty(items []string) bool {
	for _, item := range items {
		if strings.TrimSpace(item) != "" {
			return true
		}
	}
	return false
}

// Content sources recorded on a scenario.
const (
	ContentSourceProvider = "provider"
	ContentSourceFallback = "fallback"
)

// Scenario is one challenge issued to a set of participants.
type Scenario struct {
	ID               string      `json:"id"`
	Domain           Domain      `json:"domain"`
	Complexity       Complexity  `json:"complexity"`
	Description      string      `json:"description"`
	Objectives       []string    `json:"objectives"`
	Constraints      []string    `json:"constraints"`
	SuccessCriteria  []string    `json:"success_criteria"`
	RequiredSkills   []string    `json:"required_skills"`
	TimeLimitSeconds int         `json:"time_limit_seconds"`
	Participants     []string    `json:"participants"`
	TargetWeaknesses []string    `json:"target_weaknesses,omitempty"`
	RewardLevel      RewardLevel `json:"reward_level"`
	ContentSource    string      `json:"content_source"`
	CreatedAt        time.Time   `json:"created_at"`
}

// TimeLimit returns the scenario time limit as a duration.
func (s Scenario) TimeLimit() time.Duration {
	return time.Duration(s.TimeLimitSeconds) * time.Second
}

// ResponseMethodFallback tags synthetic responses produced when every responder tier failed.
const ResponseMethodFallback = "fallback"

// ResponseRecord is one agent's answer to a scenario.
type ResponseRecord struct {
	AgentID        string        `json:"agent_id"`
	ScenarioID     string        `json:"scenario_id"`
	Content        string        `json:"content"`
	ResponseMethod string        `json:"response_method"`
	Error          string        `json:"error,omitempty"`
	Latency        time.Duration `json:"latency"`
}

// IsFallback reports whether the response was synthesized.
func (r ResponseRecord) IsFallback() bool {
	return r.ResponseMethod == ResponseMethodFallback
}

// Scores holds the five evaluation criteria, each in [0,100].
type Scores struct {
	Completeness        float64 `json:"completeness"`
	Creativity          float64 `json:"creativity"`
	Feasibility         float64 `json:"feasibility"`
	TechnicalDepth      float64 `json:"technical_depth"`
	ConstraintAdherence float64 `json:"adherence_to_constraints"`
}

func (s Scores) values() []float64 {
	return []float64{s.Completeness, s.Creativity, s.Feasibility, s.TechnicalDepth, s.ConstraintAdherence}
}

// Valid reports whether every criterion is within [0,100].
func (s Scores) Valid() bool {
	for _, v := range s.values() {
		if math.IsNaN(v) || v < 0 || v > 100 {
			return false
		}
	}
	return true
}

// Mean is the unweighted average of the five criteria.
func (s Scores) Mean() float64 {
	var sum float64
	vals := s.values()
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// UniformScores returns scores with every criterion set to v.
func UniformScores(v float64) Scores {
	return Scores{Completeness: v, Creativity: v, Feasibility: v, TechnicalDepth: v, ConstraintAdherence: v}
}

// EvaluationResult is the scored outcome of one response.
type EvaluationResult struct {
	AgentID      string  `json:"agent_id"`
	ScenarioID   string  `json:"scenario_id"`
	Scores       Scores  `json:"scores"`
	OverallScore float64 `json:"overall_score"`
	Passed       bool    `json:"passed"`
	Degraded     bool    `json:"degraded,omitempty"`
	Feedback     string  `json:"feedback,omitempty"`
}

// CompetitionType classifies a ranked outcome.
type CompetitionType string

// Competition types.
const (
	CompetitionClearWinner CompetitionType = "clear_winner"
	CompetitionTie         CompetitionType = "tie"
	CompetitionNoWinners   CompetitionType = "no_winners"
)

// Ranking is one agent's position in a competition.
type Ranking struct {
	AgentID string  `json:"agent_id"`
	Rank    int     `json:"rank"`
	Score   float64 `json:"score"`
	Passed  bool    `json:"passed"`
}

// CompetitionOutcome is the ranked result of a competition.
type CompetitionOutcome struct {
	Winners          []string        `json:"winners"`
	Losers           []string        `json:"losers"`
	Rankings         []Ranking       `json:"rankings"`
	CompetitionType  CompetitionType `json:"competition_type"`
	MaxScore         float64         `json:"max_score"`
	ParticipantCount int             `json:"participant_count"`
}

// IsWinner reports whether agentID is among the winners.
func (o CompetitionOutcome) IsWinner(agentID string) bool {
	for _, w := range o.Winners {
		if w == agentID {
			return true
		}
	}
	return false
}

// Competition results recorded on rewards and test records.
const (
	ResultWinner = "winner"
	ResultLoser  = "loser"
)

// RewardTransaction is the XP change computed for one agent in one competition.
type RewardTransaction struct {
	ID            string      `json:"id"`
	AgentID       string      `json:"agent_id"`
	ScenarioID    string      `json:"scenario_id"`
	Domain        Domain      `json:"domain"`
	Complexity    Complexity  `json:"complexity"`
	RewardLevel   RewardLevel `json:"reward_level,omitempty"`
	Score         float64     `json:"score"`
	Passed        bool        `json:"passed"`
	Result        string      `json:"result,omitempty"`
	BaseXP        int         `json:"base_xp"`
	BonusXP       int         `json:"bonus_xp,omitempty"`
	PenaltyXP     int         `json:"penalty_xp,omitempty"`
	XPBefore      int         `json:"xp_before"`
	XPDelta       int         `json:"xp_delta"`
	IsBonus       bool        `json:"is_bonus"`
	Reason        string      `json:"reason"`
	PreviousLevel int         `json:"previous_level"`
	NewLevel      int         `json:"new_level"`
	LeveledUp     bool        `json:"leveled_up"`
	Pending       bool        `json:"pending,omitempty"`
}

// Insight kinds.
const (
	InsightVictory = "victory"
	InsightDefeat  = "defeat"
)

// Insight is a lesson derived from a competition for one agent.
type Insight struct {
	AgentID              string   `json:"agent_id"`
	Kind                 string   `json:"kind"`
	Score                float64  `json:"score"`
	OpponentScore        float64  `json:"opponent_score,omitempty"`
	Feedback             string   `json:"feedback,omitempty"`
	Lessons              []string `json:"lessons"`
	DifficultyMultiplier float64  `json:"difficulty_multiplier"`
}

// CompetitionRecord is everything produced by one competition run.
type CompetitionRecord struct {
	Scenario    Scenario                     `json:"scenario"`
	Responses   map[string]ResponseRecord    `json:"responses"`
	Evaluations map[string]EvaluationResult  `json:"evaluations"`
	Outcome     CompetitionOutcome           `json:"outcome"`
	Rewards     map[string]RewardTransaction `json:"rewards"`
	Insights    []Insight                    `json:"insights,omitempty"`
	CompletedAt time.Time                    `json:"completed_at"`
}
