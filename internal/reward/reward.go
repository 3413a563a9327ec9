// Package reward converts evaluation results into XP transactions and applies them to profiles.
package reward

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/gauntlet/internal/model"
)

// MinXP is the participation floor for every reward.
const MinXP = 10

const (
	loserPenaltyRate = 0.3
	levelStep        = 0.1

	winnerDifficultyStep = 0.5
	loserDifficultyStep  = 0.25
	minDifficulty        = 0.5
)

var baseXP = map[model.Complexity]int{
	model.ComplexityBasic:        50,
	model.ComplexityIntermediate: 100,
	model.ComplexityAdvanced:     200,
	model.ComplexityExpert:       400,
	model.ComplexityMaster:       800,
}

var winnerBonus = map[model.Complexity]int{
	model.ComplexityBasic:        25,
	model.ComplexityIntermediate: 50,
	model.ComplexityAdvanced:     100,
	model.ComplexityExpert:       200,
	model.ComplexityMaster:       400,
}

// BaseXP returns the base XP for a complexity tier.
func BaseXP(c model.Complexity) int {
	if v, ok := baseXP[c]; ok {
		return v
	}
	return baseXP[model.ComplexityIntermediate]
}

// WinnerBonus returns the fixed winner bonus for a complexity tier.
func WinnerBonus(c model.Complexity) int {
	if v, ok := winnerBonus[c]; ok {
		return v
	}
	return winnerBonus[model.ComplexityIntermediate]
}

// LevelMultiplier is 1.0 at level 1 and grows by 10% per level.
func LevelMultiplier(level int) float64 {
	if level < 1 {
		level = 1
	}
	return 1 + float64(level-1)*levelStep
}

// Calculator computes reward transactions.
type Calculator struct {
	newID func() string
}

// NewCalculator returns a Calculator that stamps transactions with random UUIDs.
func NewCalculator() *Calculator {
	return &Calculator{newID: uuid.NewString}
}

// ComputeReward returns the base transaction for one agent before competition adjustments.
func (c *Calculator) ComputeReward(agent model.AgentProfile, result model.EvaluationResult, scenario model.Scenario) model.RewardTransaction {
	level := agent.Level
	if level < 1 {
		level = LevelFromXP(agent.XP)
	}
	rl := scenario.RewardLevel
	if rl == "" {
		rl = model.RewardStandard
	}
	final := earnedXP(scenario.Complexity, result.OverallScore, rl, level)

	tx := model.RewardTransaction{
		ID:            c.newID(),
		AgentID:       agent.ID,
		ScenarioID:    scenario.ID,
		Domain:        scenario.Domain,
		Complexity:    scenario.Complexity,
		RewardLevel:   rl,
		Score:         result.OverallScore,
		Passed:        result.Passed,
		BaseXP:        final,
		XPBefore:      agent.XP,
		XPDelta:       final,
		PreviousLevel: level,
	}
	tx.Reason = reason(tx)
	return withLevel(tx)
}

// ApplyOutcomeAdjustments adds winner bonuses and loser penalties to the base rewards.
// Agents missing from baseRewards are ignored.
func (c *Calculator) ApplyOutcomeAdjustments(outcome model.CompetitionOutcome, baseRewards map[string]model.RewardTransaction) map[string]model.RewardTransaction {
	out := make(map[string]model.RewardTransaction, len(baseRewards))
	for id, tx := range baseRewards {
		out[id] = tx
	}
	for _, id := range outcome.Winners {
		if tx, ok := out[id]; ok {
			tx.Result = model.ResultWinner
			out[id] = adjust(tx)
		}
	}
	for _, id := range outcome.Losers {
		if tx, ok := out[id]; ok {
			tx.Result = model.ResultLoser
			out[id] = adjust(tx)
		}
	}
	return out
}

// Reprice recomputes the base XP of tx for level and reapplies its outcome adjustment.
// Transactions without a reward level are returned unchanged.
func Reprice(tx model.RewardTransaction, level int) model.RewardTransaction {
	if tx.RewardLevel == "" || level == tx.PreviousLevel {
		return tx
	}
	tx.BaseXP = earnedXP(tx.Complexity, tx.Score, tx.RewardLevel, level)
	tx.XPDelta = tx.BaseXP
	tx.PreviousLevel = level
	return adjust(tx)
}

// earnedXP is base XP scaled by score, reward level and agent level, floored at MinXP.
func earnedXP(c model.Complexity, score float64, rl model.RewardLevel, level int) int {
	raw := float64(BaseXP(c)) * (score / 100) * rl.Multiplier() * LevelMultiplier(level)
	// Absorb binary representation error so 203.99999999 floors to 204.
	final := int(math.Floor(raw + 1e-9))
	if final < MinXP {
		final = MinXP
	}
	return final
}

func adjust(tx model.RewardTransaction) model.RewardTransaction {
	tx.BonusXP, tx.PenaltyXP, tx.IsBonus = 0, 0, false
	switch tx.Result {
	case model.ResultWinner:
		tx.BonusXP = WinnerBonus(tx.Complexity)
		tx.XPDelta = tx.BaseXP + tx.BonusXP
		tx.IsBonus = true
	case model.ResultLoser:
		tx.XPDelta = LoserXP(tx.BaseXP)
		tx.PenaltyXP = tx.BaseXP - tx.XPDelta
	default:
		tx.XPDelta = tx.BaseXP
	}
	tx.Reason = reason(tx)
	return withLevel(tx)
}

func reason(tx model.RewardTransaction) string {
	r := fmt.Sprintf("%s %s scenario scored %.1f", tx.Complexity, tx.Domain, tx.Score)
	switch tx.Result {
	case model.ResultWinner:
		r += fmt.Sprintf("; winner bonus +%d", tx.BonusXP)
	case model.ResultLoser:
		r += fmt.Sprintf("; loser penalty -%d", tx.PenaltyXP)
	}
	return r
}

// LoserXP applies the 30% loser reduction, never going below MinXP.
func LoserXP(xp int) int {
	reduced := int(math.Floor(float64(xp)*(1-loserPenaltyRate) + 1e-9))
	if reduced < MinXP {
		return MinXP
	}
	return reduced
}

func withLevel(tx model.RewardTransaction) model.RewardTransaction {
	tx.NewLevel = LevelFromXP(tx.XPBefore + tx.XPDelta)
	tx.LeveledUp = tx.NewLevel > tx.PreviousLevel
	return tx
}

// ApplyToProfile applies tx to p and returns the transaction with its final level fields.
// XP is repriced at p's current level. It reports false without touching p when the scenario is already in p's history.
func ApplyToProfile(p *model.AgentProfile, tx model.RewardTransaction, now time.Time) (model.RewardTransaction, bool) {
	if p.HasScenario(tx.ScenarioID) {
		return tx, false
	}
	// The agent may have levelled up since the reward was priced.
	tx = Reprice(tx, LevelFromXP(p.XP))
	if tx.XPDelta < 0 {
		tx.XPDelta = 0
	}
	if p.DifficultyMultiplier <= 0 {
		p.DifficultyMultiplier = 1.0
	}

	tx.XPBefore = p.XP
	tx.PreviousLevel = LevelFromXP(p.XP)
	p.XP += tx.XPDelta
	p.CustodyXP += tx.XPDelta
	p.Level = LevelFromXP(p.XP)

	switch tx.Result {
	case model.ResultWinner:
		p.Wins++
		p.DifficultyMultiplier += winnerDifficultyStep
	case model.ResultLoser:
		p.Losses++
		p.DifficultyMultiplier = math.Max(p.DifficultyMultiplier-loserDifficultyStep, minDifficulty)
	}

	p.RecordAttempt(tx.Passed)
	p.AppendRecord(model.TestRecord{
		ScenarioID: tx.ScenarioID,
		Domain:     tx.Domain,
		Complexity: tx.Complexity,
		Score:      tx.Score,
		Passed:     tx.Passed,
		XPAwarded:  tx.XPDelta,
		Result:     tx.Result,
		Timestamp:  now,
	})
	p.LastCompetedAt = now
	p.UpdatedAt = now

	tx.NewLevel = p.Level
	tx.LeveledUp = tx.NewLevel > tx.PreviousLevel
	tx.Pending = false
	return tx, true
}

// Reset clears all progression on p. It is the only operation that lowers XP.
func Reset(p *model.AgentProfile, now time.Time) {
	id := p.ID
	*p = model.NewAgentProfile(id)
	p.UpdatedAt = now
}
