// Package difficulty selects the domain and complexity of the next scenario.
package difficulty

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/metalagman/gauntlet/internal/model"
)

// defaultPassRate stands in for agents that have never competed.
const defaultPassRate = 0.5

var weaknessDomains = map[string]model.Domain{
	"weak_in_system_level":            model.DomainSystemLevel,
	"weak_in_security":                model.DomainSecurity,
	"weak_in_creativity":              model.DomainCreative,
	"weak_in_collaboration":           model.DomainCollaboration,
	"weak_in_complex_problem_solving": model.DomainComplexProblemSolving,
	"weak_in_physical_simulated":      model.DomainPhysicalSimulated,
	"weak_learning_ability":           model.DomainComplexProblemSolving,
	"inconsistent_performance":        model.DomainPhysicalSimulated,
}

// DomainForWeakness returns the domain that exercises a weakness tag.
func DomainForWeakness(tag string) (model.Domain, bool) {
	d, ok := weaknessDomains[tag]
	return d, ok
}

// Controller picks scenario difficulty. It is safe for concurrent use.
type Controller struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewController returns a Controller whose random domain choices are drawn from seed.
func NewController(seed int64) *Controller {
	return &Controller{rng: rand.New(rand.NewSource(seed))}
}

// SelectDifficulty chooses a domain from the requested or aggregated weaknesses and a
// complexity from the participants' mean pass rate and difficulty multiplier.
func (c *Controller) SelectDifficulty(profiles []model.AgentProfile, targetWeaknesses []string) (model.Domain, model.Complexity) {
	weaknesses := targetWeaknesses
	if len(weaknesses) == 0 {
		weaknesses = AggregateWeaknesses(profiles)
	}
	domain, ok := domainFor(weaknesses)
	if !ok {
		domain = c.randomDomain()
	}
	if len(profiles) == 0 {
		return domain, model.ComplexityIntermediate
	}
	return domain, ScaleComplexity(ComplexityForPassRate(MeanPassRate(profiles)), MeanMultiplier(profiles))
}

func (c *Controller) randomDomain() model.Domain {
	domains := model.AllDomains()
	c.mu.Lock()
	defer c.mu.Unlock()
	return domains[c.rng.Intn(len(domains))]
}

// AggregateWeaknesses returns the participants' weakness tags ordered by frequency,
// most frequent first, ties broken by name.
func AggregateWeaknesses(profiles []model.AgentProfile) []string {
	counts := make(map[string]int)
	for _, p := range profiles {
		for _, w := range p.Weaknesses {
			counts[w]++
		}
	}
	out := make([]string, 0, len(counts))
	for w := range counts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func domainFor(weaknesses []string) (model.Domain, bool) {
	for _, w := range weaknesses {
		if d, ok := weaknessDomains[w]; ok {
			return d, true
		}
	}
	return "", false
}

// MeanPassRate averages pass rates, counting agents without history as 0.5.
func MeanPassRate(profiles []model.AgentProfile) float64 {
	if len(profiles) == 0 {
		return defaultPassRate
	}
	var sum float64
	for _, p := range profiles {
		if p.HasHistory() {
			sum += p.PassRate
		} else {
			sum += defaultPassRate
		}
	}
	return sum / float64(len(profiles))
}

// MeanMultiplier averages difficulty multipliers, counting unset ones as 1.0.
func MeanMultiplier(profiles []model.AgentProfile) float64 {
	if len(profiles) == 0 {
		return 1.0
	}
	var sum float64
	for _, p := range profiles {
		if p.DifficultyMultiplier > 0 {
			sum += p.DifficultyMultiplier
		} else {
			sum += 1.0
		}
	}
	return sum / float64(len(profiles))
}

// ComplexityForPassRate is the base ladder: >0.8 expert, >0.6 advanced, >0.4 intermediate, else basic.
func ComplexityForPassRate(rate float64) model.Complexity {
	switch {
	case rate > 0.8:
		return model.ComplexityExpert
	case rate > 0.6:
		return model.ComplexityAdvanced
	case rate > 0.4:
		return model.ComplexityIntermediate
	default:
		return model.ComplexityBasic
	}
}

// ScaleComplexity shifts c by the difficulty multiplier and clamps it to BASIC..MASTER.
func ScaleComplexity(c model.Complexity, multiplier float64) model.Complexity {
	return (c + model.Complexity(shift(multiplier))).Clamp()
}

func shift(multiplier float64) int {
	switch {
	case multiplier >= 5.0:
		return 4
	case multiplier >= 3.0:
		return 3
	case multiplier >= 2.0:
		return 2
	case multiplier >= 1.5:
		return 1
	case multiplier <= 0.75:
		return -1
	default:
		return 0
	}
}
