package scenario

import (
	"fmt"
	"strings"

	"github.com/metalagman/gauntlet/internal/model"
)

// Template returns the base content for a domain.
func Template(domain model.Domain) model.Content {
	switch domain {
	case model.DomainSystemLevel:
		return model.Content{
			Description:     "Deploy and orchestrate a complex distributed system",
			Objectives:      []string{"System deployment", "Service orchestration", "Performance optimization"},
			Constraints:     []string{"Must handle failures", "Sub-second response times", "High availability"},
			SuccessCriteria: []string{"System operational", "Performance targets met", "Fault tolerance demonstrated"},
			RequiredSkills:  []string{"Docker", "Kubernetes", "Distributed systems", "Monitoring"},
		}
	case model.DomainSecurity:
		return model.Content{
			Description:     "Defend against sophisticated cyber attacks",
			Objectives:      []string{"Threat detection", "Attack prevention", "Incident response"},
			Constraints:     []string{"Real-time monitoring", "Zero false positives", "Compliance requirements"},
			SuccessCriteria: []string{"Attacks detected", "System protected", "Incident contained"},
			RequiredSkills:  []string{"Cybersecurity", "Network security", "Incident response", "Forensics"},
		}
	case model.DomainCreative:
		return model.Content{
			Description:     "Design an innovative solution to a complex problem",
			Objectives:      []string{"Creative problem solving", "Innovation", "Design thinking"},
			Constraints:     []string{"Must be novel", "Technically feasible", "Scalable solution"},
			SuccessCriteria: []string{"Innovative approach", "Feasible implementation", "Clear value proposition"},
			RequiredSkills:  []string{"Design thinking", "Innovation", "Problem solving", "Technical design"},
		}
	default:
		return model.Content{
			Description:     "Solve a complex problem in the specified domain",
			Objectives:      []string{"Problem solving", "Solution design", "Implementation"},
			Constraints:     []string{"Time limited", "Resource constrained", "Quality requirements"},
			SuccessCriteria: []string{"Problem solved", "Solution implemented", "Quality met"},
			RequiredSkills:  []string{"Problem solving", "Technical skills", "Domain knowledge"},
		}
	}
}

// Fallback returns the built-in content for a domain and complexity. It depends on
// nothing but its arguments.
func Fallback(domain model.Domain, complexity model.Complexity, participants []string) model.Content {
	content := Template(domain)
	complexity = complexity.Clamp()

	desc := fmt.Sprintf("%s (%s, %s)", content.Description, strings.ReplaceAll(string(domain), "_", " "), complexity)
	if len(participants) > 1 {
		desc += fmt.Sprintf(", contested by %s", strings.Join(participants, ", "))
	}
	content.Description = desc

	constraints := append([]string(nil), content.Constraints...)
	constraints = append(constraints, fmt.Sprintf("Complete within %d seconds", TimeLimitSeconds(complexity)))
	if complexity >= model.ComplexityExpert {
		constraints = append(constraints, "Justify every trade-off explicitly")
	}
	content.Constraints = constraints
	return content
}
