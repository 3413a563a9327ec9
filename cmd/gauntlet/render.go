package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/metalagman/gauntlet/internal/db"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/progress"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	winnerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func renderScenario(s model.Scenario) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Scenario %s", s.ID)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s · %s · %s limit · %s reward\n", s.Domain, s.Complexity, s.TimeLimit(), s.RewardLevel)
	b.WriteString(s.Description)
	b.WriteString("\n")
	if len(s.TargetWeaknesses) > 0 {
		b.WriteString(mutedStyle.Render("targets: " + strings.Join(s.TargetWeaknesses, ", ")))
		b.WriteString("\n")
	}
	return b.String()
}

func scenarioMarkdown(s model.Scenario) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Scenario %s\n\n", s.ID)
	fmt.Fprintf(&b, "*%s · %s · %s limit · %s reward*\n\n%s\n\n", s.Domain, s.Complexity, s.TimeLimit(), s.RewardLevel, s.Description)
	sections := []struct {
		title string
		items []string
	}{
		{"Objectives", s.Objectives},
		{"Constraints", s.Constraints},
		{"Success criteria", s.SuccessCriteria},
		{"Required skills", s.RequiredSkills},
	}
	for _, sec := range sections {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n", sec.title)
		for _, item := range sec.items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func renderOutcome(rec model.CompetitionRecord) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RANK", "AGENT", "SCORE", "PASSED", "XP", "LEVEL", "METHOD")
	for _, r := range rec.Outcome.Rankings {
		tx := rec.Rewards[r.AgentID]
		agentID := r.AgentID
		if rec.Outcome.IsWinner(agentID) {
			agentID = winnerStyle.Render(agentID)
		}
		xp := fmt.Sprintf("%+d", tx.XPDelta)
		if tx.Pending {
			xp = pendingStyle.Render(xp + " pending")
		}
		level := fmt.Sprintf("%d", tx.NewLevel)
		if tx.LeveledUp {
			level = fmt.Sprintf("%d → %d", tx.PreviousLevel, tx.NewLevel)
		}
		t.Row(
			fmt.Sprintf("%d", r.Rank),
			agentID,
			fmt.Sprintf("%.1f", r.Score),
			fmt.Sprintf("%t", r.Passed),
			xp,
			level,
			rec.Responses[r.AgentID].ResponseMethod,
		)
	}
	var b strings.Builder
	b.WriteString(renderScenario(rec.Scenario))
	b.WriteString(t.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n", titleStyle.Render(string(rec.Outcome.CompetitionType)))
	return b.String()
}

// summaryMarkdown renders a progress summary as markdown.
func summaryMarkdown(s progress.Summary) string {
	var b strings.Builder
	b.WriteString("# Progress report\n\n")
	fmt.Fprintf(&b, "Generated %s. %s participations, %s wins, mean score %.1f.\n\n",
		humanize.Time(s.GeneratedAt), humanize.Comma(int64(s.TotalParticipations)), humanize.Comma(int64(s.TotalWins)), s.MeanScore)

	b.WriteString("| Agent | Level | XP | Next | Custody | W/L | Pass rate | Mean | Trend | Last seen |\n")
	b.WriteString("|---|---|---|---|---|---|---|---|---|---|\n")
	for _, a := range s.Agents {
		last := "never"
		if !a.LastCompetedAt.IsZero() {
			last = humanize.Time(a.LastCompetedAt)
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %d | %d/%d | %.0f%% | %.1f | %s | %s |\n",
			a.AgentID, a.Level, humanize.Comma(int64(a.XP)), humanize.Comma(int64(a.NextLevelXP)), a.CustodyLevel,
			a.Wins, a.Losses, a.PassRate*100, a.MeanScore, a.Trend, last)
	}

	if len(s.DomainHistogram) > 0 {
		b.WriteString("\n## Domains\n\n")
		domains := make([]string, 0, len(s.DomainHistogram))
		for d := range s.DomainHistogram {
			domains = append(domains, string(d))
		}
		sort.Strings(domains)
		for _, d := range domains {
			fmt.Fprintf(&b, "- %s: %d\n", d, s.DomainHistogram[model.Domain(d)])
		}
	}
	if len(s.ComplexityHistogram) > 0 {
		b.WriteString("\n## Complexity\n\n")
		for _, c := range model.AllComplexities() {
			if n := s.ComplexityHistogram[c]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", c, n)
			}
		}
	}
	for _, a := range s.Agents {
		if len(a.Strengths) == 0 && len(a.Weaknesses) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n## %s\n\n", a.AgentID)
		if len(a.Strengths) > 0 {
			fmt.Fprintf(&b, "- strengths: %s\n", strings.Join(a.Strengths, ", "))
		}
		if len(a.Weaknesses) > 0 {
			fmt.Fprintf(&b, "- weaknesses: %s\n", strings.Join(a.Weaknesses, ", "))
		}
	}
	return b.String()
}

func competitionsMarkdown(rows []db.CompetitionSummary) string {
	var b strings.Builder
	b.WriteString("\n## Recent competitions\n\n")
	b.WriteString("| When | Scenario | Domain | Complexity | Result | Winners |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range rows {
		winners := strings.Join(r.Winners, ", ")
		if winners == "" {
			winners = "-"
		}
		result := string(r.CompetitionType)
		if r.Pending {
			result += " (rewards pending)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
			humanize.Time(r.CreatedAt), shortID(r.ScenarioID), r.Domain, r.Complexity, result, winners)
	}
	return b.String()
}

func eventsMarkdown(events []db.Event) string {
	var b strings.Builder
	b.WriteString("\n## Events\n\n")
	for _, ev := range events {
		fmt.Fprintf(&b, "- %s `%s` %s (%s)\n", humanize.Time(ev.Timestamp), ev.Type, ev.Message, shortID(ev.ScenarioID))
	}
	return b.String()
}

func renderMarkdown(md string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
