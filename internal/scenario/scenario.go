// Package scenario assembles scenarios from a domain, a complexity and a content provider.
package scenario

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
)

var timeLimits = map[model.Complexity]int{
	model.ComplexityBasic:        300,
	model.ComplexityIntermediate: 600,
	model.ComplexityAdvanced:     900,
	model.ComplexityExpert:       1200,
	model.ComplexityMaster:       1800,
}

// TimeLimitSeconds returns the time limit for a complexity tier.
func TimeLimitSeconds(c model.Complexity) int {
	return timeLimits[c.Clamp()]
}

// ErrMalformedContent marks provider content without objectives or success criteria.
var ErrMalformedContent = errors.New("malformed scenario content")

// ContentProvider produces the text body of a scenario.
type ContentProvider interface {
	BuildContent(ctx context.Context, domain model.Domain, complexity model.Complexity) (model.Content, error)
}

// Options are optional scenario attributes.
type Options struct {
	TargetWeaknesses []string
	RewardLevel      model.RewardLevel
}

// Builder assembles scenarios.
type Builder struct {
	newID func() string
	now   func() time.Time
}

// NewBuilder returns a Builder that stamps scenarios with random UUIDs.
func NewBuilder() *Builder {
	return &Builder{
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Build assembles a scenario. Content comes from provider when it succeeds with usable
// content and from the built-in templates otherwise, so Build never fails.
func (b *Builder) Build(ctx context.Context, domain model.Domain, complexity model.Complexity, participants []string, provider ContentProvider, opts Options) model.Scenario {
	complexity = complexity.Clamp()
	content, source := b.content(ctx, domain, complexity, participants, provider)
	content.Description = adaptDescription(content.Description, opts.TargetWeaknesses)

	rewardLevel := opts.RewardLevel
	if rewardLevel == "" {
		rewardLevel = model.RewardStandard
	}
	return model.Scenario{
		ID:               b.newID(),
		Domain:           domain,
		Complexity:       complexity,
		Description:      content.Description,
		Objectives:       content.Objectives,
		Constraints:      content.Constraints,
		SuccessCriteria:  content.SuccessCriteria,
		RequiredSkills:   content.RequiredSkills,
		TimeLimitSeconds: TimeLimitSeconds(complexity),
		Participants:     append([]string(nil), participants...),
		TargetWeaknesses: append([]string(nil), opts.TargetWeaknesses...),
		RewardLevel:      rewardLevel,
		ContentSource:    source,
		CreatedAt:        b.now(),
	}
}

func (b *Builder) content(ctx context.Context, domain model.Domain, complexity model.Complexity, participants []string, provider ContentProvider) (model.Content, string) {
	if provider == nil {
		return Fallback(domain, complexity, participants), model.ContentSourceFallback
	}
	content, err := provider.BuildContent(ctx, domain, complexity)
	if err != nil {
		log.Warn().Err(err).Str("domain", string(domain)).Stringer("complexity", complexity).Msg("content provider failed, using fallback template")
		return Fallback(domain, complexity, participants), model.ContentSourceFallback
	}
	if !content.Usable() {
		log.Warn().Str("domain", string(domain)).Stringer("complexity", complexity).Msg("content provider returned malformed content, using fallback template")
		return Fallback(domain, complexity, participants), model.ContentSourceFallback
	}
	if strings.TrimSpace(content.Description) == "" {
		content.Description = Template(domain).Description
	}
	return content, model.ContentSourceProvider
}

var weaknessPhrases = map[string]string{
	"weak_in_system_level":     "with complex system administration challenges",
	"weak_in_security":         "with advanced security vulnerabilities and attack vectors",
	"weak_in_creativity":       "requiring innovative and out-of-the-box thinking",
	"weak_in_collaboration":    "requiring coordination with multiple stakeholders",
	"weak_learning_ability":    "with rapidly changing requirements and constraints",
	"inconsistent_performance": "with multiple failure points and recovery scenarios",
}

func adaptDescription(description string, weaknesses []string) string {
	var phrases []string
	for _, w := range weaknesses {
		if phrase, ok := weaknessPhrases[w]; ok {
			phrases = append(phrases, phrase)
		}
	}
	if len(phrases) == 0 {
		return description
	}
	return description + " " + strings.Join(phrases, " and ")
}

// Chain tries each provider in order and returns the first usable content.
type Chain []ContentProvider

// BuildContent implements ContentProvider.
func (c Chain) BuildContent(ctx context.Context, domain model.Domain, complexity model.Complexity) (model.Content, error) {
	var errs []error
	for _, p := range c {
		content, err := p.BuildContent(ctx, domain, complexity)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if content.Usable() {
			return content, nil
		}
		errs = append(errs, ErrMalformedContent)
	}
	if len(errs) == 0 {
		return model.Content{}, ErrNoContent
	}
	return model.Content{}, errors.Join(errs...)
}
