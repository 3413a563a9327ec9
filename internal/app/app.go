// Package app wires the gauntlet process graph with fx.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/metalagman/gauntlet/internal/agent"
	"github.com/metalagman/gauntlet/internal/arena"
	"github.com/metalagman/gauntlet/internal/config"
	"github.com/metalagman/gauntlet/internal/db"
	"github.com/metalagman/gauntlet/internal/dispatch"
	"github.com/metalagman/gauntlet/internal/evaluate"
	"github.com/metalagman/gauntlet/internal/insight"
	"github.com/metalagman/gauntlet/internal/logging"
	"github.com/metalagman/gauntlet/internal/profile"
	"github.com/metalagman/gauntlet/internal/scenario"
	"github.com/rs/zerolog/log"
	"go.uber.org/fx"
)

// Paths locates gauntlet state on disk.
type Paths struct {
	Dir     string
	DB      string
	Pending string
	Runs    string
}

// NewPaths derives state paths from the gauntlet directory.
func NewPaths(dir string) Paths {
	return Paths{
		Dir:     dir,
		DB:      filepath.Join(dir, "gauntlet.db"),
		Pending: filepath.Join(dir, "pending"),
		Runs:    filepath.Join(dir, "runs"),
	}
}

// Settings are the inputs of the graph.
type Settings struct {
	Config config.Config
	Paths  Paths
	// Offline builds the engine without responders, model content or a model judge.
	// Read-only commands use it so they work without API keys.
	Offline bool
}

// New builds the application graph. Extra options are usually fx.Populate targets.
func New(s Settings, opts ...fx.Option) *fx.App {
	return fx.New(
		fx.NopLogger,
		fx.Supply(s),
		fx.Provide(
			OpenDB,
			NewStore,
			NewGenerators,
			NewResponders,
			NewContent,
			NewScorer,
			NewInsights,
			NewEngine,
		),
		fx.Options(opts...),
	)
}

// OpenDB opens the SQLite database and closes it on stop.
func OpenDB(lc fx.Lifecycle, s Settings) (*sql.DB, error) {
	conn, err := db.Open(s.Paths.DB)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	return conn, nil
}

// NewStore returns the SQLite profile store.
func NewStore(conn *sql.DB) *db.Store {
	return db.NewStore(conn)
}

// Generators creates text models on first use, one per provider and model name.
type Generators struct {
	cfg config.Config

	mu     sync.Mutex
	models map[string]agent.TextGenerator
}

// NewGenerators returns an empty Generators.
func NewGenerators(s Settings) *Generators {
	return &Generators{cfg: s.Config, models: make(map[string]agent.TextGenerator)}
}

// Get returns the generator for provider, using modelName or the provider default.
func (g *Generators) Get(ctx context.Context, provider, modelName string) (agent.TextGenerator, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	key := provider + "/" + modelName
	if gen, ok := g.models[key]; ok {
		return gen, nil
	}
	var (
		gen agent.TextGenerator
		err error
	)
	switch provider {
	case config.AgentTypeGemini:
		cfg := agent.GeminiConfig{Model: g.cfg.Gemini.Model, APIKeyEnv: g.cfg.Gemini.APIKeyEnv}
		if modelName != "" {
			cfg.Model = modelName
		}
		gen, err = agent.NewGeminiGenerator(ctx, cfg)
	case config.AgentTypeOpenAI:
		cfg := agent.OpenAIConfig{
			Model:           g.cfg.OpenAI.Model,
			BaseURL:         g.cfg.OpenAI.BaseURL,
			APIKeyEnv:       g.cfg.OpenAI.APIKeyEnv,
			Timeout:         g.cfg.OpenAI.Timeout,
			MaxOutputTokens: g.cfg.OpenAI.MaxOutputTokens,
		}
		if modelName != "" {
			cfg.Model = modelName
		}
		gen, err = agent.NewOpenAIGenerator(cfg)
	default:
		err = fmt.Errorf("unknown text model provider %q", provider)
	}
	if err != nil {
		return nil, err
	}
	g.models[key] = gen
	return gen, nil
}

// NewResponders builds one tiered responder per roster agent.
func NewResponders(s Settings, gens *Generators) (map[string]dispatch.Responder, error) {
	out := make(map[string]dispatch.Responder, len(s.Config.Roster))
	if s.Offline {
		return out, nil
	}
	var stdout, stderr io.Writer
	if logging.DebugEnabled() {
		stdout, stderr = os.Stderr, os.Stderr
	}
	if err := os.MkdirAll(s.Paths.Runs, 0o755); err != nil {
		return nil, fmt.Errorf("create runs dir: %w", err)
	}
	for _, id := range s.Config.Agents() {
		var tiers dispatch.Tiers
		for i, tc := range s.Config.Roster[id] {
			name := fmt.Sprintf("%s#%d", tc.Type, i)
			var r dispatch.Responder
			switch tc.Type {
			case config.AgentTypeExec:
				exec, err := agent.NewExecResponder(agent.ExecConfig{
					Cmd:     tc.Cmd,
					UseTTY:  tc.UseTTY != nil && *tc.UseTTY,
					WorkDir: s.Paths.Runs,
					Stdout:  stdout,
					Stderr:  stderr,
				})
				if err != nil {
					return nil, fmt.Errorf("agent %s: %w", id, err)
				}
				r = exec
			default:
				gen, err := gens.Get(context.Background(), tc.Type, tc.Model)
				if err != nil {
					return nil, fmt.Errorf("agent %s: %w", id, err)
				}
				r = agent.NewResponder(gen, id)
			}
			tiers = append(tiers, dispatch.Tier{Name: name, Responder: r})
		}
		out[id] = tiers
	}
	return out, nil
}

// NewContent chains the catalog and the configured model provider. Nil means built-in
// templates only.
func NewContent(s Settings, gens *Generators) (scenario.ContentProvider, error) {
	var chain scenario.Chain
	if path := s.Config.Content.Catalog; path != "" {
		cat, err := scenario.LoadCatalog(path)
		switch {
		case err == nil:
			chain = append(chain, cat)
		case errors.Is(err, os.ErrNotExist):
			log.Debug().Str("path", path).Msg("scenario catalog not found")
		default:
			return nil, err
		}
	}
	if provider := s.Config.Content.Provider; !s.Offline && provider != "" && provider != config.BackendNone {
		gen, err := gens.Get(context.Background(), provider, "")
		if err != nil {
			return nil, fmt.Errorf("content provider: %w", err)
		}
		chain = append(chain, agent.NewContentWriter(gen))
	}
	if len(chain) == 0 {
		return nil, nil
	}
	return chain, nil
}

// NewScorer returns the configured judge.
func NewScorer(s Settings, gens *Generators) (evaluate.Scorer, error) {
	judge := s.Config.Scoring.Judge
	if s.Offline || judge == "" || judge == config.BackendHeuristic {
		return evaluate.HeuristicScorer{}, nil
	}
	gen, err := gens.Get(context.Background(), judge, "")
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}
	return agent.NewJudge(gen), nil
}

// NewInsights logs insights and records them in the event log.
func NewInsights(store *db.Store) insight.Sink {
	return insight.Multi{insight.LogSink{}, store}
}

// NewEngine builds the engine and drains it on stop.
func NewEngine(lc fx.Lifecycle, s Settings, store *db.Store, responders map[string]dispatch.Responder, content scenario.ContentProvider, scorer evaluate.Scorer, sink insight.Sink) *arena.Engine {
	e := arena.New(profile.Store(store), arena.Options{
		Responders:        responders,
		Content:           content,
		Scorer:            scorer,
		Insights:          sink,
		Seed:              s.Config.Engine.Seed,
		PassThreshold:     s.Config.Engine.PassThreshold,
		EvalConcurrency:   s.Config.Engine.EvalConcurrency,
		DispatchTimeout:   s.Config.Engine.DispatchTimeout,
		PersistRetryDelay: s.Config.Engine.PersistRetryDelay,
		InsightTimeout:    s.Config.Engine.InsightTimeout,
		RewardLevel:       s.Config.RewardLevel(),
		PendingDir:        s.Paths.Pending,
	})
	lc.Append(fx.StopHook(e.Close))
	return e
}
