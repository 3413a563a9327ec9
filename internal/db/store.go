// Package db persists profiles, the competition log and insight events in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/metalagman/gauntlet/internal/insight"
	"github.com/metalagman/gauntlet/internal/model"
	"github.com/metalagman/gauntlet/internal/profile"
)

// ErrCompetitionNotFound is returned for unknown scenario ids.
var ErrCompetitionNotFound = errors.New("competition not found")

// Store implements profile.Store and insight.Sink on top of SQLite.
type Store struct {
	db    *sql.DB
	locks profile.KeyedMutex
	now   func() time.Time
}

var (
	_ profile.Store = (*Store)(nil)
	_ insight.Sink  = (*Store)(nil)
)

// NewStore creates a store over an opened database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Get returns the stored profile or profile.ErrNotFound.
func (s *Store) Get(ctx context.Context, agentID string) (model.AgentProfile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT data FROM profiles WHERE agent_id=?`, agentID)
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.AgentProfile{}, fmt.Errorf("%w: %s", profile.ErrNotFound, agentID)
		}
		return model.AgentProfile{}, fmt.Errorf("read profile: %w", err)
	}
	return decodeProfile(data)
}

// Upsert runs fn inside a transaction holding the per-agent lock.
func (s *Store) Upsert(ctx context.Context, agentID string, fn profile.Mutator) (model.AgentProfile, error) {
	unlock := s.locks.Lock(agentID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return model.AgentProfile{}, fmt.Errorf("begin upsert profile: %w", err)
	}

	current := model.NewAgentProfile(agentID)
	var data string
	switch err := tx.QueryRowContext(ctx, `SELECT data FROM profiles WHERE agent_id=?`, agentID).Scan(&data); {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		_ = tx.Rollback()
		return model.AgentProfile{}, fmt.Errorf("read profile: %w", err)
	default:
		if current, err = decodeProfile(data); err != nil {
			_ = tx.Rollback()
			return model.AgentProfile{}, err
		}
	}

	if err := fn(&current); err != nil {
		_ = tx.Rollback()
		return model.AgentProfile{}, err
	}
	current.ID = agentID
	if current.UpdatedAt.IsZero() {
		current.UpdatedAt = s.now()
	}

	encoded, err := json.Marshal(current)
	if err != nil {
		_ = tx.Rollback()
		return model.AgentProfile{}, fmt.Errorf("encode profile: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO profiles(agent_id, level, xp, custody_xp, data, updated_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET level=excluded.level, xp=excluded.xp, custody_xp=excluded.custody_xp,
			data=excluded.data, updated_at=excluded.updated_at`,
		agentID, current.Level, current.XP, current.CustodyXP, string(encoded), current.UpdatedAt.Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return model.AgentProfile{}, fmt.Errorf("write profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.AgentProfile{}, fmt.Errorf("commit upsert profile: %w", err)
	}
	return current, nil
}

// List returns all profiles ordered by agent id.
func (s *Store) List(ctx context.Context) ([]model.AgentProfile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM profiles ORDER BY agent_id`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AgentProfile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p, err := decodeProfile(data)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return out, nil
}

func decodeProfile(data string) (model.AgentProfile, error) {
	var p model.AgentProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return model.AgentProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// CompetitionSummary is one row of the competition log.
type CompetitionSummary struct {
	ScenarioID      string
	CreatedAt       time.Time
	Domain          model.Domain
	Complexity      string
	CompetitionType model.CompetitionType
	Winners         []string
	// Pending is set while some reward of the competition is not yet stored.
	Pending bool
}

// SaveCompetition stores a competition record with one reward event per agent.
func (s *Store) SaveCompetition(ctx context.Context, rec model.CompetitionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode competition: %w", err)
	}
	createdAt := rec.CompletedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin save competition: %w", err)
	}
	pending := 0
	for _, r := range rec.Rewards {
		if r.Pending {
			pending = 1
			break
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO competitions(scenario_id, created_at, domain, complexity, competition_type, winners, pending, data)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scenario_id) DO UPDATE SET competition_type=excluded.competition_type, winners=excluded.winners,
			pending=excluded.pending, data=excluded.data`,
		rec.Scenario.ID, createdAt.UTC().Format(time.RFC3339), string(rec.Scenario.Domain), rec.Scenario.Complexity.String(),
		string(rec.Outcome.CompetitionType), strings.Join(rec.Outcome.Winners, ","), pending, string(data)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert competition: %w", err)
	}
	// Saving again after reconciliation replaces the reward events.
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE scenario_id=? AND type='reward'`, rec.Scenario.ID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear reward events: %w", err)
	}
	for _, id := range rec.Scenario.Participants {
		r, ok := rec.Rewards[id]
		if !ok {
			continue
		}
		payload, err := json.Marshal(r)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode reward: %w", err)
		}
		msg := fmt.Sprintf("%+d xp (%s)", r.XPDelta, r.Result)
		if err := s.insertEvent(ctx, tx, rec.Scenario.ID, id, "reward", msg, string(payload)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save competition: %w", err)
	}
	return nil
}

// GetCompetition loads a stored competition record.
func (s *Store) GetCompetition(ctx context.Context, scenarioID string) (model.CompetitionRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM competitions WHERE scenario_id=?`, scenarioID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CompetitionRecord{}, fmt.Errorf("%w: %s", ErrCompetitionNotFound, scenarioID)
	}
	if err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("read competition: %w", err)
	}
	var rec model.CompetitionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("decode competition: %w", err)
	}
	return rec, nil
}

// ListCompetitions returns the most recent competitions, newest first.
func (s *Store) ListCompetitions(ctx context.Context, limit int) ([]CompetitionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT scenario_id, created_at, domain, complexity, competition_type, winners, pending
		FROM competitions ORDER BY created_at DESC, scenario_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list competitions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []CompetitionSummary
	for rows.Next() {
		var c CompetitionSummary
		var createdAt, domain, ctype, winners string
		if err := rows.Scan(&c.ScenarioID, &createdAt, &domain, &c.Complexity, &ctype, &winners, &c.Pending); err != nil {
			return nil, fmt.Errorf("scan competition: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		c.Domain = model.Domain(domain)
		c.CompetitionType = model.CompetitionType(ctype)
		if winners != "" {
			c.Winners = strings.Split(winners, ",")
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate competitions: %w", err)
	}
	return out, nil
}

// Event is a timeline entry for a competition.
type Event struct {
	ScenarioID string
	AgentID    string
	Timestamp  time.Time
	Type       string
	Message    string
	DataJSON   string
}

// Record implements insight.Sink by storing one event per insight.
func (s *Store) Record(ctx context.Context, r insight.Report) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin record insights: %w", err)
	}
	for _, in := range r.Insights {
		payload, err := json.Marshal(in)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode insight: %w", err)
		}
		msg := fmt.Sprintf("%s at %.1f vs %.1f", in.Kind, in.Score, in.OpponentScore)
		if err := s.insertEvent(ctx, tx, r.ScenarioID, in.AgentID, "insight_"+in.Kind, msg, string(payload)); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record insights: %w", err)
	}
	return nil
}

// Events returns events for an agent, newest first. An empty agentID returns all events.
func (s *Store) Events(ctx context.Context, agentID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT scenario_id, agent_id, ts, type, message, COALESCE(data_json, '') FROM events`
	args := []any{}
	if agentID != "" {
		query += ` WHERE agent_id=?`
		args = append(args, agentID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		var ev Event
		var ts string
		if err := rows.Scan(&ev.ScenarioID, &ev.AgentID, &ts, &ev.Type, &ev.Message, &ev.DataJSON); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) insertEvent(ctx context.Context, tx *sql.Tx, scenarioID, agentID, typ, message, dataJSON string) error {
	ts := s.now().Format(time.RFC3339)
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(scenario_id, agent_id, ts, type, message, data_json) VALUES(?, ?, ?, ?, ?, ?)`,
		scenarioID, agentID, ts, typ, message, nullableString(dataJSON)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
