package arena

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/metalagman/gauntlet/internal/model"
	"github.com/rs/zerolog/log"
)

const pendingExt = ".json"

// ReconcileResult summarizes an ApplyPending pass.
type ReconcileResult struct {
	Files        int
	Applied      int
	StillPending int
}

// spoolPending writes rec to the pending directory so rewards survive a failing store.
func (e *Engine) spoolPending(rec model.CompetitionRecord) error {
	if e.pendingDir == "" {
		return nil
	}
	if err := os.MkdirAll(e.pendingDir, 0o755); err != nil {
		return fmt.Errorf("create pending dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode pending record: %w", err)
	}
	path := filepath.Join(e.pendingDir, rec.Scenario.ID+pendingExt)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pending record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename pending record: %w", err)
	}
	log.Warn().Str("scenario_id", rec.Scenario.ID).Str("path", path).Msg("rewards spooled as pending")
	return nil
}

// PendingFiles lists spooled competition records, oldest scenario id first.
func (e *Engine) PendingFiles() ([]string, error) {
	if e.pendingDir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(e.pendingDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending dir: %w", err)
	}
	var out []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), pendingExt) {
			continue
		}
		out = append(out, filepath.Join(e.pendingDir, entry.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// ApplyPending re-applies every spooled record. Records are removed once all their
// rewards are stored; the rest stay for the next pass.
func (e *Engine) ApplyPending(ctx context.Context) (ReconcileResult, error) {
	paths, err := e.PendingFiles()
	if err != nil {
		return ReconcileResult{}, err
	}
	var res ReconcileResult
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Files++
		rec, err := readPending(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		var txs []model.RewardTransaction
		for _, id := range rec.Scenario.Participants {
			if tx, ok := rec.Rewards[id]; ok && tx.Pending {
				txs = append(txs, tx)
			}
		}
		applied, applyErr := e.ApplyRewards(ctx, txs)
		for id, tx := range applied {
			rec.Rewards[id] = tx
			if tx.Pending {
				res.StillPending++
			} else {
				res.Applied++
			}
		}
		if applyErr != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(path), applyErr))
			continue
		}
		if cl, ok := e.store.(CompetitionLog); ok {
			if err := cl.SaveCompetition(ctx, rec); err != nil {
				log.Warn().Err(err).Str("scenario_id", rec.Scenario.ID).Msg("failed to save competition log")
			}
		}
		if err := os.Remove(path); err != nil {
			errs = append(errs, fmt.Errorf("remove pending record: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

func readPending(path string) (model.CompetitionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("read pending record: %w", err)
	}
	var rec model.CompetitionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.CompetitionRecord{}, fmt.Errorf("decode pending record %s: %w", filepath.Base(path), err)
	}
	if rec.Rewards == nil {
		rec.Rewards = map[string]model.RewardTransaction{}
	}
	return rec, nil
}
