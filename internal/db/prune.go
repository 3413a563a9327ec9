package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RetentionPolicy controls competition log cleanup.
type RetentionPolicy struct {
	KeepLast int
	KeepDays int
}

// PruneResult summarizes a prune operation.
type PruneResult struct {
	Considered int
	Kept       int
	Deleted    int
}

// Prune deletes old competitions and their events. A competition is kept when it is
// among the KeepLast newest or younger than KeepDays. Profiles are never touched.
func Prune(ctx context.Context, db *sql.DB, policy RetentionPolicy, dryRun bool) (PruneResult, error) {
	if policy.KeepLast <= 0 && policy.KeepDays <= 0 {
		return PruneResult{}, nil
	}
	cutoff := time.Time{}
	if policy.KeepDays > 0 {
		cutoff = time.Now().UTC().Add(-time.Duration(policy.KeepDays) * 24 * time.Hour)
	}
	rows, err := db.QueryContext(ctx, `SELECT scenario_id, created_at FROM competitions ORDER BY created_at DESC, scenario_id`)
	if err != nil {
		return PruneResult{}, fmt.Errorf("list competitions: %w", err)
	}

	type competitionRow struct {
		id        string
		createdAt time.Time
		parseErr  error
	}
	var competitions []competitionRow
	for rows.Next() {
		var id, createdAt string
		if err := rows.Scan(&id, &createdAt); err != nil {
			_ = rows.Close()
			return PruneResult{}, fmt.Errorf("scan competition: %w", err)
		}
		parsed, parseErr := time.Parse(time.RFC3339, createdAt)
		competitions = append(competitions, competitionRow{id: id, createdAt: parsed, parseErr: parseErr})
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return PruneResult{}, fmt.Errorf("iterate competitions: %w", err)
	}
	// Release the single connection before deleting.
	_ = rows.Close()

	res := PruneResult{Considered: len(competitions)}
	for idx, row := range competitions {
		keep := policy.KeepLast > 0 && idx < policy.KeepLast
		if !keep && policy.KeepDays > 0 {
			keep = row.parseErr != nil || row.createdAt.After(cutoff)
		}
		if keep {
			res.Kept++
			continue
		}
		if dryRun {
			res.Deleted++
			continue
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM events WHERE scenario_id=?`, row.id); err != nil {
			return res, fmt.Errorf("delete events for %s: %w", row.id, err)
		}
		if _, err := db.ExecContext(ctx, `DELETE FROM competitions WHERE scenario_id=?`, row.id); err != nil {
			return res, fmt.Errorf("delete competition %s: %w", row.id, err)
		}
		res.Deleted++
	}
	return res, nil
}
