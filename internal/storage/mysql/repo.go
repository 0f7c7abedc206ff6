// Package mysql archives the stats rollup of every successful dashboard
// cycle. Rows are append-only.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"review_dashboard/internal/domain"
)

const maxHistory = 1000

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Migrate creates the archive table if it is missing.
func (r *Repo) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createStatsHistorySQL); err != nil {
		return fmt.Errorf("create stats_history: %w", err)
	}
	return nil
}

func (r *Repo) RecordStats(ctx context.Context, cycleID string, takenAt time.Time, s domain.Stats) error {
	_, err := r.db.ExecContext(ctx, insertStatsSQL,
		cycleID,
		takenAt.UTC(),
		s.TotalReviews,
		s.RepliedReviews,
		s.PendingReviews,
		s.PositiveReviews,
		s.NegativeReviews,
		s.NeutralReviews,
	)
	if err != nil {
		return fmt.Errorf("insert stats %s: %w", cycleID, err)
	}
	return nil
}

// RecentStats returns up to limit records, newest first.
func (r *Repo) RecentStats(ctx context.Context, limit int) ([]domain.StatsRecord, error) {
	if limit <= 0 || limit > maxHistory {
		limit = maxHistory
	}
	rows, err := r.db.QueryContext(ctx, recentStatsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StatsRecord, 0, limit)
	for rows.Next() {
		var rec domain.StatsRecord
		if err := rows.Scan(
			&rec.CycleID,
			&rec.TakenAt,
			&rec.Stats.TotalReviews,
			&rec.Stats.RepliedReviews,
			&rec.Stats.PendingReviews,
			&rec.Stats.PositiveReviews,
			&rec.Stats.NegativeReviews,
			&rec.Stats.NeutralReviews,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
