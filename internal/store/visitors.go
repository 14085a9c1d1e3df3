package store

import (
	"context"
	"fmt"
	"time"
)

// Visit is one tracked page view. The IP is stored hashed.
type Visit struct {
	ID        int64     `db:"id" json:"id"`
	HashedIP  string    `db:"hashed_ip" json:"hashed_ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	Path      string    `db:"path" json:"path"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}

// RecordVisit inserts a page view.
func (s *Store) RecordVisit(ctx context.Context, v Visit) error {
	if v.Timestamp.IsZero() {
		v.Timestamp = time.Now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)`),
		v.HashedIP, v.UserAgent, v.Path, v.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecentVisits returns the newest visits first.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	var out []Visit
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT id, hashed_ip, user_agent, path, timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return out, nil
}

// DeleteVisitsBefore removes visits older than cutoff and returns how many
// rows went away.
func (s *Store) DeleteVisitsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM visitors WHERE timestamp < ?`), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete old visits: %w", err)
	}
	return res.RowsAffected()
}
