package store

import (
	"context"
	"fmt"
	"time"
)

// Stats is the admin dashboard summary.
type Stats struct {
	TotalVisitors         int64         `json:"total_visitors"`
	UniqueVisitors        int64         `json:"unique_visitors"`
	VisitorsToday         int64         `json:"visitors_today"`
	VisitorsThisWeek      int64         `json:"visitors_this_week"`
	TotalCalculations     int64         `json:"total_calculations"`
	SucceededCalculations int64         `json:"succeeded_calculations"`
	FailedCalculations    int64         `json:"failed_calculations"`
	TopStates             []StateCount  `json:"top_states"`
	RecentCalculations    []Calculation `json:"recent_calculations"`
	RecentVisitors        []Visit       `json:"recent_visitors"`
}

// Stats gathers the dashboard summary as of now.
func (s *Store) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	st := &Stats{}
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	week := now.Add(-7 * 24 * time.Hour)

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&st.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&st.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&st.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{today}},
		{&st.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{week}},
		{&st.TotalCalculations, `SELECT COUNT(*) FROM calculations`, nil},
		{&st.SucceededCalculations, `SELECT COUNT(*) FROM calculations WHERE outcome = ?`, []any{"succeeded"}},
		{&st.FailedCalculations, `SELECT COUNT(*) FROM calculations WHERE outcome = ?`, []any{"failed"}},
	}
	for _, c := range counts {
		if err := s.db.GetContext(ctx, c.dst, s.q(c.query), c.args...); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	var err error
	if st.TopStates, err = s.TopStates(ctx, 10); err != nil {
		return nil, err
	}
	if st.RecentCalculations, err = s.RecentCalculations(ctx, 20); err != nil {
		return nil, err
	}
	if st.RecentVisitors, err = s.RecentVisits(ctx, 50); err != nil {
		return nil, err
	}
	return st, nil
}
