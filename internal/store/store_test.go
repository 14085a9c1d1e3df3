package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), DriverSQLite, filepath.Join(t.TempDir(), "site.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "site.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), DriverSQLite, path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("Ping: %v", err)
		}
		s.Close()
	}
}

func TestCalculationsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c := &Calculation{
		SessionID:       "session-1",
		State:           "Goa",
		MonthlyUnits:    250,
		LatLong:         "15.3,74.1",
		Outcome:         "succeeded",
		RecommendedKW:   3.2,
		NetCost:         100000,
		LifetimeSavings: 250000,
		DurationMS:      12000,
	}
	if err := s.RecordCalculation(ctx, c); err != nil {
		t.Fatalf("RecordCalculation: %v", err)
	}
	if c.ID == "" || c.CreatedAt.IsZero() {
		t.Fatalf("ID/CreatedAt not assigned: %+v", c)
	}

	got, err := s.GetCalculation(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCalculation: %v", err)
	}
	if got.State != "Goa" || got.MonthlyUnits != 250 || got.NetCost != 100000 || got.Outcome != "succeeded" {
		t.Fatalf("loaded calculation = %+v", got)
	}

	if err := s.DeleteCalculation(ctx, c.ID); err != nil {
		t.Fatalf("DeleteCalculation: %v", err)
	}
	if _, err := s.GetCalculation(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetCalculation after delete = %v, want ErrNotFound", err)
	}
	if err := s.DeleteCalculation(ctx, c.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteCalculation = %v, want ErrNotFound", err)
	}
}

func TestRecentCalculationsAndTopStates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, st := range []string{"Goa", "Kerala", "Goa", "Punjab", "Goa", "Kerala"} {
		c := &Calculation{State: st, MonthlyUnits: 100, LatLong: "1,1", Outcome: "succeeded", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.RecordCalculation(ctx, c); err != nil {
			t.Fatalf("RecordCalculation: %v", err)
		}
	}

	recent, err := s.RecentCalculations(ctx, 2)
	if err != nil {
		t.Fatalf("RecentCalculations: %v", err)
	}
	if len(recent) != 2 || recent[0].State != "Kerala" || recent[1].State != "Goa" {
		t.Fatalf("recent = %+v", recent)
	}

	top, err := s.TopStates(ctx, 2)
	if err != nil {
		t.Fatalf("TopStates: %v", err)
	}
	if len(top) != 2 || top[0] != (StateCount{State: "Goa", Count: 3}) || top[1] != (StateCount{State: "Kerala", Count: 2}) {
		t.Fatalf("top states = %+v", top)
	}
}

func TestVisitsAndRetention(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	visits := []Visit{
		{HashedIP: "aaaa", UserAgent: "test", Path: "/", Timestamp: now.AddDate(-2, 0, 0)},
		{HashedIP: "aaaa", UserAgent: "test", Path: "/solar", Timestamp: now.Add(-time.Hour)},
		{HashedIP: "bbbb", UserAgent: "test", Path: "/hello", Timestamp: now},
	}
	for _, v := range visits {
		if err := s.RecordVisit(ctx, v); err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}

	n, err := s.DeleteVisitsBefore(ctx, now.AddDate(-1, 0, 0))
	if err != nil {
		t.Fatalf("DeleteVisitsBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("deleted %d visits, want 1", n)
	}

	recent, err := s.RecentVisits(ctx, 10)
	if err != nil {
		t.Fatalf("RecentVisits: %v", err)
	}
	if len(recent) != 2 || recent[0].Path != "/hello" {
		t.Fatalf("recent visits = %+v", recent)
	}
}

func TestStats(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for _, v := range []Visit{
		{HashedIP: "aaaa", Path: "/", Timestamp: now.Add(-time.Hour)},
		{HashedIP: "aaaa", Path: "/", Timestamp: now.Add(-48 * time.Hour)},
		{HashedIP: "bbbb", Path: "/", Timestamp: now.Add(-30 * 24 * time.Hour)},
	} {
		if err := s.RecordVisit(ctx, v); err != nil {
			t.Fatalf("RecordVisit: %v", err)
		}
	}
	for _, outcome := range []string{"succeeded", "succeeded", "failed"} {
		if err := s.RecordCalculation(ctx, &Calculation{State: "Goa", MonthlyUnits: 1, LatLong: "1,1", Outcome: outcome, CreatedAt: now}); err != nil {
			t.Fatalf("RecordCalculation: %v", err)
		}
	}

	st, err := s.Stats(ctx, now)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalVisitors != 3 || st.UniqueVisitors != 2 || st.VisitorsToday != 1 || st.VisitorsThisWeek != 2 {
		t.Fatalf("visitor stats = %+v", st)
	}
	if st.TotalCalculations != 3 || st.SucceededCalculations != 2 || st.FailedCalculations != 1 {
		t.Fatalf("calculation stats = %+v", st)
	}
	if len(st.TopStates) != 1 || st.TopStates[0].Count != 3 {
		t.Fatalf("top states = %+v", st.TopStates)
	}
	if len(st.RecentCalculations) != 3 || len(st.RecentVisitors) != 3 {
		t.Fatalf("recent lists = %d calcs, %d visits", len(st.RecentCalculations), len(st.RecentVisitors))
	}
}
