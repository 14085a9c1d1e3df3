package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

// Calculation is one finished calculator submission.
type Calculation struct {
	ID              string    `db:"id" json:"id"`
	SessionID       string    `db:"session_id" json:"-"`
	State           string    `db:"state" json:"state"`
	MonthlyUnits    float64   `db:"monthly_units" json:"monthly_units"`
	LatLong         string    `db:"latlong" json:"latlong"`
	Outcome         string    `db:"outcome" json:"outcome"`
	Error           string    `db:"error" json:"error,omitempty"`
	RecommendedKW   float64   `db:"recommended_kw" json:"recommended_kw"`
	NetCost         float64   `db:"net_cost" json:"net_cost"`
	LifetimeSavings float64   `db:"lifetime_savings" json:"lifetime_savings"`
	DurationMS      int64     `db:"duration_ms" json:"duration_ms"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// StateCount is a per-region tally.
type StateCount struct {
	State string `db:"state" json:"state"`
	Count int64  `db:"count" json:"count"`
}

// RecordCalculation inserts c, assigning an ID and timestamp when missing.
func (s *Store) RecordCalculation(ctx context.Context, c *Calculation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC()
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO calculations (
			id, session_id, state, monthly_units, latlong, outcome, error,
			recommended_kw, net_cost, lifetime_savings, duration_ms, created_at
		) VALUES (
			:id, :session_id, :state, :monthly_units, :latlong, :outcome, :error,
			:recommended_kw, :net_cost, :lifetime_savings, :duration_ms, :created_at
		)`, c)
	if err != nil {
		return fmt.Errorf("record calculation: %w", err)
	}
	return nil
}

// GetCalculation loads one calculation by ID.
func (s *Store) GetCalculation(ctx context.Context, id string) (*Calculation, error) {
	var c Calculation
	err := s.db.GetContext(ctx, &c, s.q(`
		SELECT id, session_id, state, monthly_units, latlong, outcome, error,
			recommended_kw, net_cost, lifetime_savings, duration_ms, created_at
		FROM calculations WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	return &c, nil
}

// RecentCalculations returns the newest calculations first.
func (s *Store) RecentCalculations(ctx context.Context, limit int) ([]Calculation, error) {
	var out []Calculation
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT id, session_id, state, monthly_units, latlong, outcome, error,
			recommended_kw, net_cost, lifetime_savings, duration_ms, created_at
		FROM calculations
		ORDER BY created_at DESC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list calculations: %w", err)
	}
	return out, nil
}

// DeleteCalculation removes one calculation. It returns ErrNotFound when no
// row matched.
func (s *Store) DeleteCalculation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM calculations WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete calculation: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TopStates returns the regions with the most calculations.
func (s *Store) TopStates(ctx context.Context, limit int) ([]StateCount, error) {
	var out []StateCount
	err := s.db.SelectContext(ctx, &out, s.q(`
		SELECT state, COUNT(*) AS count
		FROM calculations
		GROUP BY state
		ORDER BY count DESC, state ASC
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("top states: %w", err)
	}
	return out, nil
}
