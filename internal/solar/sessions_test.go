package solar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func newTestSessions(t *testing.T, calc Calculator, opts ...SessionOption) *Sessions {
	t.Helper()
	s := NewSessions(context.Background(), func() *Flow { return newTestFlow(calc) }, time.Minute, opts...)
	t.Cleanup(s.Close)
	return s
}

func TestSessionsStartRunsInBackground(t *testing.T) {
	done := make(chan Completion, 1)
	s := newTestSessions(t, &fakeCalculator{}, OnComplete(func(ctx context.Context, c Completion) {
		if ctx.Err() != nil {
			t.Errorf("completion context already done: %v", ctx.Err())
		}
		done <- c
	}))

	id := NewSessionID()
	if err := s.Start(id, validInput); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case c := <-done:
		if !c.Succeeded() || c.SessionID != id || c.Input != validInput {
			t.Fatalf("completion = %+v", c)
		}
		if c.Finished.Before(c.Started) {
			t.Fatal("finished before started")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("completion not reported")
	}

	f, ok := s.Lookup(id)
	if !ok {
		t.Fatal("session missing after Start")
	}
	if f.Snapshot().View() != ViewResult {
		t.Fatalf("view = %v, want result", f.Snapshot().View())
	}
}

func TestSessionsStartReportsFailure(t *testing.T) {
	done := make(chan Completion, 1)
	s := newTestSessions(t, &fakeCalculator{err: errors.New("boom")}, OnComplete(func(_ context.Context, c Completion) { done <- c }))

	if err := s.Start("visitor", validInput); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c := <-done
	var te *TransportError
	if c.Succeeded() || !errors.As(c.Err, &te) {
		t.Fatalf("completion = %+v", c)
	}
}

func TestSessionsStartValidatesSynchronously(t *testing.T) {
	var mu sync.Mutex
	completions := 0
	calc := &fakeCalculator{}
	s := newTestSessions(t, calc, OnComplete(func(context.Context, Completion) {
		mu.Lock()
		completions++
		mu.Unlock()
	}))

	err := s.Start("visitor", FormInput{State: "Nowhere"})
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[FieldState] != "Select a valid state" {
		t.Fatalf("Start = %v", err)
	}
	s.Close()
	mu.Lock()
	defer mu.Unlock()
	if completions != 0 || calc.callCount() != 0 {
		t.Fatalf("invalid input ran: completions=%d calls=%d", completions, calc.callCount())
	}
}

func TestSessionsBusyAndCancel(t *testing.T) {
	calc := &fakeCalculator{block: true, entered: make(chan struct{}, 1)}
	completions := make(chan Completion, 1)
	s := newTestSessions(t, calc, OnComplete(func(_ context.Context, c Completion) { completions <- c }))

	if err := s.Start("visitor", validInput); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-calc.entered

	if err := s.Start("visitor", validInput); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Start = %v, want ErrBusy", err)
	}
	if !s.Cancel("visitor") {
		t.Fatal("Cancel reported nothing running")
	}
	if s.Cancel("visitor") {
		t.Fatal("second Cancel reported a running submission")
	}

	f := s.Flow("visitor")
	waitFor(t, "flow to return to idle", func() bool { return f.State() == StateIdle })
	if len(f.TakeNotifications()) != 0 {
		t.Fatal("cancel produced a notification")
	}

	s.Close()
	select {
	case c := <-completions:
		t.Fatalf("cancelled run reported completion %+v", c)
	default:
	}
}

func TestSessionsCancelUnknown(t *testing.T) {
	s := newTestSessions(t, &fakeCalculator{})
	if s.Cancel("nobody") {
		t.Fatal("Cancel on unknown session returned true")
	}
}

func TestSessionsCloseStopsRunningFlows(t *testing.T) {
	calc := &fakeCalculator{block: true, entered: make(chan struct{}, 1)}
	s := NewSessions(context.Background(), func() *Flow { return newTestFlow(calc) }, time.Minute)

	if err := s.Start("a", validInput); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-calc.entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
	if st := s.Flow("a").State(); st != StateIdle {
		t.Fatalf("state after Close = %v", st)
	}
}

func TestSessionsSweep(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	calc := &fakeCalculator{block: true, entered: make(chan struct{}, 1)}
	s := NewSessions(context.Background(), func() *Flow { return newTestFlow(calc) }, 10*time.Minute, WithClock(clock))
	defer s.Close()

	s.Flow("idle")
	if err := s.Start("busy", validInput); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-calc.entered

	now = now.Add(5 * time.Minute)
	if n := s.Sweep(); n != 0 {
		t.Fatalf("Sweep removed %d fresh sessions", n)
	}

	now = now.Add(10 * time.Minute)
	if n := s.Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d sessions, want 1", n)
	}
	if _, ok := s.Lookup("idle"); ok {
		t.Fatal("idle session survived sweep")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want the running session only", s.Len())
	}
}

func TestValidSessionID(t *testing.T) {
	if !ValidSessionID(NewSessionID()) {
		t.Fatal("generated ID rejected")
	}
	if ValidSessionID("not-an-id") || ValidSessionID("") {
		t.Fatal("bogus ID accepted")
	}
}
