package solar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Zachkp/solar-portfolio/internal/logging"
)

// DefaultSessionTTL is how long an idle visitor flow is kept.
const DefaultSessionTTL = 30 * time.Minute

// Completion describes a finished background submission.
type Completion struct {
	SessionID string
	Input     FormInput
	Result    *DisplayResult
	Err       error
	Started   time.Time
	Finished  time.Time
}

// Succeeded reports whether the submission produced a result.
func (c Completion) Succeeded() bool { return c.Err == nil && c.Result != nil }

type session struct {
	flow     *Flow
	cancel   context.CancelFunc
	gen      uint64
	lastSeen time.Time
}

// SessionOption configures Sessions.
type SessionOption func(*Sessions)

// OnComplete registers a callback run after every background submission that
// was not cancelled.
func OnComplete(fn func(ctx context.Context, c Completion)) SessionOption {
	return func(s *Sessions) { s.onDone = fn }
}

func WithSessionLogger(l logging.Logger) SessionOption {
	return func(s *Sessions) { s.log = l }
}

// WithClock overrides time.Now for expiry decisions.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Sessions) { s.now = now }
}

// Sessions keeps one Flow per visitor and runs submissions in the background,
// scoped to a context that is cancelled on Cancel or Close.
type Sessions struct {
	base    context.Context
	stop    context.CancelFunc
	newFlow func() *Flow
	ttl     time.Duration
	now     func() time.Time
	onDone  func(ctx context.Context, c Completion)
	log     logging.Logger

	mu       sync.Mutex
	sessions map[string]*session
	wg       sync.WaitGroup
}

// NewSessions builds a registry. newFlow is called once per new visitor.
func NewSessions(parent context.Context, newFlow func() *Flow, ttl time.Duration, opts ...SessionOption) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	base, stop := context.WithCancel(parent)
	s := &Sessions{
		base:     base,
		stop:     stop,
		newFlow:  newFlow,
		ttl:      ttl,
		now:      time.Now,
		log:      logging.Noop(),
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewSessionID returns a random visitor identifier.
func NewSessionID() string { return uuid.NewString() }

// Flow returns the visitor's flow, creating it on first use.
func (s *Sessions) Flow(id string) *Flow {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id).flow
}

// Lookup returns the visitor's flow without creating one.
func (s *Sessions) Lookup(id string) (*Flow, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	sess.lastSeen = s.now()
	return sess.flow, true
}

// Start validates in on the visitor's flow and, when accepted, runs the rest
// of the submission in a goroutine. Validation failures and ErrBusy are
// returned synchronously.
func (s *Sessions) Start(id string, in FormInput) error {
	s.mu.Lock()
	sess := s.getLocked(id)
	s.mu.Unlock()

	if err := sess.flow.Begin(in); err != nil {
		return err
	}
	input := sess.flow.Snapshot().Input

	ctx, cancel := context.WithCancel(s.base)
	s.mu.Lock()
	sess.gen++
	gen := sess.gen
	sess.cancel = cancel
	s.mu.Unlock()

	started := s.now()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()

		res, err := sess.flow.Run(ctx)

		s.mu.Lock()
		if sess.gen == gen {
			sess.cancel = nil
		}
		sess.lastSeen = s.now()
		s.mu.Unlock()

		if err != nil && ctx.Err() != nil {
			s.log.Info(s.base, "solar submission cancelled", logging.String("session", id))
			return
		}
		if s.onDone != nil {
			s.onDone(context.WithoutCancel(ctx), Completion{
				SessionID: id,
				Input:     input,
				Result:    res,
				Err:       err,
				Started:   started,
				Finished:  s.now(),
			})
		}
	}()
	return nil
}

// Cancel abandons the visitor's running submission. It reports whether one
// was running.
func (s *Sessions) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.cancel == nil {
		return false
	}
	sess.cancel()
	sess.cancel = nil
	return true
}

// Sweep drops idle sessions not seen within the TTL and returns how many
// were removed. Running sessions are kept.
func (s *Sessions) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) || sess.flow.State() == StateRunning {
			continue
		}
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Janitor sweeps every interval until ctx is done.
func (s *Sessions) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.Sweep(); n > 0 {
				s.log.Debug(ctx, "expired solar sessions", logging.Int("removed", n))
			}
		}
	}
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close cancels every running submission and waits for them to unwind.
func (s *Sessions) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Sessions) getLocked(id string) *session {
	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{flow: s.newFlow()}
		s.sessions[id] = sess
	}
	sess.lastSeen = s.now()
	return sess
}

// ValidSessionID reports whether id looks like one issued by NewSessionID.
func ValidSessionID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
