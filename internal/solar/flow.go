package solar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Zachkp/solar-portfolio/internal/logging"
)

// State is the lifecycle position of a Flow.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateRunning
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// View is the single block the page shows for a state.
type View int

const (
	ViewForm View = iota
	ViewProgress
	ViewResult
)

func (v View) String() string {
	switch v {
	case ViewProgress:
		return "progress"
	case ViewResult:
		return "result"
	default:
		return "form"
	}
}

// Outcomes reported to a MetricsRecorder.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

var (
	// ErrBusy is returned when a submission arrives while one is running.
	ErrBusy = errors.New("solar: a calculation is already running")
	// ErrNotRunning is returned by Run when Begin has not accepted an input.
	ErrNotRunning = errors.New("solar: no accepted submission to run")
)

// NotificationKind separates success toasts from failure toasts.
type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyFailure NotificationKind = "failure"
)

// Notification is a one-shot, dismissible message for the visitor.
type Notification struct {
	Kind        NotificationKind `json:"kind"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
}

var (
	successNotification = Notification{Kind: NotifySuccess, Title: "Calculation Complete", Description: "Your personalized solar report is ready!"}
	failureNotification = Notification{Kind: NotifyFailure, Title: "Error", Description: "Calculation failed. Please try again."}
)

// Notifier receives every notification a Flow emits.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// MetricsRecorder observes flow outcomes.
type MetricsRecorder interface {
	ObserveCalculation(outcome string, d time.Duration)
	ObserveValidationFailure(field string)
}

// EventType names what changed in a Flow.
type EventType string

const (
	EventPhase     EventType = "phase"
	EventSucceeded EventType = "succeeded"
	EventFailed    EventType = "failed"
	EventCancelled EventType = "cancelled"
)

// Event is published to subscribers on every visible change while running.
type Event struct {
	Type     EventType
	Snapshot Snapshot
}

// Final reports whether the event ends a submission.
func (e Event) Final() bool { return e.Type != EventPhase }

// Snapshot is a copy of a Flow's visible state.
type Snapshot struct {
	State  State
	Input  FormInput
	Errors ValidationErrors
	Phase  int
	Phases []PhaseView
	Result *DisplayResult
}

// View picks the block to render. Exactly one is visible at a time.
func (s Snapshot) View() View {
	switch s.State {
	case StateRunning:
		return ViewProgress
	case StateSucceeded:
		if s.Result != nil {
			return ViewResult
		}
		return ViewForm
	case StateIdle, StateValidating, StateFailed:
		return ViewForm
	default:
		return ViewForm
	}
}

// Progress is the rounded percentage of phases reached.
func (s Snapshot) Progress() int { return ProgressPercent(s.Phase, len(s.Phases)) }

// Option configures a Flow.
type Option func(*Flow)

func WithNotifier(n Notifier) Option { return func(f *Flow) { f.notifier = n } }

func WithMetrics(m MetricsRecorder) Option { return func(f *Flow) { f.metrics = m } }

func WithLogger(l logging.Logger) Option { return func(f *Flow) { f.log = l } }

// WithSleeper replaces the wall-clock wait between phases.
func WithSleeper(s func(ctx context.Context, d time.Duration) error) Option {
	return func(f *Flow) { f.sleep = s }
}

// Flow drives one visitor's calculator: validation, the phase sequence, the
// remote call and the mapping of its answer. It is safe for concurrent use.
type Flow struct {
	regions  RegionSet
	phases   []Phase
	calc     Calculator
	notifier Notifier
	metrics  MetricsRecorder
	sleep    func(ctx context.Context, d time.Duration) error
	log      logging.Logger

	mu      sync.Mutex
	state   State
	input   FormInput
	errs    ValidationErrors
	phase   int
	result  *DisplayResult
	pending []Notification
	subs    map[int]chan Event
	nextSub int
}

// NewFlow returns an idle flow. regions and phases are copied.
func NewFlow(calc Calculator, regions RegionSet, phases []Phase, opts ...Option) *Flow {
	f := &Flow{
		regions: regions,
		phases:  append([]Phase(nil), phases...),
		calc:    calc,
		sleep:   sleepContext,
		log:     logging.Noop(),
		errs:    ValidationErrors{},
		phase:   -1,
		subs:    make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Submit validates in and, when valid, runs the full sequence to completion.
func (f *Flow) Submit(ctx context.Context, in FormInput) (*DisplayResult, error) {
	if err := f.Begin(in); err != nil {
		return nil, err
	}
	return f.Run(ctx)
}

// Begin validates in synchronously. On success the flow is Running and Run
// must be called to finish the submission. It returns ValidationErrors for
// bad input and ErrBusy while another submission is in flight.
func (f *Flow) Begin(in FormInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case StateRunning, StateValidating:
		return ErrBusy
	case StateIdle, StateSucceeded, StateFailed:
	default:
		return fmt.Errorf("solar: unexpected state %v", f.state)
	}

	in = in.Normalize()
	f.input = in
	f.state = StateValidating

	errs := Validate(in, f.regions)
	if len(errs) > 0 {
		f.errs = errs
		f.result = nil
		f.state = StateIdle
		if f.metrics != nil {
			for _, field := range errs.Fields() {
				f.metrics.ObserveValidationFailure(field)
			}
		}
		return errs
	}

	f.errs = ValidationErrors{}
	f.result = nil
	f.phase = -1
	f.state = StateRunning
	return nil
}

// Run steps through every phase, waiting each phase's duration, then calls the
// calculator once. Cancelling ctx abandons the submission and returns the flow
// to Idle without a notification.
func (f *Flow) Run(ctx context.Context) (*DisplayResult, error) {
	f.mu.Lock()
	if f.state != StateRunning {
		f.mu.Unlock()
		return nil, ErrNotRunning
	}
	in := f.input
	f.mu.Unlock()

	start := time.Now()
	for i, p := range f.phases {
		f.enterPhase(i)
		if err := f.sleep(ctx, p.Duration); err != nil {
			return nil, f.cancel(err, start)
		}
	}

	req, err := NewCalculationRequest(in)
	if err != nil {
		return nil, f.fail(ctx, err, start)
	}

	resp, err := f.calc.Calculate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, f.cancel(ctx.Err(), start)
		}
		return nil, f.fail(ctx, err, start)
	}
	if resp == nil {
		return nil, f.fail(ctx, errors.New("empty response"), start)
	}

	dr := ToDisplayResult(*resp)
	f.succeed(ctx, dr, start)
	return &dr, nil
}

// Edit replaces one field and clears that field's error.
func (f *Flow) Edit(field, value string) Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.input = f.input.Set(field, value)
	delete(f.errs, field)
	return f.snapshotLocked()
}

// Snapshot returns a copy of the visible state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

// State returns the current lifecycle state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// TakeNotifications returns pending notifications and forgets them.
func (f *Flow) TakeNotifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.pending
	f.pending = nil
	return out
}

// Phases returns a copy of the configured phase sequence.
func (f *Flow) Phases() []Phase { return append([]Phase(nil), f.phases...) }

// Subscribe registers for events. The returned func unsubscribes and closes
// the channel. Slow subscribers miss events rather than block the flow.
func (f *Flow) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextSub
	f.nextSub++
	ch := make(chan Event, len(f.phases)+4)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

func (f *Flow) enterPhase(i int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.phase = i
	f.publishLocked(EventPhase)
}

func (f *Flow) succeed(ctx context.Context, dr DisplayResult, start time.Time) {
	f.mu.Lock()
	f.state = StateSucceeded
	f.result = &dr
	f.phase = -1
	f.pending = append(f.pending, successNotification)
	f.publishLocked(EventSucceeded)
	f.mu.Unlock()

	f.log.Info(ctx, "solar calculation succeeded",
		logging.Float64("recommended_kw", dr.RecommendedKW),
		logging.Duration("elapsed", time.Since(start)))
	f.observe(OutcomeSucceeded, start)
	if f.notifier != nil {
		f.notifier.Notify(ctx, successNotification)
	}
}

func (f *Flow) fail(ctx context.Context, err error, start time.Time) error {
	var te *TransportError
	if !errors.As(err, &te) {
		te = &TransportError{Err: err}
	}

	f.mu.Lock()
	f.state = StateFailed
	f.result = nil
	f.phase = -1
	f.pending = append(f.pending, failureNotification)
	f.publishLocked(EventFailed)
	f.state = StateIdle
	f.mu.Unlock()

	f.log.Warn(ctx, "solar calculation failed", logging.Error(te))
	f.observe(OutcomeFailed, start)
	if f.notifier != nil {
		f.notifier.Notify(ctx, failureNotification)
	}
	return te
}

func (f *Flow) cancel(cause error, start time.Time) error {
	f.mu.Lock()
	f.state = StateIdle
	f.result = nil
	f.phase = -1
	f.publishLocked(EventCancelled)
	f.mu.Unlock()

	f.observe(OutcomeCancelled, start)
	return fmt.Errorf("solar: calculation cancelled: %w", cause)
}

func (f *Flow) observe(outcome string, start time.Time) {
	if f.metrics != nil {
		f.metrics.ObserveCalculation(outcome, time.Since(start))
	}
}

func (f *Flow) publishLocked(t EventType) {
	if len(f.subs) == 0 {
		return
	}
	ev := Event{Type: t, Snapshot: f.snapshotLocked()}
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (f *Flow) snapshotLocked() Snapshot {
	errs := make(ValidationErrors, len(f.errs))
	for k, v := range f.errs {
		errs[k] = v
	}
	var result *DisplayResult
	if f.result != nil {
		r := *f.result
		result = &r
	}
	return Snapshot{
		State:  f.state,
		Input:  f.input,
		Errors: errs,
		Phase:  f.phase,
		Phases: PhaseViews(f.phases, f.phase),
		Result: result,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
