package solar

import "time"

// DefaultPhaseDuration is how long each progress phase is held.
const DefaultPhaseDuration = 3 * time.Second

// Phase is one display stage of the progress sequence.
type Phase struct {
	Key      string
	Label    string
	Duration time.Duration
}

// DefaultPhases returns the four calculator phases, each held for d.
// A negative d is treated as zero.
func DefaultPhases(d time.Duration) []Phase {
	if d < 0 {
		d = 0
	}
	return []Phase{
		{Key: "phase1", Label: "Analyzing solar data for your location...", Duration: d},
		{Key: "phase2", Label: "Calculating solar potential at your location...", Duration: d},
		{Key: "phase3", Label: "Creating detailed financial modeling for your usage...", Duration: d},
		{Key: "phase4", Label: "Preparing your personalized solar report...", Duration: d},
	}
}

// PhaseStatus is how a phase renders relative to the active one.
type PhaseStatus string

const (
	PhasePending PhaseStatus = "pending"
	PhaseActive  PhaseStatus = "active"
	PhaseDone    PhaseStatus = "done"
)

// PhaseView is a phase annotated with its status for rendering.
type PhaseView struct {
	Phase
	Index  int
	Status PhaseStatus
}

// PhaseViews annotates phases given the active index. An index of -1 marks
// every phase pending.
func PhaseViews(phases []Phase, active int) []PhaseView {
	out := make([]PhaseView, len(phases))
	for i, p := range phases {
		st := PhasePending
		switch {
		case active < 0:
		case i < active:
			st = PhaseDone
		case i == active:
			st = PhaseActive
		}
		out[i] = PhaseView{Phase: p, Index: i, Status: st}
	}
	return out
}

// ProgressPercent is the rounded share of phases reached, counting the active one.
func ProgressPercent(active, total int) int {
	if total <= 0 || active < 0 {
		return 0
	}
	if active >= total {
		return 100
	}
	return int((float64(active+1)/float64(total))*100 + 0.5)
}
