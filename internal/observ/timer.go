// Package observ provides lightweight phase timing for runs.
package observ

import (
	"fmt"
	"time"
)

// PhaseName identifies one phase of a run.
type PhaseName string

const (
	// PhaseDiscover covers toolchain discovery and probing.
	PhaseDiscover PhaseName = "discover"
	// PhaseExecute covers parsing, resolution and every compiler
	// invocation of the run.
	PhaseExecute PhaseName = "execute"
	// PhaseReport covers rendering verdicts and summaries.
	PhaseReport PhaseName = "report"
)

// Phase records the duration and metadata of one run phase.
type Phase struct {
	Name  PhaseName
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks the execution time of the phases of a run.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Span is a handle to one started phase.
type Span struct {
	timer *Timer
	idx   int
}

// Begin starts a new phase.
func (t *Timer) Begin(name PhaseName) Span {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return Span{timer: t, idx: len(t.phases) - 1}
}

// End finishes the phase, attaching a free-form note
// (e.g. "12 configurations").
func (s Span) End(note string) {
	if s.timer == nil || s.idx < 0 || s.idx >= len(s.timer.phases) {
		return
	}
	p := &s.timer.phases[s.idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	out := "timings:\n"
	for _, p := range report.Phases {
		out += fmt.Sprintf("  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			out += "  // " + p.Note
		}
		out += "\n"
	}
	out += fmt.Sprintf("  %-20s %7.2f ms\n", "total", report.TotalMS)
	return out
}

// PhaseTiming is the serializable form of one phase.
type PhaseTiming struct {
	Name       PhaseName `json:"name"`
	DurationMS float64   `json:"duration_ms"`
	Note       string    `json:"note,omitempty"`
}

// Report aggregates the timer for serialization.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseTiming `json:"phases"`
}

// Report collects the phases and the total duration in milliseconds.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{
		Phases: make([]PhaseTiming, len(t.phases)),
	}
	var total time.Duration
	for i, phase := range t.phases {
		total += phase.Dur
		report.Phases[i] = PhaseTiming{
			Name:       phase.Name,
			DurationMS: durationToMillis(phase.Dur),
			Note:       phase.Note,
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
