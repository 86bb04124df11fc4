package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	timer := NewTimer()

	discover := timer.Begin(PhaseDiscover)
	time.Sleep(time.Millisecond)
	discover.End("3 configurations")

	execute := timer.Begin(PhaseExecute)
	execute.End("2 files")

	report := timer.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("phases = %+v", report.Phases)
	}
	if report.Phases[0].Name != PhaseDiscover || report.Phases[0].Note != "3 configurations" {
		t.Fatalf("phase[0] = %+v", report.Phases[0])
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Fatalf("duration = %v", report.Phases[0].DurationMS)
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Fatalf("total %v < phase %v", report.TotalMS, report.Phases[0].DurationMS)
	}
}

func TestTimerSummary(t *testing.T) {
	timer := NewTimer()
	span := timer.Begin(PhaseExecute)
	span.End("5 files")

	out := timer.Summary()
	if !strings.Contains(out, "execute") || !strings.Contains(out, "// 5 files") {
		t.Fatalf("summary = %q", out)
	}
	if !strings.Contains(out, "total") {
		t.Fatalf("summary = %q", out)
	}
}

func TestTimerEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("report = %+v", r)
	}
}

func TestSpanZeroValueIsInert(t *testing.T) {
	var s Span
	s.End("no timer") // must not panic
}
