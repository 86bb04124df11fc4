// Package runner schedules (TestCase, Descriptor) pairs onto a bounded
// worker pool and aggregates their verdicts. Pairs are independent;
// the only blocking point is the external compiler invocation.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"diagtest/internal/diag"
	"diagtest/internal/directive"
	"diagtest/internal/preamble"
	"diagtest/internal/source"
	"diagtest/internal/toolchain"
)

// Options configures a run.
type Options struct {
	Jobs              int           // worker pool size; 0 means GOMAXPROCS
	Timeout           time.Duration // per compiler invocation
	FailFast          bool          // cancel remaining pairs on first failure
	KeepTmp           bool
	TmpRoot           string // defaults to a fresh os.MkdirTemp
	MaxDiagnostics    int
	DefaultsOverrides map[string]string // manifest [defaults] entries
	Progress          Sink
}

// FileResult collects everything produced for one fixture file.
// A file whose parsing or preamble resolution failed carries the
// diagnostics in Bag and no verdicts; other files are unaffected.
type FileResult struct {
	Path     string
	Bag      *diag.Bag
	Cases    *directive.FileCases
	Verdicts []Verdict // file-declaration order x stable descriptor order
}

// Failed reports whether this file must fail the run.
func (fr *FileResult) Failed() bool {
	if fr.Bag.HasErrors() {
		return true
	}
	for i := range fr.Verdicts {
		if fr.Verdicts[i].Outcome.Failed() {
			return true
		}
	}
	return false
}

var errStopRun = errors.New("run stopped early")

type pendingUnit struct {
	fileIdx    int
	verdictIdx int
	desc       toolchain.Descriptor
	exp        *directive.Expectation
	unitText   string
	caseName   string
	path       string
}

// Run parses the given fixture files, pairs every active test case
// with every discovered descriptor and executes the applicable
// expectations in parallel. Verdict aggregation is order-independent;
// the returned slices preserve declaration order for stable reports.
func Run(ctx context.Context, fileSet *source.FileSet, paths []string, descs []toolchain.Descriptor, opts Options) ([]FileResult, error) {
	if opts.Jobs <= 0 {
		opts.Jobs = runtime.GOMAXPROCS(0)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.MaxDiagnostics <= 0 {
		opts.MaxDiagnostics = 100
	}
	sink := opts.Progress
	if sink == nil {
		sink = nopSink{}
	}

	tmpRoot := opts.TmpRoot
	if tmpRoot == "" {
		var err error
		tmpRoot, err = os.MkdirTemp("", "diagtest-*")
		if err != nil {
			return nil, fmt.Errorf("create temp root: %w", err)
		}
	}
	inv := toolchain.NewInvoker(tmpRoot, opts.Timeout, opts.KeepTmp)
	defer inv.Cleanup()

	results := make([]FileResult, len(paths))
	var units []pendingUnit
	for i, path := range paths {
		units = prepareFile(fileSet, path, i, results, units, descs, opts, sink)
	}

	if len(units) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(opts.Jobs, len(units)))

	for _, u := range units {
		sink.OnEvent(Event{File: u.path, Case: u.caseName, Descriptor: u.desc.Key(), Stage: StageCompile, Status: StatusQueued})
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return runUnit(gctx, inv, u, results, opts, sink)
		})
	}

	if err := g.Wait(); err != nil &&
		!errors.Is(err, errStopRun) && !errors.Is(err, context.Canceled) {
		return results, err
	}
	return results, nil
}

// prepareFile loads and parses one fixture, materializes its active
// cases and lays out the verdict slots in report order. Scheduled
// units are appended to the accumulator.
func prepareFile(fileSet *source.FileSet, path string, fileIdx int, results []FileResult,
	units []pendingUnit, descs []toolchain.Descriptor, opts Options, sink Sink) []pendingUnit {
	bag := diag.NewBag(opts.MaxDiagnostics)
	results[fileIdx] = FileResult{Path: path, Bag: bag}

	sink.OnEvent(Event{File: path, Stage: StageParse, Status: StatusWorking})
	fileID, err := fileSet.Load(path)
	if err != nil {
		bag.Add(diag.Diagnostic{
			Severity: diag.SevError,
			Code:     diag.IOLoadFileError,
			Message:  "failed to load file: " + err.Error(),
		})
		sink.OnEvent(Event{File: path, Stage: StageParse, Status: StatusError, Err: err})
		return units
	}

	fc := directive.Parse(fileSet.Get(fileID), diag.BagReporter{Bag: bag})
	results[fileIdx].Cases = fc
	if bag.HasErrors() {
		// authoring bugs abort this file only; other files continue
		sink.OnEvent(Event{File: path, Stage: StageParse, Status: StatusError})
		return units
	}
	sink.OnEvent(Event{File: path, Stage: StageResolve, Status: StatusWorking})

	resolver := preamble.NewResolver(filepath.Dir(path), opts.DefaultsOverrides)
	var verdicts []Verdict

	for ci := range fc.Cases {
		tc := &fc.Cases[ci]
		if !tc.Active {
			// shadowed cases are validated but contribute zero verdicts
			continue
		}

		unitText, err := Materialize(fc, tc, resolver)
		if err != nil {
			var rerr *preamble.ResolveError
			if errors.As(err, &rerr) {
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     rerr.Code,
					Message:  rerr.Msg,
					Primary:  rerr.Span,
				})
			} else {
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.IncFileNotFound,
					Message:  err.Error(),
				})
			}
			sink.OnEvent(Event{File: path, Stage: StageResolve, Status: StatusError, Err: err})
			results[fileIdx].Verdicts = nil
			return units
		}

		exps := tc.ActiveExpectations()
		expMatched := make([]bool, len(exps))

		for _, desc := range descs {
			var applicable []int
			for k := range exps {
				if desc.MatchedBy(&exps[k].Sel) {
					applicable = append(applicable, k)
					expMatched[k] = true
				}
			}
			switch len(applicable) {
			case 0:
				verdicts = append(verdicts, Verdict{
					File:       path,
					CaseName:   tc.Name,
					Descriptor: desc,
					Outcome:    OutcomeSkip,
					Detail:     "no expectation for this configuration",
				})
			case 1:
				exp := &exps[applicable[0]]
				verdicts = append(verdicts, Verdict{
					File:        path,
					CaseName:    tc.Name,
					Descriptor:  desc,
					Expectation: exp,
					Outcome:     OutcomeSkip,
					Detail:      "not executed (run cancelled)",
				})
				units = append(units, pendingUnit{
					fileIdx:    fileIdx,
					verdictIdx: len(verdicts) - 1,
					desc:       desc,
					exp:        exp,
					unitText:   unitText,
					caseName:   tc.Name,
					path:       path,
				})
			default:
				sels := make([]string, len(applicable))
				for n, k := range applicable {
					sels[n] = exps[k].Sel.String()
				}
				verdicts = append(verdicts, Verdict{
					File:       path,
					CaseName:   tc.Name,
					Descriptor: desc,
					Outcome:    OutcomeAmbiguous,
					Detail: fmt.Sprintf("%d expectations apply to this configuration: %s",
						len(applicable), strings.Join(sels, "; ")),
				})
			}
		}

		// expectations for compilers that are not installed at all:
		// deliberately skipped, never failed
		for k := range exps {
			if expMatched[k] {
				continue
			}
			verdicts = append(verdicts, Verdict{
				File:        path,
				CaseName:    tc.Name,
				Expectation: &exps[k],
				Outcome:     OutcomeSkip,
				Detail:      "no available compiler matches " + exps[k].Sel.String(),
			})
		}
	}

	results[fileIdx].Verdicts = verdicts
	sink.OnEvent(Event{File: path, Stage: StageResolve, Status: StatusDone})
	return units
}

// runUnit executes one scheduled pair and writes its verdict in place.
func runUnit(ctx context.Context, inv *toolchain.Invoker, u pendingUnit,
	results []FileResult, opts Options, sink Sink) error {
	sink.OnEvent(Event{File: u.path, Case: u.caseName, Descriptor: u.desc.Key(), Stage: StageCompile, Status: StatusWorking})

	v := &results[u.fileIdx].Verdicts[u.verdictIdx]
	res, err := inv.Invoke(ctx, u.desc, u.unitText)
	if errors.Is(err, context.Canceled) {
		// abandoned by cancellation; the verdict slot keeps its
		// "not executed" state instead of recording a failure
		return err
	}
	v.Elapsed = res.Elapsed

	switch {
	case errors.Is(err, toolchain.ErrUnavailable):
		v.Outcome = OutcomeSkip
		v.Detail = err.Error()
	case errors.Is(err, toolchain.ErrTimeout):
		v.Outcome = OutcomeTimeout
		v.Detail = err.Error()
	case err != nil:
		v.Outcome = OutcomeError
		v.Detail = "driver error: " + err.Error()
	default:
		stream := NormalizeStream(res.Stream())
		v.Diags = toolchain.ExtractDiagnostics(u.desc.Family, stream)
		if Match(u.exp, stream) {
			v.Outcome = OutcomePass
		} else {
			v.Outcome = OutcomeFail
			v.Detail = failDetail(u.exp, stream, res)
		}
	}

	status := StatusDone
	if v.Outcome.Failed() {
		status = StatusError
	}
	sink.OnEvent(Event{File: u.path, Case: u.caseName, Descriptor: u.desc.Key(), Stage: StageMatch, Status: status})

	if opts.FailFast && v.Outcome.Failed() {
		return errStopRun
	}
	return nil
}

func failDetail(exp *directive.Expectation, stream string, res toolchain.InvokeResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "expected %s %q", exp.Kind, exp.Pattern)
	if stream == "" {
		fmt.Fprintf(&b, "; compiler emitted no diagnostics (exit %d)", res.ExitCode)
		return b.String()
	}
	fmt.Fprintf(&b, "; actual diagnostics:\n%s", strings.TrimRight(stream, "\n"))
	return b.String()
}
