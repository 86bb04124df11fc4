package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"diagtest/internal/selector"
)

// InvokeResult carries the raw outcome of one compiler invocation.
type InvokeResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Elapsed  time.Duration
	Command  string // rendered argv, for the report
}

// Stream returns the combined diagnostic stream expectations match
// against.
func (r InvokeResult) Stream() string {
	return r.Stdout + r.Stderr
}

// ErrUnavailable marks a toolchain binary that disappeared between
// discovery and invocation. It downgrades to a Skip verdict, never to a
// failure.
var ErrUnavailable = errors.New("toolchain unavailable")

// ErrTimeout marks an invocation killed by its deadline.
var ErrTimeout = errors.New("compiler invocation timed out")

// Invoker runs compiler processes with materialized units. The zero
// value is not usable; call NewInvoker.
type Invoker struct {
	tmpRoot string
	timeout time.Duration
	keepTmp bool
	seq     func() string
}

// NewInvoker creates an invoker writing units under tmpRoot. The run
// owns tmpRoot and removes it via Cleanup unless keepTmp is set.
func NewInvoker(tmpRoot string, timeout time.Duration, keepTmp bool) *Invoker {
	return &Invoker{tmpRoot: tmpRoot, timeout: timeout, keepTmp: keepTmp}
}

// Cleanup removes the invoker's temporary tree.
func (inv *Invoker) Cleanup() {
	if inv.keepTmp {
		return
	}
	_ = os.RemoveAll(inv.tmpRoot)
}

// Invoke writes unitText to a scoped temporary file and runs the
// descriptor's toolchain over it with flags encoding the standard.
// Classify the error with errors.Is: ErrUnavailable when the binary is
// gone, ErrTimeout when the deadline killed the process. A non-zero
// compiler exit is NOT an error; diagnostics are the expected product.
func (inv *Invoker) Invoke(ctx context.Context, desc Descriptor, unitText string) (InvokeResult, error) {
	var res InvokeResult
	if !desc.Available() {
		return res, fmt.Errorf("%w: %s", ErrUnavailable, desc)
	}

	// per-invocation scoped directory keeps concurrent workers
	// collision-free
	dir, err := os.MkdirTemp(inv.tmpRoot, "unit-*")
	if err != nil {
		return res, fmt.Errorf("create unit dir: %w", err)
	}
	if !inv.keepTmp {
		defer func() { _ = os.RemoveAll(dir) }()
	}

	unitPath := filepath.Join(dir, unitFileName(desc.Family))
	if err := os.WriteFile(unitPath, []byte(unitText), 0o600); err != nil {
		return res, fmt.Errorf("write unit: %w", err)
	}

	argv := buildArgs(desc, unitPath)
	res.Command = desc.Executable + " " + joinArgs(argv)

	ctx, cancel := context.WithTimeout(ctx, inv.timeout)
	defer cancel()

	// #nosec G204 -- executable and flags come from discovery
	cmd := exec.CommandContext(ctx, desc.Executable, argv...)
	cmd.Dir = dir
	// compiler wrappers may fork children that inherit the output
	// pipes; without WaitDelay the kill would not unblock Run
	cmd.WaitDelay = pipeWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	res.Elapsed = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if runErr != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return res, fmt.Errorf("%w after %s", ErrTimeout, res.Elapsed.Round(time.Millisecond))
		case errors.Is(ctx.Err(), context.Canceled):
			// run-level cancellation, not a property of this pair
			return res, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		if errors.Is(runErr, exec.ErrWaitDelay) {
			// the compiler exited and its diagnostics are captured; only
			// a forked child kept the pipes open past the deadline
			res.ExitCode = cmd.ProcessState.ExitCode()
			return res, nil
		}
		if errors.Is(runErr, exec.ErrNotFound) || errors.Is(runErr, os.ErrNotExist) {
			return res, fmt.Errorf("%w: %s", ErrUnavailable, desc.Executable)
		}
		return res, fmt.Errorf("invoke %s: %w", desc.Executable, runErr)
	}
	return res, nil
}

// pipeWaitDelay bounds how long a finished or killed invocation may
// keep Run blocked on output pipes held open by forked children.
const pipeWaitDelay = 2 * time.Second

// buildArgs encodes the standard into family-appropriate flags.
// Syntax-only modes keep invocations fast and artifact-free.
func buildArgs(desc Descriptor, unitPath string) []string {
	if desc.Family == selector.FamilyMSVC {
		return []string{"/nologo", "/Zs", "/std:" + desc.Standard, unitPath}
	}
	return []string{"-std=" + desc.Standard, "-fsyntax-only", unitPath}
}

func unitFileName(f selector.Family) string {
	if f.IsC() {
		return "unit.c"
	}
	return "unit.cpp"
}

func joinArgs(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}
