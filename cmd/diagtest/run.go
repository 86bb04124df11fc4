package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"diagtest/internal/observ"
	"diagtest/internal/report"
	"diagtest/internal/runner"
	"diagtest/internal/source"
	"diagtest/internal/toolchain"
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <file|directory>...",
	Short: "Run fixture files against the available compilers",
	Long:  `Run parses the @test blocks of each fixture file, pairs every active test case with every discovered compiler configuration and checks the emitted diagnostics against the declared expectations`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	runCmd.Flags().Int("jobs", 0, "max parallel compiler invocations (0=auto)")
	runCmd.Flags().Duration("timeout", time.Minute, "per-invocation compiler timeout")
	runCmd.Flags().Bool("fail-fast", false, "stop scheduling after the first failing verdict")
	runCmd.Flags().String("ui", "auto", "interactive progress view (auto|on|off)")
	runCmd.Flags().Bool("keep-tmp", false, "keep materialized translation units on disk")
	runCmd.Flags().Bool("no-cache", false, "disable the compiler probe cache")
	runCmd.Flags().Bool("show-skips", false, "list skipped verdicts, not just counts")
}

func runRun(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	timeout, err := cmd.Flags().GetDuration("timeout")
	if err != nil {
		return fmt.Errorf("failed to get timeout flag: %w", err)
	}
	failFast, err := cmd.Flags().GetBool("fail-fast")
	if err != nil {
		return fmt.Errorf("failed to get fail-fast flag: %w", err)
	}
	uiFlag, err := cmd.Flags().GetString("ui")
	if err != nil {
		return fmt.Errorf("failed to get ui flag: %w", err)
	}
	keepTmp, err := cmd.Flags().GetBool("keep-tmp")
	if err != nil {
		return fmt.Errorf("failed to get keep-tmp flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	showSkips, err := cmd.Flags().GetBool("show-skips")
	if err != nil {
		return fmt.Errorf("failed to get show-skips flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	mode, err := readUIMode(uiFlag)
	if err != nil {
		return err
	}

	color, err := useColor(cmd)
	if err != nil {
		return err
	}

	timer := observ.NewTimer()

	paths, err := collectFixtures(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no fixture files found")
	}

	manifest, _, err := loadProjectManifest(".")
	if err != nil {
		return err
	}
	overrides, err := manifest.defaultsOverrides()
	if err != nil {
		return err
	}

	discoverSpan := timer.Begin(observ.PhaseDiscover)
	descs, err := discoverToolchains(cmd, manifest, noCache)
	if err != nil {
		return err
	}
	discoverSpan.End(fmt.Sprintf("%d configurations", len(descs)))

	opts := runner.Options{
		Jobs:              jobs,
		Timeout:           timeout,
		FailFast:          failFast,
		KeepTmp:           keepTmp,
		MaxDiagnostics:    maxDiagnostics,
		DefaultsOverrides: overrides,
	}

	fileSet := source.NewFileSet()
	executeSpan := timer.Begin(observ.PhaseExecute)
	var results []runner.FileResult
	if shouldUseTUI(mode) && format == "pretty" {
		results, err = runWithUI(cmd.Context(), "diagtest", fileSet, paths, descs, opts)
	} else {
		results, err = runner.Run(cmd.Context(), fileSet, paths, descs, opts)
	}
	executeSpan.End(fmt.Sprintf("%d files", len(paths)))
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	reportSpan := timer.Begin(observ.PhaseReport)
	summary := report.Summarize(results)
	switch format {
	case "pretty":
		if !quiet {
			report.Pretty(os.Stdout, results, fileSet, report.PrettyOpts{
				Color:     color,
				ShowSkips: showSkips,
				Timings:   showTimings,
			})
		}
	case "json":
		jsonOpts := report.JSONOpts{
			IncludeDiags: true,
			IncludeSkips: showSkips,
		}
		jsonOpts.AuthoringOpts.IncludePositions = true
		jsonOpts.AuthoringOpts.IncludeNotes = true
		if err := report.JSON(os.Stdout, results, fileSet, jsonOpts); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	}

	reportSpan.End(fmt.Sprintf("%d verdicts", summary.Pass+summary.Fail+summary.Skip+summary.Ambiguous+summary.Timeout+summary.Errors))

	if showTimings && !quiet {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if report.ExitCode(summary) != 0 {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // verdicts already printed
	}
	return nil
}

// discoverToolchains builds the descriptor list from PATH plus any
// manifest-pinned executables.
func discoverToolchains(cmd *cobra.Command, manifest *projectManifest, noCache bool) ([]toolchain.Descriptor, error) {
	var cache *toolchain.ProbeCache
	if !noCache {
		if c, err := toolchain.OpenProbeCache("diagtest"); err == nil {
			cache = c
		}
		// a broken cache never blocks discovery
	}
	disc := &toolchain.PathDiscoverer{
		Extra: manifest.extraCompilers(),
		Cache: cache,
	}
	descs, err := disc.Discover(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("toolchain discovery failed: %w", err)
	}
	return descs, nil
}
