package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"diagtest/internal/runner"
	"diagtest/internal/source"
	"diagtest/internal/toolchain"
	"diagtest/internal/ui"
)

type runOutcome struct {
	results []runner.FileResult
	err     error
}

// runWithUI executes the run with a live terminal progress view.
// The run itself happens on a background goroutine; the Bubble Tea
// program owns the terminal until the event channel closes.
func runWithUI(ctx context.Context, title string, fileSet *source.FileSet, paths []string,
	descs []toolchain.Descriptor, opts runner.Options) ([]runner.FileResult, error) {
	events := make(chan runner.Event, 256)
	outcomeCh := make(chan runOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = runner.ChannelSink{Ch: events}
		results, err := runner.Run(ctx, fileSet, paths, descs, optsCopy)
		outcomeCh <- runOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := awaitOutcome(events, outcomeCh)
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}

// awaitOutcome keeps draining progress events until the run finishes.
// The view may exit early (user quit) while the runner is still
// sending; without the drain the sink would block once the channel
// buffer fills and the outcome would never arrive.
func awaitOutcome(events <-chan runner.Event, outcomeCh <-chan runOutcome) runOutcome {
	for {
		select {
		case _, ok := <-events:
			if !ok {
				events = nil
			}
		case outcome := <-outcomeCh:
			return outcome
		}
	}
}
