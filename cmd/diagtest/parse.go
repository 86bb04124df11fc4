package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"diagtest/internal/diag"
	"diagtest/internal/diagfmt"
	"diagtest/internal/directive"
	"diagtest/internal/source"
)

var parseCmd = &cobra.Command{
	Use:   "parse [flags] <file|directory>...",
	Short: "Parse fixture files without running any compiler",
	Long:  `Parse checks the directive syntax of fixture files and lists the test cases and expectations they declare. No compiler is invoked`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	parseCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	parseCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
}

type parsedCaseJSON struct {
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	Expectations int    `json:"expectations"`
	Includes     int    `json:"includes"`
}

type parsedFileJSON struct {
	Path        string                   `json:"path"`
	Diagnostics []diagfmt.DiagnosticJSON `json:"diagnostics,omitempty"`
	Cases       []parsedCaseJSON         `json:"cases"`
}

func runParse(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	colorOn, err := useColor(cmd)
	if err != nil {
		return err
	}

	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}

	paths, err := collectFixtures(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no fixture files found")
	}

	fileSet := source.NewFileSet()
	exit := 0
	jsonOut := make([]parsedFileJSON, 0, len(paths))
	bold := color.New(color.Bold)
	if !colorOn {
		bold.DisableColor()
	}

	for _, path := range paths {
		bag := diag.NewBag(maxDiagnostics)
		var fc *directive.FileCases

		fileID, loadErr := fileSet.Load(path)
		if loadErr != nil {
			bag.Add(diag.Diagnostic{
				Severity: diag.SevError,
				Code:     diag.IOLoadFileError,
				Message:  "failed to load file: " + loadErr.Error(),
			})
		} else {
			fc = directive.Parse(fileSet.Get(fileID), diag.BagReporter{Bag: bag})
		}
		if bag.HasErrors() {
			exit = 1
		}
		bag.Sort()

		switch format {
		case "pretty":
			fmt.Fprintln(os.Stdout, bold.Sprint(path))
			diagfmt.Pretty(os.Stdout, bag, fileSet, diagfmt.PrettyOpts{
				Color:     colorOn,
				PathMode:  pathMode,
				ShowNotes: withNotes,
			})
			if fc != nil {
				for i := range fc.Cases {
					tc := &fc.Cases[i]
					marker := " "
					if !tc.Active {
						marker = "#"
					}
					fmt.Fprintf(os.Stdout, "  %s %s (%d expectations)\n",
						marker, tc.Name, len(tc.ActiveExpectations()))
				}
			}
			fmt.Fprintln(os.Stdout)
		case "json":
			fj := parsedFileJSON{Path: path, Cases: []parsedCaseJSON{}}
			if bag.Len() > 0 {
				fj.Diagnostics = diagfmt.BuildDiagnosticsOutput(bag, fileSet, diagfmt.JSONOpts{
					IncludePositions: true,
					PathMode:         pathMode,
					IncludeNotes:     withNotes,
				}).Diagnostics
			}
			if fc != nil {
				for i := range fc.Cases {
					tc := &fc.Cases[i]
					fj.Cases = append(fj.Cases, parsedCaseJSON{
						Name:         tc.Name,
						Active:       tc.Active,
						Expectations: len(tc.ActiveExpectations()),
						Includes:     len(tc.Refs),
					})
				}
			}
			jsonOut = append(jsonOut, fj)
		}
	}

	if format == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(jsonOut); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}
	}

	if exit != 0 {
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("") // diagnostics already printed
	}
	return nil
}
