package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"diagtest/internal/toolchain"
)

var discoverCmd = &cobra.Command{
	Use:   "discover [flags]",
	Short: "List the compiler configurations available on this host",
	Long:  `Discover scans PATH (plus any executables pinned in diagtest.toml) for known compiler binaries, probes each one for its version and target, and lists every (compiler, language standard) configuration a run would use`,
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	discoverCmd.Flags().Bool("no-cache", false, "disable the compiler probe cache")
	discoverCmd.Flags().Bool("clear-cache", false, "drop cached probe results before discovering")
}

type descriptorJSON struct {
	Family     string `json:"family"`
	Version    string `json:"version"`
	Standard   string `json:"standard"`
	Target     string `json:"target,omitempty"`
	Executable string `json:"executable"`
}

func runDiscover(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	clearCache, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return fmt.Errorf("failed to get clear-cache flag: %w", err)
	}
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unknown format: %s", format)
	}
	colorOn, err := useColor(cmd)
	if err != nil {
		return err
	}

	if clearCache {
		if cache, err := toolchain.OpenProbeCache("diagtest"); err == nil {
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("failed to clear probe cache: %w", err)
			}
		}
	}

	manifest, _, err := loadProjectManifest(".")
	if err != nil {
		return err
	}
	descs, err := discoverToolchains(cmd, manifest, noCache)
	if err != nil {
		return err
	}

	if format == "json" {
		out := make([]descriptorJSON, len(descs))
		for i, d := range descs {
			out[i] = descriptorJSON{
				Family:     d.Family.String(),
				Version:    d.Version,
				Standard:   d.Standard,
				Target:     d.Target,
				Executable: d.Executable,
			}
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	if len(descs) == 0 {
		fmt.Fprintln(os.Stdout, "no known compilers found on PATH")
		return nil
	}

	familyStyle := color.New(color.FgCyan, color.Bold)
	if !colorOn {
		familyStyle.DisableColor()
	}
	lastExe := ""
	for _, d := range descs {
		if d.Executable != lastExe {
			lastExe = d.Executable
			fmt.Fprintf(os.Stdout, "%s %s (%s)\n  %s\n",
				familyStyle.Sprint(d.Family), d.Version, d.Target, d.Executable)
		}
		fmt.Fprintf(os.Stdout, "    %s\n", d.Standard)
	}
	return nil
}
