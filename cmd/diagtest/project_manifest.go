package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type projectManifest struct {
	Path   string
	Root   string
	Config projectConfig
}

type projectConfig struct {
	Package   packageConfig       `toml:"package"`
	Defaults  map[string]string   `toml:"defaults"`
	Compilers map[string][]string `toml:"compilers"`
}

type packageConfig struct {
	Name string `toml:"name"`
}

// findDiagtestToml searches startDir and its parents for diagtest.toml.
func findDiagtestToml(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, "diagtest.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// loadProjectManifest loads the nearest diagtest.toml, if any.
// Suites are expected to work without a manifest at all.
func loadProjectManifest(startDir string) (*projectManifest, bool, error) {
	manifestPath, ok, err := findDiagtestToml(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := loadProjectConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &projectManifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

func loadProjectConfig(path string) (projectConfig, error) {
	var cfg projectConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return projectConfig{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if meta.IsDefined("package") {
		if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
			return projectConfig{}, fmt.Errorf("%s: missing [package].name", path)
		}
	}
	return cfg, nil
}

// defaultsOverrides reads the files referenced by the [defaults] table
// and returns tag -> preamble text. Relative paths resolve against the
// manifest root.
func (m *projectManifest) defaultsOverrides() (map[string]string, error) {
	if m == nil || len(m.Config.Defaults) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(m.Config.Defaults))
	for tag, rel := range m.Config.Defaults {
		path := rel
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.Root, filepath.FromSlash(rel))
		}
		// #nosec G304 -- path comes from the user's own manifest
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%s: [defaults].%s: %w", m.Path, tag, err)
		}
		out[tag] = string(content)
	}
	return out, nil
}

// extraCompilers returns the [compilers] table, family name -> paths.
func (m *projectManifest) extraCompilers() map[string][]string {
	if m == nil {
		return nil
	}
	return m.Config.Compilers
}
