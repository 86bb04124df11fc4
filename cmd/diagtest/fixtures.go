package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var fixtureExtensions = map[string]bool{
	".c":   true,
	".cc":  true,
	".cpp": true,
	".cxx": true,
}

// collectFixtures expands the argument list into a sorted, deduplicated
// list of fixture files. Directories are walked recursively; explicit
// file arguments are taken as-is regardless of extension.
func collectFixtures(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]struct{})

	add := func(path string) {
		path = filepath.Clean(path)
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat path: %w", err)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		found, err := listFixtureFiles(arg)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	sort.Strings(files)
	return files, nil
}

func listFixtureFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			// skip hidden directories and common build folders
			if len(name) > 1 && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if name == "target" || name == "build" || name == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		if fixtureExtensions[filepath.Ext(path)] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
