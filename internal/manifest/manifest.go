// Package manifest loads the optional pbc.yaml project configuration, yaml
// tagged the way internal/eval_harness/spec.go tags BenchmarkSpec in the
// teacher repo. Every field has a built-in default so `pbc build main.pb`
// works with zero configuration.
package manifest

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed shape of pbc.yaml.
type Manifest struct {
	Root        string   `yaml:"root"`
	StdlibDir   string   `yaml:"stdlib_dir"`
	VendorDir   string   `yaml:"vendor_dir"`
	SearchPaths []string `yaml:"search_paths"`
	BuildDir    string   `yaml:"build_dir"`
	CC          string   `yaml:"cc"`
	CFlags      []string `yaml:"cflags"`
}

// Default returns the built-in configuration pbc falls back to when no
// pbc.yaml is present, or when a loaded manifest leaves a field unset.
func Default() Manifest {
	return Manifest{
		Root:      "main.pb",
		StdlibDir: "stdlib",
		VendorDir: "vendor",
		BuildDir:  "build",
		CC:        "gcc",
		CFlags:    []string{"-std=c99", "-W"},
	}
}

// Load reads pbc.yaml at path and overlays it onto Default(), field by
// field, so an omitted key keeps its default instead of zeroing out.
// Returns Default() unchanged, not an error, when path does not exist.
func Load(path string) (Manifest, error) {
	m := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, err
	}

	var overlay Manifest
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return m, err
	}

	if overlay.Root != "" {
		m.Root = overlay.Root
	}
	if overlay.StdlibDir != "" {
		m.StdlibDir = overlay.StdlibDir
	}
	if overlay.VendorDir != "" {
		m.VendorDir = overlay.VendorDir
	}
	if len(overlay.SearchPaths) > 0 {
		m.SearchPaths = overlay.SearchPaths
	}
	if overlay.BuildDir != "" {
		m.BuildDir = overlay.BuildDir
	}
	if overlay.CC != "" {
		m.CC = overlay.CC
	}
	if len(overlay.CFlags) > 0 {
		m.CFlags = overlay.CFlags
	}
	return m, nil
}
