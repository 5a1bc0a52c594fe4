package module

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/token"
)

// VendorMetadata is the sibling metadata.toml/metadata.json of a vendor
// module, per spec.md §4.4. Paths are resolved to absolute paths relative to
// the metadata file before being surfaced to the rest of the compiler.
type VendorMetadata struct {
	IncludeDirs []string `toml:"include_dirs" json:"include_dirs"`
	LibDirs     []string `toml:"lib_dirs" json:"lib_dirs"`
	LinkFlags   []string `toml:"link_flags" json:"link_flags"`
	Headers     []string `toml:"headers" json:"headers"`
	Native      bool     `toml:"native" json:"native"`
}

// loadVendorMetadata looks for metadata.toml then metadata.json next to
// modulePath and, if found, resolves its path-valued fields to absolute
// paths. Returns (nil, nil) if neither file exists.
func loadVendorMetadata(modulePath string) (*VendorMetadata, error) {
	dir := filepath.Dir(modulePath)
	tomlPath := filepath.Join(dir, "metadata.toml")
	jsonPath := filepath.Join(dir, "metadata.json")

	var meta VendorMetadata
	switch {
	case fileExists(tomlPath):
		if _, err := toml.DecodeFile(tomlPath, &meta); err != nil {
			return nil, errorsx.New("loader", errorsx.LDR003, "malformed vendor metadata: "+err.Error(), posForFile(tomlPath))
		}
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return nil, errorsx.New("loader", errorsx.LDR003, "malformed vendor metadata: "+err.Error(), posForFile(jsonPath))
		}
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, errorsx.New("loader", errorsx.LDR003, "malformed vendor metadata: "+err.Error(), posForFile(jsonPath))
		}
	default:
		return nil, nil
	}

	resolve := func(paths []string) []string {
		out := make([]string, len(paths))
		for i, p := range paths {
			if filepath.IsAbs(p) {
				out[i] = p
			} else {
				out[i] = filepath.Clean(filepath.Join(dir, p))
			}
		}
		return out
	}
	meta.IncludeDirs = resolve(meta.IncludeDirs)
	meta.LibDirs = resolve(meta.LibDirs)
	return &meta, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func posForFile(path string) token.Pos {
	return token.Pos{File: path}
}
