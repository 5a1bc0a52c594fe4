package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	m, err := Load(filepath.Join(t.TempDir(), "pbc.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), m); diff != "" {
		t.Errorf("manifest mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadOverlaysOntoDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pbc.yaml")
	content := `root: app.pb
build_dir: out
cc: clang
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Root != "app.pb" {
		t.Errorf("expected root override 'app.pb', got %q", m.Root)
	}
	if m.BuildDir != "out" {
		t.Errorf("expected build_dir override 'out', got %q", m.BuildDir)
	}
	if m.CC != "clang" {
		t.Errorf("expected cc override 'clang', got %q", m.CC)
	}
	// Unset fields keep their defaults rather than zeroing out.
	if m.StdlibDir != "stdlib" {
		t.Errorf("expected stdlib_dir to keep default 'stdlib', got %q", m.StdlibDir)
	}
	if len(m.CFlags) != 2 || m.CFlags[0] != "-std=c99" {
		t.Errorf("expected cflags to keep default, got %+v", m.CFlags)
	}
}

func TestLoadFullOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "pbc.yaml")
	content := `root: src/main.pb
stdlib_dir: lib/std
vendor_dir: lib/vendor
search_paths: ["lib/extra"]
build_dir: dist
cc: tcc
cflags: ["-std=c11"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(m.SearchPaths) != 1 || m.SearchPaths[0] != "lib/extra" {
		t.Errorf("expected search_paths override, got %+v", m.SearchPaths)
	}
	if len(m.CFlags) != 1 || m.CFlags[0] != "-std=c11" {
		t.Errorf("expected cflags override, got %+v", m.CFlags)
	}
}
