// Package pipeline is the orchestration driver: lex -> parse -> load ->
// check -> generate, then the external gcc invocation that links the
// generated translation units into an executable. It mirrors the Python
// original's compile_code_to_c_and_h / pyc.py build+run chain, generalized
// from one source file to the module graph internal/module resolves.
package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pbedn/pbc/internal/codegen"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/module"
)

// CompileResult is one module's codegen output. A native vendor binding has
// no HeaderPath/CPath: nothing was generated for it, so Link skips it as a
// compile input but still applies its Vendor metadata.
type CompileResult struct {
	ModuleName string
	HeaderPath string
	CPath      string
	Native     bool
	Vendor     *module.VendorMetadata
}

// Pipeline holds everything one compiler invocation needs: where modules
// resolve from, where generated output goes, and how to invoke the external
// C compiler.
type Pipeline struct {
	Loader     *module.Loader
	RuntimeDir string // directory holding pb_runtime.h (and pb_runtime.c/.a, if present)
	BuildDir   string
	CC         string
	CFlags     []string
	Log        *logrus.Logger
}

// New builds a Pipeline rooted at stdlibRoot/vendorRoot (plus any extra
// project search paths), writing generated output under buildDir and
// invoking cc with cflags to link. The Loader's own verbose callback is
// wired to the pipeline's logger at Debug level, so -v surfaces per-module
// resolution the same way it surfaces phase timing.
func New(stdlibRoot, vendorRoot, runtimeDir, buildDir, cc string, cflags []string, searchPaths ...string) *Pipeline {
	loader := module.New(stdlibRoot, vendorRoot, searchPaths...)
	p := &Pipeline{
		Loader:     loader,
		RuntimeDir: runtimeDir,
		BuildDir:   buildDir,
		CC:         cc,
		CFlags:     cflags,
		Log:        logrus.New(),
	}
	p.Log.SetLevel(logrus.InfoLevel)
	loader.SetVerbose(func(format string, args ...any) { p.Log.Debugf(format, args...) })
	return p
}

// SetVerbose raises the pipeline's own log level to Debug, matching cmd/pbc's
// -v/--verbose flag.
func (p *Pipeline) SetVerbose(v bool) {
	if v {
		p.Log.SetLevel(logrus.DebugLevel)
	} else {
		p.Log.SetLevel(logrus.InfoLevel)
	}
}

// Compile is the `toc` command: load the entry module and every module it
// transitively imports, type-check each, and generate its .h/.c pair under
// BuildDir. Results are returned in link order (a module's dependencies
// precede it), matching internal/module.Loader.Modules' guarantee.
func (p *Pipeline) Compile(entryPath string) ([]CompileResult, error) {
	start := time.Now()
	p.Log.Debugf("pipeline: loading %s", entryPath)

	if _, err := p.Loader.LoadEntry(entryPath); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(p.BuildDir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	var results []CompileResult
	for _, sym := range p.Loader.Modules() {
		res := CompileResult{ModuleName: sym.Name, Native: sym.NativeBinding, Vendor: sym.Vendor}
		if sym.NativeBinding {
			p.Log.Debugf("pipeline: %s is a native vendor binding, skipping codegen", sym.Name)
			results = append(results, res)
			continue
		}

		header, body, err := codegen.New(sym.Name).Generate(sym.Program, convertImports(sym.Imports))
		if err != nil {
			return nil, err
		}

		headerPath := filepath.Join(p.BuildDir, codegen.HeaderFileName(sym.Name))
		cPath := filepath.Join(p.BuildDir, codegen.CFileName(sym.Name))
		if err := os.MkdirAll(filepath.Dir(headerPath), 0o755); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if err := os.WriteFile(headerPath, []byte(header), 0o644); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		if err := os.WriteFile(cPath, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("pipeline: %w", err)
		}
		p.Log.Debugf("pipeline: generated %s -> %s", sym.Name, cPath)

		res.HeaderPath = headerPath
		res.CPath = cPath
		results = append(results, res)
	}

	p.Log.Infof("compiled %d modules in %s", len(results), time.Since(start))
	return results, nil
}

// VendorBuildInfo aggregates everything the external linker needs from
// every vendor module in a compilation: -I directories, -L directories,
// raw link flags, and extra headers the generated code must be compiled
// against.
type VendorBuildInfo struct {
	IncludeDirs []string
	LibDirs     []string
	LinkFlags   []string
	Headers     []string
}

// CollectVendorBuildInfo folds the vendor metadata of every compiled module
// into one VendorBuildInfo, preserving link order and dropping duplicates.
func CollectVendorBuildInfo(results []CompileResult) VendorBuildInfo {
	var info VendorBuildInfo
	for _, r := range results {
		if r.Vendor == nil {
			continue
		}
		info.IncludeDirs = appendUnique(info.IncludeDirs, r.Vendor.IncludeDirs)
		info.LibDirs = appendUnique(info.LibDirs, r.Vendor.LibDirs)
		info.LinkFlags = appendUnique(info.LinkFlags, r.Vendor.LinkFlags)
		info.Headers = appendUnique(info.Headers, r.Vendor.Headers)
	}
	return info
}

// Link shells out to `<cc> <cflags> <generated .c files> [pb_runtime.c]
// <vendor link flags> -o exePath`, the external-compiler step spec.md §1
// keeps out of this compiler's own responsibility. Native vendor modules
// contribute their -I/-L/link flags but no compile input of their own.
func (p *Pipeline) Link(results []CompileResult, exePath string) error {
	args := append([]string{}, p.CFlags...)
	if p.RuntimeDir != "" {
		args = append(args, "-I"+p.RuntimeDir)
	}
	for _, r := range results {
		if r.CPath != "" {
			args = append(args, r.CPath)
		}
	}
	if runtimeC := filepath.Join(p.RuntimeDir, "pb_runtime.c"); fileExists(runtimeC) {
		args = append(args, runtimeC)
	}
	vendor := CollectVendorBuildInfo(results)
	for _, inc := range vendor.IncludeDirs {
		args = append(args, "-I"+inc)
	}
	for _, lib := range vendor.LibDirs {
		args = append(args, "-L"+lib)
	}
	args = append(args, vendor.LinkFlags...)
	args = append(args, "-o", exePath)

	p.Log.Debugf("pipeline: %s %s", p.CC, strings.Join(args, " "))
	cmd := exec.Command(p.CC, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return errorsx.NewNoPos("pipeline", errorsx.RUNTIME, "link failed: "+err.Error())
	}
	return nil
}

// Build is Compile followed by Link; it is the `build` command.
func (p *Pipeline) Build(entryPath, exePath string) ([]CompileResult, error) {
	results, err := p.Compile(entryPath)
	if err != nil {
		return nil, err
	}
	if err := p.Link(results, exePath); err != nil {
		return results, err
	}
	return results, nil
}

// Run is Build followed by executing the produced binary with its stdio
// streamed through to this process, per the original's pyc.py run(). The
// returned int is the child's exit code (0 on success), valid even when err
// is nil; err is non-nil only for a failure before or other than the child
// exiting with a non-zero status.
func (p *Pipeline) Run(entryPath, exePath string, args []string) (int, error) {
	if _, err := p.Build(entryPath, exePath); err != nil {
		return 1, err
	}

	absExe := exePath
	if !filepath.IsAbs(absExe) {
		if wd, err := os.Getwd(); err == nil {
			absExe = filepath.Join(wd, exePath)
		}
	}
	cmd := exec.Command(absExe, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return 1, err
	}
	return 0, nil
}

func convertImports(in []module.ResolvedImport) []codegen.Import {
	out := make([]codegen.Import, len(in))
	for i, im := range in {
		out[i] = codegen.Import{
			ModuleDotted:  im.ModuleDotted,
			Alias:         im.Alias,
			IsModuleAlias: im.IsModuleAlias,
			OriginalName:  im.OriginalName,
			Kind:          im.Kind,
			Native:        im.Native,
			Headers:       im.Headers,
		}
	}
	return out
}

func appendUnique(dst []string, values []string) []string {
	for _, v := range values {
		dup := false
		for _, have := range dst {
			if have == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
