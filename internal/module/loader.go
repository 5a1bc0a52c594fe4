package module

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/lexer"
	"github.com/pbedn/pbc/internal/parser"
	"github.com/pbedn/pbc/internal/token"
	"github.com/pbedn/pbc/internal/types"
)

const phase = "loader"

// Loader resolves imports to absolute paths, loads and type-checks each
// module exactly once per invocation, and caches the resulting Symbols
// (spec.md §4.4). It mirrors the teacher compiler's cache+RWMutex+
// load-stack shape in internal/module.Loader, generalized to PB's
// search-path/vendor-metadata rules.
type Loader struct {
	mu    sync.RWMutex
	cache map[string]*Symbol
	order []string // dotted module names in the order loadFile first cached them

	stdlibRoot string
	vendorRoot string
	extraPaths []string // project-level search paths (pbc.yaml search_paths)
	verbose    func(format string, args ...any)
}

// New creates a Loader rooted at stdlibRoot and vendorRoot (spec.md §4.4's
// "standard library root" and "vendor root"). Any extraPaths are searched
// after the two roots, before a module's own directory.
func New(stdlibRoot, vendorRoot string, extraPaths ...string) *Loader {
	return &Loader{
		cache:      make(map[string]*Symbol),
		stdlibRoot: stdlibRoot,
		vendorRoot: vendorRoot,
		extraPaths: extraPaths,
		verbose:    func(string, ...any) {},
	}
}

// SetVerbose installs a logging callback invoked as the loader resolves and
// loads each module; the CLI wires this to logrus.
func (l *Loader) SetVerbose(f func(format string, args ...any)) {
	if f != nil {
		l.verbose = f
	}
}

func (l *Loader) baseSearchPaths() []string {
	return append([]string{l.stdlibRoot, l.vendorRoot}, l.extraPaths...)
}

func dedup(paths []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range paths {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// LoadEntry loads the program at entryPath as the root module (the file
// named directly on the command line, not reached via import).
func (l *Loader) LoadEntry(entryPath string) (*Symbol, error) {
	absPath, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(absPath), ".pb")

	l.mu.Lock()
	if sym, ok := l.cache[name]; ok {
		l.mu.Unlock()
		return sym, nil
	}
	l.cache[name] = newStub(name)
	l.mu.Unlock()

	searchPaths := dedup(append(l.baseSearchPaths(), filepath.Dir(absPath)))
	sym, err := l.loadFile([]string{name}, absPath, searchPaths)
	if err != nil {
		l.mu.Lock()
		delete(l.cache, name)
		l.mu.Unlock()
		return nil, err
	}
	return sym, nil
}

// newStub is the in-progress placeholder inserted into the cache before a
// module's own load completes; a re-entrant load of the same module gets it
// back immediately, which is what breaks import cycles.
func newStub(key string) *Symbol {
	return &Symbol{
		Name:       key,
		inProgress: true,
		Exports:    map[string]string{},
		Functions:  map[string]*types.FuncInfo{},
		Classes:    map[string]*types.ClassInfo{},
		Vars:       map[string]string{},
	}
}

// Load resolves and loads the module named by segments (e.g. ["std","math"]
// for `import std.math`), searching searchPaths in order.
func (l *Loader) Load(segments []string, searchPaths []string) (*Symbol, error) {
	key := strings.Join(segments, ".")

	l.mu.Lock()
	if sym, ok := l.cache[key]; ok {
		l.mu.Unlock()
		return sym, nil
	}
	l.cache[key] = newStub(key)
	l.mu.Unlock()

	filePath, err := l.resolvePath(segments, searchPaths)
	if err != nil {
		l.mu.Lock()
		delete(l.cache, key)
		l.mu.Unlock()
		return nil, err
	}

	childSearchPaths := dedup(append(l.baseSearchPaths(), append([]string{filepath.Dir(filePath)}, searchPaths...)...))
	sym, err := l.loadFile(segments, filePath, childSearchPaths)
	if err != nil {
		l.mu.Lock()
		delete(l.cache, key)
		l.mu.Unlock()
		return nil, err
	}
	return sym, nil
}

// loadFile parses, type-checks (recursively resolving this module's own
// imports first, which is what breaks cycles via the in-progress stub
// above), and caches filePath as the module named by segments.
func (l *Loader) loadFile(segments []string, filePath string, searchPaths []string) (*Symbol, error) {
	key := strings.Join(segments, ".")
	l.verbose("loader: resolving %s -> %s", key, filePath)

	src, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errorsx.New(phase, errorsx.LDR001, "cannot read module file: "+err.Error(), token.Pos{File: filePath})
	}
	toks, err := lexer.New(string(src), filePath).Tokenize()
	if err != nil {
		return nil, err
	}
	prog, err := parser.Parse(toks, filePath)
	if err != nil {
		return nil, err
	}
	prog.ModuleName = key

	checker := types.NewChecker(filePath)
	imports, err := l.registerImports(checker, prog, searchPaths)
	if err != nil {
		return nil, err
	}
	if err := checker.Check(prog); err != nil {
		return nil, err
	}

	sym, err := l.buildSymbol(key, filePath, prog, checker)
	if err != nil {
		return nil, err
	}
	sym.Imports = imports

	l.mu.Lock()
	l.cache[key] = sym
	l.order = append(l.order, key)
	l.mu.Unlock()
	return sym, nil
}

// Modules returns every module this Loader has successfully loaded, in the
// order loadFile first resolved them: since registerImports always loads a
// module's dependencies before its own loadFile call returns, this is a
// valid link order (each entry's dependencies already precede it).
func (l *Loader) Modules() []*Symbol {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Symbol, 0, len(l.order))
	for _, key := range l.order {
		if sym, ok := l.cache[key]; ok {
			out = append(out, sym)
		}
	}
	return out
}

// registerImports walks prog's top-level ImportStmt/ImportFromStmt nodes,
// recursively loading each referenced module, binding it into checker per
// spec.md §4.3's cross-module resolution rules, and recording the same
// resolution as a []ResolvedImport for internal/codegen to consume later.
func (l *Loader) registerImports(checker *types.Checker, prog *ast.Program, searchPaths []string) ([]ResolvedImport, error) {
	var imports []ResolvedImport
	for _, stmt := range prog.Body {
		switch s := stmt.(type) {
		case *ast.ImportStmt:
			alias := s.Alias
			if alias == "" {
				alias = s.Module[len(s.Module)-1]
			}
			sym, err := l.Load(s.Module, searchPaths)
			if err != nil {
				return nil, err
			}
			checker.BindModule(alias, sym.AsImportedModule())
			imports = append(imports, ResolvedImport{
				ModuleDotted: s.Module, Alias: alias, IsModuleAlias: true, Native: sym.NativeBinding,
				Headers: vendorHeaders(sym),
			})
		case *ast.ImportFromStmt:
			if s.IsWildcard {
				sym, err := l.Load(s.Module, searchPaths)
				if err != nil {
					return nil, err
				}
				for name, kind := range sym.Exports {
					switch kind {
					case "function":
						checker.BindImportedFunc(name, sym.Functions[name])
					case "class":
						checker.BindImportedClass(name, sym.Classes[name])
					default:
						checker.BindImportedVar(name, kind)
					}
					imports = append(imports, ResolvedImport{
						ModuleDotted: s.Module, Alias: name, OriginalName: name, Kind: kind, Native: sym.NativeBinding,
						Headers: vendorHeaders(sym),
					})
				}
				continue
			}
			var parentSym *Symbol
			for _, n := range s.Names {
				asname := n.AsName
				if asname == "" {
					asname = n.Name
				}
				subModule := append(append([]string{}, s.Module...), n.Name)
				subSym, err := l.Load(subModule, searchPaths)
				if err == nil {
					checker.BindModule(asname, subSym.AsImportedModule())
					imports = append(imports, ResolvedImport{
						ModuleDotted: subModule, Alias: asname, IsModuleAlias: true, Native: subSym.NativeBinding,
						Headers: vendorHeaders(subSym),
					})
					continue
				}
				// Fall back to a parent export only when the name resolved to
				// no submodule at all; a submodule that exists but fails to
				// compile must surface its own error.
				if rep, ok := errorsx.AsReport(err); !ok || rep.Code != errorsx.LDR001 {
					return nil, err
				}
				if parentSym == nil {
					parentSym, err = l.Load(s.Module, searchPaths)
					if err != nil {
						return nil, err
					}
				}
				kind, ok := parentSym.Exports[n.Name]
				if !ok {
					return nil, errorsx.New(phase, errorsx.LDR002,
						fmt.Sprintf("module %q has no export %q", strings.Join(s.Module, "."), n.Name), s.Pos)
				}
				switch kind {
				case "function":
					checker.BindImportedFunc(asname, parentSym.Functions[n.Name])
				case "class":
					checker.BindImportedClass(asname, parentSym.Classes[n.Name])
				default:
					checker.BindImportedVar(asname, kind)
				}
				imports = append(imports, ResolvedImport{
					ModuleDotted: s.Module, Alias: asname, OriginalName: n.Name, Kind: kind, Native: parentSym.NativeBinding,
					Headers: vendorHeaders(parentSym),
				})
			}
		}
	}
	return imports, nil
}

// vendorHeaders returns the extra #include list of a native vendor module,
// or nil for an ordinary module.
func vendorHeaders(sym *Symbol) []string {
	if sym.Vendor == nil {
		return nil
	}
	return sym.Vendor.Headers
}

func (l *Loader) buildSymbol(name, filePath string, prog *ast.Program, checker *types.Checker) (*Symbol, error) {
	functions, classes, vars := checker.Exports()
	exports := map[string]string{}
	for _, stmt := range prog.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDef:
			exports[s.Name] = "function"
		case *ast.ClassDef:
			exports[s.Name] = "class"
		case *ast.VarDecl:
			exports[s.Name] = s.DeclaredType.String()
		}
	}

	sym := &Symbol{
		Name:      name,
		Path:      filePath,
		Program:   prog,
		Exports:   exports,
		Functions: functions,
		Classes:   classes,
		Vars:      vars,
	}

	if l.underVendorRoot(filePath) {
		meta, err := loadVendorMetadata(filePath)
		if err != nil {
			return nil, err
		}
		if meta != nil {
			sym.Vendor = meta
			sym.NativeBinding = meta.Native
		}
	}
	return sym, nil
}

// underVendorRoot reports whether filePath sits below the vendor root,
// comparing absolute forms so a relative --vendor flag still matches the
// absolute paths resolvePath produces.
func (l *Loader) underVendorRoot(filePath string) bool {
	if l.vendorRoot == "" {
		return false
	}
	root, err := filepath.Abs(l.vendorRoot)
	if err != nil {
		root = l.vendorRoot
	}
	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	return strings.HasPrefix(abs, root+string(filepath.Separator))
}

// resolvePath tries "a/b/z.pb" then "a/b/z/z.pb" in each search path in
// order, per spec.md §4.4's resolution rule.
func (l *Loader) resolvePath(segments []string, searchPaths []string) (string, error) {
	rel1 := filepath.Join(segments...) + ".pb"
	rel2 := filepath.Join(append(append([]string{}, segments...), segments[len(segments)-1])...) + ".pb"

	var tried []string
	for _, base := range searchPaths {
		c1 := filepath.Join(base, rel1)
		if fileExists(c1) {
			return c1, nil
		}
		tried = append(tried, c1)
		c2 := filepath.Join(base, rel2)
		if fileExists(c2) {
			return c2, nil
		}
		tried = append(tried, c2)
	}
	return "", errorsx.NewWithData(phase, errorsx.LDR001,
		fmt.Sprintf("module %q not found", strings.Join(segments, ".")),
		token.Pos{}, map[string]any{"tried": tried})
}
