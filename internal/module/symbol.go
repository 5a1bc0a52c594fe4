// Package module implements import resolution, the load cache, and vendor
// metadata handling described in spec.md §4.4.
package module

import (
	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/types"
)

// Symbol is the loader's cached record of one loaded module: its AST, public
// surface, and any vendor-supplied build metadata (spec.md's ModuleSymbol).
type Symbol struct {
	Name     string // dotted name, e.g. "std.math"
	Path     string
	Program  *ast.Program

	// Exports maps a top-level name to its kind tag: "function", "class", or
	// a type string for a VarDecl.
	Exports map[string]string

	Functions map[string]*types.FuncInfo
	Classes   map[string]*types.ClassInfo
	Vars      map[string]string

	// Imports is this module's own top-level import bindings, resolved to
	// the same submodule-first-then-export-fallback rule registerImports
	// applies when binding them into the checker. internal/pipeline feeds
	// this straight to internal/codegen.Generate, so the resolution that
	// decides a `from x import y` is a submodule vs. a direct binding lives
	// in exactly one place.
	Imports []ResolvedImport

	// NativeBinding is true when this module is a hand-written C binding:
	// codegen is skipped but its exports are taken on faith.
	NativeBinding bool
	Vendor        *VendorMetadata

	inProgress bool
}

// ResolvedImport mirrors internal/codegen.Import field-for-field; it exists
// so internal/module need not import internal/codegen just to describe one
// of its own module's import bindings.
type ResolvedImport struct {
	ModuleDotted  []string
	Alias         string
	IsModuleAlias bool
	OriginalName  string
	Kind          string
	Native        bool
	// Headers is the vendor metadata's extra #include list for a native
	// module; the generator emits these in place of a generated header.
	Headers []string
}

// IsInProgress reports whether this Symbol is still the in-progress stub
// inserted to break an import cycle; such a stub carries no exports at all
// until the module's own load finishes.
func (s *Symbol) IsInProgress() bool { return s.inProgress }

// AsImportedModule adapts a Symbol to the subset of information
// internal/types.Checker needs for cross-module resolution.
func (s *Symbol) AsImportedModule() *types.ImportedModule {
	return &types.ImportedModule{
		Name:      s.Name,
		Exports:   s.Exports,
		Functions: s.Functions,
		Classes:   s.Classes,
		Vars:      s.Vars,
	}
}
