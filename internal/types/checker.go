package types

import (
	"fmt"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/token"
)

const phase = "typecheck"

// ImportedModule is the subset of a loaded module's public surface the
// checker needs for cross-module resolution (spec.md §4.3 "Cross-module
// resolution"). internal/module builds one of these from its ModuleSymbol
// before handing it to the checker, so this package never imports the
// loader — the dependency runs one way.
type ImportedModule struct {
	Name      string
	Exports   map[string]string // name -> "function" | "class" | type string
	Functions map[string]*FuncInfo
	Classes   map[string]*ClassInfo
	Vars      map[string]string
}

// Checker implements the two-pass nominal type checker of spec.md §4.3.
type Checker struct {
	file string

	classes   map[string]*ClassInfo
	functions map[string]*FuncInfo
	globals   *Env

	modules       map[string]*ImportedModule // import alias -> module
	importedFuncs map[string]*FuncInfo       // from-import: name -> signature
	importedVars  map[string]string          // from-import: name -> type
	importedCls   map[string]*ClassInfo      // from-import: name -> class

	currentReturnType string
	loopDepth         int
}

// NewChecker creates a Checker with empty module-level tables. Built-in
// calls (print, range, len, int, float, bool, str, open) are resolved by
// name in checkCallByName, not stored in these tables.
func NewChecker(file string) *Checker {
	c := &Checker{
		file:          file,
		classes:       map[string]*ClassInfo{},
		functions:     map[string]*FuncInfo{},
		globals:       NewEnv(nil),
		modules:       map[string]*ImportedModule{},
		importedFuncs: map[string]*FuncInfo{},
		importedVars:  map[string]string{},
		importedCls:   map[string]*ClassInfo{},
	}
	return c
}

// BindModule registers an imported module under the given alias, for
// `import a.b.c (as alias)` and AttributeExpr-on-module-alias resolution.
func (c *Checker) BindModule(alias string, mod *ImportedModule) {
	c.modules[alias] = mod
}

// BindImportedFunc registers a name pulled in by `from m import name`.
func (c *Checker) BindImportedFunc(name string, fn *FuncInfo) {
	c.importedFuncs[name] = fn
}

// BindImportedVar registers a re-exported non-function name pulled in by a
// from-import.
func (c *Checker) BindImportedVar(name, typ string) {
	c.importedVars[name] = typ
}

// BindImportedClass registers a class pulled in by `from m import ClassName`.
func (c *Checker) BindImportedClass(name string, cls *ClassInfo) {
	c.importedCls[name] = cls
}

func (c *Checker) errAt(code, msg string, pos token.Pos) error {
	return errorsx.New(phase, code, msg, pos)
}

// Check runs both passes over prog and returns the first error encountered.
func (c *Checker) Check(prog *ast.Program) error {
	if err := c.registerTopLevel(prog); err != nil {
		return err
	}
	for _, stmt := range prog.Body {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Exports returns the public-surface maps built during registration, for
// the loader to attach to the module's ModuleSymbol once checking succeeds.
func (c *Checker) Exports() (functions map[string]*FuncInfo, classes map[string]*ClassInfo, vars map[string]string) {
	return c.functions, c.classes, c.globalsSnapshot()
}

func (c *Checker) globalsSnapshot() map[string]string {
	out := make(map[string]string, len(c.globals.vars))
	for k, v := range c.globals.vars {
		out[k] = v
	}
	return out
}

// registerTopLevel is pass 1: register every top-level FunctionDef, ClassDef,
// and VarDecl's declared type into the module environment.
func (c *Checker) registerTopLevel(prog *ast.Program) error {
	for _, stmt := range prog.Body {
		switch s := stmt.(type) {
		case *ast.FunctionDef:
			if _, exists := c.functions[s.Name]; exists {
				return c.errAt(errorsx.TC015, "duplicate top-level declaration: "+s.Name, s.Pos)
			}
			c.functions[s.Name] = funcInfoFromDef(s)
		case *ast.ClassDef:
			if _, exists := c.classes[s.Name]; exists {
				return c.errAt(errorsx.TC015, "duplicate top-level declaration: "+s.Name, s.Pos)
			}
			info, err := c.classInfoFromDef(s)
			if err != nil {
				return err
			}
			c.classes[s.Name] = info
		case *ast.VarDecl:
			if _, exists := c.globals.vars[s.Name]; exists {
				return c.errAt(errorsx.TC015, "duplicate top-level declaration: "+s.Name, s.Pos)
			}
			c.globals.Define(s.Name, s.DeclaredType.String())
		}
	}
	// Validate base classes resolve after every class is registered.
	for _, cls := range c.classes {
		if cls.Base == "" {
			continue
		}
		if _, ok := c.classes[cls.Base]; !ok {
			if _, ok := c.importedCls[cls.Base]; !ok {
				return c.errAt(errorsx.TC014, "unknown base class: "+cls.Base, token.Pos{File: c.file})
			}
		}
	}
	return nil
}

func funcInfoFromDef(f *ast.FunctionDef) *FuncInfo {
	info := &FuncInfo{Name: f.Name, ReturnType: TNone}
	if f.ReturnType.Name != "" {
		info.ReturnType = f.ReturnType.String()
	}
	for _, p := range f.Params {
		info.ParamNames = append(info.ParamNames, p.Name)
		info.ParamTypes = append(info.ParamTypes, p.Type.String())
		info.HasDefault = append(info.HasDefault, p.Default != nil)
	}
	return info
}

func (c *Checker) classInfoFromDef(cd *ast.ClassDef) (*ClassInfo, error) {
	info := &ClassInfo{
		Name:    cd.Name,
		Base:    cd.Base,
		Fields:  map[string]string{},
		Methods: map[string]*FuncInfo{},
	}
	for _, f := range cd.Fields {
		if _, exists := info.Fields[f.Name]; exists {
			return nil, c.errAt(errorsx.TC015, "duplicate field: "+f.Name, f.Pos)
		}
		info.Fields[f.Name] = f.DeclaredType.String()
		info.Order = append(info.Order, f.Name)
	}
	for _, m := range cd.Methods {
		fi := funcInfoFromDef(m)
		// The implicit self parameter carries the receiver class's type, so
		// an unbound delegation call like Base.__init__(self) checks the
		// explicit self argument against the class it belongs to.
		if len(fi.ParamTypes) > 0 {
			fi.ParamTypes[0] = cd.Name
		}
		info.Methods[m.Name] = fi
	}
	return info, nil
}

// lookupClass resolves a class name across local and imported classes.
func (c *Checker) lookupClass(name string) (*ClassInfo, bool) {
	if cls, ok := c.classes[name]; ok {
		return cls, true
	}
	cls, ok := c.importedCls[name]
	return cls, ok
}

// isSubclassOf reports whether name is cls or a (possibly transitive)
// subclass of cls, per spec.md §4.3's single-inheritance assignability rule.
func (c *Checker) isSubclassOf(name, base string) bool {
	for name != "" {
		if name == base {
			return true
		}
		cls, ok := c.lookupClass(name)
		if !ok {
			return false
		}
		name = cls.Base
	}
	return false
}

// assignable reports whether a value of type src may be stored where dst is
// declared, accounting for class subtyping (spec.md §4.3).
func (c *Checker) assignable(dst, src string) bool {
	if dst == src {
		return true
	}
	if _, ok := c.lookupClass(dst); ok {
		return c.isSubclassOf(src, dst)
	}
	return false
}

func (c *Checker) checkStmt(stmt ast.Stmt) error {
	switch s := stmt.(type) {
	case *ast.FunctionDef:
		return c.checkFunctionDef(s, nil)
	case *ast.ClassDef:
		return c.checkClassDef(s)
	case *ast.VarDecl:
		return c.checkVarDeclStmt(s)
	case *ast.AssignStmt:
		return c.checkAssignStmt(s)
	case *ast.AugAssignStmt:
		return c.checkAugAssignStmt(s)
	case *ast.ReturnStmt:
		return c.checkReturnStmt(s)
	case *ast.IfStmt:
		return c.checkIfStmt(s)
	case *ast.WhileStmt:
		return c.checkWhileStmt(s)
	case *ast.ForStmt:
		return c.checkForStmt(s)
	case *ast.BreakStmt:
		if c.loopDepth == 0 {
			return c.errAt(errorsx.TC009, "'break' used outside of a loop", s.Pos)
		}
		return nil
	case *ast.ContinueStmt:
		if c.loopDepth == 0 {
			return c.errAt(errorsx.TC009, "'continue' used outside of a loop", s.Pos)
		}
		return nil
	case *ast.PassStmt:
		return nil
	case *ast.GlobalStmt:
		return nil
	case *ast.AssertStmt:
		t, err := c.checkExpr(s.Condition)
		if err != nil {
			return err
		}
		if t != TBool {
			return c.errAt(errorsx.TC006, "assert condition must be of type 'bool', got "+t, s.Pos)
		}
		return nil
	case *ast.ImportStmt, *ast.ImportFromStmt:
		return nil
	case *ast.ExprStmt:
		_, err := c.checkExpr(s.X)
		return err
	}
	return fmt.Errorf("typecheck: unhandled statement %T", stmt)
}

// checkVarDeclStmt handles a (non-top-level) VarDecl appearing inside a
// function body: the target is freshly declared in the current scope.
func (c *Checker) checkVarDeclStmt(s *ast.VarDecl) error {
	valType, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	declared := s.DeclaredType.String()
	if !c.assignable(declared, valType) {
		return c.errAt(errorsx.TC013, fmt.Sprintf("cannot assign value of type %q to %q declared as %q", valType, s.Name, declared), s.Pos)
	}
	c.globals.Define(s.Name, declared)
	return nil
}

func (c *Checker) checkFunctionDef(f *ast.FunctionDef, recvClass *ClassInfo) error {
	scope := NewEnv(nil)
	if recvClass != nil && len(f.Params) > 0 {
		scope.Define(f.Params[0].Name, recvClass.Name)
		for _, p := range f.Params[1:] {
			scope.Define(p.Name, p.Type.String())
		}
	} else {
		for _, p := range f.Params {
			scope.Define(p.Name, p.Type.String())
		}
	}
	prevGlobals := c.globals
	c.globals = scope
	c.globals.parent = prevGlobals
	prevReturn := c.currentReturnType
	c.currentReturnType = TNone
	if f.ReturnType.Name != "" {
		c.currentReturnType = f.ReturnType.String()
	}
	for name := range f.GlobalsDeclared {
		if t, ok := prevGlobals.Lookup(name); ok {
			scope.Define(name, t)
		}
	}
	var err error
	for _, stmt := range f.Body {
		if err = c.checkStmt(stmt); err != nil {
			break
		}
	}
	c.currentReturnType = prevReturn
	c.globals = prevGlobals
	return err
}

func (c *Checker) checkClassDef(cd *ast.ClassDef) error {
	info, ok := c.classes[cd.Name]
	if !ok {
		var err error
		info, err = c.classInfoFromDef(cd)
		if err != nil {
			return err
		}
	}
	for _, f := range cd.Fields {
		valType, err := c.checkExpr(f.Value)
		if err != nil {
			return err
		}
		declared := f.DeclaredType.String()
		if !c.assignable(declared, valType) {
			return c.errAt(errorsx.TC013, fmt.Sprintf("field %s.%s declared as %q but default value is %q", cd.Name, f.Name, declared, valType), f.Pos)
		}
	}
	for _, m := range cd.Methods {
		if err := c.checkFunctionDef(m, info); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkAssignStmt(s *ast.AssignStmt) error {
	valType, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	var targetType string
	switch target := s.Target.(type) {
	case *ast.Identifier:
		t, ok := c.globals.Lookup(target.Name)
		if !ok {
			return c.errAt(errorsx.TC001, "assignment to undeclared variable: "+target.Name, s.Pos)
		}
		targetType = t
	default:
		t, err := c.checkExpr(s.Target)
		if err != nil {
			return err
		}
		targetType = t
	}
	if !c.assignable(targetType, valType) {
		return c.errAt(errorsx.TC013, fmt.Sprintf("assignment type mismatch: %s = %s", targetType, valType), s.Pos)
	}
	return nil
}

func (c *Checker) checkAugAssignStmt(s *ast.AugAssignStmt) error {
	ident, ok := s.Target.(*ast.Identifier)
	if !ok {
		return c.errAt(errorsx.TC010, "augmented assignment target must be a plain variable", s.Pos)
	}
	targetType, ok := c.globals.Lookup(ident.Name)
	if !ok {
		return c.errAt(errorsx.TC010, "variable "+ident.Name+" not defined before augmented assignment", s.Pos)
	}
	valType, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	if targetType != valType {
		return c.errAt(errorsx.TC010, fmt.Sprintf("augmented assignment type mismatch: %s %s= %s", targetType, s.Op, valType), s.Pos)
	}
	return nil
}

func (c *Checker) checkReturnStmt(s *ast.ReturnStmt) error {
	if s.Value == nil {
		if c.currentReturnType != TNone {
			return c.errAt(errorsx.TC005, "function declared to return "+c.currentReturnType+" but got bare return", s.Pos)
		}
		return nil
	}
	valType, err := c.checkExpr(s.Value)
	if err != nil {
		return err
	}
	if !c.assignable(c.currentReturnType, valType) {
		return c.errAt(errorsx.TC005, fmt.Sprintf("function declared to return %q but got %q", c.currentReturnType, valType), s.Pos)
	}
	return nil
}

func (c *Checker) checkIfStmt(s *ast.IfStmt) error {
	condType, err := c.checkExpr(s.Condition)
	if err != nil {
		return err
	}
	if condType != TBool {
		return c.errAt(errorsx.TC006, "if condition must be of type 'bool', got "+condType, s.Pos)
	}
	for _, stmt := range s.Then {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	for _, stmt := range s.Else {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkWhileStmt(s *ast.WhileStmt) error {
	condType, err := c.checkExpr(s.Condition)
	if err != nil {
		return err
	}
	if condType != TBool {
		return c.errAt(errorsx.TC006, "while condition must be of type 'bool', got "+condType, s.Pos)
	}
	c.loopDepth++
	defer func() { c.loopDepth-- }()
	for _, stmt := range s.Body {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (c *Checker) checkForStmt(s *ast.ForStmt) error {
	iterType, err := c.checkExpr(s.Iterable)
	if err != nil {
		return err
	}
	var elemType string
	switch {
	case iterType == TRange:
		elemType = TInt
	case IsListType(iterType):
		elemType = ListElem(iterType)
	default:
		return c.errAt(errorsx.TC008, "for loop can only iterate over 'range' or 'list[T]', got "+iterType, s.Pos)
	}
	s.ElemType = elemType
	c.globals.Define(s.VarName, elemType)
	c.loopDepth++
	defer func() { c.loopDepth-- }()
	for _, stmt := range s.Body {
		if err := c.checkStmt(stmt); err != nil {
			return err
		}
	}
	return nil
}
