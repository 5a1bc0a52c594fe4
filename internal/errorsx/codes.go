// Package errorsx provides the structured diagnostic type shared by every
// compiler phase, and the error-code taxonomy each phase reports under.
package errorsx

// Error codes are grouped by phase, mirroring the LexerError / ParserError /
// TypeError / ModuleNotFoundError / InternalError kinds from spec.md §7.
const (
	// Lexer errors (LEX###)
	LEX001 = "LEX001" // unknown character
	LEX002 = "LEX002" // mixed tabs and spaces in indentation
	LEX003 = "LEX003" // inconsistent dedent
	LEX004 = "LEX004" // unterminated string literal
	LEX005 = "LEX005" // unterminated f-string / unbalanced braces

	// Parser errors (PAR###)
	PAR001 = "PAR001" // unexpected token
	PAR002 = "PAR002" // missing initializer on VarDecl
	PAR003 = "PAR003" // invalid assignment target
	PAR004 = "PAR004" // nested function definition
	PAR005 = "PAR005" // malformed class body
	PAR006 = "PAR006" // only defs/classes/imports/typed decls allowed at module scope
	PAR007 = "PAR007" // malformed import statement
	PAR008 = "PAR008" // malformed f-string expression
	PAR009 = "PAR009" // unterminated block (missing INDENT/DEDENT)
	PAR010 = "PAR010" // malformed parameter list
	PAR011 = "PAR011" // exception handling (try/except/finally/raise) not supported

	// Type checker errors (TC###)
	TC001 = "TC001" // undefined variable
	TC002 = "TC002" // undefined function
	TC003 = "TC003" // arity mismatch
	TC004 = "TC004" // argument type mismatch
	TC005 = "TC005" // return type mismatch
	TC006 = "TC006" // non-bool condition
	TC007 = "TC007" // list heterogeneity / empty list
	TC008 = "TC008" // indexing a non-list
	TC009 = "TC009" // break/continue outside loop
	TC010 = "TC010" // undeclared augmented assignment
	TC011 = "TC011" // binary operator type mismatch
	TC012 = "TC012" // unary operator type mismatch
	TC013 = "TC013" // assignment type mismatch
	TC014 = "TC014" // unknown class / unknown attribute
	TC015 = "TC015" // duplicate declaration

	// Module loader errors (LDR###)
	LDR001 = "LDR001" // module not found
	LDR002 = "LDR002" // export not found on imported module
	LDR003 = "LDR003" // malformed vendor metadata

	// Code generator errors (GEN###)
	GEN001 = "GEN001" // unimplemented AST node reached codegen (internal bug)

	// Generic
	RUNTIME = "RUNTIME"
)
