// Package runtimeabi documents the C runtime contract that internal/codegen
// emits against. It does not implement the runtime itself — the runtime is a
// small C99 static library (see runtime/pb_runtime.h at the repository root)
// built and linked by the external driver in internal/pipeline — but it gives
// the generator a single, named place to look up type and function names
// instead of scattering string literals through codegen.go.
package runtimeabi

// CType names emitted by the generator's type mapping (spec.md §4.5).
const (
	CInt64  = "int64_t"
	CDouble = "double"
	CBool   = "bool"
	CString = "pb_string"
	CVoid   = "void"
)

// ListStructName returns the generated list-of-T struct type name for a
// given element C type, e.g. ListStructName("int64_t") -> "pb_list_int64_t".
func ListStructName(elemCType string) string {
	return "pb_list_" + sanitize(elemCType)
}

func sanitize(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == ' ' || c == '*' {
			continue
		}
		out = append(out, c)
	}
	return string(out)
}

// Runtime function and constructor names referenced by generated code.
const (
	// String construction and coercion.
	FuncStringFromLiteral = "pb_string_from_cstr"
	FuncStringConcat      = "pb_string_concat"
	FuncStringEq          = "pb_string_eq"
	FuncToStrInt          = "pb_to_str_int"
	FuncToStrFloat        = "pb_to_str_float"
	FuncToStrBool         = "pb_to_str_bool"
	FuncToStrString       = "pb_to_str_str"
	// FuncToStrListPrefix + a list struct name gives the per-element-type
	// coercion, matching pb_to_str_list_##NAME from PB_DECLARE_LIST.
	FuncToStrListPrefix = "pb_to_str_list_"

	// print() overloads, one per argument type the built-in accepts. Lists
	// have no single overload: the generator builds "pb_print_list_" plus
	// the element's list struct name, matching pb_to_str_list_<NAME>.
	FuncPrintInt        = "pb_print_int"
	FuncPrintFloat      = "pb_print_float"
	FuncPrintBool       = "pb_print_bool"
	FuncPrintString     = "pb_print_str"
	FuncPrintListPrefix = "pb_print_list_"

	// Conversions the int/float/bool/str builtins lower to.
	FuncIntFromFloat    = "pb_int_from_float"
	FuncIntFromString   = "pb_int_from_string"
	FuncFloatFromInt    = "pb_float_from_int"
	FuncFloatFromString = "pb_float_from_string"
	FuncBoolFromInt     = "pb_bool_from_int"
	FuncBoolFromFloat   = "pb_bool_from_float"
	FuncStrFromInt      = FuncToStrInt
	FuncStrFromFloat    = FuncToStrFloat
	FuncStrFromBool     = FuncToStrBool

	// range() and its iteration primitives.
	TypeRange      = "pb_range"
	FuncRangeFrom1 = "pb_range_make1"
	FuncRangeFrom2 = "pb_range_make2"

	// list[T] construction and mutation. Every list struct shares this
	// method surface; the generator fills in the T-specific type name.
	FuncListNewSuffix      = "_new"      // pb_list_int64_t_new(count, ...values)
	FuncListContainsSuffix = "_contains" // pb_list_int64_t_contains(list, value)
	FieldListLen           = "len"       // field access, not a call
	FieldListData          = "data"      // field access, not a call

	// file primitives for the built-in `open`/`file` type.
	TypeFile      = "pb_file"
	FuncOpen      = "pb_open"
	FuncFileRead  = "pb_file_read"
	FuncFileWrite = "pb_file_write"
	FuncFileClose = "pb_file_close"

	// len() of a str calls this; len() of a list reads the list's .len field.
	FuncLenString = "pb_string_len"

	// assert() failure and uncaught-raise abort path.
	FuncAssertFail = "pb_assert_fail"
	FuncRaiseAbort = "pb_raise_abort"
)
