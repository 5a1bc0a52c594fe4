package codegen

import (
	"strings"

	"github.com/pbedn/pbc/internal/types"
)

// mapType implements the type mapping table: int -> int64_t, float -> double,
// bool -> bool, str -> pb_string, None -> void, list[T] -> the generated
// pb_list_<T> struct, and any other name falls back to a pointer to the
// corresponding class struct.
func (g *Generator) mapType(pbType string) string {
	switch pbType {
	case types.TInt:
		return "int64_t"
	case types.TFloat:
		return "double"
	case types.TBool:
		return "bool"
	case types.TStr:
		return "pb_string"
	case types.TNone, "":
		return "void"
	case types.TRange:
		return "pb_range"
	case types.TFile:
		return "pb_file"
	case types.TDict:
		// dict has no runtime representation yet; reaching a live DictExpr
		// in an expression position is a GEN001 internal error. The type
		// itself may still be named in a declaration that is never
		// initialized from a literal (not exercised by any built-in).
		return "void *"
	}
	if types.IsListType(pbType) {
		return g.listStructName(types.ListElem(pbType))
	}
	return "struct " + pbType + "*"
}

// listStructName returns the generated list-of-T struct name for a PB
// element type, registering it the first time it is seen so the header can
// instantiate the PB_DECLARE_LIST template for every list shape the module
// actually uses.
func (g *Generator) listStructName(pbElem string) string {
	cElem := g.mapType(pbElem)
	name := "pb_list_" + sanitizeIdent(cElem)
	if _, ok := g.listTypes[name]; !ok {
		g.listTypes[name] = cElem
		g.listOrder = append(g.listOrder, name)
	}
	return name
}

func sanitizeIdent(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r == '*':
			b.WriteString("ptr")
		case r == ' ':
			// skip
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// cStringLiteral renders a Go string as a double-quoted, escaped C string
// literal.
func cStringLiteral(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
