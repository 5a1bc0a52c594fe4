package parser_test

import (
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/ast"
	"github.com/pbedn/pbc/testutil"
)

// TestParseGoldenSnapshot pins the full parsed shape of a small module.
// Regenerate with UPDATE_GOLDENS=true go test ./internal/parser/...
func TestParseGoldenSnapshot(t *testing.T) {
	src := strings.Join([]string{
		"x: int = 10",
		"",
		"def main() -> int:",
		"    print(x)",
		"    return 0",
		"",
	}, "\n")
	prog := mustParse(t, src)
	testutil.CompareWithGoldenText(t, "parser", "module_decl", ast.Print(prog)+"\n")
}
