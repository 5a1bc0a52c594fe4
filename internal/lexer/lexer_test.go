package lexer_test

import (
	"strings"
	"testing"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/lexer"
	"github.com/pbedn/pbc/internal/token"
)

func lex(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err != nil {
		t.Fatalf("lex error: %v", err)
	}
	return toks
}

func lexErr(t *testing.T, src string) *errorsx.Report {
	t.Helper()
	_, err := lexer.New(string(lexer.Normalize([]byte(src))), "test.pb").Tokenize()
	if err == nil {
		t.Fatalf("expected a lexer error for %q", src)
	}
	rep, ok := errorsx.AsReport(err)
	if !ok {
		t.Fatalf("expected a structured report, got %v", err)
	}
	return rep
}

func countKind(toks []token.Token, kind token.Kind) int {
	n := 0
	for _, tok := range toks {
		if tok.Kind == kind {
			n++
		}
	}
	return n
}

func TestTokenizeTotality(t *testing.T) {
	src := strings.Join([]string{
		"def f(n: int) -> int:",
		"    if n > 0:",
		"        return 1",
		"    return 0",
		"",
	}, "\n")
	toks := lex(t, src)

	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("token stream must end in EOF, got %s", toks[len(toks)-1].Kind)
	}
	if got := countKind(toks, token.EOF); got != 1 {
		t.Errorf("expected exactly one EOF, got %d", got)
	}
	indents := countKind(toks, token.INDENT)
	dedents := countKind(toks, token.DEDENT)
	if indents != dedents {
		t.Errorf("INDENT/DEDENT mismatch: %d INDENTs vs %d DEDENTs", indents, dedents)
	}
	if indents != 2 {
		t.Errorf("expected 2 INDENTs for the two nested blocks, got %d", indents)
	}
	if got := countKind(toks, token.NEWLINE); got != 4 {
		t.Errorf("expected one NEWLINE per logical line (4), got %d", got)
	}
}

func TestBlankAndCommentLinesAreInsignificant(t *testing.T) {
	src := strings.Join([]string{
		"x: int = 1",
		"# a comment",
		"",
		"y: int = 2",
		"",
	}, "\n")
	toks := lex(t, src)

	if got := countKind(toks, token.NEWLINE); got != 2 {
		t.Errorf("blank/comment-only lines must not produce NEWLINE; expected 2, got %d", got)
	}
	if got := countKind(toks, token.COMMENT); got != 1 {
		t.Fatalf("expected one COMMENT token, got %d", got)
	}
	for _, tok := range toks {
		if tok.Kind == token.COMMENT && tok.Literal != "# a comment" {
			t.Errorf("unexpected comment literal %q", tok.Literal)
		}
	}
}

func TestBracketsSuppressNewline(t *testing.T) {
	src := strings.Join([]string{
		"xs: list[int] = [",
		"    1,",
		"    2,",
		"]",
		"",
	}, "\n")
	toks := lex(t, src)

	if got := countKind(toks, token.NEWLINE); got != 1 {
		t.Errorf("a bracketed multi-line literal is one logical line; expected 1 NEWLINE, got %d", got)
	}
	if got := countKind(toks, token.NL); got == 0 {
		t.Errorf("expected NL terminators on the continuation lines")
	}
	if got := countKind(toks, token.INDENT); got != 0 {
		t.Errorf("continuation lines inside brackets must not emit INDENT, got %d", got)
	}
}

func TestNumericLiteralsStripUnderscores(t *testing.T) {
	src := strings.Join([]string{
		"a: int = 1_000_000",
		"b: float = 3.14_15",
		"c: float = 2e10",
		"",
	}, "\n")
	toks := lex(t, src)

	var ints, floats []string
	for _, tok := range toks {
		switch tok.Kind {
		case token.INT:
			ints = append(ints, tok.Literal)
		case token.FLOAT:
			floats = append(floats, tok.Literal)
		}
	}
	if len(ints) != 1 || ints[0] != "1000000" {
		t.Errorf("expected underscore-stripped int \"1000000\", got %v", ints)
	}
	if len(floats) != 2 || floats[0] != "3.1415" || floats[1] != "2e10" {
		t.Errorf("unexpected float literals %v", floats)
	}
}

func TestStringEscapes(t *testing.T) {
	toks := lex(t, "s: str = \"a\\tb\\n\"\n")
	var lit string
	for _, tok := range toks {
		if tok.Kind == token.STRING {
			lit = tok.Literal
		}
	}
	if lit != "a\tb\n" {
		t.Errorf("expected decoded escapes, got %q", lit)
	}
}

func TestFStringSubTokens(t *testing.T) {
	toks := lex(t, "s: str = f\"a{x}b\"\n")

	start := -1
	for i, tok := range toks {
		if tok.Kind == token.FSTRING_START {
			start = i
			break
		}
	}
	if start == -1 {
		t.Fatalf("expected an FSTRING_START token in %v", toks)
	}
	var kinds []token.Kind
	for _, tok := range toks[start:] {
		kinds = append(kinds, tok.Kind)
		if tok.Kind == token.FSTRING_END {
			break
		}
	}
	want := []token.Kind{
		token.FSTRING_START, token.FSTRING_MIDDLE,
		token.LBRACE, token.IDENT, token.RBRACE,
		token.FSTRING_MIDDLE, token.FSTRING_END,
	}
	if len(kinds) != len(want) {
		t.Fatalf("unexpected f-string token run: %v", kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("token %d: expected %s, got %s (full run %v)", i, want[i], kinds[i], kinds)
		}
	}
}

func TestFStringDoubledBracesAreLiteral(t *testing.T) {
	toks := lex(t, "s: str = f\"{{x}}\"\n")
	for _, tok := range toks {
		if tok.Kind == token.LBRACE || tok.Kind == token.RBRACE {
			t.Fatalf("doubled braces must not open an embedded expression")
		}
		if tok.Kind == token.FSTRING_MIDDLE && tok.Literal != "{x}" {
			t.Errorf("expected literal chunk \"{x}\", got %q", tok.Literal)
		}
	}
}

func TestMixedIndentationIsError(t *testing.T) {
	src := "def f() -> int:\n\t return 1\n"
	rep := lexErr(t, src)
	if rep.Code != errorsx.LEX002 {
		t.Errorf("expected LEX002, got %s: %s", rep.Code, rep.Message)
	}
}

func TestInconsistentDedentIsError(t *testing.T) {
	src := strings.Join([]string{
		"def f() -> int:",
		"    if True:",
		"        pass",
		"  pass",
		"",
	}, "\n")
	rep := lexErr(t, src)
	if rep.Code != errorsx.LEX003 {
		t.Errorf("expected LEX003, got %s: %s", rep.Code, rep.Message)
	}
}

func TestUnterminatedStringIsError(t *testing.T) {
	rep := lexErr(t, "s: str = \"abc\n")
	if rep.Code != errorsx.LEX004 {
		t.Errorf("expected LEX004, got %s: %s", rep.Code, rep.Message)
	}
}

func TestUnterminatedFStringIsError(t *testing.T) {
	rep := lexErr(t, "s: str = f\"abc{x\n")
	if rep.Code != errorsx.LEX005 {
		t.Errorf("expected LEX005, got %s: %s", rep.Code, rep.Message)
	}
}

func TestUnknownCharacterIsError(t *testing.T) {
	rep := lexErr(t, "a: int = 1 ?\n")
	if rep.Code != errorsx.LEX001 {
		t.Errorf("expected LEX001, got %s: %s", rep.Code, rep.Message)
	}
	if rep.Pos == nil || rep.Pos.Line != 1 {
		t.Errorf("expected position on line 1, got %+v", rep.Pos)
	}
}
