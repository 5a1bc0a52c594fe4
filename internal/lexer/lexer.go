// Package lexer tokenizes PB source text into the token stream consumed by
// internal/parser, per spec.md §4.1.
package lexer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pbedn/pbc/internal/errorsx"
	"github.com/pbedn/pbc/internal/token"
)

const phase = "lexer"

// Lexer turns PB source into a token.Token stream. It processes the input
// one physical line at a time, tracking an indentation stack and a bracket
// depth that spans lines, mirroring the reference implementation's
// line-oriented design (see _examples/original_source/src/lexer.py).
type Lexer struct {
	file         string
	lines        []string
	lineNum      int // index of the next line to tokenize (0-based)
	indents      []int
	bracketDepth int
	tokens       []token.Token
}

// New creates a Lexer over source text. The input is normalized first (see
// Normalize), so a BOM or NFD-encoded identifier never reaches the scanner.
func New(src string, file string) *Lexer {
	src = string(Normalize([]byte(src)))
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")
	return &Lexer{
		file:    file,
		lines:   lines,
		indents: []int{0},
	}
}

// Tokenize runs the lexer to completion and returns the full token stream,
// terminated by exactly one EOF token. Every INDENT emitted is matched by a
// DEDENT before EOF (spec.md §3 invariants).
func (l *Lexer) Tokenize() ([]token.Token, error) {
	for l.lineNum < len(l.lines) {
		if err := l.tokenizeLine(); err != nil {
			return nil, err
		}
	}
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(token.DEDENT, "", l.lineNum+1, 1)
	}
	l.emit(token.EOF, "", l.lineNum+1, 1)
	return l.tokens, nil
}

func (l *Lexer) emit(kind token.Kind, lit string, line, col int) {
	l.tokens = append(l.tokens, token.New(kind, lit, line, col, l.file))
}

func (l *Lexer) errAt(code, msg string, line, col int) error {
	return errorsx.New(phase, code, msg, token.Pos{File: l.file, Line: line, Column: col})
}

// tokenizeLine consumes the current line, emitting INDENT/DEDENT as needed,
// then every token on the line, then a terminating NEWLINE or NL.
func (l *Lexer) tokenizeLine() error {
	raw := l.lines[l.lineNum]
	l.lineNum++
	lineNo := l.lineNum

	code, comment, commentCol := splitComment(raw)
	trimmed := strings.TrimRight(code, " \t")
	runes := []rune(trimmed)

	hasCode := strings.TrimSpace(trimmed) != ""

	pos := 0
	if hasCode {
		indentStr := leadingWhitespace(trimmed)
		if strings.Contains(indentStr, " ") && strings.Contains(indentStr, "\t") {
			return l.errAt(errorsx.LEX002, "mixed tabs and spaces in indentation", lineNo, 1)
		}
		// A continuation line inside brackets carries no indentation
		// significance of its own.
		if l.bracketDepth == 0 {
			width := indentWidth(indentStr)
			if err := l.applyIndent(width, lineNo); err != nil {
				return err
			}
		}
		pos = len([]rune(indentStr))
	}

	for pos < len(runes) {
		ch := runes[pos]
		if ch == ' ' || ch == '\t' {
			pos++
			continue
		}
		if (ch == 'f' || ch == 'F') && pos+1 < len(runes) && (runes[pos+1] == '"' || runes[pos+1] == '\'') {
			np, err := l.scanFString(runes, pos, lineNo)
			if err != nil {
				return err
			}
			pos = np
			continue
		}
		tok, np, err := l.scanToken(runes, pos, lineNo, 0)
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, tok)
		l.trackBracket(tok.Kind)
		pos = np
	}

	if comment != "" {
		l.emit(token.COMMENT, comment, lineNo, commentCol)
	}

	// Only a logical line (code at bracket depth zero) ends in a significant
	// NEWLINE; blank lines, comment-only lines, and bracket continuations end
	// in an NL the parser discards.
	if l.bracketDepth == 0 && hasCode {
		l.emit(token.NEWLINE, "", lineNo, len([]rune(raw))+1)
	} else {
		l.emit(token.NL, "", lineNo, len([]rune(raw))+1)
	}
	return nil
}

func (l *Lexer) trackBracket(k token.Kind) {
	switch k {
	case token.LPAREN, token.LBRACKET, token.LBRACE:
		l.bracketDepth++
	case token.RPAREN, token.RBRACKET, token.RBRACE:
		if l.bracketDepth > 0 {
			l.bracketDepth--
		}
	}
}

// applyIndent pushes/pops the indent stack per spec.md §4.1: greater width
// pushes and emits one INDENT; smaller width pops until the top matches,
// emitting one DEDENT per pop, erroring if it never lands exactly on an
// existing width.
func (l *Lexer) applyIndent(width, lineNo int) error {
	cur := l.indents[len(l.indents)-1]
	if width > cur {
		l.indents = append(l.indents, width)
		l.emit(token.INDENT, "", lineNo, 1)
		return nil
	}
	for width < l.indents[len(l.indents)-1] {
		l.indents = l.indents[:len(l.indents)-1]
		l.emit(token.DEDENT, "", lineNo, 1)
	}
	if width != l.indents[len(l.indents)-1] {
		return l.errAt(errorsx.LEX003, "inconsistent indentation", lineNo, 1)
	}
	return nil
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}

// indentWidth measures indentStr with a tab counted as four columns.
func indentWidth(indentStr string) int {
	w := 0
	for _, c := range indentStr {
		if c == '\t' {
			w += 4
		} else {
			w++
		}
	}
	return w
}

// splitComment returns the code portion of a line and, if present, the
// comment (including its leading '#') plus its 1-based column. A '#' inside
// a single- or double-quoted string literal does not start a comment.
func splitComment(line string) (code string, comment string, commentCol int) {
	var b strings.Builder
	inString := false
	var quote rune
	escape := false
	runes := []rune(line)
	for i, c := range runes {
		switch {
		case escape:
			b.WriteRune(c)
			escape = false
		case c == '\\':
			b.WriteRune(c)
			escape = true
		case inString:
			b.WriteRune(c)
			if c == quote {
				inString = false
			}
		case c == '"' || c == '\'':
			inString = true
			quote = c
			b.WriteRune(c)
		case c == '#':
			return b.String(), string(runes[i:]), i + 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String(), "", 0
}

// ---------------------------------------------------------------------------
// Token-at-a-time scanning, shared by the top-level line scan and f-string
// embedded-expression re-lexing.
// ---------------------------------------------------------------------------

var twoCharOps = map[string]token.Kind{
	"==": token.EQ, "!=": token.NOTEQ, "<=": token.LTE, ">=": token.GTE,
	"->": token.ARROW, "+=": token.PLUSEQ, "-=": token.MINUSEQ, "*=": token.STAREQ,
	"%=": token.PERCENTEQ,
}

var oneCharOps = map[rune]token.Kind{
	'(': token.LPAREN, ')': token.RPAREN, '[': token.LBRACKET, ']': token.RBRACKET,
	'{': token.LBRACE, '}': token.RBRACE, ':': token.COLON, ';': token.SEMICOLON,
	',': token.COMMA, '=': token.ASSIGN, '+': token.PLUS, '-': token.MINUS,
	'*': token.STAR, '%': token.PERCENT, '<': token.LT, '>': token.GT, '.': token.DOT,
}

// scanToken matches exactly one token starting at runes[pos] and returns it
// along with the position just past it. colBase offsets columns for tokens
// re-lexed inside an f-string expression (0 for top-level scanning).
func (l *Lexer) scanToken(runes []rune, pos int, lineNo, colBase int) (token.Token, int, error) {
	col := colBase + pos + 1
	ch := runes[pos]

	// Three-char: //=
	if ch == '/' && pos+2 < len(runes) && runes[pos+1] == '/' && runes[pos+2] == '=' {
		return token.New(token.FLOORDIVEQ, "//=", lineNo, col, l.file), pos + 3, nil
	}
	if ch == '/' && pos+1 < len(runes) && runes[pos+1] == '/' {
		return token.New(token.FLOORDIV, "//", lineNo, col, l.file), pos + 2, nil
	}
	if ch == '/' && pos+1 < len(runes) && runes[pos+1] == '=' {
		return token.New(token.SLASHEQ, "/=", lineNo, col, l.file), pos + 2, nil
	}
	if pos+1 < len(runes) {
		two := string(runes[pos : pos+2])
		if k, ok := twoCharOps[two]; ok {
			return token.New(k, two, lineNo, col, l.file), pos + 2, nil
		}
	}
	if ch == '/' {
		return token.New(token.SLASH, "/", lineNo, col, l.file), pos + 1, nil
	}
	if k, ok := oneCharOps[ch]; ok {
		return token.New(k, string(ch), lineNo, col, l.file), pos + 1, nil
	}
	if ch == '"' || ch == '\'' {
		return l.scanString(runes, pos, lineNo, colBase)
	}
	if unicode.IsDigit(ch) {
		return l.scanNumber(runes, pos, lineNo, colBase)
	}
	if isIdentStart(ch) {
		return l.scanIdent(runes, pos, lineNo, colBase)
	}
	return token.Token{}, 0, l.errAt(errorsx.LEX001, fmt.Sprintf("unknown character %q", string(ch)), lineNo, col)
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentCont(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (l *Lexer) scanIdent(runes []rune, pos int, lineNo, colBase int) (token.Token, int, error) {
	start := pos
	for pos < len(runes) && isIdentCont(runes[pos]) {
		pos++
	}
	name := string(runes[start:pos])
	kind := token.LookupIdent(name)
	return token.New(kind, name, lineNo, colBase+start+1, l.file), pos, nil
}

// scanNumber lexes an integer or float literal. Underscores are permitted as
// internal digit separators and stripped from the token value. The presence
// of '.' or an exponent marks a float; otherwise the literal is an int.
func (l *Lexer) scanNumber(runes []rune, pos int, lineNo, colBase int) (token.Token, int, error) {
	start := pos
	isFloat := false
	for pos < len(runes) && (unicode.IsDigit(runes[pos]) || runes[pos] == '_') {
		pos++
	}
	if pos < len(runes) && runes[pos] == '.' && pos+1 < len(runes) && unicode.IsDigit(runes[pos+1]) {
		isFloat = true
		pos++
		for pos < len(runes) && (unicode.IsDigit(runes[pos]) || runes[pos] == '_') {
			pos++
		}
	}
	if pos < len(runes) && (runes[pos] == 'e' || runes[pos] == 'E') {
		save := pos
		p := pos + 1
		if p < len(runes) && (runes[p] == '+' || runes[p] == '-') {
			p++
		}
		if p < len(runes) && unicode.IsDigit(runes[p]) {
			isFloat = true
			pos = p
			for pos < len(runes) && (unicode.IsDigit(runes[pos]) || runes[pos] == '_') {
				pos++
			}
		} else {
			pos = save
		}
	}
	raw := string(runes[start:pos])
	value := strings.ReplaceAll(raw, "_", "")
	col := colBase + start + 1
	if isFloat {
		return token.New(token.FLOAT, value, lineNo, col, l.file), pos, nil
	}
	return token.New(token.INT, value, lineNo, col, l.file), pos, nil
}

// scanString lexes a single- or double-quoted plain string literal,
// decoding backslash escapes. An unterminated literal is a lexer error.
func (l *Lexer) scanString(runes []rune, pos int, lineNo, colBase int) (token.Token, int, error) {
	col := colBase + pos + 1
	quote := runes[pos]
	var raw strings.Builder
	i := pos + 1
	for i < len(runes) {
		c := runes[i]
		if c == '\\' && i+1 < len(runes) {
			raw.WriteRune(c)
			raw.WriteRune(runes[i+1])
			i += 2
			continue
		}
		if c == quote {
			decoded, err := decodeEscapes(raw.String())
			if err != nil {
				return token.Token{}, 0, l.errAt(errorsx.LEX004, err.Error(), lineNo, col)
			}
			return token.New(token.STRING, decoded, lineNo, col, l.file), i + 1, nil
		}
		raw.WriteRune(c)
		i++
	}
	return token.Token{}, 0, l.errAt(errorsx.LEX004, "unterminated string literal", lineNo, col)
}

// decodeEscapes expands standard C backslash escape sequences.
func decodeEscapes(s string) (string, error) {
	var out strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '\\' || i+1 >= len(runes) {
			out.WriteRune(runes[i])
			continue
		}
		i++
		switch runes[i] {
		case 'n':
			out.WriteByte('\n')
		case 't':
			out.WriteByte('\t')
		case 'r':
			out.WriteByte('\r')
		case '0':
			out.WriteByte(0)
		case '\\':
			out.WriteByte('\\')
		case '\'':
			out.WriteByte('\'')
		case '"':
			out.WriteByte('"')
		default:
			out.WriteRune('\\')
			out.WriteRune(runes[i])
		}
	}
	return out.String(), nil
}

// scanFString lexes an f-string starting at the 'f'/'F' prefix, emitting
// FSTRING_START, alternating FSTRING_MIDDLE literal chunks with re-lexed
// embedded-expression token sequences delimited by braces, then
// FSTRING_END. Doubled braces `{{`/`}}` are literal braces. Returns the
// position just past the closing quote.
func (l *Lexer) scanFString(runes []rune, start int, lineNo int) (int, error) {
	quote := runes[start+1]
	delim := string(runes[start]) + string(quote)
	l.emit(token.FSTRING_START, delim, lineNo, start+1)

	pos := start + 2
	var buf strings.Builder
	flushLiteral := func(col int) {
		if buf.Len() > 0 {
			decoded, _ := decodeEscapes(buf.String())
			l.emit(token.FSTRING_MIDDLE, decoded, lineNo, col)
			buf.Reset()
		}
	}

	for pos < len(runes) {
		ch := runes[pos]
		if ch == '{' && pos+1 < len(runes) && runes[pos+1] == '{' {
			buf.WriteRune('{')
			pos += 2
			continue
		}
		if ch == '}' && pos+1 < len(runes) && runes[pos+1] == '}' {
			buf.WriteRune('}')
			pos += 2
			continue
		}
		if ch == '{' {
			flushLiteral(pos + 1)
			end, expr, err := extractBraced(runes, pos, lineNo, l.file)
			if err != nil {
				return 0, err
			}
			l.emit(token.LBRACE, "{", lineNo, pos+1)
			if err := l.tokenizeEmbedded(expr, lineNo, pos+2); err != nil {
				return 0, err
			}
			l.emit(token.RBRACE, "}", lineNo, end)
			pos = end
			continue
		}
		if ch == quote {
			flushLiteral(pos + 1)
			l.emit(token.FSTRING_END, string(quote), lineNo, pos+1)
			return pos + 1, nil
		}
		buf.WriteRune(ch)
		pos++
	}
	return 0, l.errAt(errorsx.LEX005, "unterminated f-string", lineNo, pos+1)
}

// extractBraced returns the position just past a balanced {...} run
// starting at runes[start] == '{', and the expression text inside it.
func extractBraced(runes []rune, start, lineNo int, file string) (int, string, error) {
	pos := start + 1
	depth := 1
	exprStart := pos
	for pos < len(runes) {
		switch runes[pos] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return pos + 1, string(runes[exprStart:pos]), nil
			}
		}
		pos++
	}
	return 0, "", errorsx.New(phase, errorsx.LEX005, "unterminated expression in f-string",
		token.Pos{File: file, Line: lineNo, Column: start + 2})
}

// tokenizeEmbedded re-lexes the text inside an f-string's braces as ordinary
// code, offsetting emitted token positions into the source line.
func (l *Lexer) tokenizeEmbedded(expr string, lineNo, colBase int) error {
	runes := []rune(expr)
	pos := 0
	for pos < len(runes) {
		if runes[pos] == ' ' || runes[pos] == '\t' || runes[pos] == '\r' || runes[pos] == '\n' {
			pos++
			continue
		}
		tok, np, err := l.scanToken(runes, pos, lineNo, colBase)
		if err != nil {
			return err
		}
		l.tokens = append(l.tokens, tok)
		l.trackBracket(tok.Kind)
		pos = np
	}
	return nil
}
