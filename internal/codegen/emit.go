package codegen

import (
	"fmt"
	"strings"
)

// emitter is the buffered, indentation-tracking line writer both the header
// and the body use. It mirrors the line-at-a-time emit()/indent_level idiom
// the original Python generator uses, adapted to Go string building.
type emitter struct {
	lines  []string
	indent int
}

func (e *emitter) line(format string, args ...any) {
	e.raw(fmt.Sprintf(format, args...))
}

func (e *emitter) raw(s string) {
	e.lines = append(e.lines, strings.Repeat("    ", e.indent)+s)
}

func (e *emitter) blank() {
	e.lines = append(e.lines, "")
}

func (e *emitter) push() { e.indent++ }
func (e *emitter) pop()  { e.indent-- }

func (e *emitter) String() string {
	return strings.Join(e.lines, "\n") + "\n"
}
