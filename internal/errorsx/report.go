package errorsx

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pbedn/pbc/internal/token"
)

// Report is the canonical structured diagnostic produced by any compiler
// phase. It is the Go analogue of spec.md §7's error kinds.
type Report struct {
	Schema  string         `json:"schema"` // always "pb.error/v1"
	Code    string         `json:"code"`
	Phase   string         `json:"phase"` // "lexer", "parser", "typecheck", "loader", "codegen"
	Message string         `json:"message"`
	Pos     *token.Pos     `json:"pos,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// ReportError wraps a Report so it can travel through the standard error
// interface while remaining recoverable via errors.As.
type ReportError struct {
	Rep *Report
}

func (e *ReportError) Error() string {
	if e.Rep == nil {
		return "unknown error"
	}
	if e.Rep.Pos != nil {
		return fmt.Sprintf("%s: %s: %s", e.Rep.Pos, e.Rep.Code, e.Rep.Message)
	}
	return fmt.Sprintf("%s: %s", e.Rep.Code, e.Rep.Message)
}

// AsReport extracts the *Report from an error chain, if any.
func AsReport(err error) (*Report, bool) {
	var re *ReportError
	if errors.As(err, &re) {
		return re.Rep, true
	}
	return nil, false
}

// New builds a *ReportError for the given phase/code/message at pos.
func New(phase, code, message string, pos token.Pos) error {
	p := pos
	return &ReportError{Rep: &Report{
		Schema:  "pb.error/v1",
		Code:    code,
		Phase:   phase,
		Message: message,
		Pos:     &p,
	}}
}

// NewWithData is New plus structured Data, e.g. every candidate path tried
// for a ModuleNotFoundError.
func NewWithData(phase, code, message string, pos token.Pos, data map[string]any) error {
	err := New(phase, code, message, pos)
	re := err.(*ReportError)
	re.Rep.Data = data
	return re
}

// NewNoPos builds a *ReportError with no source position (e.g. a failed
// link step, which concerns the whole build, not one coordinate).
func NewNoPos(phase, code, message string) error {
	return &ReportError{Rep: &Report{Schema: "pb.error/v1", Code: code, Phase: phase, Message: message}}
}

// ToJSON renders the report as indented JSON, used by `pbc --debug`.
func (r *Report) ToJSON() (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
