package spec

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"
)

// Error kinds. Use errors.Is against these to classify a load failure.
var (
	ErrNotFound  = errors.New("spec not found")
	ErrMalformed = errors.New("spec malformed")
	ErrInvalid   = errors.New("spec invalid")
)

// Rule names reported in Error.Rule for invalid specs.
const (
	RuleRequired   = "required"
	RuleSchema     = "schema"
	RuleIdentifier = "identifier"
	RulePattern    = "pattern"
	RuleUnique     = "unique"
	RuleDefault    = "default"
	RuleProjection = "projection"
	RuleIndexName  = "index-name"
	RuleFileName   = "file-name"
	RuleIDField    = "I1" // id_field must equal primary_key
)

// Error is a spec load or validation failure.
type Error struct {
	Kind    error // ErrNotFound, ErrMalformed or ErrInvalid
	Path    string
	Field   string // set for ErrInvalid
	Rule    string // set for ErrInvalid
	Message string
	Pos     token.Pos // source position when known
}

func (e *Error) Error() string {
	loc := e.Path
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d", e.Path, e.Pos.Line(), e.Pos.Column())
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %v: %s [%s]: %s", loc, e.Kind, e.Field, e.Rule, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", loc, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func invalid(field, rule, format string, args ...any) *Error {
	return &Error{
		Kind:    ErrInvalid,
		Field:   field,
		Rule:    rule,
		Message: fmt.Sprintf(format, args...),
	}
}
