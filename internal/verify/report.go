package verify

import (
	"fmt"
	"strings"
)

// Invariant ids. Spec load failures other than the id-field rule carry
// InvariantSpec.
const (
	InvariantSpec      = "SPEC"
	InvariantIDField   = "I1"
	InvariantCoverage  = "I2"
	InvariantSQLShape  = "I3"
	InvariantSQLID     = "I4"
	InvariantLookup    = "I5"
	InvariantWatermark = "I6"
	InvariantUpsert    = "I7"
	InvariantTopology  = "I8"
)

var invariantNames = map[string]string{
	InvariantIDField:   "id-field",
	InvariantCoverage:  "coverage",
	InvariantSQLShape:  "sql-shape",
	InvariantSQLID:     "sql-id",
	InvariantLookup:    "lookup",
	InvariantWatermark: "watermark",
	InvariantUpsert:    "upsert",
	InvariantTopology:  "topology",
}

// InvariantName is the short name of an invariant id, or "" for SPEC.
func InvariantName(id string) string {
	return invariantNames[id]
}

// Violation is one broken invariant.
type Violation struct {
	Invariant string `json:"invariant"`
	Subject   string `json:"subject"` // spec path, sql_id, processor or region
	Message   string `json:"message"`
}

// Label is the invariant id followed by its name, e.g. "I5 lookup".
func (v Violation) Label() string {
	if name := InvariantName(v.Invariant); name != "" {
		return v.Invariant + " " + name
	}
	return v.Invariant
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Label(), v.Subject, v.Message)
}

// Report is the outcome of a verification run.
type Report struct {
	Violations []Violation `json:"violations"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// OK reports whether no invariant is violated. Warnings do not count.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns a *ViolationError when the report has violations.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	return &ViolationError{Violations: r.Violations}
}

// Warn adds a non-failing finding.
func (r *Report) Warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) add(invariant, subject, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{
		Invariant: invariant,
		Subject:   subject,
		Message:   fmt.Sprintf(format, args...),
	})
}

// ViolationError carries the violations of a failed verification.
type ViolationError struct {
	Violations []Violation
}

func (e *ViolationError) Error() string {
	if len(e.Violations) == 1 {
		return "invariant violation: " + e.Violations[0].String()
	}
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = v.String()
	}
	return fmt.Sprintf("%d invariant violations:\n  %s", len(e.Violations), strings.Join(lines, "\n  "))
}
