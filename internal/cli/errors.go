package cli

import (
	"errors"

	"github.com/roach88/cdcflow/internal/artifact"
	"github.com/roach88/cdcflow/internal/flow"
	"github.com/roach88/cdcflow/internal/registry"
	"github.com/roach88/cdcflow/internal/sink"
	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/sqltmpl"
	"github.com/roach88/cdcflow/internal/verify"
)

// Error codes for CLI output
const (
	ErrCodeGeneric = "E001" // Generic/unknown error
	ErrCodeConfig  = "E002" // Configuration could not be loaded
	ErrCodeUsage   = "E003" // Invalid argument or flag value

	// Spec errors (E2xx)
	ErrCodeSpecNotFound  = "E201"
	ErrCodeSpecMalformed = "E202"
	ErrCodeSpecInvalid   = "E203"

	ErrCodeRender   = "E301" // SQL template render failure
	ErrCodeConflict = "E401" // Two specs produce the same sql_id
	ErrCodeDrift    = "E501" // Flow structural drift

	// Artifact errors (E6xx)
	ErrCodeWriteFailed = "E601"
	ErrCodeFlowExists  = "E602"

	// Contract errors (E7xx)
	ErrCodeViolation = "E701"
	ErrCodeContract  = "E702"
)

// classify maps a pipeline error to its CLI error code and exit code.
func classify(err error) (string, int) {
	var (
		specErr      *spec.Error
		renderErr    *sqltmpl.RenderError
		conflictErr  *registry.ConflictError
		driftErr     *flow.DriftError
		writeErr     *artifact.WriteError
		violationErr *verify.ViolationError
		contractErr  *sink.ContractError
	)
	switch {
	case errors.As(err, &specErr):
		switch {
		case errors.Is(err, spec.ErrNotFound):
			return ErrCodeSpecNotFound, ExitSpecError
		case errors.Is(err, spec.ErrMalformed):
			return ErrCodeSpecMalformed, ExitSpecError
		default:
			return ErrCodeSpecInvalid, ExitSpecError
		}
	case errors.As(err, &renderErr):
		return ErrCodeRender, ExitFailure
	case errors.As(err, &conflictErr):
		return ErrCodeConflict, ExitConflict
	case errors.As(err, &driftErr):
		return ErrCodeDrift, ExitDrift
	case errors.As(err, &writeErr):
		return ErrCodeWriteFailed, ExitFailure
	case errors.As(err, &violationErr):
		return ErrCodeViolation, ExitViolation
	case errors.As(err, &contractErr):
		return ErrCodeContract, ExitViolation
	}
	return ErrCodeGeneric, ExitFailure
}

// details returns the structured context shown with an error.
func details(err error) interface{} {
	var (
		specErr      *spec.Error
		conflictErr  *registry.ConflictError
		violationErr *verify.ViolationError
		contractErr  *sink.ContractError
	)
	switch {
	case errors.As(err, &specErr):
		d := map[string]string{"path": specErr.Path}
		if specErr.Field != "" {
			d["field"] = specErr.Field
			d["rule"] = specErr.Rule
		}
		return d
	case errors.As(err, &conflictErr):
		return map[string]string{
			"sql_id": conflictErr.SQLID,
			"first":  conflictErr.First,
			"second": conflictErr.Second,
		}
	case errors.As(err, &violationErr):
		return violationErr.Violations
	case errors.As(err, &contractErr):
		return contractErr.Failed
	}
	return nil
}

// fail reports err through the formatter and returns it with its exit code.
func fail(f *OutputFormatter, err error) error {
	code, exit := classify(err)
	_ = f.Error(code, err.Error(), details(err))
	return WrapExitError(exit, code, err)
}
