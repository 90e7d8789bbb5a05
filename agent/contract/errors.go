package contract

import "errors"

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")

	// ErrConsistency marks a commit whose validated precondition went stale
	// before the transaction ran. Callers retry the whole operation.
	ErrConsistency = errors.New("consistency check failed")

	// ErrDependency marks an unreachable or timed out external service.
	ErrDependency = errors.New("dependency unavailable")
)
