// Package apperrors defines the exhaustive error taxonomy of spec §7,
// shared across C1-C10 so each layer can classify a failure once and let
// callers apply the matching policy (fatal at init, retry, fatal-for-turn,
// log-and-requeue, etc.) with errors.Is, in the same sentinel-plus-wrap
// style the teacher uses in pkg/config/errors.go and pkg/services/errors.go.
package apperrors

import "errors"

var (
	// ErrConfigMissing: fatal at init.
	ErrConfigMissing = errors.New("configuration missing")

	// ErrTransport: C5/C6/C3/C4 transient failure; retry 3x with backoff,
	// surface on exhaustion.
	ErrTransport = errors.New("transport error")

	// ErrNoChoices: C5 returned zero completion choices; fatal for turn.
	ErrNoChoices = errors.New("no choices returned")

	// ErrRefusal: C5 model refused to answer; fatal for turn.
	ErrRefusal = errors.New("model refusal")

	// ErrOutputShape: C1 parser got a shape it can't map to the target
	// record type; fatal for turn.
	ErrOutputShape = errors.New("unexpected output shape")

	// ErrInvalidPromptShape: C7 validator caught a programmer error;
	// fatal, not retryable.
	ErrInvalidPromptShape = errors.New("invalid prompt shape")

	// ErrPersistence: C2/C3/C4 write failed; tx rolled back. Fatal for
	// turn in the orchestrator, log-and-requeue-next-turn in C10.
	ErrPersistence = errors.New("persistence error")

	// ErrInsufficientFunds: C7 accounting pre-check; refused before the
	// LLM call.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrTimeout: any await exceeded its budget; fatal for turn.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotFound: C2 lookup found nothing; mapped to a domain 404 at the
	// boundary.
	ErrNotFound = errors.New("not found")
)

// UserFacing is the closed set of error codes the orchestrator is allowed
// to leak to callers; internal error text is never surfaced (spec §7).
type UserFacing string

const (
	BadInput           UserFacing = "bad_input"
	Unauthorized       UserFacing = "unauthorized"
	Forbidden          UserFacing = "forbidden"
	NotFound           UserFacing = "not_found"
	InsufficientPoints UserFacing = "insufficient_points"
	TemporaryFailure   UserFacing = "temporary_failure"
	ModelRefusal       UserFacing = "model_refusal"
	Internal           UserFacing = "internal"
)

// Classify maps an internal error to the user-facing code the orchestrator
// is allowed to return, per spec §7's closed set.
func Classify(err error) UserFacing {
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrInsufficientFunds):
		return InsufficientPoints
	case errors.Is(err, ErrRefusal):
		return ModelRefusal
	case errors.Is(err, ErrTransport), errors.Is(err, ErrTimeout):
		return TemporaryFailure
	case errors.Is(err, ErrOutputShape), errors.Is(err, ErrInvalidPromptShape):
		return Internal
	default:
		return Internal
	}
}
