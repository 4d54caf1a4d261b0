package operation

import (
	"errors"
	"fmt"
)

var (
	// ErrContractLoad means the contract could not be parsed or is inconsistent.
	ErrContractLoad       = errors.New("contract load failed")
	ErrUnknownOperation   = errors.New("unknown operation")
	ErrUnboundOperation   = errors.New("operation has no handler")
	ErrDuplicateOperation = errors.New("operation already registered")
	ErrDispatcherSealed   = errors.New("dispatcher already initialized")
	ErrNotInitialized     = errors.New("dispatcher not initialized")
	// ErrUnauthenticated is returned when an operation's security requirement
	// is not met by the request.
	ErrUnauthenticated = errors.New("authentication required")
)

// Violation describes one failed contract check.
type Violation struct {
	// Field is a dotted location such as "body.username" or "path.id".
	Field string `json:"field"`
	// In is one of "path", "query", "header", "cookie" or "body".
	In string `json:"in"`
	// Rule is the schema keyword that failed, e.g. "required" or "maxLength".
	Rule        string `json:"rule,omitempty"`
	Description string `json:"description"`
}

// ValidationError lists every violation found in a request.
type ValidationError struct {
	Operation  string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("request validation failed for %s: %d violation(s)", e.Operation, len(e.Violations))
}
