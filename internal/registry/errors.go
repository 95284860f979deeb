package registry

import "github.com/cockroachdb/errors"

var (
	// ErrUnknownTool is returned when a name is not registered.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrPayloadTooLarge is returned for source text above MaxSourceBytes.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrValidationFailed is returned for malformed registration input.
	ErrValidationFailed = errors.New("validation failed")
	// ErrNoExecutableFound is returned when source defines neither a tool type nor a function.
	ErrNoExecutableFound = errors.New("no callable or tool type found in source")
	// ErrPersistence marks record store failures. They are logged, never returned
	// from registration.
	ErrPersistence = errors.New("tool persistence failed")
)
