package security

import (
	"fmt"
	"regexp"
	"strings"
)

// Limits applied to source submitted over the registration surface
const (
	MinSourceChars = 10
	MaxSourceChars = 2000
	MaxSourceLines = 120
)

// deniedImports reach the filesystem, processes, the network or the runtime
var deniedImports = map[string]bool{
	"os":            true,
	"os/exec":       true,
	"os/signal":     true,
	"os/user":       true,
	"syscall":       true,
	"unsafe":        true,
	"plugin":        true,
	"runtime":       true,
	"runtime/debug": true,
	"reflect":       true,
	"io/fs":         true,
	"io/ioutil":     true,
	"path/filepath": true,
	"net":           true,
	"net/http":      true,
	"net/rpc":       true,
	"net/smtp":      true,
	"database/sql":  true,
}

// importLine matches a single import path, inside or outside an import block
var importLine = regexp.MustCompile(`(?m)^\s*(?:import\s+)?(?:[\w.]+\s+)?"([^"\s]+)"\s*(?://.*)?$`)

var contextRef = regexp.MustCompile(`\bcontext\.Context\b`)

// SourceValidator screens Go source submitted for registration
type SourceValidator struct{}

func NewSourceValidator() *SourceValidator {
	return &SourceValidator{}
}

// Validate checks size, line count, context usage and imports
func (v *SourceValidator) Validate(code string) ValidationResult {
	n := len(code)
	if n < MinSourceChars || n > MaxSourceChars {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("code must be %d-%d characters, got %d", MinSourceChars, MaxSourceChars, n),
		}
	}

	if lines := strings.Count(code, "\n"); lines > MaxSourceLines {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("code too long; limit to %d lines", MaxSourceLines),
		}
	}

	if !contextRef.MatchString(code) {
		return ValidationResult{
			Valid:   false,
			Message: "function must accept a context.Context",
		}
	}

	for _, m := range importLine.FindAllStringSubmatch(code, -1) {
		if deniedImports[m[1]] {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("disallowed import detected: %q", m[1]),
			}
		}
	}

	return ValidationResult{Valid: true, Message: "ok"}
}
