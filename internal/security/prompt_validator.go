package security

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxPromptLength = 2000

// dangerousPatterns flags command execution, path traversal and prompt injection
var dangerousPatterns = []*regexp.Regexp{
	// Command execution
	regexp.MustCompile(`(?i)\brm\s+-`),
	regexp.MustCompile(`(?i)\brm\s+/`),
	regexp.MustCompile(`(?i)\bcurl\s+`),
	regexp.MustCompile(`(?i)\bwget\s+`),
	regexp.MustCompile(`(?i)\bnc\s+-`),
	regexp.MustCompile(`(?i)\bbash\s+-`),
	regexp.MustCompile(`(?i)\bsh\s+-c`),
	regexp.MustCompile(`(?i)\bsudo\s+`),

	// File operations / path traversal
	regexp.MustCompile(`\.\.\/`),
	regexp.MustCompile(`/etc/passwd`),
	regexp.MustCompile(`/etc/shadow`),
	regexp.MustCompile(`/proc/`),
	regexp.MustCompile(`id_rsa`),
	regexp.MustCompile(`\.ssh/`),

	// Code execution
	regexp.MustCompile(`(?i)eval\s*\(`),
	regexp.MustCompile(`(?i)exec\s*\(`),
	regexp.MustCompile(`(?i)system\s*\(`),
	regexp.MustCompile(`(?i)os\.system`),
	regexp.MustCompile(`(?i)exec\.command`),
	regexp.MustCompile(`(?i)popen`),

	// Prompt injection
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)override\s+(all\s+)?(the\s+)?previous\s+instructions`),
	regexp.MustCompile(`(?i)ignore\s+(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)reveal\s+(your|the)\s+system\s+prompt`),
	regexp.MustCompile(`(?i)new\s+context\s*:`),
	regexp.MustCompile(`(?i)change\s+context\s*:`),
	regexp.MustCompile(`(?i)instead\s+of\s+the\s+above`),
}

var suspiciousIndicators = []string{
	"import os", "import sys", "subprocess", "__import__",
}

// PromptValidator screens text that ends up inside a system prompt
type PromptValidator struct{}

func NewPromptValidator() *PromptValidator {
	return &PromptValidator{}
}

// ValidationResult contains validation outcome
type ValidationResult struct {
	Valid   bool
	Message string
}

// Validate checks a prompt fragment for dangerous patterns
func (v *PromptValidator) Validate(prompt string) ValidationResult {
	if len(prompt) > MaxPromptLength {
		return ValidationResult{
			Valid:   false,
			Message: fmt.Sprintf("prompt too long: %d chars (max %d)", len(prompt), MaxPromptLength),
		}
	}

	if strings.TrimSpace(prompt) == "" {
		return ValidationResult{Valid: false, Message: "prompt cannot be empty"}
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(prompt) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("dangerous pattern detected: %s", pattern.String()),
			}
		}
	}

	lower := strings.ToLower(prompt)
	for _, indicator := range suspiciousIndicators {
		if strings.Contains(lower, indicator) {
			return ValidationResult{
				Valid:   false,
				Message: fmt.Sprintf("suspicious instruction indicator detected: %q", indicator),
			}
		}
	}

	return ValidationResult{Valid: true, Message: "ok"}
}
