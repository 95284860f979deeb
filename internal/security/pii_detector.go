package security

import (
	"strings"
)

// PIIDetector flags text that mentions configured sensitive keywords
type PIIDetector struct {
	keywords []string
}

func NewPIIDetector(keywords []string) *PIIDetector {
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	return &PIIDetector{keywords: lower}
}

// Enabled reports whether any keyword is configured
func (d *PIIDetector) Enabled() bool {
	return len(d.keywords) > 0
}

// Detect returns true and the matched keyword if PII is found in text
func (d *PIIDetector) Detect(text string) (bool, string) {
	lower := strings.ToLower(text)
	for _, kw := range d.keywords {
		if strings.Contains(lower, kw) {
			return true, kw
		}
	}
	return false, ""
}
