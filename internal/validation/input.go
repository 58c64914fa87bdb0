package validation

import (
	"fmt"
	"regexp"
)

var identRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateSessionID validates preview session ID format
func ValidateSessionID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("session ID must be 1-64 characters")
	}
	if !identRe.MatchString(id) {
		return fmt.Errorf("session ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateChoiceID validates choice ID format
func ValidateChoiceID(id string) error {
	if len(id) == 0 || len(id) > 128 {
		return fmt.Errorf("choice ID must be 1-128 characters")
	}
	if !identRe.MatchString(id) {
		return fmt.Errorf("choice ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateProjectID validates project ID format
func ValidateProjectID(id string) error {
	if len(id) == 0 || len(id) > 64 {
		return fmt.Errorf("project ID must be 1-64 characters")
	}
	if !identRe.MatchString(id) {
		return fmt.Errorf("project ID can only contain alphanumeric characters, hyphens, and underscores")
	}
	return nil
}

// ValidateGraphID validates a numeric graph ID
func ValidateGraphID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("graph ID must be positive")
	}
	return nil
}
