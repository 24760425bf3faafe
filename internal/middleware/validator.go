package middleware

import (
	"fmt"

	"github.com/bryanwahyu/callcenter-analytics/internal/domain/audio"
)

// ValidateAnalysisID checks an export id ("call1" or "call1.json").
func ValidateAnalysisID(id string) error {
	if err := audio.ValidateName(id); err != nil {
		return fmt.Errorf("invalid analysis_id: %w", err)
	}
	return nil
}

// ValidateLimit clamps a list size.
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}
