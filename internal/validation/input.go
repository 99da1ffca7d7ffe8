package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Platform snowflakes are 17-20 decimal digits.
var snowflakeRegex = regexp.MustCompile(`^[0-9]{17,20}$`)

// maxReasonLength matches the platform's audit-log reason limit.
const maxReasonLength = 512

// ValidateSnowflake checks that id looks like a platform member ID.
func ValidateSnowflake(id string) error {
	if !snowflakeRegex.MatchString(id) {
		return fmt.Errorf("id must be a 17-20 digit snowflake")
	}
	return nil
}

// ValidateReason checks a free-text moderation reason. Empty is allowed;
// control characters and oversized text are not.
func ValidateReason(reason string) error {
	if len(reason) > maxReasonLength {
		return fmt.Errorf("reason must be at most %d characters", maxReasonLength)
	}
	if strings.ContainsAny(reason, "\x00\x1b") {
		return fmt.Errorf("reason contains control characters")
	}
	return nil
}
