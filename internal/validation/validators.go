// Package validation guards every external-facing string the coordinator
// accepts — a report's source/kind/id triple, a free-text description, a
// query's time-range filter — before it reaches the domain packages.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jordigilh/reliefnet/pkg/reports"
)

// ReportReference identifies a report by the same triple callers use to
// look one up: which source produced it, what kind of event it reports,
// and its id.
type ReportReference struct {
	Source string
	Kind   string
	ID     string
}

var (
	sourceTagPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9_]*[a-z0-9])?$`)
	reportIDPattern  = regexp.MustCompile(`^[a-z0-9]([a-z0-9\-]*[a-z0-9])?$`)
	unsafePattern    = regexp.MustCompile(`(?i)(union\s+select|drop\s+table|;\s*--|--\s|<script|</script|'\s*or\s*'|;\s*delete|;\s*insert)`)
	controlCharPattern = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
)

// ValidateReportReference checks that ref's fields are non-empty,
// within length bounds, and well-formed.
func ValidateReportReference(ref ReportReference) error {
	var errs []string

	if ref.Source == "" {
		errs = append(errs, "source is required")
	} else if len(ref.Source) > 63 {
		errs = append(errs, "source must be 63 characters or less")
	} else if !sourceTagPattern.MatchString(ref.Source) {
		errs = append(errs, "source must be a valid source tag (lowercase alphanumeric and underscores)")
	}

	if ref.Kind == "" {
		errs = append(errs, "kind is required")
	} else if len(ref.Kind) > 100 {
		errs = append(errs, "kind must be 100 characters or less")
	} else if !reports.EventKind(ref.Kind).Valid() {
		errs = append(errs, "kind must be a recognized event kind")
	}

	if ref.ID == "" {
		errs = append(errs, "id is required")
	} else if len(ref.ID) > 253 {
		errs = append(errs, "id must be 253 characters or less")
	} else if !reportIDPattern.MatchString(ref.ID) {
		errs = append(errs, "id must be a valid report identifier")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ValidateStringInput checks a free-text field (a report description, a raw
// query string) for length and for patterns indicative of injection
// attempts or control-character smuggling.
func ValidateStringInput(field, value string, maxLen int) error {
	if len(value) > maxLen {
		return fmt.Errorf("%s must be %d characters or less", field, maxLen)
	}
	if unsafePattern.MatchString(value) {
		return fmt.Errorf("%s contains potentially unsafe characters", field)
	}
	if hasDisallowedControlChars(value) {
		return fmt.Errorf("%s contains invalid control characters", field)
	}
	return nil
}

func hasDisallowedControlChars(s string) bool {
	return controlCharPattern.MatchString(s)
}

// ValidateEventKind checks that kind is one of spec's closed EventKind set.
func ValidateEventKind(kind string) error {
	if unsafePattern.MatchString(kind) {
		return fmt.Errorf("event kind contains potentially unsafe characters")
	}
	if !reports.EventKind(kind).Valid() {
		return fmt.Errorf("%q is not a recognized action type", kind)
	}
	return nil
}

var timeRangePattern = regexp.MustCompile(`^\d+[mhd]$`)

// ValidateTimeRange checks a duration-shorthand string like "1h", "24h", "7d".
func ValidateTimeRange(timeRange string) error {
	if unsafePattern.MatchString(timeRange) {
		return fmt.Errorf("time range contains potentially unsafe characters")
	}
	if !timeRangePattern.MatchString(timeRange) {
		return fmt.Errorf("time range must be in format like '1h', '24h', '7d'")
	}
	return nil
}

// ValidateWindowMinutes checks a "since N minutes ago" window bound.
func ValidateWindowMinutes(minutes int) error {
	if minutes <= 0 {
		return fmt.Errorf("window minutes must be greater than 0")
	}
	if minutes > 10080 {
		return fmt.Errorf("window minutes must be 7 days (10080 minutes) or less")
	}
	return nil
}

// ValidateLimit checks a result-count bound (e.g. top-N shelters).
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}
	if limit > 10000 {
		return fmt.Errorf("limit must be 10000 or less")
	}
	return nil
}

// SanitizeForLogging replaces disallowed control characters with '?' and
// truncates to 200 characters (with a trailing "...") so a malicious or
// malformed field can't corrupt or blow up log output.
func SanitizeForLogging(input string) string {
	sanitized := controlCharPattern.ReplaceAllString(input, "?")
	if len(sanitized) > 200 {
		sanitized = sanitized[:197] + "..."
	}
	return sanitized
}
