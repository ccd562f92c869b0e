package domain

import (
	"fmt"
	"net/url"
	"strings"
)

const maxTargetLength = 2048

// LinkParams are the user-supplied link fields; nil means "not supplied".
type LinkParams struct {
	Target   *string
	UseLimit *int
	TTLHours *int
}

// CheckLinkParams validates the supplied fields against their allowed
// format and ranges. requireTarget makes a missing target a violation.
func CheckLinkParams(p LinkParams, requireTarget bool) []FieldViolation {
	var out []FieldViolation

	if p.Target == nil {
		if requireTarget {
			out = append(out, FieldViolation{Field: "long_url", Message: "long_url is required"})
		}
	} else if err := ValidateTarget(*p.Target); err != nil {
		out = append(out, FieldViolation{Field: "long_url", Message: err.Error()})
	}

	if p.UseLimit != nil && (*p.UseLimit < MinUseLimit || *p.UseLimit > MaxUseLimit) {
		out = append(out, FieldViolation{
			Field:   "use_limit",
			Message: fmt.Sprintf("use_limit must be between %d and %d", MinUseLimit, MaxUseLimit),
		})
	}

	if p.TTLHours != nil && (*p.TTLHours < MinTTLHours || *p.TTLHours > MaxTTLHours) {
		out = append(out, FieldViolation{
			Field:   "ttl_hours",
			Message: fmt.Sprintf("ttl_hours must be between %d and %d", MinTTLHours, MaxTTLHours),
		})
	}

	return out
}

// ValidateTarget accepts absolute http(s) URLs with a host.
func ValidateTarget(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("long_url is required")
	}
	if len(raw) > maxTargetLength {
		return fmt.Errorf("long_url is longer than %d characters", maxTargetLength)
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("long_url is not a valid http(s) URL")
	}
	return nil
}

// IsValidCode reports whether s has the shape of a short code.
func IsValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
