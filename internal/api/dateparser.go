package api

import (
	"strconv"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// ParseTime parses a timestamp given as Unix seconds, RFC3339 or a
// human-readable date such as "3 days ago" or "last monday". Relative dates
// resolve against now. fieldName is used in error messages.
func ParseTime(value, fieldName string, now time.Time) (time.Time, error) {
	if value == "" {
		return time.Time{}, NewInvalidRequestError("%s is required", fieldName)
	}

	if unix, err := strconv.ParseInt(value, 10, 64); err == nil {
		if unix < 0 {
			return time.Time{}, NewInvalidRequestError("%s must be non-negative", fieldName)
		}
		return time.Unix(unix, 0).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}

	parser := dps.Parser{}
	cfg := &dps.Configuration{
		CurrentTime: now,
		// "since March" means the last March, not the next one
		PreferredDateSource: dps.Past,
	}

	parsed, err := parser.Parse(cfg, value)
	if err != nil {
		return time.Time{}, NewInvalidRequestError("%s must be a Unix timestamp, RFC3339 or a human-readable date: %v", fieldName, err)
	}
	if parsed.IsZero() {
		return time.Time{}, NewInvalidRequestError("%s could not be parsed as a date: %s", fieldName, value)
	}
	return parsed.Time, nil
}

// ParseOptionalTime returns def when value is empty.
func ParseOptionalTime(value, fieldName string, now, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	return ParseTime(value, fieldName, now)
}
