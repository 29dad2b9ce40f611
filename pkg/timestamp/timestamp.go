// Package timestamp provides the ISO-8601 timestamp handling used on the wire.
//
// Audit entries and progress records are serialized as RFC 3339 strings with
// nanosecond precision in UTC. Parsing is lenient about what earlier producers
// emitted:
//   - RFC 3339 with or without fractional seconds and with any offset
//   - the extended-year ISO-8601 form "+002024-01-15T12:30:45Z"
//   - Unix seconds or milliseconds as numbers or numeric strings
//
// Zero Value Semantics:
//   - The zero time.Time formats as the empty string
//   - The empty string and nil parse to the zero time.Time
//
// Every value produced by this package is normalized with Normalize so that a
// Format/Parse round trip yields a time.Time equal under reflect.DeepEqual.
package timestamp

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time {
	return time.Now()
}

// Fixed returns a clock that always reports t.
func Fixed(t time.Time) Clock {
	return func() time.Time { return t }
}

// Now returns the normalized current time of clock, or of the wall clock when
// clock is nil.
func Now(clock Clock) time.Time {
	if clock == nil {
		clock = SystemClock
	}
	return Normalize(clock())
}

// Normalize converts t to UTC and drops the monotonic clock reading.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC().Round(0)
}

// Format renders t as RFC 3339 with nanoseconds in UTC.
// Returns empty string for the zero time.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Parse converts a wire timestamp into a normalized time.Time.
func Parse(input any) (time.Time, error) {
	switch v := input.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return Normalize(v), nil
	case int64:
		return fromUnix(v), nil
	case int:
		return fromUnix(int64(v)), nil
	case float64:
		return fromUnix(int64(v)), nil
	case string:
		return parseString(v)
	default:
		return time.Time{}, fmt.Errorf("timestamp: unsupported type %T", input)
	}
}

// MustParse is Parse for constants in tests and examples.
func MustParse(s string) time.Time {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

func parseString(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, shortenYear(s)); err == nil {
		return Normalize(t), nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return fromUnix(n), nil
	}

	return time.Time{}, fmt.Errorf("timestamp: cannot parse %q as ISO-8601", s)
}

// shortenYear rewrites the six-digit signed year of extended ISO-8601
// ("+002024-...") into the four-digit form RFC 3339 requires.
func shortenYear(s string) string {
	if len(s) < 8 || (s[0] != '+' && s[0] != '-') || s[7] != '-' {
		return s
	}
	year := s[1:7]
	if _, err := strconv.Atoi(year); err != nil || s[0] == '-' || year[:2] != "00" {
		return s
	}
	return year[2:] + s[7:]
}

// fromUnix treats values above 1e12 as milliseconds and the rest as seconds.
func fromUnix(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	if v > 1e12 {
		return Normalize(time.UnixMilli(v))
	}
	return Normalize(time.Unix(v, 0))
}
