package converter

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"junitxml2subunit/internal/junitxml"
)

// TestCaseAttributes are the attributes of a testcase start tag. A nil
// field means the attribute was absent.
type TestCaseAttributes struct {
	Name      *string
	ClassName *string
	ID        *string
	Time      *string
}

func attributesFromEvent(ev junitxml.Event) TestCaseAttributes {
	get := func(key string) *string {
		if v, ok := ev.Attr(key); ok {
			return &v
		}
		return nil
	}
	return TestCaseAttributes{
		Name:      get("name"),
		ClassName: get("classname"),
		ID:        get("id"),
		Time:      get("time"),
	}
}

// DeriveTestID builds the test identifier. The first available form wins:
// classname.name, classname.id, classname, id, name.
func DeriveTestID(attrs TestCaseAttributes) (string, error) {
	switch {
	case attrs.ClassName != nil && attrs.Name != nil:
		return *attrs.ClassName + "." + *attrs.Name, nil
	case attrs.ClassName != nil && attrs.ID != nil:
		return *attrs.ClassName + "." + *attrs.ID, nil
	case attrs.ClassName != nil:
		return *attrs.ClassName, nil
	case attrs.ID != nil:
		return *attrs.ID, nil
	case attrs.Name != nil:
		return *attrs.Name, nil
	}
	return "", ErrMissingIdentifier
}

// ParseDuration parses a testcase time attribute: decimal seconds, possibly
// fractional or with an exponent, rounded to the nearest nanosecond.
func ParseDuration(raw string) (time.Duration, error) {
	text := strings.TrimSpace(raw)
	if !isDecimal(text) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	secs, err := strconv.ParseFloat(text, 64)
	if err != nil || secs < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	// float64(math.MaxInt64) is 2^63, which no Duration can hold
	ns := math.Round(secs * float64(time.Second))
	if ns >= float64(math.MaxInt64) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, raw)
	}
	return time.Duration(ns), nil
}

// isDecimal rejects what strconv.ParseFloat accepts beyond plain decimal
// notation: hex floats, Inf, NaN and underscores.
func isDecimal(s string) bool {
	return s != "" && strings.Trim(s, "0123456789.eE+-") == ""
}
