// Package extdatetime provides the Dates static class: calendar arithmetic
// on time.Time values.
//
// Supported units: "year", "month", "day", "hour", "minute", "second",
// "millisecond". Epoch milliseconds convert with fromMillis and millis.
package extdatetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandrolain/gognl/pkg/ext/extutil"
	"github.com/sandrolain/gognl/pkg/functions"
)

// Dates marks the Dates class.
type Dates struct{}

// Class returns the Dates class.
func Class() functions.Class {
	return extutil.Class[Dates]("Dates", All(),
		functions.Constant{Name: "RFC3339", Value: time.RFC3339},
		functions.Constant{Name: "DateOnly", Value: time.DateOnly},
	)
}

// All returns all date function definitions.
func All() []functions.Func {
	return []functions.Func{
		Now(),
		FromMillis(),
		Millis(),
		Parse(),
		Format(),
		DateAdd(),
		DateDiff(),
		DateComponents(),
		DateStartOf(),
		DateEndOf(),
	}
}

// Now returns the definition for now(). The result is in UTC.
func Now() functions.Func {
	return extutil.Fn("now", func() time.Time { return time.Now().UTC() })
}

// FromMillis returns the definition for fromMillis(ms).
func FromMillis() functions.Func {
	return extutil.Fn("fromMillis", func(ms int64) time.Time { return time.UnixMilli(ms).UTC() })
}

// Millis returns the definition for millis(t).
func Millis() functions.Func {
	return extutil.Fn("millis", func(t time.Time) int64 { return t.UnixMilli() })
}

// Parse returns the definition for parse(str [, layout]). The default
// layout is RFC 3339.
func Parse() functions.Func {
	return extutil.Fn("parse",
		func(s string) (time.Time, error) { return parse(s, time.RFC3339) },
		parse,
	)
}

func parse(s, layout string) (time.Time, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse: %w", err)
	}
	return t, nil
}

// Format returns the definition for format(t [, layout]).
func Format() functions.Func {
	return extutil.Fn("format",
		func(t time.Time) string { return t.Format(time.RFC3339) },
		func(t time.Time, layout string) string { return t.Format(layout) },
	)
}

// DateAdd returns the definition for dateAdd(t, amount, unit).
func DateAdd() functions.Func {
	return extutil.Fn("dateAdd", func(t time.Time, n int, unit string) (time.Time, error) {
		switch strings.ToLower(unit) {
		case "year":
			return t.AddDate(n, 0, 0), nil
		case "month":
			return t.AddDate(0, n, 0), nil
		case "day":
			return t.AddDate(0, 0, n), nil
		case "hour":
			return t.Add(time.Duration(n) * time.Hour), nil
		case "minute":
			return t.Add(time.Duration(n) * time.Minute), nil
		case "second":
			return t.Add(time.Duration(n) * time.Second), nil
		case "millisecond":
			return t.Add(time.Duration(n) * time.Millisecond), nil
		}
		return time.Time{}, fmt.Errorf("dateAdd: unsupported unit %q", unit)
	})
}

// DateDiff returns the definition for dateDiff(from, to, unit): to - from
// in whole units.
func DateDiff() functions.Func {
	return extutil.Fn("dateDiff", func(from, to time.Time, unit string) (int64, error) {
		d := to.Sub(from)
		switch strings.ToLower(unit) {
		case "millisecond":
			return d.Milliseconds(), nil
		case "second":
			return int64(d / time.Second), nil
		case "minute":
			return int64(d / time.Minute), nil
		case "hour":
			return int64(d / time.Hour), nil
		case "day":
			return int64(d / (24 * time.Hour)), nil
		case "month":
			years, months := diffYM(from, to)
			return int64(years*12 + months), nil
		case "year":
			years, _ := diffYM(from, to)
			return int64(years), nil
		}
		return 0, fmt.Errorf("dateDiff: unsupported unit %q", unit)
	})
}

// diffYM returns the difference in full years and remaining months.
func diffYM(from, to time.Time) (years, months int) {
	y1, m1, d1 := from.Date()
	y2, m2, d2 := to.Date()
	years = y2 - y1
	months = int(m2) - int(m1)
	if d2 < d1 {
		months--
	}
	if months < 0 {
		years--
		months += 12
	}
	return years, months
}

// DateComponents returns the definition for dateComponents(t [, zone]):
// a map with year, month, day, hour, minute, second, millisecond and
// weekday (0 is Sunday).
func DateComponents() functions.Func {
	components := func(t time.Time, zone string) (map[string]any, error) {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			return nil, fmt.Errorf("dateComponents: invalid timezone %q: %w", zone, err)
		}
		t = t.In(loc)
		return map[string]any{
			"year":        t.Year(),
			"month":       int(t.Month()),
			"day":         t.Day(),
			"hour":        t.Hour(),
			"minute":      t.Minute(),
			"second":      t.Second(),
			"millisecond": t.Nanosecond() / int(time.Millisecond),
			"weekday":     int(t.Weekday()),
		}, nil
	}
	return extutil.Fn("dateComponents",
		func(t time.Time) (map[string]any, error) { return components(t, "UTC") },
		components,
	)
}

// DateStartOf returns the definition for dateStartOf(t, unit), in UTC.
func DateStartOf() functions.Func {
	return extutil.Fn("dateStartOf", func(t time.Time, unit string) (time.Time, error) {
		t = t.UTC()
		switch strings.ToLower(unit) {
		case "year":
			return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC), nil
		case "month":
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		case "day":
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		case "hour":
			return t.Truncate(time.Hour), nil
		case "minute":
			return t.Truncate(time.Minute), nil
		case "second":
			return t.Truncate(time.Second), nil
		}
		return time.Time{}, fmt.Errorf("dateStartOf: unsupported unit %q", unit)
	})
}

// DateEndOf returns the definition for dateEndOf(t, unit): the last
// millisecond of the unit, in UTC.
func DateEndOf() functions.Func {
	return extutil.Fn("dateEndOf", func(t time.Time, unit string) (time.Time, error) {
		t = t.UTC()
		var next time.Time
		switch strings.ToLower(unit) {
		case "year":
			next = time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC)
		case "month":
			next = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		case "day":
			next = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
		case "hour":
			next = t.Truncate(time.Hour).Add(time.Hour)
		case "minute":
			next = t.Truncate(time.Minute).Add(time.Minute)
		case "second":
			next = t.Truncate(time.Second).Add(time.Second)
		default:
			return time.Time{}, fmt.Errorf("dateEndOf: unsupported unit %q", unit)
		}
		return next.Add(-time.Millisecond), nil
	})
}
