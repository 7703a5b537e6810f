package insights

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// PeriodClass classifies a message arrival time against business hours.
type PeriodClass string

const (
	PeriodBusiness PeriodClass = "business"
	PeriodOffHours PeriodClass = "off_hours"
	PeriodWeekend  PeriodClass = "weekend"
)

// Business hours in the reference zone, end exclusive.
const (
	BusinessStartHour = 8
	BusinessEndHour   = 18
)

// ReferenceZone is the civil time used by the business: UTC-3 without daylight saving
// (America/Sao_Paulo since 2019).
var ReferenceZone = time.FixedZone("BRT", -3*60*60)

// ErrInvalidTimestamp is returned when a raw timestamp cannot be parsed.
var ErrInvalidTimestamp = errors.New("invalid timestamp")

// Classify returns the period class of ts in the reference zone.
// Weekends win over the hour of day.
func Classify(ts time.Time) PeriodClass {
	local := ts.In(ReferenceZone)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return PeriodWeekend
	}
	return hourClass(local.Hour())
}

// LocalHour returns the hour of ts in the reference zone, regardless of weekday.
func LocalHour(ts time.Time) int {
	return ts.In(ReferenceZone).Hour()
}

// hourClass is the weekday rule, also used to tag histogram bars.
func hourClass(hour int) PeriodClass {
	if hour >= BusinessStartHour && hour < BusinessEndHour {
		return PeriodBusiness
	}
	return PeriodOffHours
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999Z07",
}

// zone-less layouts are read as UTC
var utcLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp parses the timestamp formats produced by the message store
// (RFC 3339 and Postgres-style timestamptz text).
func ParseTimestamp(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	for _, layout := range utcLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
