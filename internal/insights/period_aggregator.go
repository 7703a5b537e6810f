package insights

import (
	"fmt"
	"time"
)

// HoursPerDay is the number of histogram buckets in a period aggregation.
const HoursPerDay = 24

// MessageEvent is an incoming message as seen by the aggregators.
type MessageEvent struct {
	Timestamp time.Time `json:"timestamp"`
	MailboxID string    `json:"mailboxId"`
}

// HourlyBucket is one bar of the hour-of-day histogram.
// PeriodClass only drives bar coloring and ignores weekends.
type HourlyBucket struct {
	Hour        int         `json:"hour"`
	Label       string      `json:"label"`
	Count       int         `json:"count"`
	PeriodClass PeriodClass `json:"periodClass"`
}

// PeriodSummary totals messages per period class.
type PeriodSummary struct {
	Business int `json:"business"`
	OffHours int `json:"offHours"`
	Weekend  int `json:"weekend"`
	Total    int `json:"total"`
}

// Percent returns the share of n in the summary total, rounded to the nearest integer.
func (s PeriodSummary) Percent(n int) int {
	if s.Total == 0 {
		return 0
	}
	return (n*100 + s.Total/2) / s.Total
}

func (s *PeriodSummary) add(class PeriodClass) {
	switch class {
	case PeriodBusiness:
		s.Business++
	case PeriodOffHours:
		s.OffHours++
	case PeriodWeekend:
		s.Weekend++
	}
	s.Total++
}

// AggregatePeriods builds the 24-bucket histogram and the period summary.
// Empty input yields 24 zero buckets and a zero summary.
func AggregatePeriods(events []MessageEvent) ([]HourlyBucket, PeriodSummary) {
	var counts [HoursPerDay]int
	var summary PeriodSummary

	for _, ev := range events {
		counts[LocalHour(ev.Timestamp)]++
		summary.add(Classify(ev.Timestamp))
	}

	buckets := make([]HourlyBucket, HoursPerDay)
	for hour := range buckets {
		buckets[hour] = HourlyBucket{
			Hour:        hour,
			Label:       hourLabel(hour),
			Count:       counts[hour],
			PeriodClass: hourClass(hour),
		}
	}
	return buckets, summary
}

func hourLabel(hour int) string {
	return fmt.Sprintf("%02dh", hour)
}
