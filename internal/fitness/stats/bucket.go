package stats

import (
	"fmt"
	"time"
)

// Period is the bucketing granularity of the aggregation engine.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod parses the period query param, defaulting to week when absent.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return Period(s), nil
	case "":
		return PeriodWeek, nil
	}
	return "", fmt.Errorf("invalid period: %s", s)
}

// BucketOf truncates a timestamp to the start of its bucket, in UTC.
// Weeks are ISO weeks starting on Monday; the same convention is used by
// the statistics, progress and chart endpoints so that bucket boundaries
// always line up. A timestamp exactly on a boundary belongs to the bucket
// it opens.
func BucketOf(t time.Time, period Period) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodWeek:
		// Monday = 0 ... Sunday = 6
		daysSinceMonday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -daysSinceMonday)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}
