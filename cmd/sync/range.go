package main

import (
	"fmt"
	"time"

	"github.com/sellerdash/backend/internal/domain/sales"
)

const dateLayout = "2006-01-02"

// resolveRange parses the --start and --end flags. A missing end is today; a
// missing start is the first day of the month lookback-1 months before end.
func resolveRange(start, end string, now time.Time, lookback int) (time.Time, time.Time, error) {
	to := sales.TruncateToDay(now)
	if end != "" {
		t, err := time.Parse(dateLayout, end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --end %q: expected YYYY-MM-DD", end)
		}
		to = t
	}

	var from time.Time
	if start != "" {
		t, err := time.Parse(dateLayout, start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --start %q: expected YYYY-MM-DD", start)
		}
		from = t
	} else {
		if lookback < 1 {
			lookback = 1
		}
		m := sales.MonthOf(to)
		for i := 1; i < lookback; i++ {
			m = m.Prev()
		}
		from = m.Start()
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, sales.ErrInvalidDateRange
	}
	return from, to, nil
}
