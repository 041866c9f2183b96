package analytics

import "time"

const DateLayout = "2006-01-02"

// DayKeys returns n consecutive UTC dates ending on end's date, oldest first.
func DayKeys(end time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	end = end.UTC()
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, end.AddDate(0, 0, -i).Format(DateLayout))
	}
	return out
}

// FillDays returns one entry per key, taking it from have or building a zero row.
func FillDays[T any](keys []string, have map[string]T, zero func(date string) T) []T {
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		if v, ok := have[k]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, zero(k))
	}
	return out
}

// DaysBetween returns every UTC date from start's date to end's date inclusive.
// A rolling window that starts mid-day therefore covers one partial day at each end.
func DaysBetween(start, end time.Time) []string {
	s := start.UTC().Truncate(24 * time.Hour)
	e := end.UTC().Truncate(24 * time.Hour)
	if e.Before(s) {
		return nil
	}
	return DayKeys(e, int(e.Sub(s)/(24*time.Hour))+1)
}
