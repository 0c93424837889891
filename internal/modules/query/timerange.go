package query

import (
	"strings"
	"time"
)

var dayOfWeekNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ApplyTimeRange scopes rows to a time range, using the row's closed_at
// timestamp. Comparison ranges keep both windows and stamp each row with a
// time_period label for grouping; labeled rows are copies, the input is
// never mutated. A nil range returns the input unchanged.
func ApplyTimeRange(rows []Row, tr *TimeRange, now time.Time) []Row {
	if tr == nil {
		return rows
	}

	switch tr.Kind {
	case TimeRangePreset:
		if tr.Preset == PresetAllTime {
			return rows
		}
		start, end, ok := presetWindow(tr.Preset, now)
		if !ok {
			return rows
		}
		return rowsInWindow(rows, start, end)

	case TimeRangeDayOfWeek:
		day, ok := dayOfWeekNames[strings.ToLower(tr.DayOfWeek)]
		if !ok {
			return rows
		}
		if tr.Specific {
			start := mostRecentDay(now, day)
			return rowsInWindow(rows, start, start.AddDate(0, 0, 1))
		}
		var out []Row
		for _, row := range rows {
			if ts, ok := rowTime(row); ok && ts.Weekday() == day {
				out = append(out, row)
			}
		}
		return out

	case TimeRangeComparison:
		return applyComparison(rows, tr.Comparison, now)

	case TimeRangeCustom:
		from, errF := time.Parse("2006-01-02", tr.From)
		to, errT := time.Parse("2006-01-02", tr.To)
		if errF != nil || errT != nil {
			return rows
		}
		// End date is inclusive.
		return rowsInWindow(rows, from, to.AddDate(0, 0, 1))
	}

	return rows
}

func presetWindow(preset string, now time.Time) (time.Time, time.Time, bool) {
	today := startOfDay(now)
	switch preset {
	case PresetToday:
		return today, today.AddDate(0, 0, 1), true
	case PresetYesterday:
		return today.AddDate(0, 0, -1), today, true
	case PresetThisWeek:
		start := startOfWeek(now)
		return start, start.AddDate(0, 0, 7), true
	case PresetLastWeek:
		start := startOfWeek(now).AddDate(0, 0, -7)
		return start, start.AddDate(0, 0, 7), true
	case PresetThisMonth:
		start := startOfMonth(now)
		return start, start.AddDate(0, 1, 0), true
	case PresetLastMonth:
		end := startOfMonth(now)
		return end.AddDate(0, -1, 0), end, true
	}
	return time.Time{}, time.Time{}, false
}

func applyComparison(rows []Row, comparison string, now time.Time) []Row {
	switch comparison {
	case ComparisonWeekendVsWeekday:
		out := make([]Row, 0, len(rows))
		for _, row := range rows {
			ts, ok := rowTime(row)
			if !ok {
				continue
			}
			label := "weekday"
			if ts.Weekday() == time.Saturday || ts.Weekday() == time.Sunday {
				label = "weekend"
			}
			out = append(out, labelRow(row, label))
		}
		return out

	case ComparisonThisWeekVsLastWeek:
		thisStart := startOfWeek(now)
		lastStart := thisStart.AddDate(0, 0, -7)
		return labelWindows(rows,
			window{lastStart, thisStart, "last_week"},
			window{thisStart, thisStart.AddDate(0, 0, 7), "this_week"})

	case ComparisonThisMonthVsLastMonth:
		thisStart := startOfMonth(now)
		lastStart := thisStart.AddDate(0, -1, 0)
		return labelWindows(rows,
			window{lastStart, thisStart, "last_month"},
			window{thisStart, thisStart.AddDate(0, 1, 0), "this_month"})
	}

	return rows
}

type window struct {
	start, end time.Time
	label      string
}

func labelWindows(rows []Row, windows ...window) []Row {
	var out []Row
	for _, row := range rows {
		ts, ok := rowTime(row)
		if !ok {
			continue
		}
		for _, w := range windows {
			if !ts.Before(w.start) && ts.Before(w.end) {
				out = append(out, labelRow(row, w.label))
				break
			}
		}
	}
	return out
}

// labelRow copies a row and stamps its time_period.
func labelRow(row Row, label string) Row {
	copied := make(Row, len(row)+1)
	for k, v := range row {
		copied[k] = v
	}
	copied["time_period"] = label
	return copied
}

func rowsInWindow(rows []Row, start, end time.Time) []Row {
	var out []Row
	for _, row := range rows {
		ts, ok := rowTime(row)
		if !ok {
			continue
		}
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, row)
		}
	}
	return out
}

func rowTime(row Row) (time.Time, bool) {
	switch v := row["closed_at"].(type) {
	case time.Time:
		return v, true
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// mostRecentDay returns the start of the latest occurrence of the weekday
// strictly before or on today. "Last tuesday" on a tuesday means today.
func mostRecentDay(now time.Time, day time.Weekday) time.Time {
	t := startOfDay(now)
	for t.Weekday() != day {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// startOfWeek returns the preceding monday at midnight.
func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
