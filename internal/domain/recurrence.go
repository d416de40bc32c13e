package domain

// ExpandWeekly walks every calendar day from start to until inclusive and
// returns, in ascending order, the dates whose ISO weekday is in weekdays.
// start is not forced into the result. An empty result is valid.
func ExpandWeekly(start, until Date, weekdays []int16) ([]Date, error) {
	if until.Before(start) {
		return nil, &InvalidRangeError{Start: start, End: until}
	}

	want := make(map[int16]struct{}, len(weekdays))
	for _, wd := range weekdays {
		want[wd] = struct{}{}
	}
	if len(want) == 0 {
		return []Date{}, nil
	}

	out := make([]Date, 0, 16)
	for d := start; !d.After(until); d = d.AddDays(1) {
		if _, ok := want[d.ISOWeekday()]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// CountWeekly returns how many dates ExpandWeekly would produce without
// materializing them.
func CountWeekly(start, until Date, weekdays []int16) (int, error) {
	if until.Before(start) {
		return 0, &InvalidRangeError{Start: start, End: until}
	}
	want := make(map[int16]struct{}, len(weekdays))
	for _, wd := range weekdays {
		want[wd] = struct{}{}
	}
	if len(want) == 0 {
		return 0, nil
	}

	days := until.DaysSince(start.Date) + 1
	count := (days / 7) * len(want)
	first := start.AddDays((days / 7) * 7)
	for d := first; !d.After(until); d = d.AddDays(1) {
		if _, ok := want[d.ISOWeekday()]; ok {
			count++
		}
	}
	return count, nil
}

// WithAnchor returns dates with anchor merged in, ascending and without duplicates.
func WithAnchor(dates []Date, anchor Date) []Date {
	out := make([]Date, 0, len(dates)+1)
	inserted := false
	for _, d := range dates {
		if !inserted && !d.Before(anchor) {
			if !d.Equal(anchor) {
				out = append(out, anchor)
			}
			inserted = true
		}
		out = append(out, d)
	}
	if !inserted {
		out = append(out, anchor)
	}
	return out
}
