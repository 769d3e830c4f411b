package filter

import (
	"time"
)

const day = 24 * time.Hour

// Window is a resolved date interval. Both bounds are inclusive.
type Window struct {
	From  time.Time
	Until time.Time
}

// Contains reports whether t falls within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.Until)
}

// ResolveDateRange computes the window of a dateRange filter, anchored to
// the evaluator's current day at local midnight.
// Returns false when the filter imposes no constraint: the window is "_any",
// a custom bound cannot be parsed, or the keyword is unsupported (which is
// logged as an error).
func (e *Evaluator) ResolveDateRange(f *DateRangeFilter) (Window, bool) {
	now := e.now().In(e.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, e.loc)
	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, e.loc)

	switch w := f.Window.(type) {
	case nil, AnyWindow:
		return Window{}, false
	case CustomWindow:
		from, ok := toDate(w.From, e.loc)
		if !ok {
			return Window{}, false
		}
		until, ok := toDate(w.Until, e.loc)
		if !ok {
			return Window{}, false
		}
		until = until.In(e.loc)
		until = time.Date(until.Year(), until.Month(), until.Day(), 23, 59, 59, int(999*time.Millisecond), e.loc)
		return Window{From: from, Until: until}, true
	case SymbolicWindow:
		switch w.Name {
		case RangeToday:
			return Window{From: today, Until: today.Add(day)}, true
		case RangeYesterday:
			return Window{From: today.Add(-day), Until: today}, true
		case Range7Days:
			until := today.Add(day)
			return Window{From: until.Add(-7 * day), Until: until}, true
		case RangeMonth:
			return Window{From: firstOfMonth, Until: firstOfMonth.AddDate(0, 1, 0)}, true
		case RangeLastMonth:
			return Window{From: firstOfMonth.AddDate(0, -1, 0), Until: firstOfMonth}, true
		}
		e.logger.Error("Filter date range not implemented, skipping filter",
			"field", f.Field(),
			"range", w.Name,
		)
		return Window{}, false
	}
	return Window{}, false
}

// ResolveDateTimeRange computes the window of a dateTimeRange filter from
// its explicit bounds. Returns false when the value is "_any" or either
// bound cannot be parsed. Bounds are used as exact instants.
func (e *Evaluator) ResolveDateTimeRange(f *DateTimeRangeFilter) (Window, bool) {
	if _, ok := f.Value.(Unconstrained); ok {
		return Window{}, false
	}
	from, ok := toDate(f.From, e.loc)
	if !ok {
		return Window{}, false
	}
	until, ok := toDate(f.Until, e.loc)
	if !ok {
		return Window{}, false
	}
	return Window{From: from, Until: until}, true
}
