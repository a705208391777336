package schedule

import "time"

// NextConsumption advances a line's consumption schedule. The anchor is the
// previously computed next date when one exists, otherwise the line's start
// date; only the very first computation may return the anchor itself. The
// result is clamped independently against the line's end date and the owning
// subscription's end date. nil means the series is exhausted, whether by the
// rule's own terminators or by either bound; the two causes are deliberately
// not distinguished.
func NextConsumption(rule *Rule, nextDate *time.Time, startDate time.Time, lineEnd, subEnd *time.Time) *time.Time {
	if rule == nil {
		return nil
	}

	anchor := startDate
	if nextDate != nil {
		anchor = *nextDate
	}
	inclusive := nextDate == nil && anchor.Equal(startDate)

	next, ok := rule.Next(anchor, startDate, inclusive)
	if !ok {
		return nil
	}
	for _, end := range []*time.Time{lineEnd, subEnd} {
		if end != nil && next.After(*end) {
			return nil
		}
	}
	return &next
}
