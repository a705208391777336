package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Freq is a calendar frequency for anchored recurrence rules.
type Freq string

const (
	Daily   Freq = "daily"
	Weekly  Freq = "weekly"
	Monthly Freq = "monthly"
	Yearly  Freq = "yearly"
)

// Rule generates an ordered sequence of consumption dates. Two forms are
// supported: a calendar frequency anchored at the line's start date
// ("weekly", "every 2 weeks", optionally terminated by "count N" or
// "until YYYY-MM-DD"), and a cron expression ("cron:0 0 1 * *") evaluated
// with robfig/cron at date granularity.
type Rule struct {
	Freq     Freq
	Interval int
	Count    int       // 0 = unlimited
	Until    time.Time // zero = unbounded

	cron cron.Schedule
	spec string
}

var freqNames = map[string]Freq{
	"daily":   Daily,
	"day":     Daily,
	"days":    Daily,
	"weekly":  Weekly,
	"week":    Weekly,
	"weeks":   Weekly,
	"monthly": Monthly,
	"month":   Monthly,
	"months":  Monthly,
	"yearly":  Yearly,
	"year":    Yearly,
	"years":   Yearly,
}

// Parse parses a recurrence spec string. The empty string is not a rule;
// callers map it to "no recurrence" before calling.
func Parse(spec string) (*Rule, error) {
	raw := strings.TrimSpace(spec)
	if raw == "" {
		return nil, fmt.Errorf("schedule: empty recurrence spec")
	}

	if expr, ok := strings.CutPrefix(raw, "cron:"); ok {
		sched, err := cron.ParseStandard(strings.TrimSpace(expr))
		if err != nil {
			return nil, fmt.Errorf("schedule: parse cron %q: %w", expr, err)
		}
		return &Rule{cron: sched, spec: raw}, nil
	}

	r := &Rule{Interval: 1, spec: raw}
	fields := strings.Fields(strings.ToLower(raw))

	i := 0
	if fields[i] == "every" {
		if len(fields) < 3 {
			return nil, fmt.Errorf("schedule: incomplete spec %q", spec)
		}
		n, err := strconv.Atoi(fields[i+1])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("schedule: bad interval in %q", spec)
		}
		r.Interval = n
		i += 2
	}

	freq, ok := freqNames[fields[i]]
	if !ok {
		return nil, fmt.Errorf("schedule: unknown frequency %q", fields[i])
	}
	r.Freq = freq
	i++

	for i < len(fields) {
		switch fields[i] {
		case "count":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("schedule: count without value in %q", spec)
			}
			n, err := strconv.Atoi(fields[i+1])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("schedule: bad count in %q", spec)
			}
			r.Count = n
			i += 2
		case "until":
			if i+1 >= len(fields) {
				return nil, fmt.Errorf("schedule: until without value in %q", spec)
			}
			d, err := time.Parse("2006-01-02", fields[i+1])
			if err != nil {
				return nil, fmt.Errorf("schedule: bad until date in %q", spec)
			}
			r.Until = d
			i += 2
		default:
			return nil, fmt.Errorf("schedule: unexpected token %q in %q", fields[i], spec)
		}
	}
	return r, nil
}

func (r *Rule) String() string { return r.spec }

// step returns the k-th occurrence of a calendar rule anchored at start
// (k = 0 is start itself). Multiplying from the anchor instead of stepping
// a running date keeps month arithmetic from drifting.
func (r *Rule) step(start time.Time, k int) time.Time {
	n := k * r.Interval
	switch r.Freq {
	case Daily:
		return start.AddDate(0, 0, n)
	case Weekly:
		return start.AddDate(0, 0, 7*n)
	case Monthly:
		return start.AddDate(0, n, 0)
	case Yearly:
		return start.AddDate(n, 0, 0)
	}
	return time.Time{}
}

// Next returns the first occurrence after anchor (at-or-after when inclusive
// is set). ok is false when the rule's own terminators end the series.
func (r *Rule) Next(anchor, start time.Time, inclusive bool) (time.Time, bool) {
	if r.cron != nil {
		t := anchor
		if inclusive {
			t = t.Add(-time.Second)
		}
		next := r.cron.Next(t)
		if next.IsZero() {
			return time.Time{}, false
		}
		next = truncateDate(next)
		if !r.Until.IsZero() && next.After(r.Until) {
			return time.Time{}, false
		}
		return next, true
	}

	for k := 0; ; k++ {
		if r.Count > 0 && k >= r.Count {
			return time.Time{}, false
		}
		occ := r.step(start, k)
		if !r.Until.IsZero() && occ.After(r.Until) {
			return time.Time{}, false
		}
		if occ.After(anchor) || (inclusive && occ.Equal(anchor)) {
			return occ, true
		}
	}
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
