package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Period string

const (
	PeriodMonth      Period = "month"
	PeriodWeek       Period = "week"
	PeriodDay        Period = "day"
	PeriodContinuous Period = "24/7"
)

func (p Period) Valid() bool {
	switch p {
	case PeriodMonth, PeriodWeek, PeriodDay, PeriodContinuous:
		return true
	}
	return false
}

// Phase is what the loop is allowed to do at a given instant.
type Phase int

const (
	PhaseClosed Phase = iota
	PhaseOpen
	PhaseExitsOnly
	PhaseFlatten
)

func (p Phase) String() string {
	switch p {
	case PhaseOpen:
		return "OPEN"
	case PhaseExitsOnly:
		return "EXITS_ONLY"
	case PhaseFlatten:
		return "FLATTEN"
	default:
		return "CLOSED"
	}
}

// TradingWindow is the daily schedule. Start, Finish and End are offsets
// from local midnight: entries are allowed in [Start, Finish), exits only in
// [Finish, End), and from End on every tagged position is closed on the last
// trading day of the period.
type TradingWindow struct {
	Start    time.Duration
	Finish   time.Duration
	End      time.Duration
	Interval time.Duration
	Period   Period
	Location *time.Location
}

var ErrInvalidWindow = errors.New("invalid trading window")

// ParseClock reads "HH:MM" as an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not HH:MM", ErrInvalidWindow, s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidWindow, s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidWindow, s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// FormatClock is the inverse of ParseClock.
func FormatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

func (w TradingWindow) Validate() error {
	if !w.Period.Valid() {
		return fmt.Errorf("%w: unknown period %q", ErrInvalidWindow, w.Period)
	}
	if w.Interval <= 0 {
		return fmt.Errorf("%w: iteration interval must be positive", ErrInvalidWindow)
	}
	if w.Start < 0 || w.End >= 24*time.Hour {
		return fmt.Errorf("%w: times must fall within one day", ErrInvalidWindow)
	}
	if w.Start > w.Finish || w.Finish > w.End {
		return fmt.Errorf("%w: need start <= finish <= end, got %s/%s/%s",
			ErrInvalidWindow, FormatClock(w.Start), FormatClock(w.Finish), FormatClock(w.End))
	}
	return nil
}

func (w TradingWindow) location() *time.Location {
	if w.Location == nil {
		return time.Local
	}
	return w.Location
}

// PhaseAt classifies t. Weekends are closed except for 24/7 trading.
func (w TradingWindow) PhaseAt(t time.Time) Phase {
	if w.Period == PeriodContinuous {
		return PhaseOpen
	}
	t = t.In(w.location())
	if isWeekend(t) {
		return PhaseClosed
	}

	y, m, d := t.Date()
	offset := t.Sub(time.Date(y, m, d, 0, 0, 0, 0, t.Location()))
	switch {
	case offset < w.Start:
		return PhaseClosed
	case offset < w.Finish:
		return PhaseOpen
	case offset < w.End:
		return PhaseExitsOnly
	case w.closingDay(t):
		return PhaseFlatten
	default:
		return PhaseClosed
	}
}

// closingDay reports whether t is the last trading day of the period.
func (w TradingWindow) closingDay(t time.Time) bool {
	switch w.Period {
	case PeriodDay:
		return true
	case PeriodWeek:
		return t.Weekday() == time.Friday
	case PeriodMonth:
		next := t.AddDate(0, 0, 1)
		for isWeekend(next) {
			next = next.AddDate(0, 0, 1)
		}
		return next.Month() != t.Month()
	}
	return false
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
