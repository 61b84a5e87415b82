package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(p Period) TradingWindow {
	return TradingWindow{
		Start:    9 * time.Hour,
		Finish:   15 * time.Hour,
		End:      15*time.Hour + 30*time.Minute,
		Interval: 15 * time.Minute,
		Period:   p,
		Location: time.UTC,
	}
}

func TestParseClock(t *testing.T) {
	d, err := ParseClock("09:15")
	require.NoError(t, err)
	assert.Equal(t, 9*time.Hour+15*time.Minute, d)
	assert.Equal(t, "09:15", FormatClock(d))

	for _, bad := range []string{"", "9", "24:00", "12:60", "ab:cd"} {
		_, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidWindow, bad)
	}
}

func TestPhaseAtDay(t *testing.T) {
	w := window(PeriodDay)
	mon := func(hh, mm int) time.Time { return time.Date(2024, 1, 8, hh, mm, 0, 0, time.UTC) }

	assert.Equal(t, PhaseClosed, w.PhaseAt(mon(8, 59)))
	assert.Equal(t, PhaseOpen, w.PhaseAt(mon(9, 0)))
	assert.Equal(t, PhaseOpen, w.PhaseAt(mon(14, 59)))
	assert.Equal(t, PhaseExitsOnly, w.PhaseAt(mon(15, 0)))
	assert.Equal(t, PhaseExitsOnly, w.PhaseAt(mon(15, 29)))
	assert.Equal(t, PhaseFlatten, w.PhaseAt(mon(15, 30)))
	assert.Equal(t, PhaseFlatten, w.PhaseAt(mon(23, 59)))

	sat := time.Date(2024, 1, 13, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, PhaseClosed, w.PhaseAt(sat))
}

func TestPhaseAtWeekFlattensOnFriday(t *testing.T) {
	w := window(PeriodWeek)
	thu := time.Date(2024, 1, 11, 16, 0, 0, 0, time.UTC)
	fri := time.Date(2024, 1, 12, 16, 0, 0, 0, time.UTC)

	assert.Equal(t, PhaseClosed, w.PhaseAt(thu))
	assert.Equal(t, PhaseFlatten, w.PhaseAt(fri))
	assert.Equal(t, PhaseExitsOnly, w.PhaseAt(thu.Add(-45*time.Minute)))
}

func TestPhaseAtMonthFlattensOnLastWeekday(t *testing.T) {
	w := window(PeriodMonth)
	// 2024-08-31 is a Saturday, so Friday the 30th closes the month.
	assert.Equal(t, PhaseFlatten, w.PhaseAt(time.Date(2024, 8, 30, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, PhaseClosed, w.PhaseAt(time.Date(2024, 8, 29, 16, 0, 0, 0, time.UTC)))
	// 2024-01-31 is a Wednesday.
	assert.Equal(t, PhaseFlatten, w.PhaseAt(time.Date(2024, 1, 31, 16, 0, 0, 0, time.UTC)))
}

func TestPhaseAtContinuous(t *testing.T) {
	w := window(PeriodContinuous)
	assert.Equal(t, PhaseOpen, w.PhaseAt(time.Date(2024, 1, 13, 3, 0, 0, 0, time.UTC)))
	assert.Equal(t, PhaseOpen, w.PhaseAt(time.Date(2024, 1, 8, 23, 0, 0, 0, time.UTC)))
}

func TestPhaseAtUsesWindowLocation(t *testing.T) {
	w := window(PeriodDay)
	w.Location = time.FixedZone("IST", 19800)
	// 04:00 UTC is 09:30 IST.
	assert.Equal(t, PhaseOpen, w.PhaseAt(time.Date(2024, 1, 8, 4, 0, 0, 0, time.UTC)))
}

func TestWindowValidate(t *testing.T) {
	assert.NoError(t, window(PeriodDay).Validate())

	w := window(PeriodDay)
	w.Finish = 16 * time.Hour
	assert.ErrorIs(t, w.Validate(), ErrInvalidWindow)

	w = window("fortnight")
	assert.ErrorIs(t, w.Validate(), ErrInvalidWindow)

	w = window(PeriodDay)
	w.Interval = 0
	assert.ErrorIs(t, w.Validate(), ErrInvalidWindow)
}
