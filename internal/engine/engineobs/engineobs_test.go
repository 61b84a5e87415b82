package engineobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"sentiment-trader/internal/types"
)

type stubEngine struct {
	report types.CycleReport
	err    error
	calls  int
}

func (s *stubEngine) RunCycle(context.Context) (types.CycleReport, error) {
	s.calls++
	return s.report, s.err
}

func TestWrapPassesThrough(t *testing.T) {
	inner := &stubEngine{report: types.CycleReport{Phase: "OPEN", Submitted: 2}}
	report, err := Wrap(inner).RunCycle(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, 1, inner.calls)

	inner.err = errors.New("boom")
	inner.report = types.CycleReport{Phase: "OPEN", Skipped: true}
	report, err = Wrap(inner).RunCycle(context.Background())
	assert.EqualError(t, err, "boom")
	assert.True(t, report.Skipped)
}
