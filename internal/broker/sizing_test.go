package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizerFixed(t *testing.T) {
	q, err := Sizer{Fixed: 5}.Quantity(123)
	require.NoError(t, err)
	assert.Equal(t, 5, q)

	q, err = Sizer{}.Quantity(123)
	require.NoError(t, err)
	assert.Equal(t, 1, q)
}

func TestSizerMoneyManagement(t *testing.T) {
	s := Sizer{MoneyManagement: true, Capital: 100000, RiskPct: 1}

	q, err := s.Quantity(300)
	require.NoError(t, err)
	assert.Equal(t, 3, q) // 1000 / 300

	q, err = s.Quantity(0.1)
	require.NoError(t, err)
	assert.Equal(t, 10000, q)

	_, err = s.Quantity(1500)
	assert.ErrorIs(t, err, ErrSizeTooSmall)

	_, err = s.Quantity(0)
	assert.Error(t, err)
}
