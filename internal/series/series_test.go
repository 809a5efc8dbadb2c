package series

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(min int) time.Time {
	return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Add(time.Duration(min) * time.Minute)
}

func TestNew(t *testing.T) {
	t.Run("sorts by timestamp", func(t *testing.T) {
		s := New([]Point{{ts(2), 3}, {ts(0), 1}, {ts(1), 2}})
		require.Len(t, s, 3)
		assert.Equal(t, 1.0, s[0].Close)
		assert.Equal(t, 2.0, s[1].Close)
		assert.Equal(t, 3.0, s[2].Close)
	})

	t.Run("drops non-finite values", func(t *testing.T) {
		s := New([]Point{
			{ts(0), 1},
			{ts(1), math.NaN()},
			{ts(2), math.Inf(1)},
			{ts(3), math.Inf(-1)},
			{ts(4), 5},
		})
		require.Len(t, s, 2)
		assert.Equal(t, 1.0, s[0].Close)
		assert.Equal(t, 5.0, s[1].Close)
	})

	t.Run("duplicate timestamps collapse to last value", func(t *testing.T) {
		s := New([]Point{{ts(0), 1}, {ts(1), 2}, {ts(1), 9}})
		require.Len(t, s, 2)
		assert.Equal(t, 9.0, s[1].Close)
	})

	t.Run("empty input", func(t *testing.T) {
		s := New(nil)
		assert.True(t, s.Empty())
		_, ok := s.Last()
		assert.False(t, ok)
	})
}

func TestLast(t *testing.T) {
	s := New([]Point{{ts(0), 1}, {ts(5), 7}})
	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, 7.0, last.Close)
	assert.Equal(t, ts(5), last.Time)
}

func TestRescaleTo(t *testing.T) {
	t.Run("scales every point by target over last", func(t *testing.T) {
		// proxy last 100000, primary last known 130000 -> factor 1.3
		s := New([]Point{{ts(0), 90000}, {ts(1), 95000}, {ts(2), 100000}})
		scaled := s.RescaleTo(130000)
		require.Len(t, scaled, 3)
		assert.InDelta(t, 90000*1.3, scaled[0].Close, 1e-6)
		assert.InDelta(t, 95000*1.3, scaled[1].Close, 1e-6)
		last, _ := scaled.Last()
		assert.Equal(t, 130000.0, last.Close)
	})

	t.Run("does not mutate the original", func(t *testing.T) {
		s := New([]Point{{ts(0), 10}, {ts(1), 20}})
		_ = s.RescaleTo(40)
		assert.Equal(t, 10.0, s[0].Close)
		assert.Equal(t, 20.0, s[1].Close)
	})

	t.Run("zero last value returns unscaled", func(t *testing.T) {
		s := New([]Point{{ts(0), 5}, {ts(1), 0}})
		scaled := s.RescaleTo(100)
		assert.Equal(t, s, scaled)
	})

	t.Run("empty series returns unscaled", func(t *testing.T) {
		var s Series
		assert.True(t, s.RescaleTo(100).Empty())
	})
}
