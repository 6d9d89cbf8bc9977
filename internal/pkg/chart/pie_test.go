package chart

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPie(t *testing.T) {
	pie := NewPie(50, []Slice{
		{Label: "a", Value: 1},
		{Label: "b", Value: 0},
		{Label: "c", Value: 3},
	})
	circumference := 2 * math.Pi * 50

	assert.Equal(t, int64(4), pie.Total)
	assert.InDelta(t, circumference, pie.Circumference, 0.0001)
	require.Len(t, pie.Segments, 3)

	a, b, c := pie.Segments[0], pie.Segments[1], pie.Segments[2]
	assert.Equal(t, 25.0, a.Percent)
	assert.InDelta(t, circumference/4, a.DashLength, 0.0001)
	assert.InDelta(t, circumference*3/4, a.GapLength, 0.0001)

	assert.Zero(t, b.DashLength)
	assert.InDelta(t, circumference, b.GapLength, 0.0001)
	assert.InDelta(t, -circumference/4, b.DashOffset, 0.0001)

	assert.Equal(t, 75.0, c.Percent)
	assert.InDelta(t, -circumference/4, c.DashOffset, 0.0001)
	assert.InDelta(t, circumference, a.DashLength+c.DashLength, 0.001)
}

func TestNewPie_AllZero(t *testing.T) {
	pie := NewPie(10, []Slice{{Label: "a"}, {Label: "b"}})
	require.Len(t, pie.Segments, 2)
	for _, s := range pie.Segments {
		assert.Zero(t, s.Percent)
		assert.Zero(t, s.DashLength)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, Percent(3, 0))
	assert.Equal(t, 33.3, Percent(1, 3))
	assert.Equal(t, 66.7, Percent(2, 3))
	assert.Equal(t, 100.0, Percent(5, 5))
}
