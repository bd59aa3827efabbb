package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTier(t *testing.T) {
	require.Equal(t, int64(0), Tier(0, 2))
	require.Equal(t, int64(0), Tier(1, 2))
	require.Equal(t, int64(2), Tier(3, 2))
	require.Equal(t, int64(6), Tier(7, 3))
	require.Equal(t, int64(0), Tier(10, 0))
}

func TestWatermarkStrategy_Due(t *testing.T) {
	w := WatermarkStrategy{Interval: 2}

	require.Nil(t, w.Due(1, 0))
	require.Equal(t, []int64{2}, w.Due(2, 0))
	require.Equal(t, []int64{2}, w.Due(3, 0))
	require.Nil(t, w.Due(3, 2))
	require.Equal(t, []int64{4}, w.Due(4, 2))

	// A burst from 1 to 7 yields every skipped tier in order.
	require.Equal(t, []int64{2, 4, 6}, w.Due(7, 0))

	// Lowering the counter below the watermark never re-delivers.
	require.Nil(t, w.Due(2, 4))
}

func TestModulusStrategy_Due(t *testing.T) {
	m := ModulusStrategy{Interval: 3}

	_, ok := m.Due(0)
	require.False(t, ok)
	_, ok = m.Due(4)
	require.False(t, ok)

	tier, ok := m.Due(6)
	require.True(t, ok)
	require.Equal(t, int64(6), tier)
}
