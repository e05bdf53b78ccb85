package converter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunClock_BackToBack(t *testing.T) {
	epoch := time.Date(2025, 1, 7, 12, 0, 0, 0, time.UTC)
	clock := NewRunClock(epoch)

	require.True(t, clock.Now().Equal(epoch))

	start1, stop1 := clock.Open(500 * time.Millisecond)
	start2, stop2 := clock.Open(time.Second)
	start3, stop3 := clock.Open(0)

	require.True(t, start1.Equal(epoch))
	require.True(t, stop1.Equal(epoch.Add(500*time.Millisecond)))
	require.True(t, start2.Equal(stop1))
	require.True(t, stop2.Equal(epoch.Add(1500*time.Millisecond)))
	require.True(t, start3.Equal(stop2))
	require.True(t, stop3.Equal(stop2))
	require.True(t, clock.Now().Equal(stop3))
}

func TestRunClock_NormalizesToUTC(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	clock := NewRunClock(time.Date(2025, 1, 7, 14, 0, 0, 0, loc))

	require.Equal(t, time.UTC, clock.Now().Location())
	require.Equal(t, 12, clock.Now().Hour())
}
