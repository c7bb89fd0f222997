package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIndicator_LastWriterWins(t *testing.T) {
	ind := NewIndicator(0)

	genA := ind.Signal("alice")
	genB := ind.Signal("bob")
	require.Equal(t, "bob", ind.Active())

	// Alice's expiry timer fires late: must not clear Bob's hint.
	require.False(t, ind.Expire(genA))
	require.Equal(t, "bob", ind.Active())

	// Bob's own expiry clears it.
	require.True(t, ind.Expire(genB))
	require.Equal(t, "", ind.Active())
}

func TestIndicator_ExpireAfterClearIsNoop(t *testing.T) {
	ind := NewIndicator(0)
	gen := ind.Signal("alice")
	ind.Clear()
	require.False(t, ind.Expire(gen))
	require.Equal(t, "", ind.Active())
}

func TestLimiter_ZeroIntervalAlwaysAllows(t *testing.T) {
	l := NewLimiter(0)
	for i := 0; i < 5; i++ {
		require.True(t, l.Allow())
	}
}

func TestLimiter_SuppressesWithinInterval(t *testing.T) {
	now := time.Unix(0, 0)
	l := NewLimiter(time.Second)
	l.now = func() time.Time { return now }

	require.True(t, l.Allow())
	require.False(t, l.Allow())

	now = now.Add(500 * time.Millisecond)
	require.False(t, l.Allow())

	now = now.Add(600 * time.Millisecond)
	require.True(t, l.Allow())
}
