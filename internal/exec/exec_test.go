package exec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStart_Validation(t *testing.T) {
	cases := []struct {
		name    string
		code    string
		wantErr error
	}{
		{name: "blank code rejected", code: "", wantErr: ErrBlankCode},
		{name: "whitespace code rejected", code: "  \n\t", wantErr: ErrBlankCode},
		{name: "non-blank accepted", code: "print(1)", wantErr: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCoordinator()
			_, err := c.Start("R1", tc.code, time.Now())
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				require.Equal(t, StatusIdle, c.Status())
			} else {
				require.NoError(t, err)
				require.Equal(t, StatusPending, c.Status())
			}
		})
	}
}

func TestIssuedAt_TracksPendingRequestOnly(t *testing.T) {
	c := NewCoordinator()
	require.True(t, c.IssuedAt().IsZero())

	at := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	_, err := c.Start("R1", "print(1)", at)
	require.NoError(t, err)
	require.Equal(t, at, c.IssuedAt())

	require.True(t, c.Resolve("R1", "1\n"))
	require.True(t, c.IssuedAt().IsZero())
}

func TestStart_AtMostOneInFlight(t *testing.T) {
	c := NewCoordinator()
	_, err := c.Start("R1", "print(1)", time.Now())
	require.NoError(t, err)

	_, err = c.Start("R1", "print(2)", time.Now())
	require.ErrorIs(t, err, ErrBusy)
}

func TestResolve_StoresOutputAndReturnsToIdle(t *testing.T) {
	c := NewCoordinator()
	_, err := c.Start("R1", "print(1)", time.Now())
	require.NoError(t, err)

	require.True(t, c.Resolve("R1", "1\n"))
	require.Equal(t, StatusIdle, c.Status())
	out, ok := c.Output()
	require.True(t, ok)
	require.Equal(t, "1\n", out)

	// A second run is allowed again.
	_, err = c.Start("R1", "print(2)", time.Now())
	require.NoError(t, err)
}

func TestResolve_LateResultAfterLeaveIsDropped(t *testing.T) {
	c := NewCoordinator()
	_, err := c.Start("R1", "print(1)", time.Now())
	require.NoError(t, err)

	c.Reset() // left the room

	require.False(t, c.Resolve("", "1\n"))
	require.False(t, c.Resolve("R2", "1\n"))
	require.Equal(t, StatusIdle, c.Status())
	_, ok := c.Output()
	require.False(t, ok)
}

func TestTimeout_StaleGenIgnored(t *testing.T) {
	c := NewCoordinator()
	gen1, err := c.Start("R1", "print(1)", time.Now())
	require.NoError(t, err)
	require.True(t, c.Resolve("R1", "1\n"))

	gen2, err := c.Start("R1", "print(2)", time.Now())
	require.NoError(t, err)

	// Timer from the first request fires late: must not touch the second.
	require.False(t, c.Timeout(gen1))
	require.Equal(t, StatusPending, c.Status())

	require.True(t, c.Timeout(gen2))
	require.Equal(t, StatusIdle, c.Status())
}
