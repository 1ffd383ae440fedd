package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewManualWalk(t *testing.T) {
	now := time.Date(2024, time.June, 3, 17, 45, 0, 0, time.UTC)

	cases := []struct {
		name     string
		miles    float64
		date     string
		walkedAt time.Time
	}{
		{name: "no date records now", miles: 2.5, walkedAt: now},
		{name: "today records now", miles: 2.5, date: "2024-06-03", walkedAt: now},
		{name: "earlier day records noon", miles: 1, date: "2024-05-30", walkedAt: time.Date(2024, time.May, 30, 12, 0, 0, 0, time.UTC)},
		{name: "smallest distance", miles: MinManualMiles, walkedAt: now},
		{name: "largest distance", miles: MaxManualMiles, walkedAt: now},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			walk, err := NewManualWalk("user-1", tc.miles, "  Park loop ", tc.date, now)
			require.NoError(t, err)
			require.Equal(t, "user-1", walk.UserID)
			require.Equal(t, SourceManual, walk.Source)
			require.Equal(t, "Park loop", walk.Notes)
			require.Nil(t, walk.ExternalID)
			require.True(t, tc.walkedAt.Equal(walk.WalkedAt), "walked_at=%s", walk.WalkedAt)
		})
	}
}

func TestNewManualWalkUsesUTCDay(t *testing.T) {
	// 23:30 in UTC-5 is already the next day in UTC.
	now := time.Date(2024, time.June, 3, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))

	walk, err := NewManualWalk("user-1", 1, "", "2024-06-04", now)
	require.NoError(t, err)
	require.True(t, now.Equal(walk.WalkedAt))
}

func TestNewManualWalkRounds(t *testing.T) {
	walk, err := NewManualWalk("user-1", 2.346, "", "", time.Now())
	require.NoError(t, err)
	require.Equal(t, 2.35, walk.Miles)
}

func TestNewManualWalkRejects(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name  string
		miles float64
		date  string
	}{
		{name: "zero miles", miles: 0},
		{name: "negative miles", miles: -1},
		{name: "below minimum", miles: 0.009},
		{name: "above maximum", miles: 100},
		{name: "malformed date", miles: 1, date: "06/03/2024"},
		{name: "impossible date", miles: 1, date: "2024-02-30"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewManualWalk("user-1", tc.miles, "", tc.date, now)
			require.ErrorIs(t, err, ErrInvalidWalk)
		})
	}
}
