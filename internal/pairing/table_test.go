package pairing

import (
	"testing"

	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestTableLabel(t *testing.T) {
	testCases := []struct {
		name     string
		table    Table
		expected string
	}{
		{name: "uses position", table: Table{ID: 42, Position: 3}, expected: "Table 3"},
		{name: "falls back to id", table: Table{ID: 42, Position: 0}, expected: "Table 42"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.table.Label())
		})
	}
}

func TestAssignmentOpponent(t *testing.T) {
	a := Assignment{Player1ID: 1, Player2ID: 2, TableID: utils.Ptr(int64(7)), Status: AssignmentActive}

	assert.True(t, a.HasPlayer(1))
	assert.True(t, a.HasPlayer(2))
	assert.False(t, a.HasPlayer(3))
	assert.Equal(t, int64(2), a.OpponentOf(1))
	assert.Equal(t, int64(1), a.OpponentOf(2))
	assert.True(t, a.IsOn(7))
	assert.False(t, a.IsOn(8))
	assert.True(t, a.IsActive())
}

func TestNotificationStatusValid(t *testing.T) {
	for _, s := range []NotificationStatus{NotificationQueued, NotificationSent, NotificationDelivered, NotificationRead} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []NotificationStatus{"", "exploded", "DELIVERED"} {
		assert.False(t, s.Valid(), s)
	}
}
