package service

import (
	"testing"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignOccupiesTable(t *testing.T) {
	env := newTestEnv(t)

	a := env.assign(t, env.tables[0], env.alice, env.bob)

	assert.Equal(t, pairing.AssignmentActive, a.Status)
	assert.True(t, a.IsOn(env.tables[0].ID))
	assert.Nil(t, a.NotifiedAt)

	table := env.table(t, env.tables[0].ID)
	assert.Equal(t, pairing.TableOccupied, table.Status)
	require.NotNil(t, table.CurrentAssignmentID)
	assert.Equal(t, a.ID, *table.CurrentAssignmentID)
	assert.Empty(t, env.sender.messages())
	env.requireInvariants(t)
}

func TestAssignRejectsPlayerAlreadyPlaying(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.engine.Assign(env.ctx, env.agentID, env.event.ID, env.tables[1].ID, AssignInput{
		Player1ID: &env.alice.ID, Player2ID: &env.carol.ID,
	})
	require.ErrorIs(t, err, ErrConflict)

	assert.True(t, env.table(t, env.tables[1].ID).IsFree())
	env.requireInvariants(t)
}

func TestAssignPreconditionOrder(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, env.tables[0], env.alice, env.bob)

	outsider, err := env.players.CreatePlayer(env.ctx, env.agentID, PlayerInput{FullName: "Erin"})
	require.NoError(t, err)
	missing := int64(9999)

	tests := []struct {
		name    string
		tableID int64
		input   AssignInput
		want    error
	}{
		{
			name:    "unknown table",
			tableID: missing,
			input:   AssignInput{Player1ID: &env.carol.ID, Player2ID: &env.dave.ID},
			want:    ErrNotFound,
		},
		{
			name:    "occupied table wins over same player",
			tableID: env.tables[0].ID,
			input:   AssignInput{Player1ID: &env.carol.ID, Player2ID: &env.carol.ID},
			want:    ErrConflict,
		},
		{
			name:    "unknown player",
			tableID: env.tables[1].ID,
			input:   AssignInput{Player1ID: &missing, Player2ID: &env.carol.ID},
			want:    ErrNotFound,
		},
		{
			name:    "same player twice",
			tableID: env.tables[1].ID,
			input:   AssignInput{Player1ID: &env.carol.ID, Player2ID: &env.carol.ID},
			want:    ErrInvalidInput,
		},
		{
			name:    "unregistered player",
			tableID: env.tables[1].ID,
			input:   AssignInput{Player1ID: &outsider.ID, Player2ID: &env.alice.ID},
			want:    ErrInvalidInput,
		},
		{
			name:    "busy player",
			tableID: env.tables[1].ID,
			input:   AssignInput{Player1ID: &env.carol.ID, Player2ID: &env.bob.ID},
			want:    ErrConflict,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.Assign(env.ctx, env.agentID, env.event.ID, tc.tableID, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}
	env.requireInvariants(t)
}

func TestAssignResolvesPlayersByPhone(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.engine.Assign(env.ctx, env.agentID, env.event.ID, env.tables[2].ID, AssignInput{
		Player1Phone: utils.Ptr("+1 555 0001"),
		Player2Phone: utils.Ptr("+15550003"),
	})
	require.NoError(t, err)
	assert.Equal(t, env.alice.ID, a.Player1ID)
	assert.Equal(t, env.carol.ID, a.Player2ID)
}

func TestAssignWithNotifyTextsBothPlayers(t *testing.T) {
	env := newTestEnv(t)

	a, err := env.engine.Assign(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, AssignInput{
		Player1ID: &env.alice.ID, Player2ID: &env.bob.ID, Notify: true,
	})
	require.NoError(t, err)
	require.NotNil(t, a.NotifiedAt)
	assert.NotNil(t, env.assignment(t, a.ID).NotifiedAt)

	msgs := env.sender.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "+15550001", msgs[0].To)
	assert.Contains(t, msgs[0].Body, "Alice, you are playing Bob at Table 1")
	assert.Equal(t, "+15550002", msgs[1].To)
	assert.Contains(t, msgs[1].Body, "Bob, you are playing Alice at Table 1")
	assert.Equal(t, "http://localhost:8000/twilio/status", msgs[0].StatusCallback)

	records, err := env.notifier.GetNotifications(env.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, pairing.NotificationSent, r.Status)
		assert.NotNil(t, r.ProviderSID)
	}
}

func TestAssignKeepsAssignmentWhenDeliveryFails(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errProviderDown

	a, err := env.engine.Assign(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, AssignInput{
		Player1ID: &env.alice.ID, Player2ID: &env.bob.ID, Notify: true,
	})
	require.ErrorIs(t, err, ErrDelivery)
	require.ErrorIs(t, err, errProviderDown)
	require.NotNil(t, a)

	stored := env.assignment(t, a.ID)
	assert.True(t, stored.IsActive())
	assert.Nil(t, stored.NotifiedAt)
	assert.False(t, env.table(t, env.tables[0].ID).IsFree())

	records, err := env.notifier.GetNotifications(env.ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, pairing.NotificationFailed, records[0].Status)
	env.requireInvariants(t)
}

func TestNotifySucceedsWhenStampingFails(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.db.Exec(`CREATE TRIGGER reject_notified_at BEFORE UPDATE OF notified_at ON assignments
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`)
	require.NoError(t, err)

	notified, err := env.engine.Notify(env.ctx, env.agentID, env.event.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, notified)
	assert.Equal(t, a.ID, notified.ID)
	assert.Nil(t, notified.NotifiedAt)
	assert.Len(t, env.sender.messages(), 2)
	assert.Nil(t, env.assignment(t, a.ID).NotifiedAt)
	env.requireInvariants(t)
}

func TestNotifyFailsForPlayerWithoutPhone(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.dave)

	_, err := env.engine.Notify(env.ctx, env.agentID, env.event.ID, a.ID)
	require.ErrorIs(t, err, ErrDelivery)
	assert.Contains(t, err.Error(), "Dave")
	assert.Nil(t, env.assignment(t, a.ID).NotifiedAt)
}

func TestNotifyUsesCurrentTable(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.engine.Move(env.ctx, env.agentID, env.event.ID, a.ID, env.tables[2].ID)
	require.NoError(t, err)

	notified, err := env.engine.Notify(env.ctx, env.agentID, env.event.ID, a.ID)
	require.NoError(t, err)
	assert.NotNil(t, notified.NotifiedAt)

	msgs := env.sender.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Body, "at Table 3 at")
}

func TestNotifyFinishedAssignmentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)
	_, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)

	_, err = env.engine.Notify(env.ctx, env.agentID, env.event.ID, a.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFreeFinishesAssignmentAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)

	table, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)
	assert.True(t, table.IsFree())
	assert.Nil(t, table.CurrentAssignmentID)

	finished := env.assignment(t, a.ID)
	assert.Equal(t, pairing.AssignmentFinished, finished.Status)
	require.NotNil(t, finished.EndedAt)
	endedAt := *finished.EndedAt

	again, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)
	assert.Equal(t, table, again)
	assert.Equal(t, endedAt, *env.assignment(t, a.ID).EndedAt)

	// Alice can play again once the table is freed.
	env.assign(t, env.tables[1], env.alice, env.carol)
	env.requireInvariants(t)
}

func TestFreeUnknownTable(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMove(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)
	env.assign(t, env.tables[1], env.carol, env.dave)

	_, err := env.engine.Move(env.ctx, env.agentID, env.event.ID, a.ID, env.tables[1].ID)
	require.ErrorIs(t, err, ErrConflict)

	moved, err := env.engine.Move(env.ctx, env.agentID, env.event.ID, a.ID, env.tables[2].ID)
	require.NoError(t, err)
	assert.True(t, moved.IsOn(env.tables[2].ID))

	assert.True(t, env.table(t, env.tables[0].ID).IsFree())
	target := env.table(t, env.tables[2].ID)
	assert.Equal(t, pairing.TableOccupied, target.Status)
	assert.Equal(t, a.ID, *target.CurrentAssignmentID)

	_, err = env.engine.Move(env.ctx, env.agentID, env.event.ID, a.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
	env.requireInvariants(t)
}

func TestMoveFinishedAssignmentIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)
	_, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)

	_, err = env.engine.Move(env.ctx, env.agentID, env.event.ID, a.ID, env.tables[1].ID)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, env.table(t, env.tables[1].ID).IsFree())
}

func TestSwap(t *testing.T) {
	env := newTestEnv(t)
	ab := env.assign(t, env.tables[0], env.alice, env.bob)
	cd := env.assign(t, env.tables[1], env.carol, env.dave)

	tables, err := env.engine.Swap(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, env.tables[1].ID)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, cd.ID, *tables[0].CurrentAssignmentID)
	assert.Equal(t, ab.ID, *tables[1].CurrentAssignmentID)

	assert.True(t, env.assignment(t, ab.ID).IsOn(env.tables[1].ID))
	assert.True(t, env.assignment(t, cd.ID).IsOn(env.tables[0].ID))
	env.requireInvariants(t)
}

func TestSwapRejections(t *testing.T) {
	env := newTestEnv(t)
	ab := env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.engine.Swap(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, env.tables[0].ID)
	require.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrInvalidInput)

	_, err = env.engine.Swap(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, env.tables[1].ID)
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.engine.Swap(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)

	assert.True(t, env.assignment(t, ab.ID).IsOn(env.tables[0].ID))
	env.requireInvariants(t)
}

func TestStartTimer(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[0], env.alice, env.bob)
	fixed := time.Date(2026, 5, 1, 16, 30, 0, 0, time.UTC)
	env.engine.now = func() time.Time { return fixed }

	started, err := env.engine.StartTimer(env.ctx, env.agentID, env.event.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, started.StartedAt)
	assert.True(t, fixed.Equal(*started.StartedAt))
	assert.Nil(t, started.EndedAt)

	stored := env.assignment(t, a.ID)
	require.NotNil(t, stored.StartedAt)
	assert.True(t, fixed.Equal(*stored.StartedAt))

	_, err = env.engine.StartTimer(env.ctx, env.agentID, env.event.ID, 9999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPlayerState(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[1], env.alice, env.bob)

	state, err := env.engine.PlayerState(env.ctx, env.agentID, env.event.ID, env.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, pairing.PlayerPlaying, state.State)
	assert.Equal(t, a.ID, *state.AssignmentID)
	assert.Equal(t, env.tables[1].ID, *state.TableID)
	assert.Equal(t, "Table 2", *state.TableLabel)
	require.NotNil(t, state.Opponent)
	assert.Equal(t, "Bob", state.Opponent.FullName)

	state, err = env.engine.PlayerStateByPhone(env.ctx, env.agentID, env.event.ID, "+15550003")
	require.NoError(t, err)
	assert.Equal(t, pairing.PlayerIdle, state.State)
	assert.Nil(t, state.AssignmentID)

	_, err = env.engine.PlayerStateByPhone(env.ctx, env.agentID, env.event.ID, "+19999999")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetTableStatus(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.engine.SetTableStatus(env.ctx, env.agentID, env.event.ID, env.tables[1].ID, pairing.TableOccupied)
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.engine.SetTableStatus(env.ctx, env.agentID, env.event.ID, env.tables[1].ID, "broken")
	require.ErrorIs(t, err, ErrInvalidInput)

	table, err := env.engine.SetTableStatus(env.ctx, env.agentID, env.event.ID, env.tables[0].ID, pairing.TableFree)
	require.NoError(t, err)
	assert.True(t, table.IsFree())
	env.requireInvariants(t)
}

func TestEngineIsScopedToAgent(t *testing.T) {
	env := newTestEnv(t)
	other := env.agentID + 1

	_, err := env.engine.Assign(env.ctx, other, env.event.ID, env.tables[0].ID, AssignInput{
		Player1ID: &env.alice.ID, Player2ID: &env.bob.ID,
	})
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, env.table(t, env.tables[0].ID).IsFree())
}

func TestListAssignmentsActiveFirst(t *testing.T) {
	env := newTestEnv(t)
	first := env.assign(t, env.tables[0], env.alice, env.bob)
	_, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)
	second := env.assign(t, env.tables[1], env.alice, env.carol)

	list, err := env.engine.GetAssignments(env.ctx, env.agentID, env.event.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestOperationSequenceKeepsInvariants(t *testing.T) {
	env := newTestEnv(t)
	t1, t2, t3 := env.tables[0], env.tables[1], env.tables[2]

	ab := env.assign(t, t1, env.alice, env.bob)
	env.requireInvariants(t)
	cd := env.assign(t, t2, env.carol, env.dave)
	env.requireInvariants(t)

	_, err := env.engine.Swap(env.ctx, env.agentID, env.event.ID, t1.ID, t2.ID)
	require.NoError(t, err)
	env.requireInvariants(t)

	_, err = env.engine.Move(env.ctx, env.agentID, env.event.ID, ab.ID, t3.ID)
	require.NoError(t, err)
	env.requireInvariants(t)

	_, err = env.engine.Free(env.ctx, env.agentID, env.event.ID, t1.ID)
	require.NoError(t, err)
	assert.False(t, env.assignment(t, cd.ID).IsActive())
	env.requireInvariants(t)

	_, err = env.engine.Assign(env.ctx, env.agentID, env.event.ID, t1.ID, AssignInput{
		Player1ID: &env.carol.ID, Player2ID: &env.alice.ID,
	})
	require.ErrorIs(t, err, ErrConflict)

	env.assign(t, t1, env.carol, env.dave)
	env.requireInvariants(t)
}
