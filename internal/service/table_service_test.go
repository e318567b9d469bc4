package service

import (
	"testing"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func positions(tables []pairing.Table) []int {
	out := make([]int, len(tables))
	for i, t := range tables {
		out[i] = t.Position
	}
	return out
}

func TestSeedTablesCreatesOnlyMissingPositions(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, []int{1, 2, 3}, positions(env.tables))

	tables, err := env.tableSvc.SeedTables(env.ctx, env.agentID, env.event.ID, SeedInput{Count: utils.Ptr(3), StartAt: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, positions(tables))
	assert.Equal(t, env.tables[0].ID, tables[0].ID)

	_, err = env.tableSvc.SeedTables(env.ctx, env.agentID, env.event.ID, SeedInput{Count: utils.Ptr(0)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSeedTablesReset(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, env.tables[0], env.alice, env.bob)

	_, err := env.tableSvc.SeedTables(env.ctx, env.agentID, env.event.ID, SeedInput{Count: utils.Ptr(2), Reset: true})
	require.ErrorIs(t, err, ErrConflict)

	_, err = env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.NoError(t, err)

	tables, err := env.tableSvc.SeedTables(env.ctx, env.agentID, env.event.ID, SeedInput{Count: utils.Ptr(2), Reset: true, StartAt: -4})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, positions(tables))
	assert.NotEqual(t, env.tables[0].ID, tables[0].ID)
}

func TestCreateTableAtPosition(t *testing.T) {
	env := newTestEnv(t)

	table, err := env.tableSvc.CreateTableAtPosition(env.ctx, env.agentID, env.event.ID, 7)
	require.NoError(t, err)
	assert.NotZero(t, table.ID)
	assert.Equal(t, 7, table.Position)
	assert.Equal(t, "Table 7", table.Label())
	assert.True(t, table.IsFree())

	_, err = env.tableSvc.CreateTableAtPosition(env.ctx, env.agentID, env.event.ID, 7)
	require.ErrorIs(t, err, ErrConflict)
}

func TestDeleteTablesRefusesOccupied(t *testing.T) {
	env := newTestEnv(t)
	env.assign(t, env.tables[0], env.alice, env.bob)

	err := env.tableSvc.DeleteTable(env.ctx, env.agentID, env.event.ID, env.tables[0].ID)
	require.ErrorIs(t, err, ErrConflict)
	err = env.tableSvc.DeleteTableByPosition(env.ctx, env.agentID, env.event.ID, 1)
	require.ErrorIs(t, err, ErrConflict)
	err = env.tableSvc.DeleteAllTables(env.ctx, env.agentID, env.event.ID)
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, env.tableSvc.DeleteTableByPosition(env.ctx, env.agentID, env.event.ID, 3))
	require.NoError(t, env.tableSvc.DeleteTable(env.ctx, env.agentID, env.event.ID, env.tables[1].ID))
	err = env.tableSvc.DeleteTable(env.ctx, env.agentID, env.event.ID, env.tables[1].ID)
	require.ErrorIs(t, err, ErrNotFound)

	tables, err := env.tableSvc.GetTables(env.ctx, env.agentID, env.event.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, positions(tables))
	env.requireInvariants(t)
}

func TestDeleteAllTables(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.tableSvc.DeleteAllTables(env.ctx, env.agentID, env.event.ID))
	tables, err := env.tableSvc.GetTables(env.ctx, env.agentID, env.event.ID)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestBoard(t *testing.T) {
	env := newTestEnv(t)
	a := env.assign(t, env.tables[1], env.alice, env.bob)
	env.assign(t, env.tables[2], env.carol, env.dave)
	_, err := env.engine.Free(env.ctx, env.agentID, env.event.ID, env.tables[2].ID)
	require.NoError(t, err)

	rows, err := env.tableSvc.GetBoard(env.ctx, env.agentID, env.event.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Table 1", rows[0].Label)
	assert.Equal(t, pairing.TableFree, rows[0].Status)
	assert.Nil(t, rows[0].Player1)

	busy := rows[1]
	assert.Equal(t, pairing.TableOccupied, busy.Status)
	require.NotNil(t, busy.CurrentAssignmentID)
	assert.Equal(t, a.ID, *busy.CurrentAssignmentID)
	require.NotNil(t, busy.Player1)
	require.NotNil(t, busy.Player2)
	assert.Equal(t, "Alice", busy.Player1.FullName)
	assert.Equal(t, "Bob", busy.Player2.FullName)
	assert.NotNil(t, busy.AssignmentCreatedAt)

	freed := rows[2]
	assert.Equal(t, pairing.TableFree, freed.Status)
	assert.Nil(t, freed.Player1)
	assert.Nil(t, freed.EndedAt)

	_, err = env.tableSvc.GetBoard(env.ctx, env.agentID+1, env.event.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
