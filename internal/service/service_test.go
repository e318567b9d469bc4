package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/agent"
	"github.com/AdamBeresnev/pingpong-tables/internal/db"
	"github.com/AdamBeresnev/pingpong-tables/internal/notify"
	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database and applies the embedded migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := db.Open(db.MemoryDSN)
	require.NoError(t, err, "Failed to connect to in-memory DB")
	require.NoError(t, db.RunMigrations(conn.DB), "Failed to apply migrations")
	t.Cleanup(func() { conn.Close() })

	return conn
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []notify.Message
	err    error
	failTo string
}

func (f *fakeSender) Send(_ context.Context, msg notify.Message) (notify.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil && (f.failTo == "" || f.failTo == msg.To) {
		return notify.Receipt{}, f.err
	}
	f.sent = append(f.sent, msg)
	return notify.Receipt{SID: fmt.Sprintf("SM%03d", len(f.sent)), Status: "queued"}, nil
}

func (f *fakeSender) messages() []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]notify.Message(nil), f.sent...)
}

var errProviderDown = errors.New("provider unavailable")

type testEnv struct {
	db      *sqlx.DB
	ctx     context.Context
	agentID int64
	event   *pairing.Event
	tables  []pairing.Table
	alice   *pairing.Player
	bob     *pairing.Player
	carol   *pairing.Player
	dave    *pairing.Player
	sender  *fakeSender

	events        *EventService
	players       *PlayerService
	registrations *RegistrationService
	tableSvc      *TableService
	engine        *AssignmentService
	notifier      *Notifier
}

// newTestEnv seeds one agent, one event with three tables and four
// registered players. Dave has no phone number.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := setupTestDB(t)
	ctx := context.Background()

	a := &agent.Agent{FullName: "Organizer", Email: "org@example.com", PasswordHash: "x", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.NewAgentStore(conn).CreateAgent(ctx, a))

	sender := &fakeSender{}
	notifier := NewNotifier(conn, sender, NotifierConfig{
		AppName:     "PingPong Notifier",
		Location:    time.UTC,
		CallbackURL: "http://localhost:8000/twilio/status",
	})
	env := &testEnv{
		db:            conn,
		ctx:           ctx,
		agentID:       a.ID,
		sender:        sender,
		events:        NewEventService(conn, store.NewEventStore(conn)),
		players:       NewPlayerService(conn),
		registrations: NewRegistrationService(conn),
		tableSvc:      NewTableService(conn),
		engine:        NewAssignmentService(conn, notifier),
		notifier:      notifier,
	}

	event, err := env.events.CreateEvent(ctx, a.ID, EventInput{Name: "Spring Open", TablesCount: 3})
	require.NoError(t, err)
	env.event = event

	env.tables, err = env.tableSvc.SeedTables(ctx, a.ID, event.ID, SeedInput{})
	require.NoError(t, err)
	require.Len(t, env.tables, 3)

	env.alice = env.player(t, "Alice", "+15550001")
	env.bob = env.player(t, "Bob", "+15550002")
	env.carol = env.player(t, "Carol", "+15550003")
	env.dave = env.player(t, "Dave", "")

	return env
}

// player creates and registers a player for the env's event.
func (e *testEnv) player(t *testing.T, name, phone string) *pairing.Player {
	t.Helper()
	p, err := e.players.CreatePlayer(e.ctx, e.agentID, PlayerInput{FullName: name, PhoneNumber: utils.StringOrNil(phone)})
	require.NoError(t, err)
	_, err = e.registrations.AddRegistration(e.ctx, e.agentID, e.event.ID, RegistrationInput{PlayerID: &p.ID})
	require.NoError(t, err)
	return p
}

func (e *testEnv) assign(t *testing.T, table pairing.Table, p1, p2 *pairing.Player) *pairing.Assignment {
	t.Helper()
	a, err := e.engine.Assign(e.ctx, e.agentID, e.event.ID, table.ID, AssignInput{Player1ID: &p1.ID, Player2ID: &p2.ID})
	require.NoError(t, err)
	return a
}

func (e *testEnv) table(t *testing.T, id int64) *pairing.Table {
	t.Helper()
	table, err := store.NewTableStore(e.db).GetTable(e.ctx, e.event.ID, id)
	require.NoError(t, err)
	return table
}

func (e *testEnv) assignment(t *testing.T, id int64) *pairing.Assignment {
	t.Helper()
	a, err := store.NewAssignmentStore(e.db).GetAssignment(e.ctx, e.event.ID, id)
	require.NoError(t, err)
	return a
}

// requireInvariants checks that no player is in two active assignments of an
// event and that table occupancy agrees with the assignments.
func (e *testEnv) requireInvariants(t *testing.T) {
	t.Helper()

	var doubleBooked int
	require.NoError(t, e.db.Get(&doubleBooked, `SELECT COUNT(*) FROM (
		SELECT event_id, player_id, COUNT(*) AS c FROM (
			SELECT event_id, player1_id AS player_id FROM assignments WHERE status = 'active'
			UNION ALL
			SELECT event_id, player2_id FROM assignments WHERE status = 'active'
		) GROUP BY event_id, player_id HAVING c > 1
	)`))
	require.Zero(t, doubleBooked, "player in more than one active assignment")

	var tables []pairing.Table
	require.NoError(t, e.db.Select(&tables, "SELECT * FROM event_tables"))
	for _, table := range tables {
		if table.CurrentAssignmentID == nil {
			require.Equal(t, pairing.TableFree, table.Status, "table %d free without assignment", table.ID)
			continue
		}
		require.Equal(t, pairing.TableOccupied, table.Status, "table %d", table.ID)
		a := e.assignment(t, *table.CurrentAssignmentID)
		require.True(t, a.IsActive(), "table %d points at finished assignment", table.ID)
		require.True(t, a.IsOn(table.ID), "table %d points at assignment on another table", table.ID)
	}

	var activeOff int
	require.NoError(t, e.db.Get(&activeOff, `SELECT COUNT(*) FROM assignments a
		LEFT JOIN event_tables t ON t.id = a.table_id
		WHERE a.status = 'active' AND (t.id IS NULL OR t.current_assignment_id IS NOT a.id)`))
	require.Zero(t, activeOff, "active assignment not held by its table")
}
