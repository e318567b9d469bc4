package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/jmoiron/sqlx"
)

// AssignmentService is the only writer of table occupancy and assignment
// state. Every mutation runs in a single write transaction; notifications
// are sent after commit.
type AssignmentService struct {
	db            *sqlx.DB
	events        *store.EventStore
	tables        *store.TableStore
	players       *store.PlayerStore
	registrations *store.RegistrationStore
	assignments   *store.AssignmentStore
	notifier      *Notifier
	now           func() time.Time
}

func NewAssignmentService(db *sqlx.DB, notifier *Notifier) *AssignmentService {
	return &AssignmentService{
		db:            db,
		events:        store.NewEventStore(db),
		tables:        store.NewTableStore(db),
		players:       store.NewPlayerStore(db),
		registrations: store.NewRegistrationStore(db),
		assignments:   store.NewAssignmentStore(db),
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// PlayerSelector picks a player by id, falling back to phone number.
type PlayerSelector struct {
	ID    *int64
	Phone *string
}

func (sel PlayerSelector) resolve(byID func(int64) (*pairing.Player, error), byPhone func(string) (*pairing.Player, error)) (*pairing.Player, error) {
	if sel.ID != nil {
		p, err := byID(*sel.ID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get player: %w", err)
		}
	}
	if sel.Phone != nil {
		if phone := utils.CleanPhone(*sel.Phone); phone != nil {
			p, err := byPhone(*phone)
			if err == nil {
				return p, nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return nil, fmt.Errorf("failed to get player: %w", err)
			}
		}
	}
	return nil, notFound("player not found (use player_id or phone_number)")
}

type AssignInput struct {
	Player1ID    *int64  `json:"player1_id"`
	Player1Phone *string `json:"player1_phone"`
	Player2ID    *int64  `json:"player2_id"`
	Player2Phone *string `json:"player2_phone"`
	Notify       bool    `json:"notify"`
}

type match struct {
	event      *pairing.Event
	table      *pairing.Table
	assignment *pairing.Assignment
	player1    *pairing.Player
	player2    *pairing.Player
}

// Assign pairs two players on a free table. Checks run in a fixed order and
// the first failure wins. When notification fails after commit the created
// assignment is returned together with the delivery error.
func (s *AssignmentService) Assign(ctx context.Context, agentID, eventID, tableID int64, input AssignInput) (*pairing.Assignment, error) {
	m, err := s.assign(ctx, agentID, eventID, tableID, input)
	if err != nil {
		return nil, err
	}
	if !input.Notify {
		return m.assignment, nil
	}
	return s.notify(ctx, m)
}

func (s *AssignmentService) assign(ctx context.Context, agentID, eventID, tableID int64, input AssignInput) (*match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	event, err := s.events.GetEventTx(ctx, tx, agentID, eventID)
	if err != nil {
		return nil, orNotFound(err, "event")
	}
	table, err := s.tables.GetTableTx(ctx, tx, eventID, tableID)
	if err != nil {
		return nil, orNotFound(err, "table")
	}
	if !table.IsFree() || table.CurrentAssignmentID != nil {
		return nil, conflict("%s is not free", table.Label())
	}

	p1, err := s.resolvePlayerTx(ctx, tx, agentID, PlayerSelector{ID: input.Player1ID, Phone: input.Player1Phone})
	if err != nil {
		return nil, err
	}
	p2, err := s.resolvePlayerTx(ctx, tx, agentID, PlayerSelector{ID: input.Player2ID, Phone: input.Player2Phone})
	if err != nil {
		return nil, err
	}
	if p1.ID == p2.ID {
		return nil, invalid("choose two different players")
	}
	for _, p := range []*pairing.Player{p1, p2} {
		registered, err := s.registrations.IsRegisteredTx(ctx, tx, eventID, p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check registration: %w", err)
		}
		if !registered {
			return nil, invalid("player %d not registered for this event", p.ID)
		}
	}

	active, err := s.assignments.GetActiveForPlayersTx(ctx, tx, eventID, p1.ID, p2.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check assignments: %w", err)
	}
	if len(active) > 0 {
		return nil, conflict("one of the players is already assigned to another table")
	}

	a := &pairing.Assignment{
		EventID:   eventID,
		TableID:   &table.ID,
		Player1ID: p1.ID,
		Player2ID: p2.ID,
		Status:    pairing.AssignmentActive,
		CreatedAt: s.now(),
	}
	if err := s.assignments.CreateAssignmentTx(ctx, tx, a); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("%s is not free", table.Label())
		}
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	table.Status = pairing.TableOccupied
	table.CurrentAssignmentID = &a.ID
	if err := s.tables.UpdateTableTx(ctx, tx, table); err != nil {
		return nil, fmt.Errorf("failed to occupy table: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &match{event: event, table: table, assignment: a, player1: p1, player2: p2}, nil
}

func (s *AssignmentService) resolvePlayerTx(ctx context.Context, tx *sqlx.Tx, agentID int64, sel PlayerSelector) (*pairing.Player, error) {
	return sel.resolve(func(id int64) (*pairing.Player, error) {
		return s.players.GetPlayerTx(ctx, tx, agentID, id)
	}, func(phone string) (*pairing.Player, error) {
		return s.players.GetPlayerByPhoneTx(ctx, tx, agentID, phone)
	})
}

// Free finishes the table's active assignment, if any, and marks the table
// free. Freeing a free table is a no-op.
func (s *AssignmentService) Free(ctx context.Context, agentID, eventID, tableID int64) (*pairing.Table, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	table, err := s.tables.GetTableTx(ctx, tx, eventID, tableID)
	if err != nil {
		return nil, orNotFound(err, "table")
	}

	if table.CurrentAssignmentID != nil {
		a, err := s.assignments.GetAssignmentTx(ctx, tx, eventID, *table.CurrentAssignmentID)
		switch {
		case err == nil && a.IsActive() && a.IsOn(table.ID):
			ended := s.now()
			a.Status = pairing.AssignmentFinished
			a.EndedAt = &ended
			if err := s.assignments.UpdateAssignmentTx(ctx, tx, a); err != nil {
				return nil, fmt.Errorf("failed to finish assignment: %w", err)
			}
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("failed to get assignment: %w", err)
		}
	}

	table.Status = pairing.TableFree
	table.CurrentAssignmentID = nil
	if err := s.tables.UpdateTableTx(ctx, tx, table); err != nil {
		return nil, fmt.Errorf("failed to free table: %w", err)
	}
	return table, tx.Commit()
}

// SetTableStatus backs the legacy status endpoint. Freeing goes through Free;
// occupancy can only come from an assignment.
func (s *AssignmentService) SetTableStatus(ctx context.Context, agentID, eventID, tableID int64, status pairing.TableStatus) (*pairing.Table, error) {
	if !status.Valid() {
		return nil, invalid("status must be free or occupied")
	}
	if status == pairing.TableFree {
		return s.Free(ctx, agentID, eventID, tableID)
	}

	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	if _, err := s.tables.GetTable(ctx, eventID, tableID); err != nil {
		return nil, orNotFound(err, "table")
	}
	return nil, conflict("tables become occupied by assigning players")
}

// Move relocates an active assignment to a free table of the same event.
func (s *AssignmentService) Move(ctx context.Context, agentID, eventID, assignmentID, newTableID int64) (*pairing.Assignment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	a, err := s.activeAssignmentTx(ctx, tx, eventID, assignmentID)
	if err != nil {
		return nil, err
	}
	target, err := s.tables.GetTableTx(ctx, tx, eventID, newTableID)
	if err != nil {
		return nil, orNotFound(err, "target table")
	}
	if !target.IsFree() || target.CurrentAssignmentID != nil {
		return nil, conflict("target table is not free")
	}

	if a.TableID != nil {
		old, err := s.tables.GetTableTx(ctx, tx, eventID, *a.TableID)
		switch {
		case err == nil:
			if old.CurrentAssignmentID != nil && *old.CurrentAssignmentID == a.ID {
				old.Status = pairing.TableFree
				old.CurrentAssignmentID = nil
				if err := s.tables.UpdateTableTx(ctx, tx, old); err != nil {
					return nil, fmt.Errorf("failed to free old table: %w", err)
				}
			}
		case !errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("failed to get table: %w", err)
		}
	}

	a.TableID = &target.ID
	if err := s.assignments.SetTableTx(ctx, tx, a.ID, a.TableID); err != nil {
		return nil, fmt.Errorf("failed to move assignment: %w", err)
	}
	target.Status = pairing.TableOccupied
	target.CurrentAssignmentID = &a.ID
	if err := s.tables.UpdateTableTx(ctx, tx, target); err != nil {
		return nil, fmt.Errorf("failed to occupy table: %w", err)
	}
	return a, tx.Commit()
}

// Swap exchanges the active assignments of two tables.
func (s *AssignmentService) Swap(ctx context.Context, agentID, eventID, tableAID, tableBID int64) ([]pairing.Table, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	ta, err := s.tables.GetTableTx(ctx, tx, eventID, tableAID)
	if err != nil {
		return nil, orNotFound(err, "table")
	}
	tb, err := s.tables.GetTableTx(ctx, tx, eventID, tableBID)
	if err != nil {
		return nil, orNotFound(err, "table")
	}
	if ta.ID == tb.ID {
		return nil, conflict("a table cannot be swapped with itself")
	}
	if ta.CurrentAssignmentID == nil || tb.CurrentAssignmentID == nil {
		return nil, conflict("both tables must have active assignments to swap")
	}

	aa, err := s.assignments.GetAssignmentTx(ctx, tx, eventID, *ta.CurrentAssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	ab, err := s.assignments.GetAssignmentTx(ctx, tx, eventID, *tb.CurrentAssignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	if !aa.IsActive() || !ab.IsActive() {
		return nil, conflict("both tables must have active assignments to swap")
	}

	// The active-per-table index is checked row by row, so park one
	// assignment before handing its table to the other.
	if err := s.assignments.SetTableTx(ctx, tx, aa.ID, nil); err != nil {
		return nil, fmt.Errorf("failed to swap assignments: %w", err)
	}
	if err := s.assignments.SetTableTx(ctx, tx, ab.ID, &ta.ID); err != nil {
		return nil, fmt.Errorf("failed to swap assignments: %w", err)
	}
	if err := s.assignments.SetTableTx(ctx, tx, aa.ID, &tb.ID); err != nil {
		return nil, fmt.Errorf("failed to swap assignments: %w", err)
	}

	ta.CurrentAssignmentID, tb.CurrentAssignmentID = &ab.ID, &aa.ID
	for _, t := range []*pairing.Table{ta, tb} {
		if err := s.tables.UpdateTableTx(ctx, tx, t); err != nil {
			return nil, fmt.Errorf("failed to swap tables: %w", err)
		}
	}
	return []pairing.Table{*ta, *tb}, tx.Commit()
}

// Notify re-sends the match message with the current table and opponents.
func (s *AssignmentService) Notify(ctx context.Context, agentID, eventID, assignmentID int64) (*pairing.Assignment, error) {
	m, err := s.loadMatch(ctx, agentID, eventID, assignmentID)
	if err != nil {
		return nil, err
	}
	return s.notify(ctx, m)
}

func (s *AssignmentService) notify(ctx context.Context, m *match) (*pairing.Assignment, error) {
	at, err := s.notifier.NotifyPlayers(ctx, m.event, m.table, m.assignment, m.player1, m.player2)
	if err != nil {
		return m.assignment, err
	}
	// The texts are already out, so a failed stamp must not turn into an error.
	stamped, err := s.assignments.SetNotifiedAt(ctx, m.event.ID, m.assignment.ID, at)
	if err != nil {
		slog.Error("failed to record notification time", "assignment_id", m.assignment.ID, "error", err)
		return m.assignment, nil
	}
	if stamped {
		m.assignment.NotifiedAt = &at
	}
	return m.assignment, nil
}

func (s *AssignmentService) loadMatch(ctx context.Context, agentID, eventID, assignmentID int64) (*match, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	event, err := s.events.GetEventTx(ctx, tx, agentID, eventID)
	if err != nil {
		return nil, orNotFound(err, "event")
	}
	a, err := s.activeAssignmentTx(ctx, tx, eventID, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.TableID == nil {
		return nil, invalid("assignment does not have a table")
	}
	table, err := s.tables.GetTableTx(ctx, tx, eventID, *a.TableID)
	if err != nil {
		return nil, orNotFound(err, "table")
	}
	p1, err := s.players.GetPlayerTx(ctx, tx, agentID, a.Player1ID)
	if err != nil {
		return nil, orNotFound(err, "player")
	}
	p2, err := s.players.GetPlayerTx(ctx, tx, agentID, a.Player2ID)
	if err != nil {
		return nil, orNotFound(err, "player")
	}
	return &match{event: event, table: table, assignment: a, player1: p1, player2: p2}, nil
}

// StartTimer stamps started_at and clears any previous ended_at.
func (s *AssignmentService) StartTimer(ctx context.Context, agentID, eventID, assignmentID int64) (*pairing.Assignment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	a, err := s.activeAssignmentTx(ctx, tx, eventID, assignmentID)
	if err != nil {
		return nil, err
	}
	started := s.now()
	a.StartedAt = &started
	a.EndedAt = nil
	if err := s.assignments.UpdateAssignmentTx(ctx, tx, a); err != nil {
		return nil, fmt.Errorf("failed to start timer: %w", err)
	}
	return a, tx.Commit()
}

func (s *AssignmentService) activeAssignmentTx(ctx context.Context, tx *sqlx.Tx, eventID, id int64) (*pairing.Assignment, error) {
	a, err := s.assignments.GetAssignmentTx(ctx, tx, eventID, id)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !a.IsActive()) {
		return nil, notFound("active assignment not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// GetNotifications lists the SMS attempts made for an assignment of the event.
func (s *AssignmentService) GetNotifications(ctx context.Context, agentID, eventID, assignmentID int64) ([]pairing.Notification, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	if _, err := s.assignments.GetAssignment(ctx, eventID, assignmentID); err != nil {
		return nil, orNotFound(err, "assignment")
	}
	notifications, err := s.notifier.GetNotifications(ctx, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *AssignmentService) GetAssignments(ctx context.Context, agentID, eventID int64) ([]pairing.Assignment, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	assignments, err := s.assignments.GetAssignments(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

func (s *AssignmentService) PlayerState(ctx context.Context, agentID, eventID, playerID int64) (*pairing.PlayerState, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	player, err := s.players.GetPlayer(ctx, agentID, playerID)
	if err != nil {
		return nil, orNotFound(err, "player")
	}
	return s.playerState(ctx, agentID, eventID, player)
}

func (s *AssignmentService) PlayerStateByPhone(ctx context.Context, agentID, eventID int64, phone string) (*pairing.PlayerState, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	player, err := PlayerSelector{Phone: &phone}.resolve(nil, func(p string) (*pairing.Player, error) {
		return s.players.GetPlayerByPhone(ctx, agentID, p)
	})
	if err != nil {
		return nil, err
	}
	return s.playerState(ctx, agentID, eventID, player)
}

func (s *AssignmentService) playerState(ctx context.Context, agentID, eventID int64, player *pairing.Player) (*pairing.PlayerState, error) {
	state := &pairing.PlayerState{PlayerID: player.ID, EventID: eventID, State: pairing.PlayerIdle}

	active, err := s.assignments.GetActiveForPlayers(ctx, eventID, player.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	var a *pairing.Assignment
	for i := range active {
		if active[i].HasPlayer(player.ID) {
			a = &active[i]
			break
		}
	}
	if a == nil {
		return state, nil
	}

	state.State = pairing.PlayerPlaying
	state.AssignmentID = &a.ID
	state.TableID = a.TableID
	state.StartedAt = a.StartedAt
	if a.TableID != nil {
		table, err := s.tables.GetTable(ctx, eventID, *a.TableID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to get table: %w", err)
		}
		if table != nil {
			state.TableLabel = utils.Ptr(table.Label())
		}
	}
	opponent, err := s.players.GetPlayer(ctx, agentID, a.OpponentOf(player.ID))
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get opponent: %w", err)
	}
	if opponent != nil {
		state.Opponent = opponent.Slim()
	}
	return state, nil
}
