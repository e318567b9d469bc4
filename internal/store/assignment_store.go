package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type AssignmentStore struct {
	db *sqlx.DB
}

const (
	getAssignmentQuery    = "SELECT * FROM assignments WHERE id = ? AND event_id = ?"
	activeForPlayersQuery = `
		SELECT * FROM assignments
		WHERE event_id = ? AND status = 'active'
		AND (player1_id IN (?) OR player2_id IN (?))
		ORDER BY id ASC
	`
	updateAssignmentQuery = `
		UPDATE assignments SET
		table_id = :table_id,
		status = :status,
		notified_at = :notified_at,
		started_at = :started_at,
		ended_at = :ended_at
		WHERE id = :id AND event_id = :event_id
	`
)

func NewAssignmentStore(db *sqlx.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// CreateAssignmentTx inserts the assignment and fills in its generated id.
func (s *AssignmentStore) CreateAssignmentTx(ctx context.Context, tx *sqlx.Tx, a *pairing.Assignment) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO assignments (event_id, table_id, player1_id, player2_id, status, created_at, notified_at, started_at, ended_at)
		VALUES (:event_id, :table_id, :player1_id, :player2_id, :status, :created_at, :notified_at, :started_at, :ended_at)`, a)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

func (s *AssignmentStore) GetAssignment(ctx context.Context, eventID, id int64) (*pairing.Assignment, error) {
	return getAssignment(ctx, s.db, eventID, id)
}

func (s *AssignmentStore) GetAssignmentTx(ctx context.Context, tx *sqlx.Tx, eventID, id int64) (*pairing.Assignment, error) {
	return getAssignment(ctx, tx, eventID, id)
}

func getAssignment(ctx context.Context, q sqlx.QueryerContext, eventID, id int64) (*pairing.Assignment, error) {
	var a pairing.Assignment
	if err := sqlx.GetContext(ctx, q, &a, getAssignmentQuery, id, eventID); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AssignmentStore) UpdateAssignmentTx(ctx context.Context, tx *sqlx.Tx, a *pairing.Assignment) error {
	_, err := tx.NamedExecContext(ctx, updateAssignmentQuery, a)
	return err
}

// SetTableTx repoints an assignment without touching its other columns.
func (s *AssignmentStore) SetTableTx(ctx context.Context, tx *sqlx.Tx, id int64, tableID *int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE assignments SET table_id = ? WHERE id = ?", tableID, id)
	return err
}

// SetNotifiedAt stamps a still-active assignment; it reports false when the
// assignment finished in the meantime.
func (s *AssignmentStore) SetNotifiedAt(ctx context.Context, eventID, id int64, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE assignments SET notified_at = ? WHERE id = ? AND event_id = ? AND status = 'active'", at, id, eventID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// GetActiveForPlayersTx returns the event's active assignments involving any of the players.
func (s *AssignmentStore) GetActiveForPlayersTx(ctx context.Context, tx *sqlx.Tx, eventID int64, playerIDs ...int64) ([]pairing.Assignment, error) {
	return activeForPlayers(ctx, tx, eventID, playerIDs)
}

func (s *AssignmentStore) GetActiveForPlayers(ctx context.Context, eventID int64, playerIDs ...int64) ([]pairing.Assignment, error) {
	return activeForPlayers(ctx, s.db, eventID, playerIDs)
}

func activeForPlayers(ctx context.Context, q sqlx.QueryerContext, eventID int64, playerIDs []int64) ([]pairing.Assignment, error) {
	assignments := []pairing.Assignment{}
	if len(playerIDs) == 0 {
		return assignments, nil
	}
	query, args, err := sqlx.In(activeForPlayersQuery, eventID, playerIDs, playerIDs)
	if err != nil {
		return nil, err
	}
	err = sqlx.SelectContext(ctx, q, &assignments, query, args...)
	return assignments, err
}

// GetAssignments lists an event's assignments, active ones first.
func (s *AssignmentStore) GetAssignments(ctx context.Context, eventID int64) ([]pairing.Assignment, error) {
	assignments := []pairing.Assignment{}
	err := s.db.SelectContext(ctx, &assignments, `SELECT * FROM assignments WHERE event_id = ?
		ORDER BY CASE status WHEN 'active' THEN 0 ELSE 1 END, created_at DESC, id DESC`, eventID)
	return assignments, err
}

// IsPlayerActiveTx reports whether the player is in an active assignment of any event.
func (s *AssignmentStore) IsPlayerActiveTx(ctx context.Context, tx *sqlx.Tx, playerID int64) (bool, error) {
	var active bool
	err := tx.GetContext(ctx, &active, `SELECT EXISTS(SELECT 1 FROM assignments
		WHERE status = 'active' AND (player1_id = ? OR player2_id = ?))`, playerID, playerID)
	return active, err
}
