package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/jmoiron/sqlx"
)

// TableService manages the table layout of an event. Occupancy itself is
// only changed by AssignmentService.
type TableService struct {
	db     *sqlx.DB
	events *store.EventStore
	tables *store.TableStore
	board  *store.BoardStore
	now    func() time.Time
}

func NewTableService(db *sqlx.DB) *TableService {
	return &TableService{
		db:     db,
		events: store.NewEventStore(db),
		tables: store.NewTableStore(db),
		board:  store.NewBoardStore(db),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type SeedInput struct {
	Count   *int `json:"count"`
	Reset   bool `json:"reset"`
	StartAt int  `json:"start_at"`
}

func (s *TableService) GetTables(ctx context.Context, agentID, eventID int64) ([]pairing.Table, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	tables, err := s.tables.GetTables(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, nil
}

func (s *TableService) GetBoard(ctx context.Context, agentID, eventID int64) ([]pairing.BoardRow, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	rows, err := s.board.GetBoard(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load board: %w", err)
	}
	return rows, nil
}

func (s *TableService) CreateTableAtPosition(ctx context.Context, agentID, eventID int64, position int) (*pairing.Table, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	_, err = s.tables.GetTableByPositionTx(ctx, tx, eventID, position)
	switch {
	case err == nil:
		return nil, conflict("table with position %d already exists", position)
	case !errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to get table: %w", err)
	}

	err = s.tables.CreateTablesTx(ctx, tx, []pairing.Table{s.newTable(eventID, position)})
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("table with position %d already exists", position)
		}
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	table, err := s.tables.GetTableByPositionTx(ctx, tx, eventID, position)
	if err != nil {
		return nil, fmt.Errorf("failed to reload table: %w", err)
	}
	return table, tx.Commit()
}

// SeedTables makes sure positions start_at..start_at+count-1 exist, creating
// only the missing ones. With reset every table is dropped first, which is
// refused while any of them is occupied.
func (s *TableService) SeedTables(ctx context.Context, agentID, eventID int64, input SeedInput) ([]pairing.Table, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	event, err := s.events.GetEventTx(ctx, tx, agentID, eventID)
	if err != nil {
		return nil, orNotFound(err, "event")
	}

	target := event.TablesCount
	if input.Count != nil {
		target = *input.Count
	}
	if target <= 0 {
		return nil, invalid("target table count must be positive")
	}
	startAt := max(1, input.StartAt)

	if input.Reset {
		occupied, err := s.tables.CountOccupiedTx(ctx, tx, eventID)
		if err != nil {
			return nil, fmt.Errorf("failed to count occupied tables: %w", err)
		}
		if occupied > 0 {
			return nil, conflict("cannot reset tables while %d of them are occupied", occupied)
		}
		if err := s.tables.DeleteTablesTx(ctx, tx, eventID); err != nil {
			return nil, fmt.Errorf("failed to delete tables: %w", err)
		}
	}

	existing, err := s.tables.GetTablesTx(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	taken := make(map[int]bool, len(existing))
	for _, t := range existing {
		taken[t.Position] = true
	}

	var missing []pairing.Table
	for pos := startAt; pos < startAt+target; pos++ {
		if !taken[pos] {
			missing = append(missing, s.newTable(eventID, pos))
		}
	}
	if err := s.tables.CreateTablesTx(ctx, tx, missing); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	tables, err := s.tables.GetTablesTx(ctx, tx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	return tables, tx.Commit()
}

func (s *TableService) DeleteTable(ctx context.Context, agentID, eventID, tableID int64) error {
	return s.deleteOne(ctx, agentID, eventID, func(tx *sqlx.Tx) (*pairing.Table, error) {
		return s.tables.GetTableTx(ctx, tx, eventID, tableID)
	})
}

func (s *TableService) DeleteTableByPosition(ctx context.Context, agentID, eventID int64, position int) error {
	return s.deleteOne(ctx, agentID, eventID, func(tx *sqlx.Tx) (*pairing.Table, error) {
		return s.tables.GetTableByPositionTx(ctx, tx, eventID, position)
	})
}

func (s *TableService) deleteOne(ctx context.Context, agentID, eventID int64, lookup func(*sqlx.Tx) (*pairing.Table, error)) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return orNotFound(err, "event")
	}
	table, err := lookup(tx)
	if err != nil {
		return orNotFound(err, "table")
	}
	if !table.IsFree() || table.CurrentAssignmentID != nil {
		return conflict("%s has an active assignment", table.Label())
	}
	if err := s.tables.DeleteTableTx(ctx, tx, eventID, table.ID); err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	return tx.Commit()
}

func (s *TableService) DeleteAllTables(ctx context.Context, agentID, eventID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return orNotFound(err, "event")
	}
	occupied, err := s.tables.CountOccupiedTx(ctx, tx, eventID)
	if err != nil {
		return fmt.Errorf("failed to count occupied tables: %w", err)
	}
	if occupied > 0 {
		return conflict("cannot delete tables while %d of them are occupied", occupied)
	}
	if err := s.tables.DeleteTablesTx(ctx, tx, eventID); err != nil {
		return fmt.Errorf("failed to delete tables: %w", err)
	}
	return tx.Commit()
}

func (s *TableService) newTable(eventID int64, position int) pairing.Table {
	return pairing.Table{
		EventID:   eventID,
		Position:  position,
		Status:    pairing.TableFree,
		CreatedAt: s.now(),
	}
}
