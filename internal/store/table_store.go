package store

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type TableStore struct {
	db *sqlx.DB
}

const (
	getTableQuery           = "SELECT * FROM event_tables WHERE id = ? AND event_id = ?"
	getTableByPositionQuery = "SELECT * FROM event_tables WHERE position = ? AND event_id = ?"
	listTablesQuery         = "SELECT * FROM event_tables WHERE event_id = ? ORDER BY position ASC, id ASC"
)

func NewTableStore(db *sqlx.DB) *TableStore {
	return &TableStore{db: db}
}

func (s *TableStore) CreateTablesTx(ctx context.Context, tx *sqlx.Tx, tables []pairing.Table) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := tx.NamedExecContext(ctx, `INSERT INTO event_tables (event_id, position, status, current_assignment_id, created_at)
		VALUES (:event_id, :position, :status, :current_assignment_id, :created_at)`, tables)
	return err
}

func (s *TableStore) GetTable(ctx context.Context, eventID, id int64) (*pairing.Table, error) {
	return getTable(ctx, s.db, getTableQuery, id, eventID)
}

func (s *TableStore) GetTableTx(ctx context.Context, tx *sqlx.Tx, eventID, id int64) (*pairing.Table, error) {
	return getTable(ctx, tx, getTableQuery, id, eventID)
}

func (s *TableStore) GetTableByPositionTx(ctx context.Context, tx *sqlx.Tx, eventID int64, position int) (*pairing.Table, error) {
	return getTable(ctx, tx, getTableByPositionQuery, position, eventID)
}

func getTable(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*pairing.Table, error) {
	var table pairing.Table
	if err := sqlx.GetContext(ctx, q, &table, query, args...); err != nil {
		return nil, err
	}
	return &table, nil
}

func (s *TableStore) GetTables(ctx context.Context, eventID int64) ([]pairing.Table, error) {
	tables := []pairing.Table{}
	err := s.db.SelectContext(ctx, &tables, listTablesQuery, eventID)
	return tables, err
}

func (s *TableStore) GetTablesTx(ctx context.Context, tx *sqlx.Tx, eventID int64) ([]pairing.Table, error) {
	tables := []pairing.Table{}
	err := tx.SelectContext(ctx, &tables, listTablesQuery, eventID)
	return tables, err
}

// UpdateTableTx writes the occupancy columns of a table.
func (s *TableStore) UpdateTableTx(ctx context.Context, tx *sqlx.Tx, table *pairing.Table) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE event_tables SET
		status = :status,
		current_assignment_id = :current_assignment_id
		WHERE id = :id AND event_id = :event_id`, table)
	return err
}

func (s *TableStore) DeleteTableTx(ctx context.Context, tx *sqlx.Tx, eventID, id int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM event_tables WHERE id = ? AND event_id = ?", id, eventID)
	return err
}

func (s *TableStore) DeleteTablesTx(ctx context.Context, tx *sqlx.Tx, eventID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM event_tables WHERE event_id = ?", eventID)
	return err
}

// CountOccupiedTx counts tables of the event that hold an active assignment.
func (s *TableStore) CountOccupiedTx(ctx context.Context, tx *sqlx.Tx, eventID int64) (int, error) {
	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM event_tables t
		JOIN assignments a ON a.id = t.current_assignment_id AND a.status = 'active'
		WHERE t.event_id = ?`, eventID)
	return n, err
}
