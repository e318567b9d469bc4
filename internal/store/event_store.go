package store

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) CreateEvent(ctx context.Context, event *pairing.Event) error {
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO events (agent_id, name, tables_count, starts_at, location, created_at)
        VALUES (:agent_id, :name, :tables_count, :starts_at, :location, :created_at)`, event)
	if err != nil {
		return err
	}
	event.ID, err = res.LastInsertId()
	return err
}

// GetEvent only returns events owned by agentID.
func (s *EventStore) GetEvent(ctx context.Context, agentID, id int64) (*pairing.Event, error) {
	return getEvent(ctx, s.db, agentID, id)
}

func (s *EventStore) GetEventTx(ctx context.Context, tx *sqlx.Tx, agentID, id int64) (*pairing.Event, error) {
	return getEvent(ctx, tx, agentID, id)
}

func getEvent(ctx context.Context, q sqlx.QueryerContext, agentID, id int64) (*pairing.Event, error) {
	var event pairing.Event
	if err := sqlx.GetContext(ctx, q, &event, "SELECT * FROM events WHERE id = ? AND agent_id = ?", id, agentID); err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *EventStore) GetEventsByAgentID(ctx context.Context, agentID int64) ([]pairing.Event, error) {
	events := []pairing.Event{}
	err := s.db.SelectContext(ctx, &events, "SELECT * FROM events WHERE agent_id = ? ORDER BY created_at DESC, id DESC", agentID)
	return events, err
}

// DeleteEvent reports whether a row was removed. Tables, registrations and
// assignments go with it through ON DELETE CASCADE.
func (s *EventStore) DeleteEvent(ctx context.Context, agentID, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ? AND agent_id = ?", id, agentID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
