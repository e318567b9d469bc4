package store

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type RegistrationStore struct {
	db *sqlx.DB
}

const listRegistrationsQuery = `
	SELECT r.id, r.event_id, r.player_id, r.created_at,
	       p.id AS "player.id", p.agent_id AS "player.agent_id", p.full_name AS "player.full_name",
	       p.phone_number AS "player.phone_number", p.created_at AS "player.created_at"
	FROM registrations r
	JOIN players p ON p.id = r.player_id
	WHERE r.event_id = ?
	ORDER BY r.created_at DESC, r.id DESC
`

func NewRegistrationStore(db *sqlx.DB) *RegistrationStore {
	return &RegistrationStore{db: db}
}

func (s *RegistrationStore) CreateRegistration(ctx context.Context, reg *pairing.Registration) error {
	res, err := s.db.NamedExecContext(ctx, `INSERT INTO registrations (event_id, player_id, created_at)
        VALUES (:event_id, :player_id, :created_at)`, reg)
	if err != nil {
		return err
	}
	reg.ID, err = res.LastInsertId()
	return err
}

func (s *RegistrationStore) GetRegistrations(ctx context.Context, eventID int64) ([]pairing.RegistrationWithPlayer, error) {
	regs := []pairing.RegistrationWithPlayer{}
	err := s.db.SelectContext(ctx, &regs, listRegistrationsQuery, eventID)
	return regs, err
}

func (s *RegistrationStore) GetRegistrationTx(ctx context.Context, tx *sqlx.Tx, eventID, id int64) (*pairing.Registration, error) {
	var reg pairing.Registration
	err := tx.GetContext(ctx, &reg, "SELECT * FROM registrations WHERE id = ? AND event_id = ?", id, eventID)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (s *RegistrationStore) IsRegisteredTx(ctx context.Context, tx *sqlx.Tx, eventID, playerID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists, "SELECT EXISTS (SELECT 1 FROM registrations WHERE event_id = ? AND player_id = ?)", eventID, playerID)
	return exists, err
}

func (s *RegistrationStore) DeleteRegistrationTx(ctx context.Context, tx *sqlx.Tx, id int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM registrations WHERE id = ?", id)
	return err
}
