package store

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	getPlayerQuery        = "SELECT * FROM players WHERE id = ? AND agent_id = ?"
	getPlayerByPhoneQuery = "SELECT * FROM players WHERE phone_number = ? AND agent_id = ?"
	createPlayerQuery     = `
		INSERT INTO players (agent_id, full_name, phone_number, created_at) VALUES
		(:agent_id, :full_name, :phone_number, :created_at)
	`
	updatePlayerQuery = `
		UPDATE players SET
		full_name = :full_name,
		phone_number = :phone_number
		WHERE id = :id AND agent_id = :agent_id
	`
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) CreatePlayer(ctx context.Context, player *pairing.Player) error {
	res, err := s.db.NamedExecContext(ctx, createPlayerQuery, player)
	if err != nil {
		return err
	}
	player.ID, err = res.LastInsertId()
	return err
}

func (s *PlayerStore) UpdatePlayer(ctx context.Context, player *pairing.Player) error {
	_, err := s.db.NamedExecContext(ctx, updatePlayerQuery, player)
	return err
}

func (s *PlayerStore) GetPlayer(ctx context.Context, agentID, id int64) (*pairing.Player, error) {
	return getPlayer(ctx, s.db, getPlayerQuery, id, agentID)
}

func (s *PlayerStore) GetPlayerTx(ctx context.Context, tx *sqlx.Tx, agentID, id int64) (*pairing.Player, error) {
	return getPlayer(ctx, tx, getPlayerQuery, id, agentID)
}

func (s *PlayerStore) GetPlayerByPhone(ctx context.Context, agentID int64, phone string) (*pairing.Player, error) {
	return getPlayer(ctx, s.db, getPlayerByPhoneQuery, phone, agentID)
}

func (s *PlayerStore) GetPlayerByPhoneTx(ctx context.Context, tx *sqlx.Tx, agentID int64, phone string) (*pairing.Player, error) {
	return getPlayer(ctx, tx, getPlayerByPhoneQuery, phone, agentID)
}

func getPlayer(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*pairing.Player, error) {
	var player pairing.Player
	if err := sqlx.GetContext(ctx, q, &player, query, args...); err != nil {
		return nil, err
	}
	return &player, nil
}

func (s *PlayerStore) GetPlayersByAgentID(ctx context.Context, agentID int64) ([]pairing.Player, error) {
	players := []pairing.Player{}
	err := s.db.SelectContext(ctx, &players, "SELECT * FROM players WHERE agent_id = ? ORDER BY created_at DESC, id DESC", agentID)
	return players, err
}

// GetPhoneNumbers returns every phone number already used by the agent's players.
func (s *PlayerStore) GetPhoneNumbers(ctx context.Context, agentID int64) (map[string]struct{}, error) {
	var phones []string
	if err := s.db.SelectContext(ctx, &phones, "SELECT phone_number FROM players WHERE agent_id = ? AND phone_number IS NOT NULL", agentID); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(phones))
	for _, p := range phones {
		set[p] = struct{}{}
	}
	return set, nil
}

func (s *PlayerStore) DeletePlayerTx(ctx context.Context, tx *sqlx.Tx, agentID, id int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM players WHERE id = ? AND agent_id = ?", id, agentID)
	return err
}
