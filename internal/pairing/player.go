package pairing

import "time"

type Player struct {
	ID          int64     `db:"id" json:"id"`
	AgentID     int64     `db:"agent_id" json:"-"`
	FullName    string    `db:"full_name" json:"full_name"`
	PhoneNumber *string   `db:"phone_number" json:"phone_number"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// PlayerSlim is the player shape embedded in board rows and player state.
type PlayerSlim struct {
	ID          int64   `json:"id"`
	FullName    string  `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
}

func (p *Player) Slim() *PlayerSlim {
	if p == nil {
		return nil
	}
	return &PlayerSlim{ID: p.ID, FullName: p.FullName, PhoneNumber: p.PhoneNumber}
}

type Registration struct {
	ID        int64     `db:"id" json:"id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	PlayerID  int64     `db:"player_id" json:"player_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RegistrationWithPlayer is a registration joined with its player row.
type RegistrationWithPlayer struct {
	Registration
	Player Player `db:"player" json:"player"`
}
