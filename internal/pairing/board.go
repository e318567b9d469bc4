package pairing

import "time"

// BoardRow is the read-only per-table snapshot shown on the board. Player and
// assignment fields are only set while the table's assignment is active.
type BoardRow struct {
	ID                  int64       `json:"id"`
	Position            int         `json:"position"`
	Status              TableStatus `json:"status"`
	Label               string      `json:"label"`
	CurrentAssignmentID *int64      `json:"current_assignment_id"`

	AssignmentStatus    *AssignmentStatus `json:"assignment_status"`
	AssignmentCreatedAt *time.Time        `json:"assignment_created_at"`
	NotifiedAt          *time.Time        `json:"notified_at"`
	StartedAt           *time.Time        `json:"started_at"`
	EndedAt             *time.Time        `json:"ended_at"`

	Player1 *PlayerSlim `json:"player1"`
	Player2 *PlayerSlim `json:"player2"`
}

type PlayerActivity string

const (
	PlayerPlaying PlayerActivity = "playing"
	PlayerIdle    PlayerActivity = "free"
)

type PlayerState struct {
	PlayerID     int64          `json:"player_id"`
	EventID      int64          `json:"event_id"`
	State        PlayerActivity `json:"state"`
	AssignmentID *int64         `json:"assignment_id,omitempty"`
	TableID      *int64         `json:"table_id,omitempty"`
	TableLabel   *string        `json:"table_label,omitempty"`
	Opponent     *PlayerSlim    `json:"opponent,omitempty"`
	StartedAt    *time.Time     `json:"started_at,omitempty"`
}
