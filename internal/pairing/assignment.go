package pairing

import "time"

type AssignmentStatus string

const (
	AssignmentActive   AssignmentStatus = "active"
	AssignmentFinished AssignmentStatus = "finished"
)

type Assignment struct {
	ID        int64            `db:"id" json:"id"`
	EventID   int64            `db:"event_id" json:"event_id"`
	TableID   *int64           `db:"table_id" json:"table_id"`
	Player1ID int64            `db:"player1_id" json:"player1_id"`
	Player2ID int64            `db:"player2_id" json:"player2_id"`
	Status    AssignmentStatus `db:"status" json:"status"`

	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	NotifiedAt *time.Time `db:"notified_at" json:"notified_at"`
	StartedAt  *time.Time `db:"started_at" json:"started_at"`
	EndedAt    *time.Time `db:"ended_at" json:"ended_at"`
}

func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentActive
}

func (a *Assignment) HasPlayer(playerID int64) bool {
	return a.Player1ID == playerID || a.Player2ID == playerID
}

// OpponentOf returns the other player's id. The caller must check HasPlayer first.
func (a *Assignment) OpponentOf(playerID int64) int64 {
	if a.Player1ID == playerID {
		return a.Player2ID
	}
	return a.Player1ID
}

// IsOn reports whether the assignment is bound to the given table.
func (a *Assignment) IsOn(tableID int64) bool {
	return a.TableID != nil && *a.TableID == tableID
}
