package pairing

import (
	"fmt"
	"time"
)

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
)

func (s TableStatus) Valid() bool {
	return s == TableFree || s == TableOccupied
}

type Table struct {
	ID                  int64       `db:"id" json:"id"`
	EventID             int64       `db:"event_id" json:"event_id"`
	Position            int         `db:"position" json:"position"`
	Status              TableStatus `db:"status" json:"status"`
	CurrentAssignmentID *int64      `db:"current_assignment_id" json:"current_assignment_id"`
	CreatedAt           time.Time   `db:"created_at" json:"-"`
}

// Label is the name shown to players, e.g. "Table 3".
func (t *Table) Label() string {
	if t.Position > 0 {
		return fmt.Sprintf("Table %d", t.Position)
	}
	return fmt.Sprintf("Table %d", t.ID)
}

func (t *Table) IsFree() bool {
	return t.Status == TableFree
}
