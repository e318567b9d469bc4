package pairing

import "time"

type Event struct {
	ID          int64      `db:"id" json:"id"`
	AgentID     int64      `db:"agent_id" json:"-"`
	Name        string     `db:"name" json:"name"`
	TablesCount int        `db:"tables_count" json:"tables_count"`
	StartsAt    *time.Time `db:"starts_at" json:"starts_at"`
	Location    *string    `db:"location" json:"location"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}
