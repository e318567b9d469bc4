package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

// boardRecord is one row of the board join. Assignment and player columns are
// NULL unless the table's current assignment is active.
type boardRecord struct {
	ID                  int64               `db:"id"`
	Position            int                 `db:"position"`
	Status              pairing.TableStatus `db:"status"`
	CurrentAssignmentID *int64              `db:"current_assignment_id"`

	AssignmentStatus *pairing.AssignmentStatus `db:"assignment_status"`
	CreatedAt        *time.Time                `db:"assignment_created_at"`
	NotifiedAt       *time.Time                `db:"notified_at"`
	StartedAt        *time.Time                `db:"started_at"`
	EndedAt          *time.Time                `db:"ended_at"`

	Player1ID    *int64  `db:"player1_id"`
	Player1Name  *string `db:"player1_name"`
	Player1Phone *string `db:"player1_phone"`
	Player2ID    *int64  `db:"player2_id"`
	Player2Name  *string `db:"player2_name"`
	Player2Phone *string `db:"player2_phone"`
}

const boardQuery = `
	SELECT t.id, t.position, t.status, t.current_assignment_id,
	       a.status AS assignment_status, a.created_at AS assignment_created_at,
	       a.notified_at, a.started_at, a.ended_at,
	       p1.id AS player1_id, p1.full_name AS player1_name, p1.phone_number AS player1_phone,
	       p2.id AS player2_id, p2.full_name AS player2_name, p2.phone_number AS player2_phone
	FROM event_tables t
	LEFT JOIN assignments a ON a.id = t.current_assignment_id AND a.status = 'active'
	LEFT JOIN players p1 ON p1.id = a.player1_id
	LEFT JOIN players p2 ON p2.id = a.player2_id
	WHERE t.event_id = ?
	ORDER BY t.position ASC, t.id ASC
`

type BoardStore struct {
	db *sqlx.DB
}

func NewBoardStore(db *sqlx.DB) *BoardStore {
	return &BoardStore{db: db}
}

// GetBoard reads the whole board in a single statement so the snapshot is consistent.
func (s *BoardStore) GetBoard(ctx context.Context, eventID int64) ([]pairing.BoardRow, error) {
	var records []boardRecord
	if err := s.db.SelectContext(ctx, &records, boardQuery, eventID); err != nil {
		return nil, err
	}

	rows := make([]pairing.BoardRow, 0, len(records))
	for _, rec := range records {
		table := pairing.Table{ID: rec.ID, Position: rec.Position}
		row := pairing.BoardRow{
			ID:                  rec.ID,
			Position:            rec.Position,
			Status:              rec.Status,
			Label:               table.Label(),
			CurrentAssignmentID: rec.CurrentAssignmentID,
		}
		if rec.AssignmentStatus != nil {
			row.AssignmentStatus = rec.AssignmentStatus
			row.AssignmentCreatedAt = rec.CreatedAt
			row.NotifiedAt = rec.NotifiedAt
			row.StartedAt = rec.StartedAt
			row.EndedAt = rec.EndedAt
			row.Player1 = slim(rec.Player1ID, rec.Player1Name, rec.Player1Phone)
			row.Player2 = slim(rec.Player2ID, rec.Player2Name, rec.Player2Phone)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func slim(id *int64, name, phone *string) *pairing.PlayerSlim {
	if id == nil {
		return nil
	}
	p := &pairing.PlayerSlim{ID: *id, PhoneNumber: phone}
	if name != nil {
		p.FullName = *name
	}
	return p
}
