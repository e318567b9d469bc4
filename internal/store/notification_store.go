package store

import (
	"context"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/jmoiron/sqlx"
)

type NotificationStore struct {
	db *sqlx.DB
}

func NewNotificationStore(db *sqlx.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) CreateNotification(ctx context.Context, n *pairing.Notification) error {
	_, err := s.db.NamedExecContext(ctx, `INSERT INTO notifications
		(id, assignment_id, player_id, to_number, body, provider_sid, status, error, created_at, updated_at)
		VALUES (:id, :assignment_id, :player_id, :to_number, :body, :provider_sid, :status, :error, :created_at, :updated_at)`, n)
	return err
}

func (s *NotificationStore) GetNotifications(ctx context.Context, assignmentID int64) ([]pairing.Notification, error) {
	notifications := []pairing.Notification{}
	err := s.db.SelectContext(ctx, &notifications, "SELECT * FROM notifications WHERE assignment_id = ? ORDER BY created_at ASC, rowid ASC", assignmentID)
	return notifications, err
}

// UpdateStatusBySID applies a provider delivery report. It reports false when
// no notification carries that provider id.
func (s *NotificationStore) UpdateStatusBySID(ctx context.Context, sid string, status pairing.NotificationStatus, errCode *string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE notifications SET status = ?, error = COALESCE(?, error), updated_at = ? WHERE provider_sid = ?", status, errCode, at, sid)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
