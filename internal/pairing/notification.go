package pairing

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationAccepted    NotificationStatus = "accepted"
	NotificationQueued      NotificationStatus = "queued"
	NotificationSending     NotificationStatus = "sending"
	NotificationSent        NotificationStatus = "sent"
	NotificationDelivered   NotificationStatus = "delivered"
	NotificationUndelivered NotificationStatus = "undelivered"
	NotificationFailed      NotificationStatus = "failed"
	NotificationRead        NotificationStatus = "read"
)

// Valid reports whether s is a message status the provider can report.
func (s NotificationStatus) Valid() bool {
	switch s {
	case NotificationAccepted, NotificationQueued, NotificationSending, NotificationSent,
		NotificationDelivered, NotificationUndelivered, NotificationFailed, NotificationRead:
		return true
	}
	return false
}

// Notification records one outbound SMS for an assignment.
type Notification struct {
	ID           uuid.UUID          `db:"id" json:"id"`
	AssignmentID int64              `db:"assignment_id" json:"assignment_id"`
	PlayerID     int64              `db:"player_id" json:"player_id"`
	ToNumber     string             `db:"to_number" json:"to_number"`
	Body         string             `db:"body" json:"body"`
	ProviderSID  *string            `db:"provider_sid" json:"provider_sid"`
	Status       NotificationStatus `db:"status" json:"status"`
	Error        *string            `db:"error" json:"error"`
	CreatedAt    time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updated_at"`
}
