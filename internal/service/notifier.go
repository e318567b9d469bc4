package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/notify"
	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Notifier texts both players of an assignment. It never touches table or
// assignment state; callers stamp notified_at themselves.
type Notifier struct {
	sender      notify.Sender
	store       *store.NotificationStore
	loc         *time.Location
	callbackURL string
	appName     string
	now         func() time.Time
}

type NotifierConfig struct {
	AppName     string
	Location    *time.Location
	CallbackURL string
}

func NewNotifier(db *sqlx.DB, sender notify.Sender, cfg NotifierConfig) *Notifier {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Notifier{
		sender:      sender,
		store:       store.NewNotificationStore(db),
		loc:         loc,
		callbackURL: cfg.CallbackURL,
		appName:     cfg.AppName,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// NotifyPlayers sends one message per player, each naming the opponent. The
// first failure stops the loop and is returned as a delivery error.
func (n *Notifier) NotifyPlayers(ctx context.Context, event *pairing.Event, table *pairing.Table, a *pairing.Assignment, p1, p2 *pairing.Player) (time.Time, error) {
	eventName := event.Name
	if eventName == "" {
		eventName = n.appName
	}

	pairs := [][2]*pairing.Player{{p1, p2}, {p2, p1}}
	for _, pair := range pairs {
		player, opponent := pair[0], pair[1]
		if player.PhoneNumber == nil {
			return time.Time{}, delivery(fmt.Errorf("player %s does not have a phone number configured", player.FullName))
		}

		body := notify.MatchBody(eventName, player.FullName, opponent.FullName, table.Label(), a.CreatedAt, n.loc)
		receipt, err := n.sender.Send(ctx, notify.Message{
			To:             *player.PhoneNumber,
			Body:           body,
			StatusCallback: n.callbackURL,
		})

		record := &pairing.Notification{
			ID:           uuid.New(),
			AssignmentID: a.ID,
			PlayerID:     player.ID,
			ToNumber:     *player.PhoneNumber,
			Body:         body,
			Status:       pairing.NotificationSent,
			CreatedAt:    n.now(),
			UpdatedAt:    n.now(),
		}
		if err != nil {
			msg := err.Error()
			record.Status = pairing.NotificationFailed
			record.Error = &msg
		} else if receipt.SID != "" {
			record.ProviderSID = &receipt.SID
		}
		if storeErr := n.store.CreateNotification(ctx, record); storeErr != nil {
			slog.Warn("failed to record notification", "assignment_id", a.ID, "player_id", player.ID, "error", storeErr)
		}

		if err != nil {
			slog.Warn("notification failed", "assignment_id", a.ID, "player_id", player.ID, "error", err)
			return time.Time{}, delivery(err)
		}
		slog.Info("notification sent", "assignment_id", a.ID, "player_id", player.ID, "sid", receipt.SID)
	}

	return n.now(), nil
}

// RecordDeliveryStatus applies a provider status callback. Unknown message
// ids are reported as NotFound.
func (n *Notifier) RecordDeliveryStatus(ctx context.Context, sid, status string, errCode *string) error {
	if sid == "" || status == "" {
		return invalid("MessageSid and MessageStatus are required")
	}
	st := pairing.NotificationStatus(status)
	if !st.Valid() {
		return invalid("unknown message status %q", status)
	}
	found, err := n.store.UpdateStatusBySID(ctx, sid, st, errCode, n.now())
	if err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	if !found {
		return notFound("notification %s not found", sid)
	}
	return nil
}

func (n *Notifier) GetNotifications(ctx context.Context, assignmentID int64) ([]pairing.Notification, error) {
	return n.store.GetNotifications(ctx, assignmentID)
}
