package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/jmoiron/sqlx"
)

type RegistrationService struct {
	db          *sqlx.DB
	store       *store.RegistrationStore
	events      *store.EventStore
	players     *store.PlayerStore
	assignments *store.AssignmentStore
	now         func() time.Time
}

func NewRegistrationService(db *sqlx.DB) *RegistrationService {
	return &RegistrationService{
		db:          db,
		store:       store.NewRegistrationStore(db),
		events:      store.NewEventStore(db),
		players:     store.NewPlayerStore(db),
		assignments: store.NewAssignmentStore(db),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

type RegistrationInput struct {
	PlayerID    *int64  `json:"player_id"`
	PhoneNumber *string `json:"phone_number"`
}

func (s *RegistrationService) GetRegistrations(ctx context.Context, agentID, eventID int64) ([]pairing.RegistrationWithPlayer, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}
	regs, err := s.store.GetRegistrations(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

// AddRegistration registers a player, picked by id or phone, for the event.
func (s *RegistrationService) AddRegistration(ctx context.Context, agentID, eventID int64, input RegistrationInput) (*pairing.Registration, error) {
	if _, err := s.events.GetEvent(ctx, agentID, eventID); err != nil {
		return nil, orNotFound(err, "event")
	}

	sel := PlayerSelector{ID: input.PlayerID, Phone: input.PhoneNumber}
	player, err := sel.resolve(func(id int64) (*pairing.Player, error) {
		return s.players.GetPlayer(ctx, agentID, id)
	}, func(phone string) (*pairing.Player, error) {
		return s.players.GetPlayerByPhone(ctx, agentID, phone)
	})
	if err != nil {
		return nil, err
	}

	reg := &pairing.Registration{EventID: eventID, PlayerID: player.ID, CreatedAt: s.now()}
	if err := s.store.CreateRegistration(ctx, reg); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("player already registered for this event")
		}
		return nil, fmt.Errorf("failed to create registration: %w", err)
	}
	return reg, nil
}

// RemoveRegistration refuses while the player is still at a table of the event.
func (s *RegistrationService) RemoveRegistration(ctx context.Context, agentID, eventID, id int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := s.events.GetEventTx(ctx, tx, agentID, eventID); err != nil {
		return orNotFound(err, "event")
	}
	reg, err := s.store.GetRegistrationTx(ctx, tx, eventID, id)
	if err != nil {
		return orNotFound(err, "registration")
	}
	active, err := s.assignments.GetActiveForPlayersTx(ctx, tx, eventID, reg.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to check assignments: %w", err)
	}
	if len(active) > 0 {
		return conflict("player is in an active assignment for this event")
	}
	if err := s.store.DeleteRegistrationTx(ctx, tx, reg.ID); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	return tx.Commit()
}
