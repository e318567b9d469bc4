package service

import (
	"context"
	"fmt"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/jmoiron/sqlx"
)

type EventService struct {
	db    *sqlx.DB
	store *store.EventStore
	now   func() time.Time
}

func NewEventService(db *sqlx.DB, store *store.EventStore) *EventService {
	return &EventService{db: db, store: store, now: func() time.Time { return time.Now().UTC() }}
}

type EventInput struct {
	Name        string     `json:"name"`
	TablesCount int        `json:"tables_count"`
	StartsAt    *time.Time `json:"starts_at"`
	Location    *string    `json:"location"`
}

func (s *EventService) CreateEvent(ctx context.Context, agentID int64, input EventInput) (*pairing.Event, error) {
	name := utils.CleanName(input.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if input.TablesCount < 1 {
		return nil, invalid("tables_count must be at least 1")
	}

	var location *string
	if input.Location != nil {
		location = utils.StringOrNil(*input.Location)
	}

	event := &pairing.Event{
		AgentID:     agentID,
		Name:        name,
		TablesCount: input.TablesCount,
		StartsAt:    input.StartsAt,
		Location:    location,
		CreatedAt:   s.now(),
	}
	if err := s.store.CreateEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (s *EventService) GetEvents(ctx context.Context, agentID int64) ([]pairing.Event, error) {
	events, err := s.store.GetEventsByAgentID(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

func (s *EventService) GetEvent(ctx context.Context, agentID, id int64) (*pairing.Event, error) {
	event, err := s.store.GetEvent(ctx, agentID, id)
	if err != nil {
		return nil, orNotFound(err, "event")
	}
	return event, nil
}

// DeleteEvent removes the event and, through cascades, everything under it.
func (s *EventService) DeleteEvent(ctx context.Context, agentID, id int64) error {
	deleted, err := s.store.DeleteEvent(ctx, agentID, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if !deleted {
		return notFound("event not found")
	}
	return nil
}
