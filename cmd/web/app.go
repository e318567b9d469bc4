package main

import (
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/config"
	"github.com/AdamBeresnev/pingpong-tables/internal/notify"
	"github.com/AdamBeresnev/pingpong-tables/internal/service"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/jmoiron/sqlx"
)

// application holds the services shared by every handler. It is built once
// at startup.
type application struct {
	cfg config.Config
	loc *time.Location

	agents        *service.AgentService
	events        *service.EventService
	players       *service.PlayerService
	registrations *service.RegistrationService
	tables        *service.TableService
	engine        *service.AssignmentService
	notifier      *service.Notifier
}

func newApplication(cfg config.Config, loc *time.Location, database *sqlx.DB, sender notify.Sender) *application {
	notifier := service.NewNotifier(database, sender, service.NotifierConfig{
		AppName:     cfg.AppName,
		Location:    loc,
		CallbackURL: notify.StatusCallbackURL(cfg.Twilio.BaseURL),
	})
	return &application{
		cfg:           cfg,
		loc:           loc,
		agents:        service.NewAgentService(database, store.NewAgentStore(database)),
		events:        service.NewEventService(database, store.NewEventStore(database)),
		players:       service.NewPlayerService(database),
		registrations: service.NewRegistrationService(database),
		tables:        service.NewTableService(database),
		engine:        service.NewAssignmentService(database, notifier),
		notifier:      notifier,
	}
}
