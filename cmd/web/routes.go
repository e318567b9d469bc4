package main

import (
	"net/http"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/httputil"
	"github.com/AdamBeresnev/pingpong-tables/internal/middleware"
	"github.com/AdamBeresnev/pingpong-tables/internal/notify"
	"github.com/AdamBeresnev/pingpong-tables/internal/pairing"
	"github.com/AdamBeresnev/pingpong-tables/internal/service"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/AdamBeresnev/pingpong-tables/views"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const displayRefreshSeconds = 15

func newRouter(app *application) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.cfg.FrontendOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
			"env":    app.cfg.AppEnv,
			"tz":     app.cfg.TZ,
			"app":    app.cfg.AppName,
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Backend is alive. Go to /healthz"})
	})

	r.Post("/agents", func(w http.ResponseWriter, r *http.Request) {
		var input service.AgentInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		a, err := app.agents.CreateAgent(r.Context(), input)
		if err != nil {
			httputil.Error(w, "Failed to create agent", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, a)
	})

	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		a, token, err := app.agents.Login(r.Context(), input.Email, input.Password)
		if err != nil {
			httputil.Error(w, "Failed to log in", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"agent": a, "token": token})
	})

	// Signed Twilio delivery reports. Unknown message ids are acknowledged so
	// the provider does not retry them.
	r.With(middleware.RequireTwilioSignature(app.cfg.Twilio.AuthToken, notify.StatusCallbackURL(app.cfg.Twilio.BaseURL))).Post("/twilio/status", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httputil.BadRequest(w, "Invalid form data", err)
			return
		}
		err := app.notifier.RecordDeliveryStatus(r.Context(),
			r.PostForm.Get("MessageSid"),
			r.PostForm.Get("MessageStatus"),
			utils.StringOrNil(r.PostForm.Get("ErrorCode")),
		)
		if err != nil && service.KindOf(err) != service.KindNotFound {
			httputil.Error(w, "Failed to record delivery status", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("OK"))
	})

	r.With(middleware.RequireAgent(app.agents, middleware.QueryToken)).Get("/display/events/{event_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		event, err := app.events.GetEvent(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get event", err)
			return
		}
		rows, err := app.tables.GetBoard(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get board", err)
			return
		}
		data := views.PrepareBoardData(event, rows, app.loc, time.Now())
		if a := views.GetAgent(r.Context()); a != nil {
			data.Organizer = a.FullName
		}
		if err := views.Render(w, r, views.DisplayBoard(data, displayRefreshSeconds)); err != nil {
			httputil.InternalServerError(w, "Failed to render board", err)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAgent(app.agents, middleware.BearerToken))

		r.Get("/agents/me", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, middleware.GetAgentFromContext(r.Context()))
		})

		r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
			if err := app.agents.Logout(r.Context(), agentID(r)); err != nil {
				httputil.Error(w, "Failed to log out", err)
				return
			}
			httputil.NoContent(w)
		})

		r.Route("/events", func(r chi.Router) {
			eventRoutes(r, app)
			r.Route("/{event_id}/registrations", func(r chi.Router) { registrationRoutes(r, app) })
			r.Route("/{event_id}/tables", func(r chi.Router) { tableRoutes(r, app) })
			r.Route("/{event_id}/assignments", func(r chi.Router) { assignmentRoutes(r, app) })
		})

		r.Route("/players", func(r chi.Router) { playerRoutes(r, app) })
	})

	return r
}

func eventRoutes(r chi.Router, app *application) {
	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var input service.EventInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		event, err := app.events.CreateEvent(r.Context(), agentID(r), input)
		if err != nil {
			httputil.Error(w, "Failed to create event", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, event)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		events, err := app.events.GetEvents(r.Context(), agentID(r))
		if err != nil {
			httputil.Error(w, "Failed to get events", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, events)
	})

	r.Get("/{event_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		event, err := app.events.GetEvent(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get event", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, event)
	})

	r.Delete("/{event_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		if err := app.events.DeleteEvent(r.Context(), agentID, eventID); err != nil {
			httputil.Error(w, "Failed to delete event", err)
			return
		}
		httputil.NoContent(w)
	})
}

func playerRoutes(r chi.Router, app *application) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		players, err := app.players.GetPlayers(r.Context(), agentID(r))
		if err != nil {
			httputil.Error(w, "Failed to get players", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, players)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		var input service.PlayerInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		player, err := app.players.CreatePlayer(r.Context(), agentID(r), input)
		if err != nil {
			httputil.Error(w, "Failed to create player", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, player)
	})

	r.Post("/import-csv", func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			httputil.BadRequest(w, "A CSV file is required in the 'file' field", err)
			return
		}
		defer file.Close()

		report, err := app.players.ImportCSV(r.Context(), agentID(r), file)
		if err != nil {
			httputil.Error(w, "Failed to import players", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, report)
	})

	r.Get("/state/{event_id}/{player_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		playerID, ok := pathInt64(w, r, "player_id")
		if !ok {
			return
		}
		state, err := app.engine.PlayerState(r.Context(), agentID, eventID, playerID)
		if err != nil {
			httputil.Error(w, "Failed to get player state", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, state)
	})

	r.Get("/state/by-phone/{event_id}/{phone}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		state, err := app.engine.PlayerStateByPhone(r.Context(), agentID, eventID, chi.URLParam(r, "phone"))
		if err != nil {
			httputil.Error(w, "Failed to get player state", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, state)
	})

	r.Delete("/id/{player_id}", func(w http.ResponseWriter, r *http.Request) {
		playerID, ok := pathInt64(w, r, "player_id")
		if !ok {
			return
		}
		if err := app.players.DeletePlayer(r.Context(), agentID(r), playerID); err != nil {
			httputil.Error(w, "Failed to delete player", err)
			return
		}
		httputil.NoContent(w)
	})

	r.Get("/{phone}", func(w http.ResponseWriter, r *http.Request) {
		player, err := app.players.GetPlayerByPhone(r.Context(), agentID(r), chi.URLParam(r, "phone"))
		if err != nil {
			httputil.Error(w, "Failed to get player", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, player)
	})

	r.Put("/{phone}", func(w http.ResponseWriter, r *http.Request) {
		var input service.PlayerInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		player, err := app.players.UpdatePlayer(r.Context(), agentID(r), chi.URLParam(r, "phone"), input)
		if err != nil {
			httputil.Error(w, "Failed to update player", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, player)
	})
}

func registrationRoutes(r chi.Router, app *application) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		regs, err := app.registrations.GetRegistrations(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get registrations", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, regs)
	})

	r.Post("/", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		var input service.RegistrationInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		reg, err := app.registrations.AddRegistration(r.Context(), agentID, eventID, input)
		if err != nil {
			httputil.Error(w, "Failed to add registration", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, reg)
	})

	r.Delete("/{registration_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		regID, ok := pathInt64(w, r, "registration_id")
		if !ok {
			return
		}
		if err := app.registrations.RemoveRegistration(r.Context(), agentID, eventID, regID); err != nil {
			httputil.Error(w, "Failed to remove registration", err)
			return
		}
		httputil.NoContent(w)
	})
}

func tableRoutes(r chi.Router, app *application) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		tables, err := app.tables.GetTables(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get tables", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, tables)
	})

	r.Get("/board", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		rows, err := app.tables.GetBoard(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get board", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, rows)
	})

	r.Post("/seed", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		var input service.SeedInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		tables, err := app.tables.SeedTables(r.Context(), agentID, eventID, input)
		if err != nil {
			httputil.Error(w, "Failed to seed tables", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, tables)
	})

	r.Post("/pos/{position}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		position, ok := pathInt(w, r, "position")
		if !ok {
			return
		}
		table, err := app.tables.CreateTableAtPosition(r.Context(), agentID, eventID, position)
		if err != nil {
			httputil.Error(w, "Failed to create table", err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, table)
	})

	r.Delete("/pos/{position}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		position, ok := pathInt(w, r, "position")
		if !ok {
			return
		}
		if err := app.tables.DeleteTableByPosition(r.Context(), agentID, eventID, position); err != nil {
			httputil.Error(w, "Failed to delete table", err)
			return
		}
		httputil.NoContent(w)
	})

	r.Delete("/", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		if err := app.tables.DeleteAllTables(r.Context(), agentID, eventID); err != nil {
			httputil.Error(w, "Failed to delete tables", err)
			return
		}
		httputil.NoContent(w)
	})

	r.Delete("/{table_id}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		tableID, ok := pathInt64(w, r, "table_id")
		if !ok {
			return
		}
		if err := app.tables.DeleteTable(r.Context(), agentID, eventID, tableID); err != nil {
			httputil.Error(w, "Failed to delete table", err)
			return
		}
		httputil.NoContent(w)
	})

	r.Post("/swap", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		var input struct {
			TableAID int64 `json:"table_a_id"`
			TableBID int64 `json:"table_b_id"`
		}
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		tables, err := app.engine.Swap(r.Context(), agentID, eventID, input.TableAID, input.TableBID)
		if err != nil {
			httputil.Error(w, "Failed to swap tables", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, tables)
	})

	r.Post("/{table_id}/assign", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		tableID, ok := pathInt64(w, r, "table_id")
		if !ok {
			return
		}
		var input service.AssignInput
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		a, err := app.engine.Assign(r.Context(), agentID, eventID, tableID, input)
		if err != nil {
			if service.KindOf(err) == service.KindDelivery && a != nil {
				httputil.WriteDeliveryError(w, err, a)
				return
			}
			httputil.Error(w, "Failed to assign table", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, a)
	})

	r.Post("/{table_id}/free", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		tableID, ok := pathInt64(w, r, "table_id")
		if !ok {
			return
		}
		table, err := app.engine.Free(r.Context(), agentID, eventID, tableID)
		if err != nil {
			httputil.Error(w, "Failed to free table", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, table)
	})

	// Deprecated: kept for older clients. Use /free and /assign.
	r.Post("/{table_id}/status/{status}", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		tableID, ok := pathInt64(w, r, "table_id")
		if !ok {
			return
		}
		status := pairing.TableStatus(chi.URLParam(r, "status"))
		table, err := app.engine.SetTableStatus(r.Context(), agentID, eventID, tableID, status)
		if err != nil {
			httputil.Error(w, "Failed to set table status", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, table)
	})
}

func assignmentRoutes(r chi.Router, app *application) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		assignments, err := app.engine.GetAssignments(r.Context(), agentID, eventID)
		if err != nil {
			httputil.Error(w, "Failed to get assignments", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, assignments)
	})

	r.Get("/{assignment_id}/notifications", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		assignmentID, ok := pathInt64(w, r, "assignment_id")
		if !ok {
			return
		}
		notifications, err := app.engine.GetNotifications(r.Context(), agentID, eventID, assignmentID)
		if err != nil {
			httputil.Error(w, "Failed to get notifications", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, notifications)
	})

	r.Post("/{assignment_id}/move", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		assignmentID, ok := pathInt64(w, r, "assignment_id")
		if !ok {
			return
		}
		var input struct {
			NewTableID int64 `json:"new_table_id"`
		}
		if !httputil.DecodeJSON(w, r, &input) {
			return
		}
		a, err := app.engine.Move(r.Context(), agentID, eventID, assignmentID, input.NewTableID)
		if err != nil {
			httputil.Error(w, "Failed to move assignment", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, a)
	})

	r.Post("/{assignment_id}/notify", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		assignmentID, ok := pathInt64(w, r, "assignment_id")
		if !ok {
			return
		}
		a, err := app.engine.Notify(r.Context(), agentID, eventID, assignmentID)
		if err != nil {
			httputil.Error(w, "Failed to notify players", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, a)
	})

	r.Post("/{assignment_id}/start", func(w http.ResponseWriter, r *http.Request) {
		agentID, eventID, ok := eventIDs(w, r)
		if !ok {
			return
		}
		assignmentID, ok := pathInt64(w, r, "assignment_id")
		if !ok {
			return
		}
		a, err := app.engine.StartTimer(r.Context(), agentID, eventID, assignmentID)
		if err != nil {
			httputil.Error(w, "Failed to start timer", err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, a)
	})
}
