package main

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/AdamBeresnev/pingpong-tables/internal/httputil"
	"github.com/AdamBeresnev/pingpong-tables/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes bounds the CSV import upload.
const maxUploadBytes = 2 << 20

func agentID(r *http.Request) int64 {
	id, _ := middleware.GetAgentIDFromContext(r.Context())
	return id
}

func pathInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid %s", name), err)
		return 0, false
	}
	return id, true
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Invalid %s", name), err)
		return 0, false
	}
	return n, true
}

// eventIDs reads the agent and the {event_id} path parameter.
func eventIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	eventID, ok := pathInt64(w, r, "event_id")
	return agentID(r), eventID, ok
}
