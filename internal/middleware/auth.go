package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/AdamBeresnev/pingpong-tables/internal/agent"
	"github.com/AdamBeresnev/pingpong-tables/internal/httputil"
)

// Authenticator resolves a bearer token to its agent.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*agent.Agent, error)
}

// TokenSource pulls a token out of a request.
type TokenSource func(r *http.Request) string

func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// QueryToken reads ?token=, falling back to the Authorization header. Used by
// pages opened directly in a browser.
func QueryToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return BearerToken(r)
}

func RequireAgent(auth Authenticator, source TokenSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := source(r)
			if token == "" {
				httputil.Unauthorized(w, "Not authenticated")
				return
			}

			a, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				httputil.Error(w, "Failed to authenticate", err)
				return
			}

			ctx := context.WithValue(r.Context(), agent.AgentKey, a)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetAgentFromContext(ctx context.Context) *agent.Agent {
	val := ctx.Value(agent.AgentKey)
	if val == nil {
		return nil
	}
	a, ok := val.(*agent.Agent)
	if !ok {
		return nil
	}
	return a
}

// GetAgentIDFromContext returns the authenticated agent's id.
func GetAgentIDFromContext(ctx context.Context) (int64, bool) {
	a := GetAgentFromContext(ctx)
	if a == nil {
		return 0, false
	}
	return a.ID, true
}
