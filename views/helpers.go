package views

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/agent"
	"github.com/AdamBeresnev/pingpong-tables/internal/middleware"
)

func GetAgent(ctx context.Context) *agent.Agent {
	return middleware.GetAgentFromContext(ctx)
}
