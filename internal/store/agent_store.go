package store

import (
	"context"

	"github.com/AdamBeresnev/pingpong-tables/internal/agent"
	"github.com/jmoiron/sqlx"
)

type AgentStore struct {
	db *sqlx.DB
}

const (
	getAgentQuery        = "SELECT * FROM agents WHERE id = ?"
	getAgentByEmailQuery = "SELECT * FROM agents WHERE email = ?"
	getAgentByTokenQuery = "SELECT * FROM agents WHERE api_token = ?"
	createAgentQuery     = `
		INSERT INTO agents (full_name, email, password_hash, created_at) VALUES
		(:full_name, :email, :password_hash, :created_at)
	`
	setAgentTokenQuery = "UPDATE agents SET api_token = ? WHERE id = ?"
)

func NewAgentStore(db *sqlx.DB) *AgentStore {
	return &AgentStore{db: db}
}

func (s *AgentStore) GetAgent(ctx context.Context, id int64) (*agent.Agent, error) {
	var a agent.Agent
	if err := s.db.GetContext(ctx, &a, getAgentQuery, id); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AgentStore) GetAgentByEmail(ctx context.Context, email string) (*agent.Agent, error) {
	var a agent.Agent
	if err := s.db.GetContext(ctx, &a, getAgentByEmailQuery, email); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AgentStore) GetAgentByToken(ctx context.Context, token string) (*agent.Agent, error) {
	var a agent.Agent
	if err := s.db.GetContext(ctx, &a, getAgentByTokenQuery, token); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAgent inserts the agent and fills in its generated id.
func (s *AgentStore) CreateAgent(ctx context.Context, a *agent.Agent) error {
	res, err := s.db.NamedExecContext(ctx, createAgentQuery, a)
	if err != nil {
		return err
	}
	a.ID, err = res.LastInsertId()
	return err
}

// SetToken replaces the agent's bearer token; nil clears it.
func (s *AgentStore) SetToken(ctx context.Context, agentID int64, token *string) error {
	_, err := s.db.ExecContext(ctx, setAgentTokenQuery, token, agentID)
	return err
}
