package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/AdamBeresnev/pingpong-tables/internal/agent"
	"github.com/AdamBeresnev/pingpong-tables/internal/store"
	"github.com/AdamBeresnev/pingpong-tables/internal/utils"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AgentService struct {
	db    *sqlx.DB
	store *store.AgentStore
	now   func() time.Time
}

func NewAgentService(db *sqlx.DB, store *store.AgentStore) *AgentService {
	return &AgentService{db: db, store: store, now: func() time.Time { return time.Now().UTC() }}
}

type AgentInput struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AgentService) CreateAgent(ctx context.Context, input AgentInput) (*agent.Agent, error) {
	fullName := utils.CleanName(input.FullName)
	if fullName == "" {
		return nil, invalid("full_name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < minPasswordLength {
		return nil, invalid("password must be at least %d characters", minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	a := &agent.Agent{
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateAgent(ctx, a); err != nil {
		if store.IsUniqueViolation(err) {
			return nil, conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}

// Login checks the credentials and issues a fresh bearer token, replacing
// any previous one.
func (s *AgentService) Login(ctx context.Context, email, password string) (*agent.Agent, string, error) {
	a, err := s.store.GetAgentByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get agent: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, "", unauthorized("invalid email or password")
	}

	token, err := newToken()
	if err != nil {
		return nil, "", err
	}
	if err := s.store.SetToken(ctx, a.ID, &token); err != nil {
		return nil, "", fmt.Errorf("failed to store token: %w", err)
	}
	a.APIToken = &token
	return a, token, nil
}

func (s *AgentService) Logout(ctx context.Context, agentID int64) error {
	if err := s.store.SetToken(ctx, agentID, nil); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

func (s *AgentService) Authenticate(ctx context.Context, token string) (*agent.Agent, error) {
	if token == "" {
		return nil, unauthorized("missing bearer token")
	}
	a, err := s.store.GetAgentByToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, unauthorized("invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return a, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", invalid("email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("invalid email address")
	}
	return email, nil
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
