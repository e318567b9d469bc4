package agent

import (
	"time"
)

type ContextKey string

const AgentKey ContextKey = "agent"

type Agent struct {
	ID           int64     `db:"id" json:"id"`
	FullName     string    `db:"full_name" json:"full_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	APIToken     *string   `db:"api_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
