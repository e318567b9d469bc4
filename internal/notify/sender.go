// Package notify delivers match notifications to players by SMS.
package notify

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by the disabled sender.
var ErrNotConfigured = errors.New("SMS credentials are not configured")

// Message is one outbound SMS.
type Message struct {
	To             string
	Body           string
	StatusCallback string
}

// Receipt identifies an accepted message at the provider.
type Receipt struct {
	SID    string
	Status string
}

// Sender attempts delivery of a single message. Implementations do not retry.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

// Disabled is used when no provider is configured; every send fails.
type Disabled struct{}

func (Disabled) Send(context.Context, Message) (Receipt, error) {
	return Receipt{}, ErrNotConfigured
}
