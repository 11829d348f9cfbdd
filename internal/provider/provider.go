package provider

import (
	"context"

	"github.com/ai-gateway/chatrelay/internal/chat"
)

// Reply is the text an adapter produced and the candidate model that produced it.
type Reply struct {
	Text  string
	Model string
}

// Adapter translates a conversation into one upstream provider's wire format.
type Adapter interface {
	// Name identifies the provider in logs, metrics and failure reports.
	Name() string
	// Models lists the candidate models in the order they are tried.
	Models() []string
	// Configured reports whether the adapter has what it needs to make a call.
	Configured() bool
	// Invoke sends the conversation upstream. Failures are *Error.
	Invoke(ctx context.Context, turns []chat.Turn, temperature float64) (*Reply, error)
}

// CheckTurns rejects conversations an upstream cannot accept.
func CheckTurns(name string, turns []chat.Turn) error {
	if len(turns) == 0 {
		return &Error{Provider: name, Kind: KindInvalidRequest, Message: "conversation is empty"}
	}
	if turns[len(turns)-1].Role != chat.RoleUser {
		return &Error{Provider: name, Kind: KindInvalidRequest, Message: "last message must be from user"}
	}
	return nil
}
