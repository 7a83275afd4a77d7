package model

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

// TranscriptRepository mirrors a session's conversation to durable storage.
// The session keeps its own in-memory conversation; the mirror is best-effort.
type TranscriptRepository interface {
	// AddMessage appends a message to the transcript of the given session
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the transcript of a session
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes the transcript of a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages in the transcript
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents a loaded transcript.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}
