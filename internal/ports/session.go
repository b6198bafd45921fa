package ports

import (
	"context"
	"time"
)

// Session is one ongoing conversation, processed by exactly one loop
// instance at a time.
type Session struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Provider  string            `json:"model_provider,omitempty"`
	Model     string            `json:"model_name,omitempty"`
	Messages  []StoredMessage   `json:"messages"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// StoredMessage is a persisted conversation turn. ToolCalls is set on
// assistant turns that triggered tool execution.
type StoredMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SessionStore persists sessions and their ordered messages.
type SessionStore interface {
	Create(ctx context.Context, title string) (*Session, error)
	Get(ctx context.Context, sessionID string) (*Session, error)
	List(ctx context.Context) ([]*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, sessionID string) error

	// AppendMessage appends a message to the session in creation order.
	AppendMessage(ctx context.Context, sessionID string, msg StoredMessage) error

	// Messages returns the session's messages in creation order.
	Messages(ctx context.Context, sessionID string) ([]StoredMessage, error)
}
