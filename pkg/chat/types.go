package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when the upstream platform reports a message or
// user that does not exist. Callers treat it as a confirmed deletion.
var ErrNotFound = errors.New("chat: not found")

// Attachment is one file attached to a message.
type Attachment struct {
	ID          string `json:"id"`
	ContentType string `json:"content_type"`
}

// Message is the normalized message record. All loose upstream JSON is mapped
// into this shape at the client boundary; nothing downstream touches raw
// payloads.
type Message struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	CreatedAt   time.Time    `json:"created_at"`
	Deleted     bool         `json:"deleted"`
}

// User is a chat platform profile, used to enrich accounts.
type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// Source lists and resolves messages for a channel. Pages are returned
// newest-first; the ingestion diff depends on that ordering.
type Source interface {
	ListRecent(ctx context.Context, channelID string) ([]Message, error)
	GetByID(ctx context.Context, messageID string) (*Message, error)
}

// Notifier sends outbound chat acknowledgements. Both calls are best-effort
// from the caller's perspective.
type Notifier interface {
	Notify(ctx context.Context, channelID, text string) error
	React(ctx context.Context, messageID, emoji string) error
}

// Directory resolves user profiles.
type Directory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}
