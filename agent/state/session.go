package state

import (
	"time"

	"github.com/uptrace/bun"
)

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionAbandoned SessionStatus = "abandoned"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User is resolved from the X-User-ID header. Authentication is out of
// scope; the external id is taken at face value.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          int64     `bun:"id,pk,autoincrement" json:"id"`
	ExternalID  string    `bun:"external_id,notnull,unique" json:"user_id"`
	DisplayName string    `bun:"display_name" json:"display_name"`
	CreatedAt   time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}

// Session is one chatbot conversation. The public id is what HTTP clients
// address; the numeric id stays internal.
type Session struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:s"`

	ID          int64         `bun:"id,pk,autoincrement" json:"id"`
	PublicID    string        `bun:"public_id,notnull,unique" json:"public_id"`
	UserID      int64         `bun:"user_id,notnull" json:"user_id"`
	Status      SessionStatus `bun:"status,notnull,default:'active'" json:"status"`
	CreatedAt   time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time     `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
	CompletedAt *time.Time    `bun:"completed_at" json:"completed_at"`
}

// Message is one stored conversation turn, ordered by creation time.
type Message struct {
	bun.BaseModel `bun:"table:chat_messages,alias:m"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	SessionID int64     `bun:"session_id,notnull" json:"session_id"`
	Role      string    `bun:"role,notnull" json:"role"`
	Content   string    `bun:"content,notnull" json:"content"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
}
