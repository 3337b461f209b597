package notification

import "time"

// Types
const (
	TypeInfo    = "info"
	TypeSuccess = "success"
	TypeWarning = "warning"
	TypeError   = "error"
)

type Notification struct {
	ID           int       `json:"id"`
	UserPublicID string    `json:"-"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Type         string    `json:"type"`
	IsRead       bool      `json:"is_read"`
	Link         string    `json:"link,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
}
