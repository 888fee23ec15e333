package dto

import (
	"encoding/json"
	"strings"
	"time"

	dom "TodoManager/internal/domain"
)

// CreatedAt parses created_at as RFC3339 or one of the looser ISO 8601
// forms accepted by domain.ParseTimestamp. Empty or null means "now".
type CreatedAt struct{ t *time.Time }

func (c *CreatedAt) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		c.t = nil
		return nil
	}
	parsed, err := dom.ParseTimestamp(*raw)
	if err != nil {
		return err
	}
	c.t = &parsed
	return nil
}

// Ptr returns nil when created_at was not supplied.
func (c CreatedAt) Ptr() *time.Time { return c.t }

// CreateTaskRequest is the JSON body for POST /tasks.
// Fields other than these (id, completed_at) are ignored.
type CreateTaskRequest struct {
	Title       *string    `json:"title" binding:"required,max=50"`
	Description *string    `json:"description" binding:"required,max=200"`
	Completed   bool       `json:"completed"`
	CreatedAt   CreatedAt  `json:"created_at" swaggertype:"string"` // optional
}

// UpdateTaskRequest is the JSON body for PUT/PATCH /tasks/{id}.
// Absent or null fields are left unchanged. Limits are checked by the
// service once the task is known to exist.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type TaskResponse struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}
