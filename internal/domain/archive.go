package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ArchivedSubmission is a delivered or failed attempt as kept in the archive.
type ArchivedSubmission struct {
	ID         uuid.UUID       `json:"id"`
	FormType   FormType        `json:"form_type"`
	Outcome    string          `json:"outcome"`
	StatusCode int             `json:"status_code"`
	Error      string          `json:"error,omitempty"`
	Email      string          `json:"email"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}
