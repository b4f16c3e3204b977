package feedback

import (
	"time"

	"github.com/google/uuid"
)

const TimestampLayout = "2006-01-02 15:04:05"

// Header is the column order of the feedback log file.
var Header = []string{"Timestamp", "Name", "Email", "Message"}

type Feedback struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (f *Feedback) Record() []string {
	return []string{f.CreatedAt.Format(TimestampLayout), f.Name, f.Email, f.Message}
}

// Result reports what happened to a submission. Delivery failures do not
// fail the submission.
type Result struct {
	Feedback       *Feedback `json:"feedback"`
	Delivered      bool      `json:"delivered"`
	NotificationID string    `json:"notification_id,omitempty"`
	Error          string    `json:"error,omitempty"`
}
