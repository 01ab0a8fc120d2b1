package models

import (
	"strconv"
	"time"
)

type PendingApplication struct {
	ID     string `gorm:"primaryKey" json:"id"`
	UserID int64  `gorm:"index" json:"user_id"`
	JobKey string `gorm:"index" json:"job_key"`

	// job snapshot, copied at creation time
	JobTitle       string `json:"job_title"`
	JobCompany     string `json:"job_company"`
	JobURL         string `json:"job_url"`
	JobDescription string `json:"job_description"`
	JobSalary      string `json:"job_salary"`
	JobLocation    string `json:"job_location"`

	MatchScore       float64           `json:"match_score"`
	AutoApplyScore   float64           `json:"auto_apply_score"`
	ConfidenceScore  float64           `json:"confidence_score"`
	CoverLetter      string            `json:"cover_letter"`
	Subject          string            `json:"subject"`
	CVCustomizations map[string]string `gorm:"serializer:json" json:"cv_customizations"`
	RecipientEmail   string            `json:"recipient_email"`
	RecipientRole    ContactRole       `json:"recipient_role"`
	RecipientGuessed bool              `json:"recipient_guessed"`
	ReplyTo          string            `json:"reply_to"`

	Status       ApplicationStatus `gorm:"index" json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	ExpiresAt    time.Time         `gorm:"index" json:"expires_at"`
	UserDecision *Decision         `json:"user_decision,omitempty"`
	DecidedAt    *time.Time        `json:"decided_at,omitempty"`

	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	DeliveryID      string     `json:"delivery_id,omitempty"`
	SubmissionError string     `json:"submission_error,omitempty"`
	Attempts        int        `json:"attempts"`
	RetryOf         string     `json:"retry_of,omitempty"`
}

// FormatSalary renders a salary range for the job snapshot.
func FormatSalary(min, max int) string {
	switch {
	case min > 0 && max > 0:
		return strconv.Itoa(min) + "-" + strconv.Itoa(max)
	case min > 0:
		return "from " + strconv.Itoa(min)
	case max > 0:
		return "up to " + strconv.Itoa(max)
	default:
		return ""
	}
}

type ActivityEvent string

const (
	ActivityMatched   ActivityEvent = "matched"
	ActivityGenerated ActivityEvent = "generated"
	ActivityApproved  ActivityEvent = "approved"
	ActivityRejected  ActivityEvent = "rejected"
	ActivityExpired   ActivityEvent = "expired"
	ActivitySubmitted ActivityEvent = "submitted"
	ActivityFailed    ActivityEvent = "failed"
)

// ActivityForStatus names the activity recorded when an application enters status.
func ActivityForStatus(status ApplicationStatus) ActivityEvent {
	switch status {
	case StatusApproved:
		return ActivityApproved
	case StatusRejected:
		return ActivityRejected
	case StatusExpired:
		return ActivityExpired
	case StatusSubmitted:
		return ActivitySubmitted
	case StatusFailed:
		return ActivityFailed
	default:
		return ActivityGenerated
	}
}

// ActivityLogEntry is append-only.
type ActivityLogEntry struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	ApplicationID string        `gorm:"index" json:"application_id"`
	UserID        int64         `gorm:"index" json:"user_id"`
	Event         ActivityEvent `json:"event"`
	Details       string        `json:"details"`
	CreatedAt     time.Time     `json:"created_at"`
}

type NotificationRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        int64     `gorm:"index" json:"user_id"`
	ApplicationID string    `gorm:"index" json:"application_id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Read          bool      `json:"read"`
	Actioned      bool      `json:"actioned"`
	CreatedAt     time.Time `json:"created_at"`
}

// OutboundMessage is what the mail sender delivers.
type OutboundMessage struct {
	To      string
	Subject string
	Body    string
	ReplyTo string
}
