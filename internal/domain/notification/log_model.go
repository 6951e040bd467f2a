package notification

import (
	"fmt"
	"maps"
	"time"

	"courier/internal/common"
)

// NotificationStatus represents the lifecycle state of a notification.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusRetried NotificationStatus = "retried"
	StatusSent    NotificationStatus = "sent"
	StatusFailed  NotificationStatus = "failed"
)

// IsTerminal reports whether no further transition can leave this status.
func (s NotificationStatus) IsTerminal() bool {
	return s == StatusSent || s == StatusFailed
}

// IsValidStatus checks whether a status is recognized.
func IsValidStatus(s NotificationStatus) bool {
	switch s {
	case StatusPending, StatusRetried, StatusSent, StatusFailed:
		return true
	}
	return false
}

// NotificationLog is the persisted record of one notification.
// ID, CreatedAt, routing fields, rendered content and Metadata are write-once;
// Status, Attempts, Error and MessageID are owned by the pipeline.
type NotificationLog struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	Channel   Channel            `json:"channel"`
	Type      NotificationType   `json:"type"`
	Language  Language           `json:"language"`
	To        string             `json:"to"`
	Subject   string             `json:"subject,omitempty"`
	Body      string             `json:"body"`
	Status    NotificationStatus `json:"status"`
	Attempts  int                `json:"attempts"`
	Error     string             `json:"error,omitempty"`
	MessageID string             `json:"message_id,omitempty"`
	Metadata  map[string]any     `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (l *NotificationLog) Clone() *NotificationLog {
	if l == nil {
		return nil
	}
	out := *l
	out.Metadata = maps.Clone(l.Metadata)
	return &out
}

// Patch is a partial update of a notification log. Nil fields are left untouched.
type Patch struct {
	Status   *NotificationStatus
	Attempts *int

	// Error set to a non-nil empty string clears the stored error.
	Error     *string
	MessageID *string
}

// Apply mutates log in place and bumps UpdatedAt.
func (p Patch) Apply(log *NotificationLog, now time.Time) {
	if p.Status != nil {
		log.Status = *p.Status
	}
	if p.Attempts != nil {
		log.Attempts = *p.Attempts
	}
	if p.Error != nil {
		log.Error = *p.Error
	}
	if p.MessageID != nil {
		log.MessageID = *p.MessageID
	}
	log.UpdatedAt = now
}

// ListFilter defines filtering and optional pagination for listing notification logs.
// A zero PageSize returns every matching record.
type ListFilter struct {
	Status   string `form:"status"`
	Channel  string `form:"channel"`
	Type     string `form:"type"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// Validate rejects filter values outside the closed enumerations.
func (f ListFilter) Validate() error {
	if f.Status != "" && !IsValidStatus(NotificationStatus(f.Status)) {
		return common.NewValidationError(fmt.Sprintf("unsupported status filter: %s", f.Status))
	}
	if f.Channel != "" && !IsValidChannel(Channel(f.Channel)) {
		return common.NewValidationError(fmt.Sprintf("unsupported channel filter: %s", f.Channel))
	}
	if f.Type != "" && !IsValidType(NotificationType(f.Type)) {
		return common.NewValidationError(fmt.Sprintf("unsupported type filter: %s", f.Type))
	}
	if f.Page < 0 || f.PageSize < 0 {
		return common.NewValidationError("page and page_size must not be negative")
	}
	if f.PageSize > 100 {
		return common.NewValidationError("page_size must not exceed 100")
	}
	return nil
}

// Matches reports whether log satisfies the filter's equality predicates.
func (f ListFilter) Matches(log *NotificationLog) bool {
	if f.Status != "" && string(log.Status) != f.Status {
		return false
	}
	if f.Channel != "" && string(log.Channel) != f.Channel {
		return false
	}
	if f.Type != "" && string(log.Type) != f.Type {
		return false
	}
	return true
}

// Window returns the [start, end) slice bounds for a result set of size n.
func (f ListFilter) Window(n int) (int, int) {
	if f.PageSize <= 0 {
		return 0, n
	}
	page := f.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * f.PageSize
	if start > n {
		start = n
	}
	end := start + f.PageSize
	if end > n {
		end = n
	}
	return start, end
}

// ListResponse wraps a list of notification logs.
type ListResponse struct {
	Notifications []*NotificationLog `json:"notifications"`
	Total         int                `json:"total"`
	Page          int                `json:"page,omitempty"`
	PageSize      int                `json:"page_size,omitempty"`
}
