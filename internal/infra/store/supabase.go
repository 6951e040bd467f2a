package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"
)

// DefaultTable is the Supabase table holding notification logs.
const DefaultTable = "notification_logs"

var _ notification.NotificationStore = (*SupabaseStore)(nil)

// SupabaseStore implements NotificationStore using the Supabase Go SDK.
type SupabaseStore struct {
	client *supa.Client
	table  string
	now    func() time.Time
}

// NewSupabaseStore creates a new Supabase-backed notification store.
func NewSupabaseStore(supabaseURL, serviceKey, table string) (*SupabaseStore, error) {
	if supabaseURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase url and service key are required")
	}
	client, err := supa.NewClient(supabaseURL, serviceKey, nil)
	if err != nil {
		return nil, fmt.Errorf("creating supabase client: %w", err)
	}
	if table == "" {
		table = DefaultTable
	}
	return &SupabaseStore{client: client, table: table, now: time.Now}, nil
}

// supabaseRow is the internal representation for Supabase PostgREST insert/select.
type supabaseRow struct {
	ID        string         `json:"id"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
	Channel   string         `json:"channel"`
	Type      string         `json:"type"`
	Language  string         `json:"language"`
	To        string         `json:"to"`
	Subject   *string        `json:"subject"`
	Body      string         `json:"body"`
	Status    string         `json:"status"`
	Attempts  int            `json:"attempts"`
	Error     *string        `json:"error"`
	MessageID *string        `json:"message_id"`
	Metadata  map[string]any `json:"metadata"`
}

// Create inserts a new notification log record.
func (s *SupabaseStore) Create(ctx context.Context, log *notification.NotificationLog) (*notification.NotificationLog, error) {
	row := logToRow(log)

	data, _, err := s.client.From(s.table).Insert(row, false, "", "representation", "").Execute()
	if err != nil {
		if isUniqueViolation(err) {
			return nil, common.NewDuplicateError("notification", log.ID)
		}
		return nil, fmt.Errorf("inserting notification log: %w", err)
	}

	return singleRow(data, log.ID)
}

// Update applies a partial update and returns the updated row.
func (s *SupabaseStore) Update(ctx context.Context, id string, patch notification.Patch) (*notification.NotificationLog, error) {
	update := patchToColumns(patch, s.now().UTC())

	data, _, err := s.client.From(s.table).Update(update, "representation", "").Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("updating notification log: %w", err)
	}

	return singleRow(data, id)
}

// GetByID retrieves a notification log by its ID.
func (s *SupabaseStore) GetByID(ctx context.Context, id string) (*notification.NotificationLog, error) {
	data, _, err := s.client.From(s.table).Select("*", "", false).Eq("id", id).Execute()
	if err != nil {
		return nil, fmt.Errorf("fetching notification log: %w", err)
	}

	return singleRow(data, id)
}

// List retrieves notification logs with filtering, newest first.
func (s *SupabaseStore) List(ctx context.Context, filter notification.ListFilter) ([]*notification.NotificationLog, int, error) {
	query := s.client.From(s.table).Select("*", "exact", false)

	if filter.Status != "" {
		query = query.Eq("status", filter.Status)
	}
	if filter.Channel != "" {
		query = query.Eq("channel", filter.Channel)
	}
	if filter.Type != "" {
		query = query.Eq("type", filter.Type)
	}

	query = query.Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Range(offset, offset+filter.PageSize-1, "")
	}

	data, count, err := query.Execute()
	if err != nil {
		return nil, 0, fmt.Errorf("listing notification logs: %w", err)
	}

	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, 0, fmt.Errorf("parsing notification list: %w", err)
	}

	logs := make([]*notification.NotificationLog, len(rows))
	for i := range rows {
		logs[i] = rowToLog(&rows[i])
	}

	return logs, int(count), nil
}

// patchToColumns maps a Patch to the PostgREST update body. A cleared error is
// written as NULL.
func patchToColumns(patch notification.Patch, now time.Time) map[string]any {
	update := map[string]any{
		"updated_at": now.Format(time.RFC3339Nano),
	}
	if patch.Status != nil {
		update["status"] = string(*patch.Status)
	}
	if patch.Attempts != nil {
		update["attempts"] = *patch.Attempts
	}
	if patch.Error != nil {
		update["error"] = nullable(*patch.Error)
	}
	if patch.MessageID != nil {
		update["message_id"] = nullable(*patch.MessageID)
	}
	return update
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func singleRow(data []byte, id string) (*notification.NotificationLog, error) {
	var rows []supabaseRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parsing notification log: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.NewNotFoundError("notification", id)
	}
	return rowToLog(&rows[0]), nil
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func logToRow(log *notification.NotificationLog) supabaseRow {
	return supabaseRow{
		ID:        log.ID,
		CreatedAt: log.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: log.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Channel:   string(log.Channel),
		Type:      string(log.Type),
		Language:  string(log.Language),
		To:        log.To,
		Subject:   optional(log.Subject),
		Body:      log.Body,
		Status:    string(log.Status),
		Attempts:  log.Attempts,
		Error:     optional(log.Error),
		MessageID: optional(log.MessageID),
		Metadata:  log.Metadata,
	}
}

// rowToLog converts a supabaseRow to a NotificationLog.
func rowToLog(row *supabaseRow) *notification.NotificationLog {
	log := &notification.NotificationLog{
		ID:       row.ID,
		Channel:  notification.Channel(row.Channel),
		Type:     notification.NotificationType(row.Type),
		Language: notification.Language(row.Language),
		To:       row.To,
		Body:     row.Body,
		Status:   notification.NotificationStatus(row.Status),
		Attempts: row.Attempts,
		Metadata: row.Metadata,
	}

	if row.Subject != nil {
		log.Subject = *row.Subject
	}
	if row.Error != nil {
		log.Error = *row.Error
	}
	if row.MessageID != nil {
		log.MessageID = *row.MessageID
	}

	if row.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
			log.CreatedAt = t
		}
	}
	if row.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339Nano, row.UpdatedAt); err == nil {
			log.UpdatedAt = t
		}
	}

	return log
}
