package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"courier/internal/common"
)

// Service orchestrates notification use cases for the API layer.
// Submit is synchronous: it returns only once the pipeline reached a terminal status.
type Service struct {
	store    NotificationStore
	pipeline *Pipeline
}

// NewService creates a new notification service.
func NewService(store NotificationStore, pipeline *Pipeline) *Service {
	return &Service{
		store:    store,
		pipeline: pipeline,
	}
}

// Submit runs the delivery pipeline for req and reports whether it ended in success.
func (s *Service) Submit(ctx context.Context, req *SendRequest) (*SendResponse, error) {
	notifLog, err := s.pipeline.Run(ctx, req)
	if err != nil {
		return nil, err
	}

	// The pipeline never hands back a pending or retried record.
	if !notifLog.Status.IsTerminal() {
		slog.Error("pipeline returned non-terminal record", "id", notifLog.ID, "status", notifLog.Status)
		return nil, fmt.Errorf("notification %s left in %s state", notifLog.ID, notifLog.Status)
	}

	return &SendResponse{
		Success: notifLog.Status != StatusFailed,
		Log:     notifLog,
	}, nil
}

// GetNotification retrieves a notification log by ID.
func (s *Service) GetNotification(ctx context.Context, id string) (*NotificationLog, error) {
	if strings.TrimSpace(id) == "" {
		return nil, common.NewValidationError("id is required")
	}

	notifLog, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching notification: %w", err)
	}
	return notifLog, nil
}

// ListNotifications retrieves notification logs newest first, with filtering.
func (s *Service) ListNotifications(ctx context.Context, filter ListFilter) (*ListResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.PageSize > 0 && filter.Page < 1 {
		filter.Page = 1
	}

	logs, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	if logs == nil {
		logs = []*NotificationLog{}
	}

	return &ListResponse{
		Notifications: logs,
		Total:         total,
		Page:          filter.Page,
		PageSize:      filter.PageSize,
	}, nil
}
