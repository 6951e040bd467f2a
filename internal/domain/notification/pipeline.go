package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxAttempts is the number of provider sends before a notification is failed.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the pause after the first failed attempt; later pauses grow linearly.
	DefaultBaseDelay = 500 * time.Millisecond
)

// PipelineConfig holds delivery pipeline settings.
type PipelineConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Recorder observes pipeline progress. The metrics package provides the
// Prometheus implementation.
type Recorder interface {
	AttemptFinished(channel Channel, success bool)
	NotificationFinished(channel Channel, status NotificationStatus, elapsed time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) AttemptFinished(Channel, bool)                                   {}
func (nopRecorder) NotificationFinished(Channel, NotificationStatus, time.Duration) {}

// Pipeline drives a notification from creation to a terminal status:
// render → create (pending, 0 attempts) → attempt loop with linear backoff →
// sent or failed.
type Pipeline struct {
	store     NotificationStore
	renderer  TemplateRenderer
	providers *Registry
	config    PipelineConfig

	sleep    func(time.Duration)
	now      func() time.Time
	newID    func() string
	recorder Recorder
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithSleeper replaces time.Sleep for the inter-attempt pause.
func WithSleeper(sleep func(time.Duration)) PipelineOption {
	return func(p *Pipeline) { p.sleep = sleep }
}

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithIDGenerator replaces the UUID generator for record ids.
func WithIDGenerator(newID func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = newID }
}

// WithRecorder attaches a progress recorder.
func WithRecorder(r Recorder) PipelineOption {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// NewPipeline creates a new delivery pipeline.
func NewPipeline(store NotificationStore, renderer TemplateRenderer, providers *Registry, cfg PipelineConfig, opts ...PipelineOption) *Pipeline {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}

	p := &Pipeline{
		store:     store,
		renderer:  renderer,
		providers: providers,
		config:    cfg,
		sleep:     time.Sleep,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backoff returns the pause after a failed attempt: base × attempt.
func Backoff(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// Run validates and renders req, persists the initial record, and retries
// delivery until the record reaches sent or failed. It only returns a record
// in a terminal status; any returned error means no terminal state was
// persisted (validation, configuration or persistence failure).
func (p *Pipeline) Run(ctx context.Context, req *SendRequest) (*NotificationLog, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	language := req.LanguageOrDefault()

	provider, err := p.providers.Lookup(req.Channel)
	if err != nil {
		return nil, err
	}

	rendered, err := p.renderer.Render(req.Type, language, req.Channel, req.Variables)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	created, err := p.store.Create(ctx, &NotificationLog{
		ID:        p.newID(),
		CreatedAt: now,
		UpdatedAt: now,
		Channel:   req.Channel,
		Type:      req.Type,
		Language:  language,
		To:        req.To,
		Subject:   rendered.Subject,
		Body:      rendered.Body,
		Status:    StatusPending,
		Attempts:  0,
		Metadata:  req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("creating notification log: %w", err)
	}

	// Once the record exists the attempt loop runs to a terminal status even if
	// the caller goes away.
	ctx = context.WithoutCancel(ctx)
	id := created.ID

	var lastErr string
	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		status := StatusPending
		if attempt > 1 {
			status = StatusRetried
		}

		// Persist before sending so a crash mid-send never undercounts attempts.
		current, err := p.store.Update(ctx, id, Patch{Status: &status, Attempts: &attempt})
		if err != nil {
			return nil, fmt.Errorf("recording attempt %d for %s: %w", attempt, id, err)
		}

		outcome := safeSend(ctx, provider, current)
		p.recorder.AttemptFinished(req.Channel, outcome.Success)

		if outcome.Success {
			sent := StatusSent
			cleared := ""
			messageID := outcome.MessageID
			final, err := p.store.Update(ctx, id, Patch{
				Status:    &sent,
				Attempts:  &attempt,
				Error:     &cleared,
				MessageID: &messageID,
			})
			if err != nil {
				return nil, fmt.Errorf("marking %s sent: %w", id, err)
			}

			slog.Info("notification sent",
				"id", id,
				"channel", req.Channel,
				"type", req.Type,
				"attempt", attempt,
				"message_id", messageID,
				"duration", time.Since(start),
			)
			p.recorder.NotificationFinished(req.Channel, StatusSent, time.Since(start))
			return final, nil
		}

		lastErr = outcome.Error
		slog.Warn("delivery attempt failed",
			"id", id,
			"channel", req.Channel,
			"type", req.Type,
			"attempt", attempt,
			"error", lastErr,
		)

		if attempt < p.config.MaxAttempts {
			p.sleep(Backoff(p.config.BaseDelay, attempt))
		}
	}

	failed := StatusFailed
	final, err := p.store.Update(ctx, id, Patch{Status: &failed, Error: &lastErr})
	if err != nil {
		return nil, fmt.Errorf("marking %s failed: %w", id, err)
	}

	slog.Error("notification failed",
		"id", id,
		"channel", req.Channel,
		"type", req.Type,
		"attempts", p.config.MaxAttempts,
		"error", lastErr,
		"duration", time.Since(start),
	)
	p.recorder.NotificationFinished(req.Channel, StatusFailed, time.Since(start))
	return final, nil
}
