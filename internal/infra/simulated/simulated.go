package simulated

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"courier/internal/domain/notification"
)

// DefaultFailureRate is the fraction of sends that fail when no rate is configured.
const DefaultFailureRate = 0.1

var failureReasons = map[notification.Channel]string{
	notification.ChannelEmail: "simulated SMTP timeout",
	notification.ChannelSMS:   "simulated SMS gateway error",
	notification.ChannelPush:  "simulated FCM error",
}

var _ notification.Provider = (*Provider)(nil)

// Provider fakes delivery for one channel. A configurable share of sends fail
// so the retry path is exercised in local runs.
type Provider struct {
	channel     notification.Channel
	failureRate float64
	random      func() float64
	now         func() time.Time
}

// Option customizes a simulated Provider.
type Option func(*Provider)

// WithRandom replaces the uniform [0,1) source used to decide failures.
func WithRandom(random func() float64) Option {
	return func(p *Provider) { p.random = random }
}

// WithClock replaces time.Now for message ids.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// New creates a simulated provider. failureRate is clamped to [0,1].
func New(channel notification.Channel, failureRate float64, opts ...Option) *Provider {
	failureRate = min(max(failureRate, 0), 1)
	p := &Provider{
		channel:     channel,
		failureRate: failureRate,
		random:      rand.Float64,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Channel returns the channel this provider pretends to deliver on.
func (p *Provider) Channel() notification.Channel {
	return p.channel
}

// Send pretends to deliver the notification.
func (p *Provider) Send(ctx context.Context, log *notification.NotificationLog) notification.SendOutcome {
	fail := p.random() < p.failureRate

	slog.Debug("simulated delivery",
		"channel", p.channel,
		"to", log.To,
		"subject", log.Subject,
		"body", preview(log.Body, 60),
		"fail", fail,
	)

	if fail {
		reason, ok := failureReasons[p.channel]
		if !ok {
			reason = fmt.Sprintf("simulated %s error", p.channel)
		}
		return notification.Failed(reason)
	}
	return notification.Delivered(fmt.Sprintf("sim_%s_%d", p.channel, p.now().UnixNano()))
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
