package notification

import (
	"context"
	"fmt"

	"courier/internal/common"
)

// SendOutcome is the result of one delivery attempt.
type SendOutcome struct {
	Success   bool
	MessageID string
	Error     string
}

// Delivered builds a successful outcome.
func Delivered(messageID string) SendOutcome {
	return SendOutcome{Success: true, MessageID: messageID}
}

// Failed builds a failed outcome carrying the provider's reason.
func Failed(reason string) SendOutcome {
	if reason == "" {
		reason = "unknown provider error"
	}
	return SendOutcome{Success: false, Error: reason}
}

// OutcomeOf converts a transport's (messageID, err) pair into an outcome.
func OutcomeOf(messageID string, err error) SendOutcome {
	if err != nil {
		return Failed(err.Error())
	}
	return Delivered(messageID)
}

// Provider defines the contract for a notification delivery channel.
// Implementations live in infra/ (Resend and SES for email, SNS for SMS and push,
// simulated for local runs). Send never returns an error: every failure,
// transport errors included, is reported as a failed SendOutcome.
type Provider interface {
	// Send delivers a notification log's rendered content to its recipient.
	Send(ctx context.Context, log *NotificationLog) SendOutcome

	// Channel returns which delivery channel this provider handles.
	Channel() Channel
}

// Registry binds exactly one provider per channel. It is built once at startup
// and never mutated afterwards.
type Registry struct {
	providers map[Channel]Provider
}

// NewRegistry creates a registry from the given providers. Registering two
// providers for the same channel is a configuration defect.
func NewRegistry(providers ...Provider) (*Registry, error) {
	pm := make(map[Channel]Provider, len(providers))
	for _, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("nil provider")
		}
		ch := p.Channel()
		if _, exists := pm[ch]; exists {
			return nil, fmt.Errorf("duplicate provider for channel: %s", ch)
		}
		pm[ch] = p
	}
	return &Registry{providers: pm}, nil
}

// Lookup returns the provider bound to channel.
func (r *Registry) Lookup(channel Channel) (Provider, error) {
	if r != nil {
		if p, ok := r.providers[channel]; ok {
			return p, nil
		}
	}
	return nil, common.NewProviderNotFoundError(string(channel))
}

// Channels lists the channels that have a provider bound.
func (r *Registry) Channels() []Channel {
	var out []Channel
	for _, ch := range Channels() {
		if _, ok := r.providers[ch]; ok {
			out = append(out, ch)
		}
	}
	return out
}

// safeSend calls p.Send and turns a panic into a failed outcome.
func safeSend(ctx context.Context, p Provider, log *NotificationLog) (outcome SendOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Failed(fmt.Sprintf("provider panic: %v", r))
		}
	}()
	return p.Send(ctx, log)
}
