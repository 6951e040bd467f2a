// Package providers builds the channel registry from configuration. The
// live-versus-simulated choice is made here, once per process.
package providers

import (
	"context"
	"fmt"
	"log/slog"

	"courier/internal/config"
	"courier/internal/domain/notification"
	"courier/internal/infra/email"
	"courier/internal/infra/simulated"
	"courier/internal/infra/sns"
)

// Provider kinds accepted in configuration.
const (
	KindAuto      = "auto"
	KindResend    = "resend"
	KindSES       = "ses"
	KindSNS       = "sns"
	KindSimulated = "simulated"
)

// Build creates one provider per channel and returns the registry.
func Build(ctx context.Context, cfg *config.Config) (*notification.Registry, error) {
	emailProvider, err := buildEmail(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var snsClient sns.PublishAPI
	snsFor := func() (sns.PublishAPI, error) {
		if snsClient != nil {
			return snsClient, nil
		}
		client, err := sns.NewClient(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		snsClient = client
		return snsClient, nil
	}

	var smsProvider notification.Provider
	switch cfg.SMS.Provider {
	case KindSimulated, "":
		smsProvider = simulated.New(notification.ChannelSMS, cfg.Simulation.FailureRate)
	case KindSNS:
		client, err := snsFor()
		if err != nil {
			return nil, err
		}
		smsProvider = sns.NewSMSProvider(client)
	default:
		return nil, fmt.Errorf("unknown sms.provider %q", cfg.SMS.Provider)
	}

	var pushProvider notification.Provider
	switch cfg.Push.Provider {
	case KindSimulated, "":
		pushProvider = simulated.New(notification.ChannelPush, cfg.Simulation.FailureRate)
	case KindSNS:
		client, err := snsFor()
		if err != nil {
			return nil, err
		}
		pushProvider = sns.NewPushProvider(client)
	default:
		return nil, fmt.Errorf("unknown push.provider %q", cfg.Push.Provider)
	}

	registry, err := notification.NewRegistry(emailProvider, smsProvider, pushProvider)
	if err != nil {
		return nil, err
	}

	slog.Info("providers configured",
		"channels", registry.Channels(),
		"email", kindOf(emailProvider),
		"sms", kindOf(smsProvider),
		"push", kindOf(pushProvider),
	)
	return registry, nil
}

func buildEmail(ctx context.Context, cfg *config.Config) (notification.Provider, error) {
	kind := cfg.Email.Provider
	if kind == KindAuto || kind == "" {
		kind = KindSimulated
		if cfg.Email.APIKey != "" {
			kind = KindResend
		}
	}

	switch kind {
	case KindResend:
		if cfg.Email.APIKey == "" {
			return nil, fmt.Errorf("email.provider is resend but email.api_key is empty")
		}
		return email.NewResendProvider(email.ResendConfig{
			APIKey:      cfg.Email.APIKey,
			FromAddress: cfg.Email.FromAddress,
			FromName:    cfg.Email.FromName,
			Endpoint:    cfg.Email.Endpoint,
		}), nil
	case KindSES:
		return email.NewSESProvider(ctx, email.SESConfig{
			Region:    cfg.AWS.Region,
			FromEmail: cfg.Email.FromAddress,
		})
	case KindSimulated:
		return simulated.New(notification.ChannelEmail, cfg.Simulation.FailureRate), nil
	default:
		return nil, fmt.Errorf("unknown email.provider %q", cfg.Email.Provider)
	}
}

func kindOf(p notification.Provider) string {
	switch p.(type) {
	case *email.ResendProvider:
		return KindResend
	case *email.SESProvider:
		return KindSES
	case *sns.SMSProvider, *sns.PushProvider:
		return KindSNS
	case *simulated.Provider:
		return KindSimulated
	default:
		return fmt.Sprintf("%T", p)
	}
}
