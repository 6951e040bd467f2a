package email

import (
	"context"
	"fmt"

	"courier/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var _ notification.Provider = (*SESProvider)(nil)

// SESAPI is the subset of the SES client used by SESProvider.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider sends emails through AWS SES.
type SESProvider struct {
	client SESAPI
	from   string
}

// SESConfig holds SES settings.
type SESConfig struct {
	Region    string
	FromEmail string
}

// NewSESProvider loads the default AWS credential chain and creates an SES provider.
func NewSESProvider(ctx context.Context, cfg SESConfig) (*SESProvider, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESProviderWithClient(ses.NewFromConfig(awsCfg), cfg.FromEmail), nil
}

// NewSESProviderWithClient creates an SES provider on an existing client.
func NewSESProviderWithClient(client SESAPI, from string) *SESProvider {
	return &SESProvider{client: client, from: from}
}

// Channel returns the email channel identifier.
func (p *SESProvider) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send delivers an email via SES.
func (p *SESProvider) Send(ctx context.Context, log *notification.NotificationLog) notification.SendOutcome {
	return notification.OutcomeOf(p.deliver(ctx, log))
}

func (p *SESProvider) deliver(ctx context.Context, log *notification.NotificationLog) (string, error) {
	subject := log.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	input := &ses.SendEmailInput{
		Source: aws.String(p.from),
		Destination: &types.Destination{
			ToAddresses: []string{log.To},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(log.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	result, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return "", fmt.Errorf("ses send failed: %w", err)
	}

	return aws.ToString(result.MessageId), nil
}
