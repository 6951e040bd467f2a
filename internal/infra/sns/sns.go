package sns

import (
	"context"
	"fmt"

	"courier/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// PublishAPI is the subset of the SNS client used by the providers.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// NewClient loads the default AWS credential chain and creates an SNS client.
func NewClient(ctx context.Context, region string) (*sns.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SNS: %w", err)
	}
	return sns.NewFromConfig(awsCfg), nil
}

var (
	_ notification.Provider = (*SMSProvider)(nil)
	_ notification.Provider = (*PushProvider)(nil)
)

// SMSProvider sends SMS notifications via SNS direct publish to a phone number.
type SMSProvider struct {
	client PublishAPI
}

// NewSMSProvider creates an SMS provider on an SNS client.
func NewSMSProvider(client PublishAPI) *SMSProvider {
	return &SMSProvider{client: client}
}

// Channel returns the SMS channel identifier.
func (p *SMSProvider) Channel() notification.Channel {
	return notification.ChannelSMS
}

// Send publishes the rendered body to the recipient's phone number.
func (p *SMSProvider) Send(ctx context.Context, log *notification.NotificationLog) notification.SendOutcome {
	result, err := p.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(log.To),
		Message:     aws.String(log.Body),
	})
	if err != nil {
		return notification.Failed(fmt.Sprintf("sns publish failed: %v", err))
	}
	return notification.Delivered(aws.ToString(result.MessageId))
}

// PushProvider sends mobile push notifications via SNS. The recipient is the
// platform endpoint ARN registered for the device token.
type PushProvider struct {
	client PublishAPI
}

// NewPushProvider creates a push provider on an SNS client.
func NewPushProvider(client PublishAPI) *PushProvider {
	return &PushProvider{client: client}
}

// Channel returns the push channel identifier.
func (p *PushProvider) Channel() notification.Channel {
	return notification.ChannelPush
}

// Send publishes the rendered body to the recipient's endpoint ARN.
func (p *PushProvider) Send(ctx context.Context, log *notification.NotificationLog) notification.SendOutcome {
	result, err := p.client.Publish(ctx, &sns.PublishInput{
		TargetArn: aws.String(log.To),
		Message:   aws.String(log.Body),
	})
	if err != nil {
		return notification.Failed(fmt.Sprintf("sns push failed: %v", err))
	}
	return notification.Delivered(aws.ToString(result.MessageId))
}
