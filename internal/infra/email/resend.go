package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"
)

// DefaultResendEndpoint is the Resend send-email API.
const DefaultResendEndpoint = "https://api.resend.com/emails"

// DefaultResendTimeout bounds a single Resend API call.
const DefaultResendTimeout = 10 * time.Second

var _ notification.Provider = (*ResendProvider)(nil)

// ResendProvider sends emails using the Resend API.
type ResendProvider struct {
	apiKey      string
	fromAddress string
	fromName    string
	endpoint    string
	httpClient  *http.Client
}

// ResendConfig holds Resend settings.
type ResendConfig struct {
	APIKey      string
	FromAddress string
	FromName    string
	Endpoint    string
	Timeout     time.Duration
}

// NewResendProvider creates a new Resend email provider.
func NewResendProvider(cfg ResendConfig) *ResendProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultResendEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultResendTimeout
	}
	if cfg.FromAddress == "" {
		cfg.FromAddress = "notifications@yourdomain.com"
	}
	return &ResendProvider{
		apiKey:      cfg.APIKey,
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		endpoint:    cfg.Endpoint,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Channel returns the email channel identifier.
func (p *ResendProvider) Channel() notification.Channel {
	return notification.ChannelEmail
}

// Send delivers an email via the Resend API.
func (p *ResendProvider) Send(ctx context.Context, log *notification.NotificationLog) notification.SendOutcome {
	return notification.OutcomeOf(p.deliver(ctx, log))
}

func (p *ResendProvider) deliver(ctx context.Context, log *notification.NotificationLog) (string, error) {
	from := p.fromAddress
	if p.fromName != "" {
		from = fmt.Sprintf("%s <%s>", p.fromName, p.fromAddress)
	}

	subject := log.Subject
	if subject == "" {
		subject = "(no subject)"
	}

	payload := map[string]any{
		"from":    from,
		"to":      []string{log.To},
		"subject": subject,
		"text":    log.Body,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message    string `json:"message"`
			StatusCode int    `json:"statusCode"`
		}
		_ = json.Unmarshal(respBody, &errResp)

		msg := errResp.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", common.NewProviderError("resend", fmt.Sprintf("%d: %s", resp.StatusCode, msg))
	}

	var successResp struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &successResp); err != nil {
		return "", fmt.Errorf("parsing resend response: %w", err)
	}

	return successResp.ID, nil
}
