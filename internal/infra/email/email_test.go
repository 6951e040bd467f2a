package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"courier/internal/domain/notification"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLog() *notification.NotificationLog {
	return &notification.NotificationLog{
		ID:      "n-1",
		Channel: notification.ChannelEmail,
		To:      "user@example.com",
		Subject: "Your verification code",
		Body:    "Your one-time code is: 482910",
	}
}

func TestResendProviderSendSuccess(t *testing.T) {
	var got map[string]any
	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"re_123"}`))
	}))
	defer server.Close()

	p := NewResendProvider(ResendConfig{
		APIKey:      "re_key",
		FromAddress: "no-reply@example.com",
		FromName:    "Courier",
		Endpoint:    server.URL,
	})

	out := p.Send(context.Background(), testLog())

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "re_123", out.MessageID)
	assert.Equal(t, "Bearer re_key", auth)
	assert.Equal(t, "Courier <no-reply@example.com>", got["from"])
	assert.Equal(t, []any{"user@example.com"}, got["to"])
	assert.Equal(t, "Your verification code", got["subject"])
	assert.Equal(t, "Your one-time code is: 482910", got["text"])
}

func TestResendProviderAPIErrorIsFailedOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"statusCode":422,"message":"Invalid to field"}`))
	}))
	defer server.Close()

	p := NewResendProvider(ResendConfig{APIKey: "k", Endpoint: server.URL})
	out := p.Send(context.Background(), testLog())

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "422")
	assert.Contains(t, out.Error, "Invalid to field")
}

func TestResendProviderTransportErrorIsFailedOutcome(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	p := NewResendProvider(ResendConfig{APIKey: "k", Endpoint: server.URL, Timeout: 20 * time.Millisecond})
	out := p.Send(context.Background(), testLog())

	assert.False(t, out.Success)
	assert.NotEmpty(t, out.Error)
}

func TestResendProviderDefaultsSubject(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"re_1"}`))
	}))
	defer server.Close()

	log := testLog()
	log.Subject = ""
	NewResendProvider(ResendConfig{APIKey: "k", Endpoint: server.URL}).Send(context.Background(), log)

	assert.Equal(t, "(no subject)", got["subject"])
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESProviderSend(t *testing.T) {
	client := &fakeSES{}
	p := NewSESProviderWithClient(client, "no-reply@example.com")

	out := p.Send(context.Background(), testLog())

	require.True(t, out.Success)
	assert.Equal(t, "ses-1", out.MessageID)
	assert.Equal(t, "no-reply@example.com", aws.ToString(client.input.Source))
	assert.Equal(t, []string{"user@example.com"}, client.input.Destination.ToAddresses)
	assert.Equal(t, "Your verification code", aws.ToString(client.input.Message.Subject.Data))
	assert.Equal(t, "Your one-time code is: 482910", aws.ToString(client.input.Message.Body.Text.Data))
}

func TestSESProviderErrorIsFailedOutcome(t *testing.T) {
	p := NewSESProviderWithClient(&fakeSES{err: errors.New("MessageRejected")}, "a@b.c")

	out := p.Send(context.Background(), testLog())

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "MessageRejected")
}
