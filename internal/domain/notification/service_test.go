package notification_test

import (
	"context"
	"testing"
	"time"

	"courier/internal/common"
	"courier/internal/domain/notification"
	"courier/internal/infra/store"
	"courier/internal/infra/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, providers ...notification.Provider) (*notification.Service, *store.MemoryStore) {
	t.Helper()

	engine, err := template.NewEngine()
	require.NoError(t, err)
	registry, err := notification.NewRegistry(providers...)
	require.NoError(t, err)

	s := store.NewMemoryStore()
	pipeline := notification.NewPipeline(s, engine, registry, notification.PipelineConfig{},
		notification.WithSleeper(func(time.Duration) {}))
	return notification.NewService(s, pipeline), s
}

func TestSubmitOTPEmailSent(t *testing.T) {
	svc, _ := newService(t, alwaysOK(notification.ChannelEmail))

	resp, err := svc.Submit(context.Background(), otpEmailRequest())
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, notification.StatusSent, resp.Log.Status)
	assert.Equal(t, 1, resp.Log.Attempts)
	assert.Equal(t, "Your verification code", resp.Log.Subject)
	assert.Contains(t, resp.Log.Body, "482910")
	assert.Contains(t, resp.Log.Body, "10")
}

func TestSubmitOTPEmailFailed(t *testing.T) {
	svc, _ := newService(t, alwaysFail(notification.ChannelEmail, "simulated SMTP timeout"))

	resp, err := svc.Submit(context.Background(), otpEmailRequest())
	require.NoError(t, err)

	assert.False(t, resp.Success)
	assert.Equal(t, notification.StatusFailed, resp.Log.Status)
	assert.Equal(t, 3, resp.Log.Attempts)
	assert.Equal(t, "simulated SMTP timeout", resp.Log.Error)
}

func TestSubmitSpanishMarketingSMS(t *testing.T) {
	svc, _ := newService(t, alwaysOK(notification.ChannelSMS))

	resp, err := svc.Submit(context.Background(), &notification.SendRequest{
		To:        "+34600000000",
		Channel:   notification.ChannelSMS,
		Type:      notification.TypeMarketing,
		Language:  notification.LanguageES,
		Variables: map[string]string{"firstName": "Ana", "promoCode": "VERANO25", "discount": "25"},
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Contains(t, resp.Log.Body, "Ana")
	assert.Contains(t, resp.Log.Body, "VERANO25")
	assert.Contains(t, resp.Log.Body, "25")
	assert.Empty(t, resp.Log.Subject)
	assert.Equal(t, notification.LanguageES, resp.Log.Language)
}

func TestSubmitDefaultsLanguageAndKeepsMetadata(t *testing.T) {
	svc, _ := newService(t, alwaysOK(notification.ChannelPush))

	resp, err := svc.Submit(context.Background(), &notification.SendRequest{
		To:        "device-token",
		Channel:   notification.ChannelPush,
		Type:      notification.TypeAlert,
		Variables: map[string]string{"message": "Server CPU above 90%"},
		Metadata:  map[string]any{"tenant": "acme", "priority": float64(2)},
	})
	require.NoError(t, err)

	assert.Equal(t, notification.LanguageEN, resp.Log.Language)
	assert.Equal(t, map[string]any{"tenant": "acme", "priority": float64(2)}, resp.Log.Metadata)
}

func TestGetNotification(t *testing.T) {
	svc, _ := newService(t, alwaysOK(notification.ChannelEmail))

	resp, err := svc.Submit(context.Background(), otpEmailRequest())
	require.NoError(t, err)

	got, err := svc.GetNotification(context.Background(), resp.Log.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Log, got)

	_, err = svc.GetNotification(context.Background(), "missing")
	var nf *common.NotFoundError
	assert.ErrorAs(t, err, &nf)

	_, err = svc.GetNotification(context.Background(), " ")
	var ve *common.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestListNotificationsByStatusNewestFirst(t *testing.T) {
	email := &scriptedProvider{
		channel: notification.ChannelEmail,
		outcomes: []notification.SendOutcome{
			notification.Delivered("a"),
			notification.Failed("x"), notification.Failed("x"), notification.Failed("x"),
			notification.Delivered("c"),
			notification.Failed("y"), notification.Failed("y"), notification.Failed("y"),
			notification.Delivered("e"),
		},
	}
	svc, _ := newService(t, email)

	var ids []string
	for i := 0; i < 5; i++ {
		resp, err := svc.Submit(context.Background(), otpEmailRequest())
		require.NoError(t, err)
		ids = append(ids, resp.Log.ID)
	}

	resp, err := svc.ListNotifications(context.Background(), notification.ListFilter{Status: "failed"})
	require.NoError(t, err)

	require.Equal(t, 2, resp.Total)
	require.Len(t, resp.Notifications, 2)
	assert.Equal(t, ids[3], resp.Notifications[0].ID)
	assert.Equal(t, ids[1], resp.Notifications[1].ID)
	for _, l := range resp.Notifications {
		assert.Equal(t, notification.StatusFailed, l.Status)
	}

	all, err := svc.ListNotifications(context.Background(), notification.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 5, all.Total)
	assert.Equal(t, ids[4], all.Notifications[0].ID)
}

func TestListNotificationsPagination(t *testing.T) {
	svc, _ := newService(t, alwaysOK(notification.ChannelEmail))
	for i := 0; i < 5; i++ {
		_, err := svc.Submit(context.Background(), otpEmailRequest())
		require.NoError(t, err)
	}

	resp, err := svc.ListNotifications(context.Background(), notification.ListFilter{PageSize: 2})
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Total)
	assert.Len(t, resp.Notifications, 2)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PageSize)

	last, err := svc.ListNotifications(context.Background(), notification.ListFilter{Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, last.Notifications, 1)
}

func TestListNotificationsEmptyIsNotNil(t *testing.T) {
	svc, _ := newService(t)

	resp, err := svc.ListNotifications(context.Background(), notification.ListFilter{Channel: "sms"})
	require.NoError(t, err)
	assert.NotNil(t, resp.Notifications)
	assert.Zero(t, resp.Total)
}

func TestListNotificationsRejectsBadFilter(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.ListNotifications(context.Background(), notification.ListFilter{Status: "queued"})
	var ve *common.ValidationError
	assert.ErrorAs(t, err, &ve)
}
