package notification

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"courier/internal/common"

	"github.com/go-playground/validator/v10"
)

// Channel represents a notification delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// NotificationType is the semantic category of a message; it drives template selection.
type NotificationType string

const (
	TypeOTP       NotificationType = "otp"
	TypeAlert     NotificationType = "alert"
	TypeMarketing NotificationType = "marketing"
	TypeReceipt   NotificationType = "receipt"
)

// Language is the locale a template is rendered in.
type Language string

const (
	LanguageEN Language = "en"
	LanguageES Language = "es"

	DefaultLanguage = LanguageEN
)

// Channels returns every supported channel.
func Channels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelPush}
}

// Types returns every supported notification type.
func Types() []NotificationType {
	return []NotificationType{TypeOTP, TypeAlert, TypeMarketing, TypeReceipt}
}

// Languages returns every supported language.
func Languages() []Language {
	return []Language{LanguageEN, LanguageES}
}

// IsValidChannel checks whether a channel is recognized.
func IsValidChannel(c Channel) bool {
	for _, v := range Channels() {
		if v == c {
			return true
		}
	}
	return false
}

// IsValidType checks whether a notification type is recognized.
func IsValidType(t NotificationType) bool {
	for _, v := range Types() {
		if v == t {
			return true
		}
	}
	return false
}

// IsValidLanguage checks whether a language is recognized.
func IsValidLanguage(l Language) bool {
	for _, v := range Languages() {
		if v == l {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so messages match what the caller sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// SendRequest is the payload accepted by Submit.
type SendRequest struct {
	To        string            `json:"to" validate:"required"`
	Channel   Channel           `json:"channel" validate:"required,oneof=email sms push"`
	Type      NotificationType  `json:"type" validate:"required,oneof=otp alert marketing receipt"`
	Language  Language          `json:"language" validate:"omitempty,oneof=en es"`
	Variables map[string]string `json:"variables"`
	Metadata  map[string]any    `json:"metadata,omitempty"`
}

// Validate rejects requests that must never reach the pipeline.
func (r *SendRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return common.NewValidationError(describeFieldError(fieldErrs[0]))
		}
		return common.NewValidationError(err.Error())
	}

	if strings.TrimSpace(r.To) == "" {
		return common.NewValidationError("`to` is required")
	}

	for name := range r.Variables {
		if strings.TrimSpace(name) == "" {
			return common.NewValidationError("`variables` must not contain empty names")
		}
	}

	return nil
}

// LanguageOrDefault returns the requested language, falling back to English.
func (r *SendRequest) LanguageOrDefault() Language {
	if r.Language == "" {
		return DefaultLanguage
	}
	return r.Language
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("`%s` is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("`%s` must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("`%s` is invalid", fe.Field())
	}
}

// SendResponse is returned by Submit: the finalized record plus a success flag.
// The handler writes Log as the response data and Success as the envelope flag.
type SendResponse struct {
	Success bool
	Log     *NotificationLog
}
