package common

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found", e.Resource, e.ID)
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError indicates invalid input data.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// DuplicateError indicates a create with an identifier that already exists.
type DuplicateError struct {
	Resource string
	ID       string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with id '%s' already exists", e.Resource, e.ID)
}

// NewDuplicateError creates a new DuplicateError.
func NewDuplicateError(resource, id string) *DuplicateError {
	return &DuplicateError{Resource: resource, ID: id}
}

// Configuration error kinds.
const (
	KindTemplateNotFound = "template_not_found"
	KindProviderNotFound = "provider_not_found"
)

// ConfigurationError signals a deployment defect: a template or provider that
// should have been registered is missing. Retrying cannot fix it.
type ConfigurationError struct {
	Kind    string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewTemplateNotFoundError creates a ConfigurationError for a missing template.
func NewTemplateNotFoundError(notifType, language, channel string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    KindTemplateNotFound,
		Message: fmt.Sprintf("no template for type=%s language=%s channel=%s", notifType, language, channel),
	}
}

// NewProviderNotFoundError creates a ConfigurationError for an unregistered channel.
func NewProviderNotFoundError(channel string) *ConfigurationError {
	return &ConfigurationError{
		Kind:    KindProviderNotFound,
		Message: fmt.Sprintf("no provider registered for channel: %s", channel),
	}
}

// ProviderError indicates an external provider failure.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, message string) *ProviderError {
	return &ProviderError{Provider: provider, Message: message}
}
