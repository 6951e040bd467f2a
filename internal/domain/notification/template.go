package notification

// Rendered is the output of a template render.
type Rendered struct {
	Subject string
	Body    string
}

// TemplateRenderer defines the contract for rendering notification templates.
// Implementations live in infra/template/.
type TemplateRenderer interface {
	// Render looks up the (type, language, channel) template and substitutes variables.
	Render(notifType NotificationType, language Language, channel Channel, variables map[string]string) (Rendered, error)
}
