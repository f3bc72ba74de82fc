package adapter

import "context"

type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer sends one transactional email. Delivery internals (provider,
// templating service) stay behind this port.
type Mailer interface {
	Send(ctx context.Context, e Email) error
}
