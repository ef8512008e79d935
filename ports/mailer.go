package ports

import "context"

// Mailer delivers verification codes out-of-band. SMTP lives behind this
// interface, never inside the core.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}
