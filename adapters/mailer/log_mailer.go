package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/willvault/auth/ports"
)

// LogMailer writes mail to the log instead of dialing SMTP. It is the
// development and test implementation of the Mailer port; production wires
// a real transport.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer creates a new log-only mailer
func NewLogMailer(log *zap.Logger) ports.Mailer {
	return &LogMailer{log: log}
}

// Send logs the message instead of delivering it
func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.log.Info("outbound mail",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.String("body", body),
	)
	return nil
}
