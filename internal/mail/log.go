package mail

import (
	"context"
	"log/slog"
)

// LogMailer logs the verification link instead of delivering it. Used in
// development and anywhere SMTP is not configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, msg VerificationMessage) error {
	m.logger.InfoContext(ctx, "verification email issued",
		"email", msg.To,
		"expires_at", msg.ExpiresAt,
		"verification", msg.VerifyURL,
	)
	return nil
}
