package mail

import (
	"context"
	"time"
)

// VerificationMessage carries everything a delivery backend needs to
// send one verification email.
type VerificationMessage struct {
	To        string
	Name      string
	VerifyURL string
	ExpiresAt time.Time
}

type Mailer interface {
	SendVerification(ctx context.Context, msg VerificationMessage) error
}
