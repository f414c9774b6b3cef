package mail

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/vgcarvalho/techstore-backend/internal/config"
)

func TestVerificationMessageCarriesPlainAndHTMLParts(t *testing.T) {
	mailer := NewSMTPMailer(&config.Config{
		SMTPHost: "localhost",
		SMTPPort: 1025,
		MailFrom: "no-reply@techstore.local",
	})

	message := mailer.buildMessage(VerificationMessage{
		To:        "user@example.com",
		Name:      "Vini",
		VerifyURL: "http://localhost:3000/verificar-email?token=abc",
		ExpiresAt: time.Date(2026, 9, 2, 12, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	if _, err := message.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := buf.String()

	for _, want := range []string{"text/plain", "text/html", "Confirme seu email"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
	if strings.Count(raw, "verificar-email?token=abc") < 2 {
		t.Fatalf("verification link must appear in both body parts:\n%s", raw)
	}
}
