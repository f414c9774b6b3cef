package mail

import (
	"context"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/vgcarvalho/techstore-backend/internal/config"
)

// SMTPMailer delivers verification mail through a plain SMTP relay.
type SMTPMailer struct {
	dialer  *gomail.Dialer
	from    string
	timeout time.Duration
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer:  gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:    cfg.MailFrom,
		timeout: cfg.MailTimeout,
	}
}

func (m *SMTPMailer) SendVerification(ctx context.Context, msg VerificationMessage) error {
	message := m.buildMessage(msg)

	// gomail has no context support; bound the dial+send with a timer
	// so a dead relay cannot hold the request-scoped goroutine forever.
	done := make(chan error, 1)
	go func() { done <- m.dialer.DialAndSend(message) }()

	timeout := m.timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("smtp send to %s timed out after %s", msg.To, timeout)
	}
}

// buildMessage assembles the MIME message: plain-text body with an HTML
// alternative, so clients that strip HTML still get a usable link.
func (m *SMTPMailer) buildMessage(msg VerificationMessage) *gomail.Message {
	message := gomail.NewMessage()
	message.SetHeader("From", m.from)
	message.SetHeader("To", msg.To)
	message.SetHeader("Subject", "Confirme seu email - TechStore")
	message.SetBody("text/plain", verificationTextBody(msg))
	message.AddAlternative("text/html", verificationHTMLBody(msg))
	return message
}

func verificationTextBody(msg VerificationMessage) string {
	return fmt.Sprintf(`Ola, %s!

Falta pouco para ativar sua conta na TechStore. Abra o link abaixo para confirmar seu email:

%s

O link expira em %s.

Se voce nao criou esta conta, ignore esta mensagem.`,
		msg.Name, msg.VerifyURL, msg.ExpiresAt.UTC().Format("02/01/2006 15:04 MST"))
}

func verificationHTMLBody(msg VerificationMessage) string {
	return fmt.Sprintf(`<p>Ola, %s!</p>
<p>Falta pouco para ativar sua conta na TechStore. Clique no link abaixo para confirmar seu email:</p>
<p><a href=%q>Confirmar email</a></p>
<p>O link expira em %s.</p>
<p>Se voce nao criou esta conta, ignore esta mensagem.</p>`,
		html.EscapeString(msg.Name), msg.VerifyURL, msg.ExpiresAt.UTC().Format("02/01/2006 15:04 MST"))
}
