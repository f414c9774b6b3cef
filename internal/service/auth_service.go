package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vgcarvalho/techstore-backend/internal/config"
	"github.com/vgcarvalho/techstore-backend/internal/domain"
	mailpkg "github.com/vgcarvalho/techstore-backend/internal/mail"
	"github.com/vgcarvalho/techstore-backend/internal/observability"
	"github.com/vgcarvalho/techstore-backend/internal/repository"
	"github.com/vgcarvalho/techstore-backend/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email verification required")
	ErrInvalidVerifyLink  = errors.New("invalid or expired verification link")
	ErrInvalidInput       = errors.New("invalid input")
)

// ResendMessage is returned for every resend request, whether or not the
// email maps to an account. Account existence is never disclosed here.
const ResendMessage = "se o email estiver cadastrado, um novo link de confirmacao foi enviado"

type AuthService struct {
	cfg      *config.Config
	issuer   *security.TokenIssuer
	userRepo repository.UserRepository
	mailer   mailpkg.Mailer
	now      func() time.Time
}

type LoginResult struct {
	Token   string       `json:"token"`
	Profile *domain.User `json:"profile"`
}

func NewAuthService(cfg *config.Config, issuer *security.TokenIssuer, userRepo repository.UserRepository, mailer mailpkg.Mailer) *AuthService {
	return &AuthService{
		cfg:      cfg,
		issuer:   issuer,
		userRepo: userRepo,
		mailer:   mailer,
		now:      time.Now,
	}
}

// Register creates an unverified account and mails a verification link.
// Duplicate emails surface as ErrEmailTaken straight from the storage
// unique constraint; there is no prior existence check, so concurrent
// registrations cannot race past it. A mail delivery failure is logged
// and swallowed: the caller still gets success and recovers via resend.
func (s *AuthService) Register(ctx context.Context, name, email, rawPassword string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)
	if err := validateEmail(email); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("%w: nome is required", ErrInvalidInput)
	}
	if len(rawPassword) < 6 {
		return fmt.Errorf("%w: senha must be at least 6 characters", ErrInvalidInput)
	}

	hash, err := security.HashPassword(rawPassword)
	if err != nil {
		return err
	}
	token, err := s.issuer.IssueVerification(email)
	if err != nil {
		return err
	}

	user := &domain.User{
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Verified:          false,
		VerificationToken: &token,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return ErrEmailTaken
		}
		return err
	}

	if err := s.sendVerificationMail(ctx, user.Name, email, token); err != nil {
		observability.RecordMailDelivery(ctx, "verification", "failure")
		slog.ErrorContext(ctx, "verification email delivery failed", "email", email, "error", err)
		return nil
	}
	observability.RecordMailDelivery(ctx, "verification", "success")
	return nil
}

// ConfirmEmail consumes a verification token. The signature/expiry check
// is pure; the stored-token match makes consumption one-shot: once the
// token is cleared (or replaced by a resend) the same link fails even
// though the account may already be verified.
func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerifyLink
	}
	email, err := s.issuer.VerifyVerification(token)
	if err != nil {
		return ErrInvalidVerifyLink
	}
	if err := s.userRepo.ConsumeVerificationToken(email, token); err != nil {
		if errors.Is(err, repository.ErrTokenConsumed) {
			return ErrInvalidVerifyLink
		}
		return err
	}
	return nil
}

// ResendVerification reissues the verification link. Unknown and
// already-verified emails both return nil so the handler can answer
// with the same generic message either way.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return err
	}

	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.Verified {
		return nil
	}

	token, err := s.issuer.IssueVerification(email)
	if err != nil {
		return err
	}
	if err := s.userRepo.ReplaceVerificationToken(email, token); err != nil {
		return err
	}

	if err := s.sendVerificationMail(ctx, user.Name, email, token); err != nil {
		observability.RecordMailDelivery(ctx, "verification_resend", "failure")
		return err
	}
	observability.RecordMailDelivery(ctx, "verification_resend", "success")
	return nil
}

// Login checks the verified flag before touching the password hash, so
// an unverified account with the right password still gets the 403 path.
func (s *AuthService) Login(ctx context.Context, email, rawPassword string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.Verified {
		return nil, ErrEmailNotVerified
	}
	ok, err := security.VerifyPassword(user.PasswordHash, rawPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.issuer.IssueSession(user.ID, user.Name, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Profile: user}, nil
}

func (s *AuthService) ParseUserID(subject string) (uint, error) {
	id, err := strconv.ParseUint(subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user subject")
	}
	return uint(id), nil
}

func (s *AuthService) sendVerificationMail(ctx context.Context, name, email, token string) error {
	u, err := url.Parse(s.cfg.VerifyBaseURL)
	if err != nil {
		return fmt.Errorf("invalid VERIFY_BASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return s.mailer.SendVerification(ctx, mailpkg.VerificationMessage{
		To:        email,
		Name:      name,
		VerifyURL: u.String(),
		ExpiresAt: s.now().UTC().Add(s.cfg.VerificationTokenTTL),
	})
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	return nil
}
