package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	"github.com/basketlog/auth-service/internal/common"
	"github.com/basketlog/auth-service/internal/logging"
	"github.com/basketlog/auth-service/internal/server/config"
	"github.com/basketlog/auth-service/internal/server/repositories/verificationcodes"
)

// Sender delivers a single email. Implementations must be safe for concurrent
// use; delivery failures are logged by the caller, never surfaced to clients.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// SMTPSender sends mail through a plain-auth SMTP relay.
type SMTPSender struct {
	addr     string
	sender   string
	password string
	host     string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		sender:   cfg.SMTPSender,
		password: cfg.SMTPPassword,
		host:     cfg.SMTPHost,
	}
}

func (s *SMTPSender) Send(ctx context.Context, recipient, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.sender, recipient, subject, body)
	auth := smtp.PlainAuth("", s.sender, s.password, s.host)
	if err := smtp.SendMail(s.addr, auth, s.sender, []string{recipient}, []byte(msg)); err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	return nil
}

// EmailService manages verification codes and outgoing notifications.
type EmailService struct {
	codes   verificationcodes.Repository
	sender  Sender
	logger  logging.Logger
	codeTTL time.Duration
	baseURL string
}

func NewEmailService(codes verificationcodes.Repository, sender Sender, l logging.Logger, cfg *config.Config) *EmailService {
	return &EmailService{
		codes:   codes,
		sender:  sender,
		logger:  l.With("module", "email_service"),
		codeTTL: cfg.VerificationCodeValidityDuration,
		baseURL: cfg.ServiceBaseURL,
	}
}

// SendEmailVerification stores a fresh verification code for the address,
// replacing any outstanding one, and emails a confirmation link.
func (s *EmailService) SendEmailVerification(ctx context.Context, email string) error {
	code, err := common.MakeRandHexString(16)
	if err != nil {
		return fmt.Errorf("error generating verification code: %w", err)
	}

	if err := s.codes.Set(ctx, email, code, s.codeTTL); err != nil {
		return fmt.Errorf("error storing verification code: %w", err)
	}

	link := fmt.Sprintf("%s/auth/verify-email?email=%s&token=%s", s.baseURL, email, code)
	body := fmt.Sprintf(`Hello!

To confirm your email, please follow the link:
%s

If you did not request confirmation, just ignore this letter.

Thank you,
Basket.log team.
`, link)

	if err := s.sender.Send(ctx, email, "Email Verification", body); err != nil {
		return err
	}

	s.logger.Info(ctx, "verification email sent", "recipient", email)
	return nil
}

// VerifyEmailVerificationCode checks a submitted code against the stored one.
// A match consumes the code; anything else (absent, expired, wrong code)
// yields common.ErrVerificationCodeExpired.
func (s *EmailService) VerifyEmailVerificationCode(ctx context.Context, email, code string) error {
	stored, err := s.codes.Get(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrVerificationCodeExpired
		}
		return fmt.Errorf("error reading verification code: %w", err)
	}
	if stored != code {
		return common.ErrVerificationCodeExpired
	}
	if err := s.codes.Delete(ctx, email); err != nil {
		return fmt.Errorf("error consuming verification code: %w", err)
	}
	return nil
}

// SendPasswordChangeNotification tells the user their password changed.
func (s *EmailService) SendPasswordChangeNotification(ctx context.Context, email string) error {
	body := "Your password has been changed. If this was not you, please contact support immediately."
	if err := s.sender.Send(ctx, email, "Password Changed", body); err != nil {
		return err
	}
	s.logger.Info(ctx, "password change notification sent", "recipient", email)
	return nil
}

// SendEmailChangeNotification tells the old address that the account email
// was changed.
func (s *EmailService) SendEmailChangeNotification(ctx context.Context, oldEmail, newEmail string) error {
	body := fmt.Sprintf("The email of your account has been changed to %s. If this was not you, please contact support immediately.", newEmail)
	if err := s.sender.Send(ctx, oldEmail, "Email Changed", body); err != nil {
		return err
	}
	s.logger.Info(ctx, "email change notification sent", "recipient", oldEmail)
	return nil
}
