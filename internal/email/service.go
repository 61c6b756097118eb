package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/smtp"
	"net/url"

	"github.com/redmonkez12/eventflow/internal/config"
	"github.com/redmonkez12/eventflow/internal/logging"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Service struct {
	smtpHost     string
	smtpPort     string
	smtpUser     string
	smtpPassword string
	fromEmail    string
	frontendURL  string
	send         sendFunc
}

func NewService(cfg config.EmailConfig) *Service {
	return &Service{
		smtpHost:     cfg.SMTPHost,
		smtpPort:     cfg.SMTPPort,
		smtpUser:     cfg.SMTPUser,
		smtpPassword: cfg.SMTPPassword,
		fromEmail:    cfg.Sender(),
		frontendURL:  cfg.FrontendURL,
		send:         smtp.SendMail,
	}
}

type linkEmail struct {
	Link   string
	Expiry string
}

// SendVerificationEmail sends an email verification link to the user
// This method is designed to be called in a goroutine
func (s *Service) SendVerificationEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := s.link("/verify", token)
	body, err := render("verification.html", linkEmail{Link: link, Expiry: "24 hours"})
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, toEmail, "Verify your email address", body); err != nil {
		logger.Error("failed to send verification email", "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("verification email sent")
	return nil
}

// SendPasswordResetEmail sends a password reset link to the user
// This method is designed to be called in a goroutine
func (s *Service) SendPasswordResetEmail(ctx context.Context, toEmail, token string) error {
	logger := logging.GetLoggerFromContext(ctx)

	link := s.link("/reset-password", token)
	body, err := render("password_reset.html", linkEmail{Link: link, Expiry: "1 hour"})
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, toEmail, "Reset your password", body); err != nil {
		logger.Error("failed to send password reset email", "error", err)
		return fmt.Errorf("send email: %w", err)
	}

	logger.Info("password reset email sent")
	return nil
}

func (s *Service) link(path, token string) string {
	return fmt.Sprintf("%s%s?token=%s", s.frontendURL, path, url.QueryEscape(token))
}

// deliver sends over SMTP. Without an SMTP host the message is only logged,
// which is how local development runs.
func (s *Service) deliver(ctx context.Context, to, subject, body string) error {
	if s.smtpHost == "" {
		logging.GetLoggerFromContext(ctx).Debug("SMTP not configured, email not sent", "subject", subject, "body_bytes", len(body))
		return nil
	}

	var auth smtp.Auth
	if s.smtpUser != "" {
		auth = smtp.PlainAuth("", s.smtpUser, s.smtpPassword, s.smtpHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=UTF-8\r\n"+
			"\r\n"+
			"%s\r\n",
		s.fromEmail, to, subject, body,
	))

	addr := fmt.Sprintf("%s:%s", s.smtpHost, s.smtpPort)
	return s.send(addr, auth, s.fromEmail, []string{to}, msg)
}

func render(name string, data linkEmail) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
