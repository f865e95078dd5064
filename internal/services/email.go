package services

import (
	"context"
	"fmt"
	"log/slog"

	"velvetden/internal/domain"
)

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that uses the given Mailer and template renderer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	if logger == nil {
		logger = slog.Default()
	}
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendRegistrationNotice tells the admin inbox about a new or re-submitted registration
// using the "registration_notice" template.
func (s *emailService) SendRegistrationNotice(ctx context.Context, data *domain.RegistrationNoticeEmailData) error {
	if data == nil {
		return fmt.Errorf("registration notice data is nil")
	}
	if data.AdminEmail == "" {
		return fmt.Errorf("admin email is not configured")
	}
	if err := s.send(data.AdminEmail, "registration_notice", data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "registration notice sent", "user_id", data.UserID, "resubmit", data.Resubmit)
	return nil
}

// SendReviewDecision tells the user about their review status using the "review_decision" template.
func (s *emailService) SendReviewDecision(ctx context.Context, data *domain.ReviewDecisionEmailData) error {
	if data == nil {
		return fmt.Errorf("review decision data is nil")
	}
	if err := s.send(data.Email, "review_decision", data); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "review decision sent", "email", data.Email, "status", data.Status)
	return nil
}

func (s *emailService) send(to, template string, data any) error {
	subject, htmlBody, textBody, err := s.renderer.Render(template, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", template, err)
	}
	if err := s.mailer.Send(to, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	return nil
}
