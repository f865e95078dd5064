package notify

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"velvetden/internal/domain"
)

// EmailSink delivers notifications as emails: registrations go to the admin inbox,
// review decisions to the user.
type EmailSink struct {
	Emails      domain.EmailService
	AdminEmail  string
	FrontendURL string
}

func (s *EmailSink) Deliver(ctx context.Context, n domain.Notification) error {
	switch n.Kind {
	case domain.NotificationRegistered, domain.NotificationPictureReplaced:
		return s.Emails.SendRegistrationNotice(ctx, s.registrationNotice(n))
	case domain.NotificationReviewDecision:
		return s.Emails.SendReviewDecision(ctx, &domain.ReviewDecisionEmailData{
			Email:     n.User.Email,
			FirstName: n.User.FirstName,
			Status:    n.User.Status,
			LoginURL:  s.link("/login.html", nil),
		})
	default:
		return fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}

func (s *EmailSink) registrationNotice(n domain.Notification) *domain.RegistrationNoticeEmailData {
	data := &domain.RegistrationNoticeEmailData{
		AdminEmail: s.AdminEmail,
		UserID:     n.User.ID,
		FirstName:  n.User.FirstName,
		LastName:   n.User.LastName,
		Email:      n.User.Email,
		CreatedAt:  n.User.CreatedAt.Format(time.RFC1123),
		ApproveURL: s.link("/admin.html", url.Values{"userId": {n.User.ID}, "action": {"approve"}}),
		RejectURL:  s.link("/admin.html", url.Values{"userId": {n.User.ID}, "action": {"reject"}}),
		Resubmit:   n.Kind == domain.NotificationPictureReplaced,
	}
	if n.User.VerificationImagePath != nil {
		data.ImagePath = *n.User.VerificationImagePath
	}
	return data
}

func (s *EmailSink) link(path string, q url.Values) string {
	u := strings.TrimRight(s.FrontendURL, "/") + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}
