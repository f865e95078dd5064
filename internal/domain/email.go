package domain

import (
	"context"
	"fmt"
	"io"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// RegistrationNoticeEmailData holds data for the admin's new-registration email.
type RegistrationNoticeEmailData struct {
	AdminEmail string
	UserID     string
	FirstName  string
	LastName   string
	Email      string
	CreatedAt  string
	ImagePath  string
	ApproveURL string
	RejectURL  string
	Resubmit   bool
}

// ReviewDecisionEmailData holds data for the email telling a user about their review status.
type ReviewDecisionEmailData struct {
	Email     string
	FirstName string
	Status    UserStatus
	LoginURL  string
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendRegistrationNotice(ctx context.Context, data *RegistrationNoticeEmailData) error
	SendReviewDecision(ctx context.Context, data *ReviewDecisionEmailData) error
}

// NotificationKind names what happened to the user.
type NotificationKind string

const (
	NotificationRegistered      NotificationKind = "user.registered"
	NotificationPictureReplaced NotificationKind = "user.picture_replaced"
	NotificationReviewDecision  NotificationKind = "user.review_decision"
)

// Notification is the message handed to the notifier after a commit.
type Notification struct {
	Kind NotificationKind `json:"kind"`
	User User             `json:"user"`
}

// Notifier accepts notifications for asynchronous, best-effort delivery.
// Calls never block on delivery and report nothing back.
type Notifier interface {
	Notify(n Notification)
}

// NotificationSink delivers one notification (email, message broker).
type NotificationSink interface {
	Deliver(ctx context.Context, n Notification) error
}

// FileStore persists uploaded files and returns an opaque path.
type FileStore interface {
	Save(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error
}

// ErrFileNotFound is returned by FileStore.Open for an unknown path.
var ErrFileNotFound = fmt.Errorf("%w: file not found", ErrNotFound)
