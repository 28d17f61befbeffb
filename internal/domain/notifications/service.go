package notifications

import (
	"context"
	"log/slog"

	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/email"
	"github.com/datarhaya/Rhaya-HR-Internal-Apps/internal/platform/metrics"
)

type Service struct {
	Store  *Store
	Mailer email.Mailer
	From   string
}

func New(store *Store, mailer email.Mailer, from string) *Service {
	return &Service{Store: store, Mailer: mailer, From: from}
}

// NotifyEmployee stores an in-app notification for the employee's user
// account and sends the email copy. Delivery problems are logged, never
// surfaced; the triggering operation has already committed.
func (s *Service) NotifyEmployee(ctx context.Context, employeeID, ntype, title, body string) {
	userID, addr, err := s.Store.RecipientByEmployee(ctx, employeeID)
	if err != nil {
		slog.Warn("notification recipient lookup failed", "employee", employeeID, "err", err)
		return
	}
	if userID == "" {
		return
	}

	if err := s.Store.Create(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("notification insert failed", "user", userID, "type", ntype, "err", err)
		return
	}

	if s.Mailer == nil || addr == "" {
		return
	}
	if err := s.Mailer.Send(ctx, s.From, addr, title, body); err != nil {
		slog.Warn("notification email send failed", "to", addr, "err", err)
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return
	}
	metrics.EmailsSent.WithLabelValues("sent").Inc()
}

// NotifyUser writes an in-app notification for a user account without
// an email copy. Used where the email already went out separately or
// would repeat a credential.
func (s *Service) NotifyUser(ctx context.Context, userID, ntype, title, body string) {
	if userID == "" {
		return
	}
	if err := s.Store.Create(ctx, userID, ntype, title, body); err != nil {
		slog.Warn("notification insert failed", "user", userID, "type", ntype, "err", err)
	}
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.Store.List(ctx, userID, limit, offset)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.Store.UnreadCount(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.Store.MarkRead(ctx, userID, notificationID)
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.Store.MarkAllRead(ctx, userID)
}
