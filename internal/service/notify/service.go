package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

const inboxLimit = 50

// Inbox is a recipient's latest notifications plus their unread total.
type Inbox struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unreadCount"`
}

// Service exposes a recipient's own notifications.
type Service struct {
	repo   repository.NotificationRepository
	logger *slog.Logger
}

// New constructs a Service.
func New(repo repository.NotificationRepository, logger *slog.Logger) Service {
	return Service{repo: repo, logger: logger}
}

// List returns the latest notifications of userID.
func (s Service) List(ctx context.Context, userID string) (Inbox, error) {
	items, err := s.repo.ListNotifications(ctx, userID, inboxLimit)
	if err != nil {
		return Inbox{}, fmt.Errorf("list notifications: %w", err)
	}
	unread, err := s.repo.CountUnreadNotifications(ctx, userID)
	if err != nil {
		return Inbox{}, fmt.Errorf("count notifications: %w", err)
	}
	return Inbox{Notifications: items, UnreadCount: unread}, nil
}

// MarkRead flags one of userID's notifications as read.
func (s Service) MarkRead(ctx context.Context, id, userID string) (*domain.Notification, error) {
	if err := s.authorize(ctx, id, userID); err != nil {
		return nil, err
	}
	n, err := s.repo.MarkNotificationRead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead flags every notification of userID as read.
func (s Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.repo.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

// Delete removes one of userID's notifications.
func (s Service) Delete(ctx context.Context, id, userID string) error {
	if err := s.authorize(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.DeleteNotification(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotificationNotFound
		}
		return fmt.Errorf("delete notification: %w", err)
	}
	s.logger.Debug("notification deleted", "notification_id", id, "user_id", userID)
	return nil
}

func (s Service) authorize(ctx context.Context, id, userID string) error {
	n, err := s.repo.GetNotificationByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotificationNotFound
		}
		return fmt.Errorf("load notification: %w", err)
	}
	if n.RecipientID != userID {
		return domain.ErrNotRecipient
	}
	return nil
}
