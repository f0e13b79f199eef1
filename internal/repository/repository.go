package repository

import (
	"context"
	"time"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
)

// UserRepository reads accounts owned by the identity service.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)
}

// OpeningRepository holds openings and their slot counters.
type OpeningRepository interface {
	CreateOpening(ctx context.Context, opening *domain.Opening) error
	GetOpeningByID(ctx context.Context, id string) (*domain.Opening, error)
	// IncrementFilledSlots adds one filled slot only while filled < total.
	// Returns ErrConditionFailed when the opening is already full.
	IncrementFilledSlots(ctx context.Context, id string) (*domain.Opening, error)
}

// ApplicationRepository persists applications.
type ApplicationRepository interface {
	// CreateApplication returns ErrConflict when the applicant already applied.
	CreateApplication(ctx context.Context, app *domain.Application) error
	GetApplicationByID(ctx context.Context, id string) (*domain.Application, error)
	FindApplication(ctx context.Context, openingID, applicantID string) (*domain.Application, error)
	// TransitionApplication moves a pending application to status.
	// Returns ErrConditionFailed when it is no longer pending.
	TransitionApplication(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error)
	ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]domain.Application, error)
	ListApplicationsByOpening(ctx context.Context, openingID string) ([]domain.Application, error)
}

// TeamRepository manages teams and memberships.
type TeamRepository interface {
	// UpsertTeamMember creates the opening's team if missing and adds
	// memberID to it. The team row stays locked until the enclosing
	// transaction ends.
	UpsertTeamMember(ctx context.Context, openingID, ownerID, memberID string) (*domain.Team, error)
	GetTeamByID(ctx context.Context, id string) (*domain.Team, error)
	GetTeamByOpening(ctx context.Context, openingID string) (*domain.Team, error)
	ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error)
}

// MessageRepository persists chat messages and read receipts.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg *domain.Message) error
	// ListRecentMessages returns the newest limit messages, oldest first.
	ListRecentMessages(ctx context.Context, teamID string, limit int) ([]domain.Message, error)
	// MarkMessagesRead adds userID to readBy of every message in the team
	// not sent by userID and returns the ids that changed.
	MarkMessagesRead(ctx context.Context, teamID, userID string) ([]string, error)
	CountUnread(ctx context.Context, teamID, userID string) (int, error)
	LastMessageTime(ctx context.Context, teamID string) (*time.Time, error)
}

// NotificationRepository persists notifications for recipients.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	GetNotificationByID(ctx context.Context, id string) (*domain.Notification, error)
	ListNotifications(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	CountUnreadNotifications(ctx context.Context, recipientID string) (int, error)
	MarkNotificationRead(ctx context.Context, id string) (*domain.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, recipientID string) (int, error)
	DeleteNotification(ctx context.Context, id string) error
}

// Store aggregates every repository and adds transactions.
type Store interface {
	UserRepository
	OpeningRepository
	ApplicationRepository
	TeamRepository
	MessageRepository
	NotificationRepository

	// InTx runs fn against a Store bound to one transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}
