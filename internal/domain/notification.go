package domain

import "time"

// NotificationType names the event a notification reports.
type NotificationType string

const (
	NotificationApplicationReceived NotificationType = "application_received"
	NotificationApplicationAccepted NotificationType = "application_accepted"
	NotificationApplicationRejected NotificationType = "application_rejected"
	NotificationTeamMessage         NotificationType = "team_message"
)

// RelatedKind names the entity a notification points at.
type RelatedKind string

const (
	RelatedOpening     RelatedKind = "opening"
	RelatedApplication RelatedKind = "application"
	RelatedTeam        RelatedKind = "team"
)

const MaxNotificationLength = 500

// RelatedRef points a notification at the entity it concerns.
type RelatedRef struct {
	ID   string      `json:"id"`
	Kind RelatedKind `json:"kind"`
}

// Notification is an informational record addressed to one user.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Read        bool             `json:"read"`
	Related     *RelatedRef      `json:"related,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}
