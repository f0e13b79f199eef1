package domain

import "time"

// ApplicationStatus tracks an application through review.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationAccepted ApplicationStatus = "accepted"
	ApplicationRejected ApplicationStatus = "rejected"
)

const (
	MaxApplicationMessageLength = 1000
	MaxResumeRefLength          = 2048
)

// Application is a user's request to join an opening.
type Application struct {
	ID          string            `json:"id"`
	OpeningID   string            `json:"openingId"`
	ApplicantID string            `json:"applicantId"`
	Message     string            `json:"message"`
	ResumeRef   string            `json:"resumeRef,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// Terminal reports whether the application has left pending.
func (a Application) Terminal() bool {
	return a.Status != ApplicationPending
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to ApplicationStatus) bool {
	return from == ApplicationPending && (to == ApplicationAccepted || to == ApplicationRejected)
}
