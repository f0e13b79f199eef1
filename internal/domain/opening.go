package domain

import "time"

// OpeningStatus is the owner-controlled availability of an opening.
type OpeningStatus string

const (
	OpeningOpen   OpeningStatus = "open"
	OpeningClosed OpeningStatus = "closed"
)

const (
	MinTotalSlots = 1
	MaxTotalSlots = 20
)

// Opening is a posted project looking for collaborators.
type Opening struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	TotalSlots  int           `json:"totalSlots"`
	FilledSlots int           `json:"filledSlots"`
	Status      OpeningStatus `json:"status"`
	OwnerID     string        `json:"ownerId"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// AvailableSlots reports how many collaborators can still be accepted.
func (o Opening) AvailableSlots() int {
	if o.FilledSlots >= o.TotalSlots {
		return 0
	}
	return o.TotalSlots - o.FilledSlots
}

// Validate checks the slot invariants.
func (o Opening) Validate() error {
	verr := &ValidationError{}
	if o.OwnerID == "" {
		verr.Add("ownerId", "is required")
	}
	if o.TotalSlots < MinTotalSlots || o.TotalSlots > MaxTotalSlots {
		verr.Add("totalSlots", "must be between 1 and 20")
	}
	if o.FilledSlots < 0 || o.FilledSlots > o.TotalSlots {
		verr.Add("filledSlots", "must be between 0 and totalSlots")
	}
	switch o.Status {
	case OpeningOpen, OpeningClosed:
	default:
		verr.Add("status", "must be open or closed")
	}
	return verr.OrNil()
}

// OpeningSummary is the compact opening view embedded in other payloads.
type OpeningSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	TotalSlots int    `json:"totalSlots"`
}

// Summary returns the compact view of o.
func (o Opening) Summary() OpeningSummary {
	return OpeningSummary{ID: o.ID, Title: o.Title, TotalSlots: o.TotalSlots}
}
