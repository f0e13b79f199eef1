package domain

import "time"

// Team is the collaborative group formed around an opening once applicants
// are accepted. There is at most one team per opening.
type Team struct {
	ID        string    `json:"id"`
	OpeningID string    `json:"openingId"`
	OwnerID   string    `json:"ownerId"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsMember reports whether userID owns the team or is one of its members.
func (t *Team) IsMember(userID string) bool {
	if t == nil || userID == "" {
		return false
	}
	if t.OwnerID == userID {
		return true
	}
	for _, m := range t.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Size counts the owner plus members.
func (t *Team) Size() int {
	if t == nil {
		return 0
	}
	return len(t.Members) + 1
}

// Participants returns the owner followed by members.
func (t *Team) Participants() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.Members)+1)
	out = append(out, t.OwnerID)
	return append(out, t.Members...)
}

// TeamView is a team with resolved profiles.
type TeamView struct {
	ID        string         `json:"id"`
	Opening   OpeningSummary `json:"opening"`
	Owner     Profile        `json:"owner"`
	Members   []Profile      `json:"members"`
	CreatedAt time.Time      `json:"createdAt"`
}
