package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamIsMember(t *testing.T) {
	team := &Team{ID: "t1", OwnerID: "owner", Members: []string{"a", "b"}}

	assert.True(t, team.IsMember("owner"))
	assert.True(t, team.IsMember("a"))
	assert.True(t, team.IsMember("b"))
	assert.False(t, team.IsMember("c"))
	assert.False(t, team.IsMember(""))

	var missing *Team
	assert.False(t, missing.IsMember("owner"))
	assert.Equal(t, 3, team.Size())
	assert.Equal(t, []string{"owner", "a", "b"}, team.Participants())
}

func TestOpeningValidate(t *testing.T) {
	ok := Opening{OwnerID: "o", TotalSlots: 2, FilledSlots: 2, Status: OpeningOpen}
	require.NoError(t, ok.Validate())
	assert.Equal(t, 0, ok.AvailableSlots())

	bad := Opening{TotalSlots: 21, FilledSlots: -1, Status: "archived"}
	err := bad.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 4)
}

func TestConflictErrorsWrapKind(t *testing.T) {
	for _, err := range []error{ErrOpeningClosed, ErrSlotsExhausted, ErrSelfApplication, ErrDuplicate, ErrAlreadyProcessed, ErrCapacityViolation} {
		assert.True(t, errors.Is(err, ErrConflict), err.Error())
		assert.False(t, errors.Is(err, ErrNotFound), err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	wrapped := fmt.Errorf("accept application: %w", ErrSlotsExhausted)
	assert.Equal(t, "No more slots available", PublicMessage(wrapped))
	assert.True(t, errors.Is(wrapped, ErrConflict))

	assert.Equal(t, "content is required", PublicMessage(Invalid("content", "is required")))
	assert.Equal(t, "Internal server error", PublicMessage(errors.New("pq: connection reset")))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(ApplicationPending, ApplicationAccepted))
	assert.True(t, CanTransition(ApplicationPending, ApplicationRejected))
	assert.False(t, CanTransition(ApplicationAccepted, ApplicationRejected))
	assert.False(t, CanTransition(ApplicationRejected, ApplicationAccepted))
	assert.False(t, CanTransition(ApplicationPending, ApplicationPending))
}
