package team

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository/memory"
)

func newTestService(t *testing.T, totalSlots int) (Service, *memory.Store, domain.Opening) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	for _, name := range []string{"owner", "alice", "bob", "carol"} {
		require.NoError(t, store.CreateUser(ctx, &domain.User{ID: name, Name: name}))
	}
	opening := domain.Opening{ID: "op-1", Title: "Rover", TotalSlots: totalSlots, OwnerID: "owner"}
	require.NoError(t, store.CreateOpening(ctx, &opening))
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil))), store, opening
}

func TestAdmitCreatesTeamOnce(t *testing.T) {
	svc, _, opening := newTestService(t, 3)
	ctx := context.Background()

	first, err := svc.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, first.Members)

	second, err := svc.Admit(ctx, opening.ID, "owner", "bob")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, []string{"alice", "bob"}, second.Members)

	again, err := svc.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)
	assert.Len(t, again.Members, 2)
}

func TestAdmitRejectsOwnerAndMissingOpening(t *testing.T) {
	svc, _, opening := newTestService(t, 3)
	ctx := context.Background()

	_, err := svc.Admit(ctx, opening.ID, "owner", "owner")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Admit(ctx, "missing", "owner", "alice")
	assert.ErrorIs(t, err, domain.ErrOpeningNotFound)
}

func TestAdmitCapacityViolationRollsBack(t *testing.T) {
	svc, store, opening := newTestService(t, 1)
	ctx := context.Background()

	_, err := svc.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)

	_, err = svc.Admit(ctx, opening.ID, "owner", "bob")
	require.ErrorIs(t, err, domain.ErrCapacityViolation)
	assert.ErrorIs(t, err, domain.ErrConflict)

	team, err := store.GetTeamByOpening(ctx, opening.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, team.Members)
}

func TestConcurrentAdmitsConvergeOnOneTeam(t *testing.T) {
	svc, store, opening := newTestService(t, 20)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan string, 12)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			team, err := svc.Admit(ctx, opening.ID, "owner", fmt.Sprintf("user-%d", i%4))
			if assert.NoError(t, err) {
				ids <- team.ID
			}
		}(i)
	}
	wg.Wait()
	close(ids)

	seen := map[string]struct{}{}
	for id := range ids {
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 1)

	team, err := store.GetTeamByOpening(ctx, opening.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user-0", "user-1", "user-2", "user-3"}, team.Members)
}

func TestGetForUserEnforcesMembership(t *testing.T) {
	svc, _, opening := newTestService(t, 2)
	ctx := context.Background()

	team, err := svc.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)

	view, err := svc.GetForUser(ctx, team.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "owner", view.Owner.Name)
	require.Len(t, view.Members, 1)
	assert.Equal(t, "alice", view.Members[0].Name)
	assert.Equal(t, "Rover", view.Opening.Title)

	_, err = svc.GetForUser(ctx, team.ID, "owner")
	require.NoError(t, err)

	_, err = svc.GetForUser(ctx, team.ID, "carol")
	assert.ErrorIs(t, err, domain.ErrNotTeamMember)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.GetByOpeningForUser(ctx, opening.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)
	_, err = svc.GetByOpening(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListForUser(t *testing.T) {
	svc, _, opening := newTestService(t, 2)
	ctx := context.Background()

	_, err := svc.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)

	teams, err := svc.ListForUser(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, teams, 1)

	teams, err = svc.ListForUser(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, teams, 1)

	teams, err = svc.ListForUser(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, teams)
}
