package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

func seedOpening(t *testing.T, s *Store, total int) *domain.Opening {
	t.Helper()
	o := &domain.Opening{Title: "Compiler", TotalSlots: total, OwnerID: "owner"}
	require.NoError(t, s.CreateOpening(context.Background(), o))
	return o
}

func TestIncrementFilledSlotsStopsAtTotal(t *testing.T) {
	s := New()
	o := seedOpening(t, s, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, full := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementFilledSlots(context.Background(), o.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repository.ErrConditionFailed):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 17, full)
	got, err := s.GetOpeningByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.FilledSlots)

	_, err = s.IncrementFilledSlots(context.Background(), "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := seedOpening(t, s, 2)
	app := &domain.Application{OpeningID: o.ID, ApplicantID: "u1", Message: "hi", Status: domain.ApplicationPending}
	require.NoError(t, s.CreateApplication(ctx, app))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx repository.Store) error {
		_, err := tx.TransitionApplication(ctx, app.ID, domain.ApplicationAccepted)
		require.NoError(t, err)
		_, err = tx.IncrementFilledSlots(ctx, o.ID)
		require.NoError(t, err)
		_, err = tx.UpsertTeamMember(ctx, o.ID, o.OwnerID, "u1")
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	gotApp, err := s.GetApplicationByID(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, gotApp.Status)
	gotOpening, err := s.GetOpeningByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotOpening.FilledSlots)
	_, err = s.GetTeamByOpening(ctx, o.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInTxRollsBackWhenContextExpires(t *testing.T) {
	s := New()
	o := seedOpening(t, s, 2)
	ctx, cancel := context.WithCancel(context.Background())

	err := s.InTx(ctx, func(tx repository.Store) error {
		_, err := tx.IncrementFilledSlots(ctx, o.ID)
		cancel()
		return err
	})
	require.ErrorIs(t, err, context.Canceled)

	got, err := s.GetOpeningByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FilledSlots)
}

func TestInTxCopiesOnlyWrittenTables(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := seedOpening(t, s, 2)
	for i := 0; i < 50; i++ {
		require.NoError(t, s.CreateMessage(ctx, &domain.Message{TeamID: "team-1", SenderID: "owner", Content: "log"}))
	}

	var saved map[table]bool
	err := s.InTx(ctx, func(tx repository.Store) error {
		_, err := tx.IncrementFilledSlots(ctx, o.ID)
		saved = tx.(*Store).undo.saved
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, map[table]bool{tableOpenings: true}, saved)

	boom := errors.New("boom")
	err = s.InTx(ctx, func(tx repository.Store) error {
		require.NoError(t, tx.CreateMessage(ctx, &domain.Message{TeamID: "team-1", SenderID: "alice", Content: "late"}))
		_, err := tx.MarkMessagesRead(ctx, "team-1", "alice")
		require.NoError(t, err)
		require.NoError(t, tx.CreateNotification(ctx, &domain.Notification{RecipientID: "alice", Message: "x"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	msgs, err := s.ListRecentMessages(ctx, "team-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 50)
	assert.Equal(t, []string{"owner"}, msgs[0].ReadBy)
	list, err := s.ListNotifications(ctx, "alice", 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	got, err := s.GetOpeningByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FilledSlots)
}

func TestCreateApplicationRejectsDuplicatePair(t *testing.T) {
	s := New()
	ctx := context.Background()
	o := seedOpening(t, s, 2)

	require.NoError(t, s.CreateApplication(ctx, &domain.Application{OpeningID: o.ID, ApplicantID: "u1", Status: domain.ApplicationPending}))
	err := s.CreateApplication(ctx, &domain.Application{OpeningID: o.ID, ApplicantID: "u1", Status: domain.ApplicationPending})
	assert.ErrorIs(t, err, repository.ErrConflict)

	err = s.CreateApplication(ctx, &domain.Application{OpeningID: "nope", ApplicantID: "u1"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpsertTeamMemberIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.UpsertTeamMember(ctx, "op", "owner", "a")
	require.NoError(t, err)
	second, err := s.UpsertTeamMember(ctx, "op", "owner", "a")
	require.NoError(t, err)
	third, err := s.UpsertTeamMember(ctx, "op", "owner", "b")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ID, third.ID)
	assert.Equal(t, []string{"a", "b"}, third.Members)

	teams, err := s.ListTeamsByUser(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, teams, 1)
}

func TestMarkMessagesReadIsSetUnion(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, sender := range []string{"a", "b", "a"} {
		require.NoError(t, s.CreateMessage(ctx, &domain.Message{TeamID: "t", SenderID: sender, Content: "x"}))
	}

	unread, err := s.CountUnread(ctx, "t", "b")
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	updated, err := s.MarkMessagesRead(ctx, "t", "b")
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	updated, err = s.MarkMessagesRead(ctx, "t", "b")
	require.NoError(t, err)
	assert.Empty(t, updated)

	unread, err = s.CountUnread(ctx, "t", "b")
	require.NoError(t, err)
	assert.Zero(t, unread)

	msgs, err := s.ListRecentMessages(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "b", msgs[0].SenderID)
	assert.Equal(t, []string{"b"}, msgs[0].ReadBy)
	assert.ElementsMatch(t, []string{"a", "b"}, msgs[1].ReadBy)
}

func TestNotificationLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateNotification(ctx, &domain.Notification{RecipientID: "u", Type: domain.NotificationTeamMessage, Message: "m"}))
	}
	require.NoError(t, s.CreateNotification(ctx, &domain.Notification{RecipientID: "other", Message: "m"}))

	list, err := s.ListNotifications(ctx, "u", 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = s.MarkNotificationRead(ctx, list[0].ID)
	require.NoError(t, err)
	count, err := s.CountUnreadNotifications(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	changed, err := s.MarkAllNotificationsRead(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	require.NoError(t, s.DeleteNotification(ctx, list[1].ID))
	assert.ErrorIs(t, s.DeleteNotification(ctx, list[1].ID), repository.ErrNotFound)
}
