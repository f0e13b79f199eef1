package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository/memory"
)

type recordingForwarder struct {
	mu   sync.Mutex
	got  []domain.Notification
	fail error
}

func (f *recordingForwarder) Forward(ctx context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.got = append(f.got, n)
	return f.fail
}

func (f *recordingForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDispatcherPersistsAndForwards(t *testing.T) {
	store := memory.New()
	fwd := &recordingForwarder{}
	d := NewDispatcher(store, fwd, discardLogger(), nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	d.Emit("user-1", domain.NotificationApplicationAccepted, "Your application was accepted!", &domain.RelatedRef{ID: "op-1", Kind: domain.RelatedOpening})

	require.Eventually(t, func() bool { return fwd.count() == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	<-done

	list, err := store.ListNotifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.NotificationApplicationAccepted, list[0].Type)
	assert.False(t, list[0].Read)
	require.NotNil(t, list[0].Related)
	assert.Equal(t, "op-1", list[0].Related.ID)
}

func TestDispatcherDrainsOnShutdown(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, nil, discardLogger(), nil, 8)

	for i := 0; i < 3; i++ {
		d.Emit("user-1", domain.NotificationTeamMessage, "new message", nil)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	n, err := store.CountUnreadNotifications(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, nil, discardLogger(), nil, 1)

	d.Emit("user-1", domain.NotificationTeamMessage, "first", nil)
	d.Emit("user-1", domain.NotificationTeamMessage, "second", nil)
	d.Emit("", domain.NotificationTeamMessage, "nobody", nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	list, err := store.ListNotifications(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "first", list[0].Message)
}

func TestDispatcherForwardFailureKeepsRecord(t *testing.T) {
	store := memory.New()
	fwd := &recordingForwarder{fail: errors.New("webhook down")}
	d := NewDispatcher(store, fwd, discardLogger(), nil, 4)

	d.Emit("user-1", domain.NotificationApplicationRejected, "Your application was not accepted", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	assert.Equal(t, 1, fwd.count())
	n, err := store.CountUnreadNotifications(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestEmitTruncatesMessage(t *testing.T) {
	store := memory.New()
	d := NewDispatcher(store, nil, discardLogger(), nil, 1)

	d.Emit("user-1", domain.NotificationTeamMessage, strings.Repeat("é", domain.MaxNotificationLength+20), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Run(ctx)

	list, err := store.ListNotifications(context.Background(), "user-1", 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.MaxNotificationLength, len([]rune(list[0].Message)))
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	assert.NotPanics(t, func() {
		d.Emit("user-1", domain.NotificationTeamMessage, "x", nil)
	})
}
