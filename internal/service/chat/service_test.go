package chat

import (
	"context"
	"encoding/json"
	"fmt"
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
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/team"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/ws"
)

type fakeConn struct {
	user string
	mu   sync.Mutex
	got  []ws.Frame
}

func (c *fakeConn) UserID() string { return c.user }
func (c *fakeConn) Close()         {}

func (c *fakeConn) Send(payload []byte) error {
	var f ws.Frame
	if err := json.Unmarshal(payload, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, f)
	return nil
}

func (c *fakeConn) frames(event string) []ws.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ws.Frame, 0)
	for _, f := range c.got {
		if f.Event == event {
			out = append(out, f)
		}
	}
	return out
}

type recordingNotifier struct {
	mu         sync.Mutex
	recipients []string
}

func (n *recordingNotifier) Emit(recipientID string, _ domain.NotificationType, _ string, _ *domain.RelatedRef) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.recipients = append(n.recipients, recipientID)
}

type fixture struct {
	svc      Service
	store    *memory.Store
	notifier *recordingNotifier
	teamID   string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, name := range []string{"owner", "alice", "bob", "eve"} {
		require.NoError(t, store.CreateUser(ctx, &domain.User{ID: name, Name: strings.ToUpper(name[:1]) + name[1:]}))
	}
	opening := domain.Opening{ID: "op-1", Title: "Rover", TotalSlots: 3, OwnerID: "owner"}
	require.NoError(t, store.CreateOpening(ctx, &opening))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	teams := team.New(store, log)
	_, err := teams.Admit(ctx, opening.ID, "owner", "alice")
	require.NoError(t, err)
	tm, err := teams.Admit(ctx, opening.ID, "owner", "bob")
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := New(store, teams, ws.NewHub(log), notifier, nil, log, Config{})
	return fixture{svc: svc, store: store, notifier: notifier, teamID: tm.ID}
}

func decode[T any](t *testing.T, f ws.Frame) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(f.Data, &out))
	return out
}

func TestJoinRequiresMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.Join(ctx, &fakeConn{user: "eve"}, f.teamID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = f.svc.Join(ctx, &fakeConn{user: "alice"}, "missing")
	assert.ErrorIs(t, err, domain.ErrTeamNotFound)

	require.NoError(t, f.svc.Join(ctx, &fakeConn{user: "owner"}, f.teamID))
}

func TestPostBroadcastsToRoom(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := &fakeConn{user: "alice"}
	aliceTab := &fakeConn{user: "alice"}
	bob := &fakeConn{user: "bob"}
	for _, c := range []*fakeConn{alice, aliceTab, bob} {
		require.NoError(t, f.svc.Join(ctx, c, f.teamID))
	}

	msg, err := f.svc.Post(ctx, alice, f.teamID, "hi")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, msg.ReadBy)

	for _, c := range []*fakeConn{alice, aliceTab, bob} {
		got := c.frames(ws.EventNewMessage)
		require.Len(t, got, 1)
		m := decode[domain.Message](t, got[0])
		assert.Equal(t, "hi", m.Content)
		assert.Equal(t, []string{"alice"}, m.ReadBy)
	}

	ids, err := f.svc.MarkRead(ctx, f.teamID, "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{msg.ID}, ids)

	receipts := alice.frames(ws.EventMessagesRead)
	require.Len(t, receipts, 1)
	ev := decode[ws.MessagesReadEvent](t, receipts[0])
	assert.Equal(t, "bob", ev.UserID)
	assert.Equal(t, []string{msg.ID}, ev.MessageIDs)

	ids, err = f.svc.MarkRead(ctx, f.teamID, "bob")
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Len(t, alice.frames(ws.EventMessagesRead), 1)

	// only the owner has no live connection
	assert.Equal(t, []string{"owner"}, f.notifier.recipients)
}

func TestPostRequiresJoinedRoomAndValidContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := &fakeConn{user: "alice"}

	_, err := f.svc.Post(ctx, alice, f.teamID, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.Join(ctx, alice, f.teamID))
	_, err = f.svc.Post(ctx, alice, f.teamID, "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = f.svc.Post(ctx, alice, f.teamID, strings.Repeat("x", domain.MaxMessageLength+1))
	assert.ErrorIs(t, err, domain.ErrValidation)

	f.svc.Leave(alice, f.teamID)
	f.svc.Leave(alice, f.teamID)
	_, err = f.svc.Post(ctx, alice, f.teamID, "hi")
	assert.ErrorIs(t, err, domain.ErrNotInRoom)

	_, err = f.svc.PostAs(ctx, "eve", f.teamID, "hi")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.PostAs(ctx, "owner", f.teamID, "from rest")
	require.NoError(t, err)
}

func TestConcurrentPostsKeepOneOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	conns := []*fakeConn{{user: "owner"}, {user: "alice"}, {user: "bob"}}
	for _, c := range conns {
		require.NoError(t, f.svc.Join(ctx, c, f.teamID))
	}

	var wg sync.WaitGroup
	for i, c := range conns {
		for j := 0; j < 20; j++ {
			wg.Add(1)
			go func(c *fakeConn, n int) {
				defer wg.Done()
				_, err := f.svc.Post(ctx, c, f.teamID, fmt.Sprintf("m-%d", n))
				assert.NoError(t, err)
			}(c, i*100+j)
		}
	}
	wg.Wait()
	assert.Zero(t, f.svc.sequencers.size())

	history, err := f.store.ListRecentMessages(ctx, f.teamID, 0)
	require.NoError(t, err)
	require.Len(t, history, 60)
	want := make([]string, len(history))
	for i, m := range history {
		want[i] = m.ID
	}
	for _, c := range conns {
		got := c.frames(ws.EventNewMessage)
		ids := make([]string, len(got))
		for i, fr := range got {
			ids[i] = decode[domain.Message](t, fr).ID
		}
		assert.Equal(t, want, ids)
	}
}

func TestConcurrentMarkReadKeepsEveryReader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_, err := f.svc.PostAs(ctx, "owner", f.teamID, fmt.Sprintf("update %d", i))
		require.NoError(t, err)
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, reader := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			<-start
			ids, err := f.svc.MarkRead(ctx, f.teamID, user)
			assert.NoError(t, err)
			assert.Len(t, ids, 10)
		}(reader)
	}
	close(start)
	wg.Wait()

	msgs, err := f.store.ListRecentMessages(ctx, f.teamID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	for _, m := range msgs {
		assert.ElementsMatch(t, []string{"owner", "alice", "bob"}, m.ReadBy, m.Content)
	}
}

func TestLateJoinerMissesEarlierMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bob := &fakeConn{user: "bob"}
	require.NoError(t, f.svc.Join(ctx, bob, f.teamID))

	_, err := f.svc.PostAs(ctx, "owner", f.teamID, "before alice")
	require.NoError(t, err)

	alice := &fakeConn{user: "alice"}
	require.NoError(t, f.svc.Join(ctx, alice, f.teamID))
	assert.Empty(t, alice.frames(ws.EventNewMessage))
	assert.Len(t, bob.frames(ws.EventNewMessage), 1)

	// joining catches up through receipts instead
	n, err := f.svc.UnreadCount(ctx, f.teamID, "alice")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.PostAs(ctx, "owner", f.teamID, "after alice")
	require.NoError(t, err)
	got := alice.frames(ws.EventNewMessage)
	require.Len(t, got, 1)
	assert.Equal(t, "after alice", decode[domain.Message](t, got[0]).Content)
}

func TestRoomLocksDropIdleRooms(t *testing.T) {
	locks := newRoomLocks()
	release := locks.acquire("team-1")

	acquired := make(chan func())
	go func() { acquired <- locks.acquire("team-1") }()

	select {
	case <-acquired:
		t.Fatal("second holder entered a held room")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 1, locks.size())

	release()
	second := <-acquired
	assert.Equal(t, 1, locks.size())
	second()
	assert.Zero(t, locks.size())
}

func TestHistoryMarksReadAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.svc.PostAs(ctx, "alice", f.teamID, fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	n, err := f.svc.UnreadCount(ctx, f.teamID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stats, err := f.svc.Stats(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 3, stats[0].UnreadCount)
	require.NotNil(t, stats[0].LastMessageTime)

	msgs, err := f.svc.History(ctx, f.teamID, "bob")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "note 0", msgs[0].Content)
	assert.True(t, msgs[2].ReadByUser("bob"))

	n, err = f.svc.UnreadCount(ctx, f.teamID, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.History(ctx, f.teamID, "eve")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	stats, err = f.svc.Stats(ctx, "eve")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestTypingSkipsSender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := &fakeConn{user: "alice"}
	bob := &fakeConn{user: "bob"}
	require.NoError(t, f.svc.Join(ctx, alice, f.teamID))
	require.NoError(t, f.svc.Join(ctx, bob, f.teamID))

	require.NoError(t, f.svc.Typing(alice, f.teamID, "Alice"))
	require.NoError(t, f.svc.StopTyping(alice, f.teamID))

	assert.Empty(t, alice.frames(ws.EventUserTyping))
	typing := bob.frames(ws.EventUserTyping)
	require.Len(t, typing, 1)
	assert.Equal(t, "Alice", decode[ws.UserTypingEvent](t, typing[0]).UserName)
	assert.Len(t, bob.frames(ws.EventUserStopTyping), 1)

	assert.ErrorIs(t, f.svc.Typing(&fakeConn{user: "eve"}, f.teamID, "Eve"), domain.ErrNotInRoom)
}

func TestHandleFrame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := &fakeConn{user: "alice"}
	bob := &fakeConn{user: "bob"}
	eve := &fakeConn{user: "eve"}

	f.svc.HandleFrame(ctx, alice, []byte(fmt.Sprintf(`{"event":"join-team","data":%q}`, f.teamID)))
	f.svc.HandleFrame(ctx, bob, []byte(fmt.Sprintf(`{"event":"join-team","data":{"teamId":%q}}`, f.teamID)))
	require.Len(t, alice.frames(ws.EventJoinedTeam), 1)

	f.svc.HandleFrame(ctx, alice, []byte(fmt.Sprintf(`{"event":"send-message","data":{"teamId":%q,"content":"hello"}}`, f.teamID)))
	require.Len(t, bob.frames(ws.EventNewMessage), 1)

	f.svc.HandleFrame(ctx, bob, []byte(fmt.Sprintf(`{"event":"mark-messages-read","data":{"teamId":%q}}`, f.teamID)))
	require.Len(t, alice.frames(ws.EventMessagesRead), 1)

	f.svc.HandleFrame(ctx, eve, []byte(fmt.Sprintf(`{"event":"join-team","data":%q}`, f.teamID)))
	errs := eve.frames(ws.EventError)
	require.Len(t, errs, 1)
	ev := decode[ws.ErrorEvent](t, errs[0])
	assert.Equal(t, "NOT_TEAM_MEMBER", ev.Code)
	assert.Equal(t, "Not authorized to access this team", ev.Message)

	f.svc.HandleFrame(ctx, eve, []byte(`not json`))
	f.svc.HandleFrame(ctx, eve, []byte(`{"event":"dance"}`))
	errs = eve.frames(ws.EventError)
	require.Len(t, errs, 3)
	assert.Equal(t, "BAD_REQUEST", decode[ws.ErrorEvent](t, errs[1]).Code)
	assert.Equal(t, "UNKNOWN_EVENT", decode[ws.ErrorEvent](t, errs[2]).Code)

	f.svc.HandleFrame(ctx, alice, []byte(fmt.Sprintf(`{"event":"leave-team","data":%q}`, f.teamID)))
	f.svc.Disconnect(bob)
	f.svc.HandleFrame(ctx, alice, []byte(fmt.Sprintf(`{"event":"send-message","data":{"teamId":%q,"content":"again"}}`, f.teamID)))
	errs = alice.frames(ws.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Not authorized to send messages", decode[ws.ErrorEvent](t, errs[0]).Message)
}

type stallingStore struct {
	*memory.Store
}

func (s stallingStore) GetTeamByID(ctx context.Context, _ string) (*domain.Team, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestHandleFrameGivesUpOnStalledStorage(t *testing.T) {
	f := newFixture(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	stalled := stallingStore{Store: f.store}
	svc := New(stalled, team.New(stalled, log), ws.NewHub(log), nil, nil, log, Config{EventTimeout: 20 * time.Millisecond})
	alice := &fakeConn{user: "alice"}

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.HandleFrame(context.Background(), alice, []byte(fmt.Sprintf(`{"event":"join-team","data":%q}`, f.teamID)))
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame handling did not return")
	}

	errs := alice.frames(ws.EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "INTERNAL_ERROR", decode[ws.ErrorEvent](t, errs[0]).Code)
	assert.Empty(t, alice.frames(ws.EventJoinedTeam))
}
