package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/metrics"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/team"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/ws"
)

const (
	previewLength       = 80
	defaultEventTimeout = 10 * time.Second
)

// Notifier receives fire-and-forget notifications.
type Notifier interface {
	Emit(recipientID string, kind domain.NotificationType, message string, related *domain.RelatedRef)
}

// Config tunes the chat service.
type Config struct {
	HistoryLimit int
	// EventTimeout bounds the handling of one socket event.
	EventTimeout time.Duration
}

// Service runs team chat rooms on top of the websocket hub.
type Service struct {
	store        repository.Store
	teams        team.Service
	hub          *ws.Hub
	notifier     Notifier
	metrics      *metrics.Metrics
	logger       *slog.Logger
	historyLimit int
	eventTimeout time.Duration
	sequencers   *roomLocks
	now          func() time.Time
}

// New constructs a Service.
func New(store repository.Store, teams team.Service, hub *ws.Hub, notifier Notifier, m *metrics.Metrics, logger *slog.Logger, cfg Config) Service {
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = domain.DefaultHistorySize
	}
	timeout := cfg.EventTimeout
	if timeout <= 0 {
		timeout = defaultEventTimeout
	}
	return Service{
		store:        store,
		teams:        teams,
		hub:          hub,
		notifier:     notifier,
		metrics:      m,
		logger:       logger,
		historyLimit: limit,
		eventTimeout: timeout,
		sequencers:   newRoomLocks(),
		now:          time.Now,
	}
}

// Join subscribes conn to a team room and catches its user up on unread
// messages.
func (s Service) Join(ctx context.Context, conn ws.Subscriber, teamID string) error {
	t, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return err
	}
	if !t.IsMember(conn.UserID()) {
		return domain.ErrNotTeamMember
	}
	s.hub.Join(teamID, conn)
	s.logger.Debug("joined team room", "team_id", teamID, "user_id", conn.UserID())
	if _, err := s.MarkRead(ctx, teamID, conn.UserID()); err != nil {
		s.logger.Warn("mark read on join failed", "team_id", teamID, "user_id", conn.UserID(), "error", err)
	}
	return nil
}

// Leave unsubscribes conn from a room. Leaving a room not joined is a no-op.
func (s Service) Leave(conn ws.Subscriber, teamID string) {
	s.hub.Leave(teamID, conn)
}

// Disconnect removes conn from every room.
func (s Service) Disconnect(conn ws.Subscriber) {
	rooms := s.hub.LeaveAll(conn)
	s.logger.Debug("connection left rooms", "user_id", conn.UserID(), "rooms", len(rooms))
}

// Post publishes content from a connection that joined the room.
func (s Service) Post(ctx context.Context, conn ws.Subscriber, teamID, content string) (*domain.Message, error) {
	if !s.hub.IsJoined(teamID, conn) {
		return nil, domain.ErrNotInRoom
	}
	t, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return s.post(ctx, t, conn.UserID(), content)
}

// PostAs publishes content for userID without a live connection.
func (s Service) PostAs(ctx context.Context, userID, teamID, content string) (*domain.Message, error) {
	t, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.IsMember(userID) {
		return nil, domain.ErrNotInRoom
	}
	return s.post(ctx, t, userID, content)
}

func (s Service) post(ctx context.Context, t *domain.Team, senderID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	switch n := utf8.RuneCountInString(content); {
	case n == 0:
		return nil, domain.Invalid("content", "is required")
	case n > domain.MaxMessageLength:
		return nil, domain.Invalid("content", fmt.Sprintf("must be at most %d characters", domain.MaxMessageLength))
	}

	msg := &domain.Message{
		ID:       uuid.NewString(),
		TeamID:   t.ID,
		SenderID: senderID,
		Content:  content,
		ReadBy:   []string{senderID},
	}

	unlock := s.sequence(t.ID)
	msg.CreatedAt = s.now().UTC()
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		unlock()
		return nil, fmt.Errorf("create message: %w", err)
	}
	delivered := s.broadcast(t.ID, nil, ws.EventNewMessage, msg)
	unlock()

	s.metrics.MessagePosted()
	s.logger.Debug("message posted", "team_id", t.ID, "message_id", msg.ID, "sender_id", senderID, "delivered", delivered)
	s.notifyOffline(ctx, t, msg)
	return msg, nil
}

// sequence serialises persist and broadcast per room so every member sees
// messages in the order the server accepted them.
func (s Service) sequence(teamID string) func() {
	return s.sequencers.acquire(teamID)
}

// roomLocks hands out one mutex per room. An entry lives only while someone
// holds or waits for it.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{rooms: make(map[string]*roomLock)}
}

func (l *roomLocks) acquire(roomID string) func() {
	l.mu.Lock()
	rl, ok := l.rooms[roomID]
	if !ok {
		rl = &roomLock{}
		l.rooms[roomID] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()
	return func() {
		rl.mu.Unlock()
		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.rooms, roomID)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rooms)
}

func (s Service) notifyOffline(ctx context.Context, t *domain.Team, msg *domain.Message) {
	if s.notifier == nil {
		return
	}
	online := s.hub.ConnectedUsers(t.ID)
	senderName := "A teammate"
	if u, err := s.store.GetUserByID(ctx, msg.SenderID); err == nil && u.Name != "" {
		senderName = u.Name
	}
	text := fmt.Sprintf("%s: %s", senderName, preview(msg.Content))
	related := &domain.RelatedRef{ID: t.ID, Kind: domain.RelatedTeam}
	for _, id := range t.Participants() {
		if id == msg.SenderID {
			continue
		}
		if _, ok := online[id]; ok {
			continue
		}
		s.notifier.Emit(id, domain.NotificationTeamMessage, text, related)
	}
}

// MarkRead records userID as a reader of every team message sent by others
// and announces the newly read ids to the room.
func (s Service) MarkRead(ctx context.Context, teamID, userID string) ([]string, error) {
	ids, err := s.store.MarkMessagesRead(ctx, teamID, userID)
	if err != nil {
		return nil, fmt.Errorf("mark messages read: %w", err)
	}
	if len(ids) > 0 {
		s.metrics.MessagesRead(len(ids))
		s.broadcast(teamID, nil, ws.EventMessagesRead, ws.MessagesReadEvent{
			UserID:     userID,
			TeamID:     teamID,
			MessageIDs: ids,
		})
	}
	return ids, nil
}

// UnreadCount counts team messages from others that userID has not read.
func (s Service) UnreadCount(ctx context.Context, teamID, userID string) (int, error) {
	n, err := s.store.CountUnread(ctx, teamID, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// History returns the most recent messages of a team, oldest first, and
// marks them read for userID.
func (s Service) History(ctx context.Context, teamID, userID string) ([]domain.Message, error) {
	t, err := s.teams.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !t.IsMember(userID) {
		return nil, domain.ErrNotTeamMember
	}
	if _, err := s.MarkRead(ctx, teamID, userID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListRecentMessages(ctx, teamID, s.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Stats summarises unread counts and last activity for every team of userID.
func (s Service) Stats(ctx context.Context, userID string) ([]domain.TeamStats, error) {
	teams, err := s.store.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	out := make([]domain.TeamStats, 0, len(teams))
	for _, t := range teams {
		unread, err := s.UnreadCount(ctx, t.ID, userID)
		if err != nil {
			return nil, err
		}
		last, err := s.store.LastMessageTime(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("last message time: %w", err)
		}
		out = append(out, domain.TeamStats{TeamID: t.ID, UnreadCount: unread, LastMessageTime: last})
	}
	return out, nil
}

// Typing tells the rest of the room that conn's user is typing.
func (s Service) Typing(conn ws.Subscriber, teamID, userName string) error {
	if !s.hub.IsJoined(teamID, conn) {
		return domain.ErrNotInRoom
	}
	if userName == "" {
		if named, ok := conn.(interface{ UserName() string }); ok {
			userName = named.UserName()
		}
	}
	s.broadcast(teamID, conn, ws.EventUserTyping, ws.UserTypingEvent{UserID: conn.UserID(), UserName: userName, TeamID: teamID})
	return nil
}

// StopTyping clears the typing indicator of conn's user.
func (s Service) StopTyping(conn ws.Subscriber, teamID string) error {
	if !s.hub.IsJoined(teamID, conn) {
		return domain.ErrNotInRoom
	}
	s.broadcast(teamID, conn, ws.EventUserStopTyping, ws.UserTypingEvent{UserID: conn.UserID(), TeamID: teamID})
	return nil
}

func (s Service) broadcast(teamID string, skip ws.Subscriber, event string, data any) int {
	payload, err := ws.Encode(event, data)
	if err != nil {
		s.logger.Error("encode event failed", "event", event, "error", err)
		return 0
	}
	return s.hub.BroadcastExcept(teamID, skip, payload)
}

func preview(content string) string {
	if utf8.RuneCountInString(content) <= previewLength {
		return content
	}
	return string([]rune(content)[:previewLength]) + "..."
}

// errorCode returns the client facing code of err.
func errorCode(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Code
	}
	if errors.Is(err, domain.ErrValidation) {
		return "VALIDATION_ERROR"
	}
	if errors.Is(err, ws.ErrMalformedFrame) {
		return "BAD_REQUEST"
	}
	return "INTERNAL_ERROR"
}
