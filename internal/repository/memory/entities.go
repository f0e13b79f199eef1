package memory

import (
	"context"
	"time"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

// CreateUser stores a user, replacing any previous record with the same id.
func (s *Store) CreateUser(_ context.Context, user *domain.User) error {
	defer s.lock()()
	if user.ID == "" {
		user.ID = newID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now().UTC()
	}
	s.save(tableUsers)
	s.st.users[user.ID] = *user
	return nil
}

// GetUserByID fetches a user.
func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	defer s.lock()()
	u, ok := s.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// ListUsersByIDs returns the users that exist, in the order requested.
func (s *Store) ListUsersByIDs(_ context.Context, ids []string) ([]domain.User, error) {
	defer s.lock()()
	out := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.st.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// CreateOpening stores an opening.
func (s *Store) CreateOpening(_ context.Context, opening *domain.Opening) error {
	if opening.Status == "" {
		opening.Status = domain.OpeningOpen
	}
	if err := opening.Validate(); err != nil {
		return err
	}
	defer s.lock()()
	if opening.ID == "" {
		opening.ID = newID()
	}
	if opening.CreatedAt.IsZero() {
		opening.CreatedAt = s.now().UTC()
	}
	if _, exists := s.st.openings[opening.ID]; exists {
		return repository.ErrConflict
	}
	s.save(tableOpenings)
	s.st.openings[opening.ID] = *opening
	return nil
}

// GetOpeningByID fetches an opening.
func (s *Store) GetOpeningByID(_ context.Context, id string) (*domain.Opening, error) {
	defer s.lock()()
	o, ok := s.st.openings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &o, nil
}

// IncrementFilledSlots bumps filled slots when one is still free.
func (s *Store) IncrementFilledSlots(_ context.Context, id string) (*domain.Opening, error) {
	defer s.lock()()
	o, ok := s.st.openings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.FilledSlots >= o.TotalSlots {
		return nil, repository.ErrConditionFailed
	}
	s.save(tableOpenings)
	o.FilledSlots++
	s.st.openings[id] = o
	return &o, nil
}

// CreateApplication stores an application unless the applicant already applied.
func (s *Store) CreateApplication(_ context.Context, app *domain.Application) error {
	defer s.lock()()
	if _, ok := s.st.openings[app.OpeningID]; !ok {
		return repository.ErrNotFound
	}
	for _, existing := range s.st.applications {
		if existing.OpeningID == app.OpeningID && existing.ApplicantID == app.ApplicantID {
			return repository.ErrConflict
		}
	}
	if app.ID == "" {
		app.ID = newID()
	}
	now := s.now().UTC()
	if app.CreatedAt.IsZero() {
		app.CreatedAt = now
	}
	app.UpdatedAt = app.CreatedAt
	s.save(tableApplications)
	s.st.applications[app.ID] = *app
	s.st.applicationOrder = append(s.st.applicationOrder, app.ID)
	return nil
}

// GetApplicationByID fetches an application.
func (s *Store) GetApplicationByID(_ context.Context, id string) (*domain.Application, error) {
	defer s.lock()()
	a, ok := s.st.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

// FindApplication fetches the application of applicantID for openingID.
func (s *Store) FindApplication(_ context.Context, openingID, applicantID string) (*domain.Application, error) {
	defer s.lock()()
	for _, a := range s.st.applications {
		if a.OpeningID == openingID && a.ApplicantID == applicantID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

// TransitionApplication moves a pending application to status.
func (s *Store) TransitionApplication(_ context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	defer s.lock()()
	a, ok := s.st.applications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !domain.CanTransition(a.Status, status) {
		return nil, repository.ErrConditionFailed
	}
	s.save(tableApplications)
	a.Status = status
	a.UpdatedAt = s.now().UTC()
	s.st.applications[id] = a
	return &a, nil
}

// ListApplicationsByApplicant returns an applicant's applications, newest first.
func (s *Store) ListApplicationsByApplicant(_ context.Context, applicantID string) ([]domain.Application, error) {
	defer s.lock()()
	return s.listApplications(func(a domain.Application) bool { return a.ApplicantID == applicantID }), nil
}

// ListApplicationsByOpening returns an opening's applications, newest first.
func (s *Store) ListApplicationsByOpening(_ context.Context, openingID string) ([]domain.Application, error) {
	defer s.lock()()
	return s.listApplications(func(a domain.Application) bool { return a.OpeningID == openingID }), nil
}

func (s *Store) listApplications(match func(domain.Application) bool) []domain.Application {
	out := make([]domain.Application, 0)
	for i := len(s.st.applicationOrder) - 1; i >= 0; i-- {
		a := s.st.applications[s.st.applicationOrder[i]]
		if match(a) {
			out = append(out, a)
		}
	}
	return out
}

// UpsertTeamMember creates the opening's team on first use and adds memberID.
func (s *Store) UpsertTeamMember(_ context.Context, openingID, ownerID, memberID string) (*domain.Team, error) {
	defer s.lock()()
	s.save(tableTeams)
	var team domain.Team
	found := false
	for _, t := range s.st.teams {
		if t.OpeningID == openingID {
			team, found = copyTeam(t), true
			break
		}
	}
	if !found {
		team = domain.Team{
			ID:        newID(),
			OpeningID: openingID,
			OwnerID:   ownerID,
			Members:   []string{},
			CreatedAt: s.now().UTC(),
		}
		s.st.teamOrder = append(s.st.teamOrder, team.ID)
	}
	if !contains(team.Members, memberID) {
		team.Members = append(team.Members, memberID)
	}
	s.st.teams[team.ID] = copyTeam(team)
	return &team, nil
}

// GetTeamByID fetches a team.
func (s *Store) GetTeamByID(_ context.Context, id string) (*domain.Team, error) {
	defer s.lock()()
	t, ok := s.st.teams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyTeam(t)
	return &cp, nil
}

// GetTeamByOpening fetches the team formed for an opening.
func (s *Store) GetTeamByOpening(_ context.Context, openingID string) (*domain.Team, error) {
	defer s.lock()()
	for _, t := range s.st.teams {
		if t.OpeningID == openingID {
			cp := copyTeam(t)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListTeamsByUser returns teams the user owns or belongs to, newest first.
func (s *Store) ListTeamsByUser(_ context.Context, userID string) ([]domain.Team, error) {
	defer s.lock()()
	out := make([]domain.Team, 0)
	for i := len(s.st.teamOrder) - 1; i >= 0; i-- {
		t := s.st.teams[s.st.teamOrder[i]]
		if t.IsMember(userID) {
			out = append(out, copyTeam(t))
		}
	}
	return out, nil
}

// CreateMessage appends a message to its team's log.
func (s *Store) CreateMessage(_ context.Context, msg *domain.Message) error {
	defer s.lock()()
	if msg.ID == "" {
		msg.ID = newID()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now().UTC()
	}
	if len(msg.ReadBy) == 0 {
		msg.ReadBy = []string{msg.SenderID}
	}
	s.save(tableMessages)
	s.st.messages[msg.TeamID] = append(s.st.messages[msg.TeamID], copyMessage(*msg))
	return nil
}

// ListRecentMessages returns the newest limit messages, oldest first.
func (s *Store) ListRecentMessages(_ context.Context, teamID string, limit int) ([]domain.Message, error) {
	defer s.lock()()
	msgs := s.st.messages[teamID]
	start := 0
	if limit > 0 && len(msgs) > limit {
		start = len(msgs) - limit
	}
	out := make([]domain.Message, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

// MarkMessagesRead adds userID to readBy of the team's messages sent by others.
func (s *Store) MarkMessagesRead(_ context.Context, teamID, userID string) ([]string, error) {
	defer s.lock()()
	s.save(tableMessages)
	msgs := s.st.messages[teamID]
	updated := make([]string, 0)
	for i := range msgs {
		if msgs[i].SenderID == userID || contains(msgs[i].ReadBy, userID) {
			continue
		}
		msgs[i].ReadBy = append(msgs[i].ReadBy, userID)
		updated = append(updated, msgs[i].ID)
	}
	return updated, nil
}

// CountUnread counts messages from others that userID has not read.
func (s *Store) CountUnread(_ context.Context, teamID, userID string) (int, error) {
	defer s.lock()()
	count := 0
	for _, m := range s.st.messages[teamID] {
		if m.SenderID != userID && !contains(m.ReadBy, userID) {
			count++
		}
	}
	return count, nil
}

// LastMessageTime returns when the team's newest message was posted.
func (s *Store) LastMessageTime(_ context.Context, teamID string) (*time.Time, error) {
	defer s.lock()()
	msgs := s.st.messages[teamID]
	if len(msgs) == 0 {
		return nil, nil
	}
	ts := msgs[len(msgs)-1].CreatedAt
	return &ts, nil
}

// CreateNotification stores a notification.
func (s *Store) CreateNotification(_ context.Context, n *domain.Notification) error {
	defer s.lock()()
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	s.save(tableNotifications)
	s.st.notifications[n.ID] = copyNotification(*n)
	s.st.notificationOrder = append(s.st.notificationOrder, n.ID)
	return nil
}

// GetNotificationByID fetches a notification.
func (s *Store) GetNotificationByID(_ context.Context, id string) (*domain.Notification, error) {
	defer s.lock()()
	n, ok := s.st.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := copyNotification(n)
	return &cp, nil
}

// ListNotifications returns the recipient's newest notifications first.
func (s *Store) ListNotifications(_ context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	defer s.lock()()
	out := make([]domain.Notification, 0)
	for i := len(s.st.notificationOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		n := s.st.notifications[s.st.notificationOrder[i]]
		if n.RecipientID == recipientID {
			out = append(out, copyNotification(n))
		}
	}
	return out, nil
}

// CountUnreadNotifications counts unread notifications of a recipient.
func (s *Store) CountUnreadNotifications(_ context.Context, recipientID string) (int, error) {
	defer s.lock()()
	count := 0
	for _, n := range s.st.notifications {
		if n.RecipientID == recipientID && !n.Read {
			count++
		}
	}
	return count, nil
}

// MarkNotificationRead flags a notification as read.
func (s *Store) MarkNotificationRead(_ context.Context, id string) (*domain.Notification, error) {
	defer s.lock()()
	n, ok := s.st.notifications[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	s.save(tableNotifications)
	n.Read = true
	s.st.notifications[id] = n
	cp := copyNotification(n)
	return &cp, nil
}

// MarkAllNotificationsRead flags every notification of a recipient as read.
func (s *Store) MarkAllNotificationsRead(_ context.Context, recipientID string) (int, error) {
	defer s.lock()()
	s.save(tableNotifications)
	changed := 0
	for id, n := range s.st.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			s.st.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

// DeleteNotification removes a notification.
func (s *Store) DeleteNotification(_ context.Context, id string) error {
	defer s.lock()()
	if _, ok := s.st.notifications[id]; !ok {
		return repository.ErrNotFound
	}
	s.save(tableNotifications)
	delete(s.st.notifications, id)
	s.st.notificationOrder = removeID(s.st.notificationOrder, id)
	return nil
}
