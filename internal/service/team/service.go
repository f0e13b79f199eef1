package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

// Service handles team workflows.
type Service struct {
	store  repository.Store
	logger *slog.Logger
}

// New constructs a Service.
func New(store repository.Store, logger *slog.Logger) Service {
	return Service{store: store, logger: logger}
}

// Admit adds memberID to the team of openingID, creating the team on first
// admission.
func (s Service) Admit(ctx context.Context, openingID, ownerID, memberID string) (*domain.Team, error) {
	var team *domain.Team
	err := s.store.InTx(ctx, func(tx repository.Store) error {
		var err error
		team, err = s.AdmitTx(ctx, tx, openingID, ownerID, memberID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// AdmitTx performs Admit inside the caller's transaction. Concurrent calls
// for one opening converge on a single team, and a member already present
// is not added twice. A team whose members would outnumber the opening's
// slots fails with ErrCapacityViolation and the caller must roll back.
func (s Service) AdmitTx(ctx context.Context, tx repository.Store, openingID, ownerID, memberID string) (*domain.Team, error) {
	verr := &domain.ValidationError{}
	if openingID == "" {
		verr.Add("openingId", "is required")
	}
	if ownerID == "" {
		verr.Add("ownerId", "is required")
	}
	if memberID == "" {
		verr.Add("memberId", "is required")
	} else if memberID == ownerID {
		verr.Add("memberId", "cannot be the team owner")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	opening, err := tx.GetOpeningByID(ctx, openingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOpeningNotFound
		}
		return nil, fmt.Errorf("load opening: %w", err)
	}

	team, err := tx.UpsertTeamMember(ctx, openingID, ownerID, memberID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("upsert team member: %w", err)
	}
	if len(team.Members) > opening.TotalSlots {
		s.logger.Warn("team capacity exceeded",
			"team_id", team.ID,
			"opening_id", openingID,
			"members", len(team.Members),
			"total_slots", opening.TotalSlots,
		)
		return nil, domain.ErrCapacityViolation
	}
	s.logger.Info("team member admitted", "team_id", team.ID, "opening_id", openingID, "member_id", memberID)
	return team, nil
}

// Get loads a team by id.
func (s Service) Get(ctx context.Context, teamID string) (*domain.Team, error) {
	team, err := s.store.GetTeamByID(ctx, teamID)
	if err != nil {
		return nil, mapTeamError(err)
	}
	return team, nil
}

// GetByOpening loads the team formed for openingID.
func (s Service) GetByOpening(ctx context.Context, openingID string) (*domain.Team, error) {
	team, err := s.store.GetTeamByOpening(ctx, openingID)
	if err != nil {
		return nil, mapTeamError(err)
	}
	return team, nil
}

// GetForUser returns the resolved team when userID belongs to it.
func (s Service) GetForUser(ctx context.Context, teamID, userID string) (*domain.TeamView, error) {
	team, err := s.Get(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(userID) {
		return nil, domain.ErrNotTeamMember
	}
	return s.view(ctx, team)
}

// GetByOpeningForUser returns the resolved team of openingID when userID
// belongs to it.
func (s Service) GetByOpeningForUser(ctx context.Context, openingID, userID string) (*domain.TeamView, error) {
	team, err := s.GetByOpening(ctx, openingID)
	if err != nil {
		return nil, err
	}
	if !team.IsMember(userID) {
		return nil, domain.ErrNotTeamMember
	}
	return s.view(ctx, team)
}

// ListForUser returns every team userID owns or joined, newest first.
func (s Service) ListForUser(ctx context.Context, userID string) ([]domain.TeamView, error) {
	teams, err := s.store.ListTeamsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	out := make([]domain.TeamView, 0, len(teams))
	for i := range teams {
		v, err := s.view(ctx, &teams[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, nil
}

func (s Service) view(ctx context.Context, team *domain.Team) (*domain.TeamView, error) {
	opening, err := s.store.GetOpeningByID(ctx, team.OpeningID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOpeningNotFound
		}
		return nil, fmt.Errorf("load opening: %w", err)
	}
	users, err := s.store.ListUsersByIDs(ctx, team.Participants())
	if err != nil {
		return nil, fmt.Errorf("load team users: %w", err)
	}
	byID := make(map[string]domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	profile := func(id string) domain.Profile {
		if u, ok := byID[id]; ok {
			return u.Profile()
		}
		return domain.Profile{ID: id}
	}

	members := make([]domain.Profile, 0, len(team.Members))
	for _, id := range team.Members {
		members = append(members, profile(id))
	}
	return &domain.TeamView{
		ID:        team.ID,
		Opening:   opening.Summary(),
		Owner:     profile(team.OwnerID),
		Members:   members,
		CreatedAt: team.CreatedAt,
	}, nil
}

func mapTeamError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return domain.ErrTeamNotFound
	}
	return fmt.Errorf("load team: %w", err)
}
