package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/metrics"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/service/team"
)

// Notifier receives fire-and-forget notifications.
type Notifier interface {
	Emit(recipientID string, kind domain.NotificationType, message string, related *domain.RelatedRef)
}

// Service drives applications from submission to a terminal status.
type Service struct {
	store    repository.Store
	teams    team.Service
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// New constructs a Service.
func New(store repository.Store, teams team.Service, notifier Notifier, m *metrics.Metrics, logger *slog.Logger) Service {
	return Service{
		store:    store,
		teams:    teams,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// SubmitInput carries an applicant's request.
type SubmitInput struct {
	OpeningID   string `json:"openingId"`
	ApplicantID string `json:"-"`
	Message     string `json:"message"`
	ResumeRef   string `json:"resumeRef"`
}

func (in SubmitInput) validate() error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(in.OpeningID) == "" {
		verr.Add("openingId", "is required")
	}
	if strings.TrimSpace(in.ApplicantID) == "" {
		verr.Add("applicantId", "is required")
	}
	switch n := utf8.RuneCountInString(strings.TrimSpace(in.Message)); {
	case n == 0:
		verr.Add("message", "is required")
	case n > domain.MaxApplicationMessageLength:
		verr.Add("message", fmt.Sprintf("must be at most %d characters", domain.MaxApplicationMessageLength))
	}
	if len(in.ResumeRef) > domain.MaxResumeRefLength {
		verr.Add("resumeRef", fmt.Sprintf("must be at most %d characters", domain.MaxResumeRefLength))
	}
	return verr.OrNil()
}

// Submit records a pending application and notifies the opening owner.
func (s Service) Submit(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	opening, err := s.loadOpening(ctx, s.store, in.OpeningID)
	if err != nil {
		return nil, err
	}
	if opening.Status != domain.OpeningOpen {
		return nil, domain.ErrOpeningClosed
	}
	if opening.AvailableSlots() == 0 {
		return nil, domain.ErrSlotsExhausted
	}
	if opening.OwnerID == in.ApplicantID {
		return nil, domain.ErrSelfApplication
	}
	if _, err := s.store.FindApplication(ctx, opening.ID, in.ApplicantID); err == nil {
		return nil, domain.ErrDuplicate
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find application: %w", err)
	}

	applicant, err := s.store.GetUserByID(ctx, in.ApplicantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("load applicant: %w", err)
	}

	now := s.now().UTC()
	app := &domain.Application{
		ID:          uuid.NewString(),
		OpeningID:   opening.ID,
		ApplicantID: in.ApplicantID,
		Message:     strings.TrimSpace(in.Message),
		ResumeRef:   strings.TrimSpace(in.ResumeRef),
		Status:      domain.ApplicationPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateApplication(ctx, app); err != nil {
		switch {
		case errors.Is(err, repository.ErrConflict):
			return nil, domain.ErrDuplicate
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.ErrOpeningNotFound
		}
		return nil, fmt.Errorf("create application: %w", err)
	}

	s.metrics.ApplicationTransition("submitted")
	s.logger.Info("application submitted", "application_id", app.ID, "opening_id", opening.ID, "applicant_id", app.ApplicantID)
	s.notify(opening.OwnerID, domain.NotificationApplicationReceived,
		fmt.Sprintf(`%s applied to "%s"`, applicant.Name, opening.Title), opening.ID)
	return app, nil
}

// Accept moves a pending application to accepted, consumes one slot and
// admits the applicant to the opening's team. The three writes commit
// together or not at all.
func (s Service) Accept(ctx context.Context, applicationID, actingUserID string) (*domain.Application, error) {
	app, opening, err := s.loadForReview(ctx, applicationID, actingUserID)
	if err != nil {
		return nil, err
	}
	if opening.AvailableSlots() == 0 {
		return nil, domain.ErrSlotsExhausted
	}

	var accepted *domain.Application
	err = s.store.InTx(ctx, func(tx repository.Store) error {
		updated, err := tx.TransitionApplication(ctx, app.ID, domain.ApplicationAccepted)
		if err != nil {
			return mapTransitionError(err)
		}
		if _, err := tx.IncrementFilledSlots(ctx, opening.ID); err != nil {
			if errors.Is(err, repository.ErrConditionFailed) {
				return domain.ErrSlotsExhausted
			}
			if errors.Is(err, repository.ErrNotFound) {
				return domain.ErrOpeningNotFound
			}
			return fmt.Errorf("increment filled slots: %w", err)
		}
		if _, err := s.teams.AdmitTx(ctx, tx, opening.ID, opening.OwnerID, app.ApplicantID); err != nil {
			return err
		}
		accepted = updated
		return nil
	})
	if err != nil {
		s.logger.Warn("accept application failed", "application_id", app.ID, "opening_id", opening.ID, "error", err)
		return nil, err
	}

	s.metrics.ApplicationTransition("accepted")
	s.logger.Info("application accepted", "application_id", app.ID, "opening_id", opening.ID, "applicant_id", app.ApplicantID)
	s.notify(app.ApplicantID, domain.NotificationApplicationAccepted,
		fmt.Sprintf(`Your application for "%s" was accepted!`, opening.Title), opening.ID)
	return accepted, nil
}

// Reject moves a pending application to rejected.
func (s Service) Reject(ctx context.Context, applicationID, actingUserID string) (*domain.Application, error) {
	app, opening, err := s.loadForReview(ctx, applicationID, actingUserID)
	if err != nil {
		return nil, err
	}
	rejected, err := s.store.TransitionApplication(ctx, app.ID, domain.ApplicationRejected)
	if err != nil {
		return nil, mapTransitionError(err)
	}

	s.metrics.ApplicationTransition("rejected")
	s.logger.Info("application rejected", "application_id", app.ID, "opening_id", opening.ID, "applicant_id", app.ApplicantID)
	s.notify(app.ApplicantID, domain.NotificationApplicationRejected,
		fmt.Sprintf(`Your application for "%s" was not accepted`, opening.Title), opening.ID)
	return rejected, nil
}

// ListMine returns applicantID's applications, newest first.
func (s Service) ListMine(ctx context.Context, applicantID string) ([]domain.Application, error) {
	apps, err := s.store.ListApplicationsByApplicant(ctx, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

// ListForOpening returns every application to an opening. Only the owner
// may list them.
func (s Service) ListForOpening(ctx context.Context, openingID, actingUserID string) ([]domain.Application, error) {
	opening, err := s.loadOpening(ctx, s.store, openingID)
	if err != nil {
		return nil, err
	}
	if opening.OwnerID != actingUserID {
		return nil, domain.ErrNotOpeningOwner
	}
	apps, err := s.store.ListApplicationsByOpening(ctx, openingID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (s Service) loadForReview(ctx context.Context, applicationID, actingUserID string) (*domain.Application, *domain.Opening, error) {
	app, err := s.store.GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, domain.ErrApplicationNotFound
		}
		return nil, nil, fmt.Errorf("load application: %w", err)
	}
	opening, err := s.loadOpening(ctx, s.store, app.OpeningID)
	if err != nil {
		return nil, nil, err
	}
	if opening.OwnerID != actingUserID {
		return nil, nil, domain.ErrNotOpeningOwner
	}
	if app.Terminal() {
		return nil, nil, domain.ErrAlreadyProcessed
	}
	return app, opening, nil
}

func (s Service) loadOpening(ctx context.Context, repo repository.OpeningRepository, id string) (*domain.Opening, error) {
	opening, err := repo.GetOpeningByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrOpeningNotFound
		}
		return nil, fmt.Errorf("load opening: %w", err)
	}
	return opening, nil
}

func (s Service) notify(recipientID string, kind domain.NotificationType, message, openingID string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(recipientID, kind, message, &domain.RelatedRef{ID: openingID, Kind: domain.RelatedOpening})
}

func mapTransitionError(err error) error {
	switch {
	case errors.Is(err, repository.ErrConditionFailed):
		return domain.ErrAlreadyProcessed
	case errors.Is(err, repository.ErrNotFound):
		return domain.ErrApplicationNotFound
	}
	return fmt.Errorf("transition application: %w", err)
}
