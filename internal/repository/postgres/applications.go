package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

const applicationColumns = `id, opening_id, applicant_id, message, COALESCE(resume_ref, ''), status, created_at, updated_at`

func scanApplication(row pgx.Row) (*domain.Application, error) {
	var a domain.Application
	if err := row.Scan(&a.ID, &a.OpeningID, &a.ApplicantID, &a.Message, &a.ResumeRef, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateApplication inserts an application. The (opening_id, applicant_id)
// unique constraint surfaces as repository.ErrConflict.
func (r *Repository) CreateApplication(ctx context.Context, app *domain.Application) error {
	const query = `INSERT INTO applications (id, opening_id, applicant_id, message, resume_ref, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`
	_, err := r.db.Exec(ctx, query, app.ID, app.OpeningID, app.ApplicantID, app.Message, nilIfEmpty(app.ResumeRef), app.Status, app.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", mapWriteError(err))
	}
	app.UpdatedAt = app.CreatedAt
	return nil
}

// GetApplicationByID fetches an application.
func (r *Repository) GetApplicationByID(ctx context.Context, id string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	a, err := scanApplication(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return a, nil
}

// FindApplication fetches the application of applicantID for openingID.
func (r *Repository) FindApplication(ctx context.Context, openingID, applicantID string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE opening_id = $1 AND applicant_id = $2`
	a, err := scanApplication(r.db.QueryRow(ctx, query, openingID, applicantID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return a, nil
}

// TransitionApplication moves a pending application to status in one
// guarded statement.
func (r *Repository) TransitionApplication(ctx context.Context, id string, status domain.ApplicationStatus) (*domain.Application, error) {
	query := `UPDATE applications SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns
	a, err := scanApplication(r.db.QueryRow(ctx, query, id, status))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("transition application: %w", mapReadError(err))
	}
	if _, err := r.GetApplicationByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repository.ErrConditionFailed
}

// ListApplicationsByApplicant returns an applicant's applications, newest first.
func (r *Repository) ListApplicationsByApplicant(ctx context.Context, applicantID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE applicant_id = $1 ORDER BY created_at DESC`
	return r.listApplications(ctx, query, applicantID)
}

// ListApplicationsByOpening returns an opening's applications, newest first.
func (r *Repository) ListApplicationsByOpening(ctx context.Context, openingID string) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE opening_id = $1 ORDER BY created_at DESC`
	return r.listApplications(ctx, query, openingID)
}

func (r *Repository) listApplications(ctx context.Context, query string, arg string) ([]domain.Application, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query applications: %w", mapReadError(err))
	}
	defer rows.Close()

	apps := make([]domain.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}
