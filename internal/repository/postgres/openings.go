package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
	"github.com/Dheeraj-Reddy-07/StackUp/internal/repository"
)

const openingColumns = `id, title, total_slots, filled_slots, status, owner_id, created_at`

func scanOpening(row pgx.Row) (*domain.Opening, error) {
	var o domain.Opening
	if err := row.Scan(&o.ID, &o.Title, &o.TotalSlots, &o.FilledSlots, &o.Status, &o.OwnerID, &o.CreatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOpening inserts an opening.
func (r *Repository) CreateOpening(ctx context.Context, opening *domain.Opening) error {
	if opening.Status == "" {
		opening.Status = domain.OpeningOpen
	}
	if err := opening.Validate(); err != nil {
		return err
	}
	const query = `INSERT INTO openings (id, title, total_slots, filled_slots, status, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query, opening.ID, opening.Title, opening.TotalSlots, opening.FilledSlots, opening.Status, opening.OwnerID, opening.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert opening: %w", mapWriteError(err))
	}
	return nil
}

// GetOpeningByID fetches an opening.
func (r *Repository) GetOpeningByID(ctx context.Context, id string) (*domain.Opening, error) {
	query := `SELECT ` + openingColumns + ` FROM openings WHERE id = $1`
	o, err := scanOpening(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return o, nil
}

// IncrementFilledSlots bumps filled_slots in one guarded statement so that
// concurrent accepts can never push it past total_slots.
func (r *Repository) IncrementFilledSlots(ctx context.Context, id string) (*domain.Opening, error) {
	query := `UPDATE openings SET filled_slots = filled_slots + 1
		WHERE id = $1 AND filled_slots < total_slots
		RETURNING ` + openingColumns
	o, err := scanOpening(r.db.QueryRow(ctx, query, id))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("increment filled slots: %w", mapReadError(err))
	}
	if _, err := r.GetOpeningByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, repository.ErrConditionFailed
}
