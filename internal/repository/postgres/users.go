package postgres

import (
	"context"
	"fmt"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
)

// CreateUser inserts or refreshes a user mirrored from the identity service.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, name, email, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`
	if _, err := r.db.Exec(ctx, query, user.ID, user.Name, user.Email, user.CreatedAt); err != nil {
		return fmt.Errorf("insert user: %w", mapWriteError(err))
	}
	return nil
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, name, email, created_at FROM users WHERE id = $1`
	var u domain.User
	if err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
		return nil, mapReadError(err)
	}
	return &u, nil
}

// ListUsersByIDs returns the users that exist, in the order requested.
func (r *Repository) ListUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	if len(ids) == 0 {
		return []domain.User{}, nil
	}
	const query = `SELECT id, name, email, created_at FROM users WHERE id = ANY($1::uuid[])`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", mapReadError(err))
	}
	defer rows.Close()

	byID := make(map[string]domain.User, len(ids))
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	users := make([]domain.User, 0, len(byID))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}
