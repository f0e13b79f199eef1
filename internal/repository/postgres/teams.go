package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Dheeraj-Reddy-07/StackUp/internal/domain"
)

const teamColumns = `t.id, t.opening_id, t.owner_id, t.created_at,
	ARRAY(SELECT tm.user_id::text FROM team_members tm WHERE tm.team_id = t.id ORDER BY tm.joined_at, tm.user_id)`

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	if err := row.Scan(&t.ID, &t.OpeningID, &t.OwnerID, &t.CreatedAt, &t.Members); err != nil {
		return nil, err
	}
	if t.Members == nil {
		t.Members = []string{}
	}
	return &t, nil
}

// UpsertTeamMember creates the opening's team on first use and adds
// memberID. The ON CONFLICT update takes the team row lock, so concurrent
// admits for one opening serialise and only one team row can exist.
func (r *Repository) UpsertTeamMember(ctx context.Context, openingID, ownerID, memberID string) (*domain.Team, error) {
	var team *domain.Team
	err := r.withTx(ctx, func(q querier) error {
		const upsertTeam = `INSERT INTO teams (id, opening_id, owner_id, created_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (opening_id) DO UPDATE SET opening_id = EXCLUDED.opening_id
			RETURNING id`
		var teamID string
		if err := q.QueryRow(ctx, upsertTeam, uuid.NewString(), openingID, ownerID).Scan(&teamID); err != nil {
			return fmt.Errorf("upsert team: %w", mapWriteError(err))
		}

		const addMember = `INSERT INTO team_members (team_id, user_id, joined_at)
			VALUES ($1, $2, clock_timestamp())
			ON CONFLICT (team_id, user_id) DO NOTHING`
		if _, err := q.Exec(ctx, addMember, teamID, memberID); err != nil {
			return fmt.Errorf("add team member: %w", mapWriteError(err))
		}

		query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
		t, err := scanTeam(q.QueryRow(ctx, query, teamID))
		if err != nil {
			return fmt.Errorf("reload team: %w", mapReadError(err))
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// GetTeamByID returns a team by identifier.
func (r *Repository) GetTeamByID(ctx context.Context, id string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.id = $1`
	t, err := scanTeam(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapReadError(err)
	}
	return t, nil
}

// GetTeamByOpening returns the team formed for an opening.
func (r *Repository) GetTeamByOpening(ctx context.Context, openingID string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.opening_id = $1`
	t, err := scanTeam(r.db.QueryRow(ctx, query, openingID))
	if err != nil {
		return nil, mapReadError(err)
	}
	return t, nil
}

// ListTeamsByUser returns teams the user owns or belongs to.
func (r *Repository) ListTeamsByUser(ctx context.Context, userID string) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + `
		FROM teams t
		WHERE t.owner_id = $1
		   OR EXISTS (SELECT 1 FROM team_members m WHERE m.team_id = t.id AND m.user_id = $1)
		ORDER BY t.created_at DESC`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", mapReadError(err))
	}
	defer rows.Close()

	teams := make([]domain.Team, 0)
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		teams = append(teams, *t)
	}
	return teams, rows.Err()
}
