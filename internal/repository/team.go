package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const teamColumns = `id, tournament_id, nation_code, group_label,
	points, wins, draws, losses, goals_for, goals_against, updated_at`

type teamRepo struct{}

// NewTeamRepository returns a pgx-backed TeamRepository.
func NewTeamRepository() TeamRepository {
	return &teamRepo{}
}

func (r *teamRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Team, error) {
	row := db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	return scanTeam(row)
}

func (r *teamRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Team, error) {
	row := tx.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)
	return scanTeam(row)
}

func (r *teamRepo) Create(ctx context.Context, db DBTX, team *domain.Team) error {
	_, err := db.Exec(ctx, `
		INSERT INTO teams (`+teamColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		team.ID, team.TournamentID, team.NationCode, team.GroupLabel,
		team.Points, team.Wins, team.Draws, team.Losses, team.GoalsFor, team.GoalsAgainst,
		team.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (r *teamRepo) UpdateTally(ctx context.Context, db DBTX, team *domain.Team) error {
	_, err := db.Exec(ctx, `
		UPDATE teams SET
			points = $2, wins = $3, draws = $4, losses = $5,
			goals_for = $6, goals_against = $7, updated_at = now()
		WHERE id = $1`,
		team.ID, team.Points, team.Wins, team.Draws, team.Losses, team.GoalsFor, team.GoalsAgainst,
	)
	if err != nil {
		return fmt.Errorf("update team tally: %w", err)
	}
	return nil
}

func (r *teamRepo) ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Team, error) {
	rows, err := db.Query(ctx, `
		SELECT `+teamColumns+`
		FROM teams
		WHERE tournament_id = $1
		ORDER BY group_label, nation_code`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	var out []domain.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func scanTeam(row pgx.Row) (*domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.TournamentID, &t.NationCode, &t.GroupLabel,
		&t.Points, &t.Wins, &t.Draws, &t.Losses, &t.GoalsFor, &t.GoalsAgainst, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan team: %w", err)
	}
	return &t, nil
}
