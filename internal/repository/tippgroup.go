package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type tippGroupRepo struct{}

// NewTippGroupRepository returns a pgx-backed TippGroupRepository.
func NewTippGroupRepository() TippGroupRepository {
	return &tippGroupRepo{}
}

func (r *tippGroupRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.TippGroup, error) {
	var g domain.TippGroup
	err := db.QueryRow(ctx, `
		SELECT g.id, g.tournament_id, g.name,
		       COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM tipp_groups g
		LEFT JOIN tipp_group_members m ON m.group_id = g.id
		WHERE g.id = $1
		GROUP BY g.id`, id).Scan(&g.ID, &g.TournamentID, &g.Name, &g.MemberIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tipp group: %w", err)
	}
	return &g, nil
}

func (r *tippGroupRepo) ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.TippGroup, error) {
	rows, err := db.Query(ctx, `
		SELECT g.id, g.tournament_id, g.name,
		       COALESCE(array_agg(m.user_id ORDER BY m.user_id) FILTER (WHERE m.user_id IS NOT NULL), '{}')
		FROM tipp_groups g
		LEFT JOIN tipp_group_members m ON m.group_id = g.id
		WHERE g.tournament_id = $1
		GROUP BY g.id
		ORDER BY g.name`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list tipp groups: %w", err)
	}
	defer rows.Close()

	var out []domain.TippGroup
	for rows.Next() {
		var g domain.TippGroup
		if err := rows.Scan(&g.ID, &g.TournamentID, &g.Name, &g.MemberIDs); err != nil {
			return nil, fmt.Errorf("scan tipp group: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *tippGroupRepo) Create(ctx context.Context, db DBTX, g *domain.TippGroup) error {
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO tipp_groups (id, tournament_id, name) VALUES ($1, $2, $3)`, g.ID, g.TournamentID, g.Name)
	for _, m := range g.MemberIDs {
		batch.Queue(`INSERT INTO tipp_group_members (group_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, g.ID, m)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert tipp group: %w", err)
	}
	return nil
}
