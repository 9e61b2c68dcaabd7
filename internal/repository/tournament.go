package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const tournamentColumns = `id, name, slug, active, complete, champion_spec_name, created_at`

type tournamentRepo struct{}

// NewTournamentRepository returns a pgx-backed TournamentRepository.
func NewTournamentRepository() TournamentRepository {
	return &tournamentRepo{}
}

func (r *tournamentRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Tournament, error) {
	row := db.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1`, id)
	return scanTournament(row)
}

func (r *tournamentRepo) FindBySlug(ctx context.Context, db DBTX, slug string) (*domain.Tournament, error) {
	row := db.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE slug = $1`, slug)
	return scanTournament(row)
}

func (r *tournamentRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Tournament, error) {
	row := tx.QueryRow(ctx, `SELECT `+tournamentColumns+` FROM tournaments WHERE id = $1 FOR UPDATE`, id)
	return scanTournament(row)
}

func (r *tournamentRepo) Create(ctx context.Context, db DBTX, t *domain.Tournament) error {
	if t.ChampionSpecName == "" {
		t.ChampionSpecName = domain.DefaultChampionSpecName
	}
	_, err := db.Exec(ctx, `
		INSERT INTO tournaments (id, name, slug, active, complete, champion_spec_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Slug, t.Active, t.Complete, t.ChampionSpecName, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert tournament: %w", err)
	}
	return nil
}

func (r *tournamentRepo) SetComplete(ctx context.Context, db DBTX, id uuid.UUID, complete bool) error {
	_, err := db.Exec(ctx, `UPDATE tournaments SET complete = $2 WHERE id = $1`, id, complete)
	if err != nil {
		return fmt.Errorf("set tournament complete: %w", err)
	}
	return nil
}

func (r *tournamentRepo) AddParticipant(ctx context.Context, db DBTX, p domain.Participant) error {
	_, err := db.Exec(ctx, `
		INSERT INTO tournament_participants (tournament_id, user_id, display_name, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tournament_id, user_id) DO UPDATE SET display_name = EXCLUDED.display_name`,
		p.TournamentID, p.UserID, p.DisplayName, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (r *tournamentRepo) ListParticipants(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Participant, error) {
	rows, err := db.Query(ctx, `
		SELECT tournament_id, user_id, display_name, joined_at
		FROM tournament_participants
		WHERE tournament_id = $1
		ORDER BY user_id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.TournamentID, &p.UserID, &p.DisplayName, &p.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanTournament(row pgx.Row) (*domain.Tournament, error) {
	var t domain.Tournament
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Active, &t.Complete, &t.ChampionSpecName, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan tournament: %w", err)
	}
	return &t, nil
}
