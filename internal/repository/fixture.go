package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const fixtureColumns = `
	id, tournament_id, phase, group_label, kickoff_at,
	home_team_id, home_placeholder, visitor_team_id, visitor_placeholder,
	status, goals_home, goals_visitor, halftime_home, halftime_visitor,
	penalty_shootout, penalty_winner_id, standings_applied, result_hash, version,
	created_at, updated_at`

type fixtureRepo struct{}

// NewFixtureRepository returns a pgx-backed FixtureRepository.
func NewFixtureRepository() FixtureRepository {
	return &fixtureRepo{}
}

func (r *fixtureRepo) FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Fixture, error) {
	row := db.QueryRow(ctx, `SELECT `+fixtureColumns+` FROM fixtures WHERE id = $1`, id)
	return scanFixture(row)
}

func (r *fixtureRepo) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Fixture, error) {
	row := tx.QueryRow(ctx, `SELECT `+fixtureColumns+` FROM fixtures WHERE id = $1 FOR UPDATE`, id)
	return scanFixture(row)
}

func (r *fixtureRepo) Create(ctx context.Context, db DBTX, fx *domain.Fixture) error {
	if fx.Status == "" {
		fx.Status = domain.FixtureScheduled
	}
	_, err := db.Exec(ctx, `
		INSERT INTO fixtures (`+fixtureColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		fx.ID, fx.TournamentID, string(fx.Phase), nullString(fx.GroupLabel), fx.KickoffAt,
		fx.Home.TeamID, nullString(fx.Home.Placeholder), fx.Visitor.TeamID, nullString(fx.Visitor.Placeholder),
		string(fx.Status), fx.GoalsHome, fx.GoalsVisitor, fx.HalftimeHome, fx.HalftimeVisitor,
		fx.PenaltyShootout, fx.PenaltyWinnerID, fx.StandingsApplied, fx.ResultHash, fx.Version,
		fx.CreatedAt, fx.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert fixture: %w", err)
	}
	return nil
}

func (r *fixtureRepo) Update(ctx context.Context, db DBTX, fx *domain.Fixture) error {
	tag, err := db.Exec(ctx, `
		UPDATE fixtures SET
			home_team_id = $2, home_placeholder = $3,
			visitor_team_id = $4, visitor_placeholder = $5,
			status = $6, goals_home = $7, goals_visitor = $8,
			halftime_home = $9, halftime_visitor = $10,
			penalty_shootout = $11, penalty_winner_id = $12,
			standings_applied = $13, result_hash = $14, version = $15,
			updated_at = now()
		WHERE id = $1`,
		fx.ID,
		fx.Home.TeamID, nullString(fx.Home.Placeholder),
		fx.Visitor.TeamID, nullString(fx.Visitor.Placeholder),
		string(fx.Status), fx.GoalsHome, fx.GoalsVisitor,
		fx.HalftimeHome, fx.HalftimeVisitor,
		fx.PenaltyShootout, fx.PenaltyWinnerID,
		fx.StandingsApplied, fx.ResultHash, fx.Version,
	)
	if err != nil {
		return fmt.Errorf("update fixture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound("fixture", fx.ID.String())
	}
	return nil
}

func (r *fixtureRepo) ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Fixture, error) {
	rows, err := db.Query(ctx, `
		SELECT `+fixtureColumns+`
		FROM fixtures
		WHERE tournament_id = $1
		ORDER BY kickoff_at, id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	defer rows.Close()

	var out []domain.Fixture
	for rows.Next() {
		fx, err := scanFixture(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *fx)
	}
	return out, rows.Err()
}

func (r *fixtureRepo) CountFinished(ctx context.Context, db DBTX, tournamentID uuid.UUID) (int, error) {
	var n int
	err := db.QueryRow(ctx, `
		SELECT count(*) FROM fixtures WHERE tournament_id = $1 AND status = 'FINISHED'`,
		tournamentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count finished fixtures: %w", err)
	}
	return n, nil
}

func scanFixture(row pgx.Row) (*domain.Fixture, error) {
	var fx domain.Fixture
	var phase, status string
	var groupLabel, homePlaceholder, visitorPlaceholder *string
	err := row.Scan(
		&fx.ID, &fx.TournamentID, &phase, &groupLabel, &fx.KickoffAt,
		&fx.Home.TeamID, &homePlaceholder, &fx.Visitor.TeamID, &visitorPlaceholder,
		&status, &fx.GoalsHome, &fx.GoalsVisitor, &fx.HalftimeHome, &fx.HalftimeVisitor,
		&fx.PenaltyShootout, &fx.PenaltyWinnerID, &fx.StandingsApplied, &fx.ResultHash, &fx.Version,
		&fx.CreatedAt, &fx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan fixture: %w", err)
	}
	fx.Phase = domain.Phase(phase)
	fx.Status = domain.FixtureStatus(status)
	fx.GroupLabel = deref(groupLabel)
	fx.Home.Placeholder = deref(homePlaceholder)
	fx.Visitor.Placeholder = deref(visitorPlaceholder)
	return &fx, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
