package repository

import (
	"context"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const predictionColumns = `t.user_id, t.fixture_id, t.goals_home, t.goals_visitor, t.penalty_winner_id,
	t.score, t.is_goals_home_correct, t.is_goals_visitor_correct, t.is_difference_correct,
	t.is_tendency_correct, t.scored_at, t.created_at, t.updated_at`

type predictionRepo struct{}

// NewPredictionRepository returns a pgx-backed PredictionRepository.
func NewPredictionRepository() PredictionRepository {
	return &predictionRepo{}
}

func (r *predictionRepo) Upsert(ctx context.Context, db DBTX, p *domain.Prediction) error {
	_, err := db.Exec(ctx, `
		INSERT INTO tipps (user_id, fixture_id, goals_home, goals_visitor, penalty_winner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		ON CONFLICT (user_id, fixture_id) DO UPDATE SET
			goals_home = EXCLUDED.goals_home,
			goals_visitor = EXCLUDED.goals_visitor,
			penalty_winner_id = EXCLUDED.penalty_winner_id,
			updated_at = now()`,
		p.UserID, p.FixtureID, p.GoalsHome, p.GoalsVisitor, p.PenaltyWinnerID,
	)
	if err != nil {
		return fmt.Errorf("upsert tipp: %w", err)
	}
	return nil
}

func (r *predictionRepo) ListByFixture(ctx context.Context, db DBTX, fixtureID uuid.UUID) ([]domain.Prediction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+predictionColumns+`
		FROM tipps t
		WHERE t.fixture_id = $1
		ORDER BY t.user_id`, fixtureID)
	if err != nil {
		return nil, fmt.Errorf("list tipps by fixture: %w", err)
	}
	return collectPredictions(rows)
}

func (r *predictionRepo) ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID, userID *uuid.UUID) ([]domain.Prediction, error) {
	rows, err := db.Query(ctx, `
		SELECT `+predictionColumns+`
		FROM tipps t
		JOIN fixtures f ON f.id = t.fixture_id
		WHERE f.tournament_id = $1 AND ($2::uuid IS NULL OR t.user_id = $2)
		ORDER BY f.kickoff_at, t.user_id`, tournamentID, userID)
	if err != nil {
		return nil, fmt.Errorf("list tipps by tournament: %w", err)
	}
	return collectPredictions(rows)
}

func (r *predictionRepo) SaveScores(ctx context.Context, db DBTX, preds []domain.Prediction) error {
	if len(preds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range preds {
		batch.Queue(`
			UPDATE tipps SET
				score = $3,
				is_goals_home_correct = $4, is_goals_visitor_correct = $5,
				is_difference_correct = $6, is_tendency_correct = $7,
				scored_at = $8, updated_at = now()
			WHERE user_id = $1 AND fixture_id = $2`,
			p.UserID, p.FixtureID, p.Score,
			p.HomeExact, p.VisitorExact, p.DiffExact, p.TendencyExact,
			p.ScoredAt,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save tipp scores: %w", err)
	}
	return nil
}

func (r *predictionRepo) ClearScores(ctx context.Context, db DBTX, fixtureID uuid.UUID) (int64, error) {
	tag, err := db.Exec(ctx, `
		UPDATE tipps SET
			score = 0,
			is_goals_home_correct = FALSE, is_goals_visitor_correct = FALSE,
			is_difference_correct = FALSE, is_tendency_correct = FALSE,
			scored_at = NULL, updated_at = now()
		WHERE fixture_id = $1`, fixtureID)
	if err != nil {
		return 0, fmt.Errorf("clear tipp scores: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *predictionRepo) ListScores(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.TippScore, error) {
	rows, err := db.Query(ctx, `
		SELECT t.user_id, t.score, f.status = 'FINISHED'
		FROM tipps t
		JOIN fixtures f ON f.id = t.fixture_id
		WHERE f.tournament_id = $1`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list tipp scores: %w", err)
	}
	defer rows.Close()

	var out []domain.TippScore
	for rows.Next() {
		var s domain.TippScore
		if err := rows.Scan(&s.UserID, &s.Score, &s.Finished); err != nil {
			return nil, fmt.Errorf("scan tipp score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func collectPredictions(rows pgx.Rows) ([]domain.Prediction, error) {
	defer rows.Close()

	var out []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		err := rows.Scan(&p.UserID, &p.FixtureID, &p.GoalsHome, &p.GoalsVisitor, &p.PenaltyWinnerID,
			&p.Score, &p.HomeExact, &p.VisitorExact, &p.DiffExact,
			&p.TendencyExact, &p.ScoredAt, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan tipp: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
