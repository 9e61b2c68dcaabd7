package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type specialRepo struct{}

// NewSpecialRepository returns a pgx-backed SpecialRepository.
func NewSpecialRepository() SpecialRepository {
	return &specialRepo{}
}

func (r *specialRepo) CreateSpec(ctx context.Context, db DBTX, spec *domain.SpecialSpec) error {
	actual, err := domain.MarshalOutcome(spec.Actual)
	if err != nil {
		return fmt.Errorf("encode actual: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO special_specs (id, tournament_id, name, kind, value, scope_team_id, scope_group, actual, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		spec.ID, spec.TournamentID, spec.Name, string(spec.Kind), spec.Value,
		spec.ScopeTeamID, nullString(spec.ScopeGroup), actual, spec.ResolvedAt,
	)
	if err != nil {
		return fmt.Errorf("insert special spec: %w", err)
	}
	return nil
}

func (r *specialRepo) ListSpecs(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.SpecialSpec, error) {
	rows, err := db.Query(ctx, `
		SELECT id, tournament_id, name, kind, value, scope_team_id, scope_group, actual, resolved_at
		FROM special_specs
		WHERE tournament_id = $1
		ORDER BY name`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list special specs: %w", err)
	}
	defer rows.Close()

	var out []domain.SpecialSpec
	for rows.Next() {
		var s domain.SpecialSpec
		var kind string
		var scopeGroup *string
		var actual []byte
		if err := rows.Scan(&s.ID, &s.TournamentID, &s.Name, &kind, &s.Value,
			&s.ScopeTeamID, &scopeGroup, &actual, &s.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan special spec: %w", err)
		}
		s.Kind = domain.SpecialKind(kind)
		s.ScopeGroup = deref(scopeGroup)
		if s.Actual, err = domain.UnmarshalOutcome(actual); err != nil {
			return nil, fmt.Errorf("spec %s: %w", s.Name, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *specialRepo) SetActual(ctx context.Context, db DBTX, spec *domain.SpecialSpec) error {
	actual, err := domain.MarshalOutcome(spec.Actual)
	if err != nil {
		return fmt.Errorf("encode actual: %w", err)
	}
	_, err = db.Exec(ctx, `
		UPDATE special_specs SET actual = $2, resolved_at = $3 WHERE id = $1`,
		spec.ID, actual, spec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("set special actual: %w", err)
	}
	return nil
}

func (r *specialRepo) UpsertPrediction(ctx context.Context, db DBTX, p *domain.SpecialPrediction) error {
	predicted, err := json.Marshal(p.Predicted)
	if err != nil {
		return fmt.Errorf("encode prediction: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO special_predictions (user_id, spec_id, predicted)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, spec_id) DO UPDATE SET predicted = EXCLUDED.predicted`,
		p.UserID, p.SpecID, predicted)
	if err != nil {
		return fmt.Errorf("upsert special prediction: %w", err)
	}
	return nil
}

func (r *specialRepo) ListPredictions(ctx context.Context, db DBTX, specID uuid.UUID) ([]domain.SpecialPrediction, error) {
	rows, err := db.Query(ctx, `
		SELECT user_id, spec_id, predicted, score, scored_at
		FROM special_predictions
		WHERE spec_id = $1
		ORDER BY user_id`, specID)
	if err != nil {
		return nil, fmt.Errorf("list special predictions: %w", err)
	}
	defer rows.Close()

	var out []domain.SpecialPrediction
	for rows.Next() {
		var p domain.SpecialPrediction
		var predicted []byte
		if err := rows.Scan(&p.UserID, &p.SpecID, &predicted, &p.Score, &p.ScoredAt); err != nil {
			return nil, fmt.Errorf("scan special prediction: %w", err)
		}
		o, err := domain.UnmarshalOutcome(predicted)
		if err != nil {
			return nil, fmt.Errorf("special prediction of %s: %w", p.UserID, err)
		}
		if o == nil {
			return nil, errors.New("special prediction without a pick")
		}
		p.Predicted = *o
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *specialRepo) SaveScores(ctx context.Context, db DBTX, preds []domain.SpecialPrediction) error {
	if len(preds) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range preds {
		batch.Queue(`
			UPDATE special_predictions SET score = $3, scored_at = $4
			WHERE user_id = $1 AND spec_id = $2`,
			p.UserID, p.SpecID, p.Score, p.ScoredAt)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save special scores: %w", err)
	}
	return nil
}

func (r *specialRepo) ClearScores(ctx context.Context, db DBTX, specIDs []uuid.UUID) (int64, error) {
	if len(specIDs) == 0 {
		return 0, nil
	}
	tag, err := db.Exec(ctx, `
		UPDATE special_predictions SET score = 0, scored_at = NULL
		WHERE spec_id = ANY($1)`, specIDs)
	if err != nil {
		return 0, fmt.Errorf("clear special scores: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *specialRepo) ListScores(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.SpecialScore, error) {
	rows, err := db.Query(ctx, `
		SELECT p.user_id, p.score, s.actual IS NOT NULL
		FROM special_predictions p
		JOIN special_specs s ON s.id = p.spec_id
		WHERE s.tournament_id = $1`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list special scores: %w", err)
	}
	defer rows.Close()

	var out []domain.SpecialScore
	for rows.Next() {
		var s domain.SpecialScore
		if err := rows.Scan(&s.UserID, &s.Score, &s.Resolved); err != nil {
			return nil, fmt.Errorf("scan special score: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *specialRepo) ChampionPicks(ctx context.Context, db DBTX, tournamentID uuid.UUID, specName string) (map[uuid.UUID]uuid.UUID, error) {
	rows, err := db.Query(ctx, `
		SELECT p.user_id, (p.predicted->>'team_id')::uuid
		FROM special_predictions p
		JOIN special_specs s ON s.id = p.spec_id
		WHERE s.tournament_id = $1 AND s.name = $2 AND s.kind = 'WINNER'
		  AND p.predicted ? 'team_id'`, tournamentID, specName)
	if err != nil {
		return nil, fmt.Errorf("list champion picks: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]uuid.UUID)
	for rows.Next() {
		var user, team uuid.UUID
		if err := rows.Scan(&user, &team); err != nil {
			return nil, fmt.Errorf("scan champion pick: %w", err)
		}
		out[user] = team
	}
	return out, rows.Err()
}
