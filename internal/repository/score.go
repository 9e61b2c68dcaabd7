package repository

import (
	"context"
	"fmt"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type scoreRepo struct{}

// NewScoreRepository returns a pgx-backed ScoreRepository.
func NewScoreRepository() ScoreRepository {
	return &scoreRepo{}
}

func (r *scoreRepo) ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.UserScore, error) {
	rows, err := db.Query(ctx, `
		SELECT user_id, tournament_id, total_points, match_points, special_points,
		       rank, rank_delta, tipp_count, average_points, champion_team_id, updated_at
		FROM user_scores
		WHERE tournament_id = $1
		ORDER BY rank, user_id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("list user scores: %w", err)
	}
	defer rows.Close()

	var out []domain.UserScore
	for rows.Next() {
		var s domain.UserScore
		var avg pgtype.Numeric
		err := rows.Scan(&s.UserID, &s.TournamentID, &s.TotalPoints, &s.MatchPoints, &s.SpecialPoints,
			&s.Rank, &s.RankDelta, &s.TippCount, &avg, &s.ChampionTeamID, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan user score: %w", err)
		}
		if s.Average, err = infra.NumericToDecimal(avg); err != nil {
			return nil, fmt.Errorf("convert average_points: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *scoreRepo) ReplaceAll(ctx context.Context, db DBTX, tournamentID uuid.UUID, scores []domain.UserScore) error {
	batch := &pgx.Batch{}
	users := make([]uuid.UUID, 0, len(scores))
	for _, s := range scores {
		users = append(users, s.UserID)
		batch.Queue(`
			INSERT INTO user_scores (tournament_id, user_id, total_points, match_points, special_points,
			                         rank, rank_delta, tipp_count, average_points, champion_team_id, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (tournament_id, user_id) DO UPDATE SET
				total_points = EXCLUDED.total_points,
				match_points = EXCLUDED.match_points,
				special_points = EXCLUDED.special_points,
				rank = EXCLUDED.rank,
				rank_delta = EXCLUDED.rank_delta,
				tipp_count = EXCLUDED.tipp_count,
				average_points = EXCLUDED.average_points,
				champion_team_id = EXCLUDED.champion_team_id,
				updated_at = EXCLUDED.updated_at`,
			tournamentID, s.UserID, s.TotalPoints, s.MatchPoints, s.SpecialPoints,
			s.Rank, s.RankDelta, s.TippCount, infra.DecimalToNumeric(s.Average), s.ChampionTeamID, s.UpdatedAt,
		)
	}
	batch.Queue(`DELETE FROM user_scores WHERE tournament_id = $1 AND NOT (user_id = ANY($2))`, tournamentID, users)
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("replace user scores: %w", err)
	}
	return nil
}

func (r *scoreRepo) LatestHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, matchDay int) ([]domain.HistoryEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT DISTINCT ON (user_id)
		       user_id, tournament_id, match_day, points, rank, rank_delta, recorded_at
		FROM user_score_history
		WHERE tournament_id = $1 AND match_day < $2
		ORDER BY user_id, match_day DESC`, tournamentID, matchDay)
	if err != nil {
		return nil, fmt.Errorf("latest history: %w", err)
	}
	return collectHistory(rows)
}

func (r *scoreRepo) ListHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, userIDs []uuid.UUID) ([]domain.HistoryEntry, error) {
	rows, err := db.Query(ctx, `
		SELECT user_id, tournament_id, match_day, points, rank, rank_delta, recorded_at
		FROM user_score_history
		WHERE tournament_id = $1 AND (cardinality($2::uuid[]) = 0 OR user_id = ANY($2))
		ORDER BY match_day, user_id`, tournamentID, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return collectHistory(rows)
}

func (r *scoreRepo) UpsertHistory(ctx context.Context, db DBTX, entries []domain.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(`
			INSERT INTO user_score_history (tournament_id, user_id, match_day, points, rank, rank_delta, recorded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tournament_id, user_id, match_day) DO UPDATE SET
				points = EXCLUDED.points,
				rank = EXCLUDED.rank,
				rank_delta = EXCLUDED.rank_delta,
				recorded_at = EXCLUDED.recorded_at`,
			e.TournamentID, e.UserID, e.MatchDay, e.Points, e.Rank, e.RankDelta, e.RecordedAt,
		)
	}
	if err := db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert history: %w", err)
	}
	return nil
}

func (r *scoreRepo) PruneHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, matchDay int) (int64, error) {
	tag, err := db.Exec(ctx, `
		DELETE FROM user_score_history WHERE tournament_id = $1 AND match_day > $2`,
		tournamentID, matchDay)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func collectHistory(rows pgx.Rows) ([]domain.HistoryEntry, error) {
	defer rows.Close()

	var out []domain.HistoryEntry
	for rows.Next() {
		var e domain.HistoryEntry
		if err := rows.Scan(&e.UserID, &e.TournamentID, &e.MatchDay, &e.Points, &e.Rank, &e.RankDelta, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
