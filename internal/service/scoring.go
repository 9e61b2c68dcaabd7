package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/engine"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/attaboy/tippspiel/internal/leaderboard"
	"github.com/attaboy/tippspiel/internal/projection"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TxBeginner starts transactions. *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Scorer is the transactional scoring core. *engine.Engine satisfies it.
type Scorer interface {
	FinishMatch(ctx context.Context, tx pgx.Tx, params domain.FinishMatchParams) (*engine.MatchResult, error)
	ScoreMatch(ctx context.Context, tx pgx.Tx, fixtureID uuid.UUID) (*engine.MatchResult, error)
	ReopenMatch(ctx context.Context, tx pgx.Tx, fixtureID uuid.UUID) (*engine.ReopenResult, error)
	ResolveSlots(ctx context.Context, tx pgx.Tx, params domain.ResolveSlotsParams) (*domain.Fixture, error)
	ResolveAndScoreSpecials(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*engine.SpecialsResult, error)
	RecomputeLeaderboard(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*leaderboard.Result, error)
	Verify(ctx context.Context, tx pgx.Tx, tournamentID uuid.UUID) (*engine.VerifyResult, error)
}

// ScoringService runs each scoring operation in its own transaction and
// refreshes the cached leaderboard after commit.
type ScoringService struct {
	db       TxBeginner
	scorer   Scorer
	store    projection.Store
	cacheTTL time.Duration
	metrics  *infra.Metrics
	logger   *slog.Logger
}

// NewScoringService creates a ScoringService. store and metrics may be nil.
func NewScoringService(db TxBeginner, scorer Scorer, store projection.Store, cacheTTL time.Duration, metrics *infra.Metrics, logger *slog.Logger) *ScoringService {
	if cacheTTL <= 0 {
		cacheTTL = projection.DefaultLeaderboardTTL
	}
	return &ScoringService{db: db, scorer: scorer, store: store, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// FinishMatch records a result and runs the whole scoring pipeline.
func (s *ScoringService) FinishMatch(ctx context.Context, params domain.FinishMatchParams) (*engine.MatchResult, error) {
	res, err := runInTx(ctx, s, "finish_match", func(tx pgx.Tx) (*engine.MatchResult, error) {
		return s.scorer.FinishMatch(ctx, tx, params)
	})
	if err != nil {
		return nil, err
	}
	s.afterMatch(ctx, res)
	return res, nil
}

// ScoreMatch scores the tipps of one fixture. An unfinished fixture yields Scored=false.
func (s *ScoringService) ScoreMatch(ctx context.Context, fixtureID uuid.UUID) (*engine.MatchResult, error) {
	res, err := runInTx(ctx, s, "score_match", func(tx pgx.Tx) (*engine.MatchResult, error) {
		return s.scorer.ScoreMatch(ctx, tx, fixtureID)
	})
	if err != nil {
		return nil, err
	}
	s.afterMatch(ctx, res)
	return res, nil
}

// ReopenMatch withdraws a recorded result.
func (s *ScoringService) ReopenMatch(ctx context.Context, fixtureID uuid.UUID) (*engine.ReopenResult, error) {
	res, err := runInTx(ctx, s, "reopen_match", func(tx pgx.Tx) (*engine.ReopenResult, error) {
		return s.scorer.ReopenMatch(ctx, tx, fixtureID)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("match reopened",
		"fixture_id", fixtureID,
		"tipps_cleared", res.TippsCleared,
		"specs_reopened", res.SpecsReopened,
	)
	if res.Specials != nil {
		s.refreshLeaderboard(ctx, res.Specials.TournamentID, res.Specials.Leaderboard)
	}
	return res, nil
}

// ResolveSlots turns knockout placeholders into teams.
func (s *ScoringService) ResolveSlots(ctx context.Context, params domain.ResolveSlotsParams) (*domain.Fixture, error) {
	return runInTx(ctx, s, "resolve_slots", func(tx pgx.Tx) (*domain.Fixture, error) {
		return s.scorer.ResolveSlots(ctx, tx, params)
	})
}

// ResolveAndScoreSpecials resolves every knowable special and scores its picks.
func (s *ScoringService) ResolveAndScoreSpecials(ctx context.Context, tournamentID uuid.UUID) (*engine.SpecialsResult, error) {
	res, err := runInTx(ctx, s, "resolve_specials", func(tx pgx.Tx) (*engine.SpecialsResult, error) {
		return s.scorer.ResolveAndScoreSpecials(ctx, tx, tournamentID)
	})
	if err != nil {
		return nil, err
	}
	s.refreshLeaderboard(ctx, tournamentID, res.Leaderboard)
	return res, nil
}

// RecomputeLeaderboard rebuilds the snapshot of a tournament.
func (s *ScoringService) RecomputeLeaderboard(ctx context.Context, tournamentID uuid.UUID) (*leaderboard.Result, error) {
	res, err := runInTx(ctx, s, "recompute_leaderboard", func(tx pgx.Tx) (*leaderboard.Result, error) {
		return s.scorer.RecomputeLeaderboard(ctx, tx, tournamentID)
	})
	if err != nil {
		return nil, err
	}
	s.refreshLeaderboard(ctx, tournamentID, res)
	return res, nil
}

// Verify checks the persisted invariants of a tournament.
func (s *ScoringService) Verify(ctx context.Context, tournamentID uuid.UUID) (*engine.VerifyResult, error) {
	res, err := runInTx(ctx, s, "verify", func(tx pgx.Tx) (*engine.VerifyResult, error) {
		return s.scorer.Verify(ctx, tx, tournamentID)
	})
	if err != nil {
		return nil, err
	}
	if !res.AllPassed {
		s.logger.Warn("invariant violation", "tournament_id", tournamentID, "match_day", res.MatchDay)
	}
	return res, nil
}

func (s *ScoringService) afterMatch(ctx context.Context, res *engine.MatchResult) {
	if s.metrics != nil {
		s.metrics.TippsScored.Add(float64(res.TippsScored))
	}
	if res.Fixture != nil {
		s.refreshLeaderboard(ctx, res.Fixture.TournamentID, res.Leaderboard)
	}
}

// refreshLeaderboard replaces the cached projection. A failed write drops the
// entry so readers fall back to Postgres.
func (s *ScoringService) refreshLeaderboard(ctx context.Context, tournamentID uuid.UUID, lb *leaderboard.Result) {
	if s.store == nil || lb == nil {
		return
	}
	err := projection.UpdateLeaderboard(ctx, s.store, tournamentID, lb.MatchDay, lb.Scores, s.cacheTTL)
	if err == nil {
		return
	}
	s.logger.Warn("leaderboard projection update failed", "tournament_id", tournamentID, "error", err)
	if err := projection.InvalidateLeaderboard(ctx, s.store, tournamentID); err != nil {
		s.logger.Warn("leaderboard projection invalidate failed", "tournament_id", tournamentID, "error", err)
	}
}

// runInTx wraps fn in Begin/Commit. Errors other than AppError become INTERNAL_ERROR.
func runInTx[T any](ctx context.Context, s *ScoringService, op string, fn func(tx pgx.Tx) (T, error)) (T, error) {
	start := time.Now()
	var zero T

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return zero, s.fail(op, start, domain.ErrInternal("begin tx", err))
	}
	defer tx.Rollback(ctx)

	res, err := fn(tx)
	if err != nil {
		return zero, s.fail(op, start, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, s.fail(op, start, domain.ErrInternal("commit tx", err))
	}
	s.metrics.ObserveOperation(op, start, "")
	return res, nil
}

func (s *ScoringService) fail(op string, start time.Time, err error) *domain.AppError {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		appErr = domain.ErrInternal(op, err)
	}
	s.metrics.ObserveOperation(op, start, appErr.Code)
	if domain.HasCode(appErr, "INTERNAL_ERROR") {
		s.logger.Error("scoring operation failed", "op", op, "error", err)
	}
	return appErr
}
