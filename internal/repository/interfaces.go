package repository

import (
	"context"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// TournamentRepository provides access to tournaments and their participants.
type TournamentRepository interface {
	// FindByID returns a tournament by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Tournament, error)

	// FindBySlug returns a tournament by slug, or nil if absent.
	FindBySlug(ctx context.Context, db DBTX, slug string) (*domain.Tournament, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) on the tournament.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Tournament, error)

	// Create inserts a new tournament.
	Create(ctx context.Context, db DBTX, t *domain.Tournament) error

	// SetComplete flags the tournament as decided (or not, after a reopen).
	SetComplete(ctx context.Context, db DBTX, id uuid.UUID, complete bool) error

	// AddParticipant registers a user; re-adding updates the display name.
	AddParticipant(ctx context.Context, db DBTX, p domain.Participant) error

	// ListParticipants returns the ranked population ordered by user id.
	ListParticipants(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Participant, error)
}

// FixtureRepository provides access to fixtures.
type FixtureRepository interface {
	// FindByID returns a fixture by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Fixture, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the fixture.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Fixture, error)

	// Create inserts a new fixture.
	Create(ctx context.Context, db DBTX, fx *domain.Fixture) error

	// Update writes slots, status, result and bookkeeping columns and bumps updated_at.
	Update(ctx context.Context, db DBTX, fx *domain.Fixture) error

	// ListByTournament returns all fixtures ordered by kickoff.
	ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Fixture, error)

	// CountFinished returns the tournament-wide number of finished fixtures (the match-day).
	CountFinished(ctx context.Context, db DBTX, tournamentID uuid.UUID) (int, error)
}

// TeamRepository provides access to teams and their group tallies.
type TeamRepository interface {
	// FindByID returns a team by ID, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Team, error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE) and returns the team.
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Team, error)

	// Create inserts a new team.
	Create(ctx context.Context, db DBTX, team *domain.Team) error

	// UpdateTally overwrites the tally columns of a team.
	UpdateTally(ctx context.Context, db DBTX, team *domain.Team) error

	// ListByTournament returns all teams ordered by group then nation code.
	ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.Team, error)
}

// PredictionRepository provides access to tipps.
type PredictionRepository interface {
	// Upsert inserts or replaces the user's tipp for a fixture. Scores are not touched.
	Upsert(ctx context.Context, db DBTX, p *domain.Prediction) error

	// ListByFixture returns every tipp for a fixture ordered by user id.
	ListByFixture(ctx context.Context, db DBTX, fixtureID uuid.UUID) ([]domain.Prediction, error)

	// ListByTournament returns all tipps of a tournament, optionally for one user.
	ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID, userID *uuid.UUID) ([]domain.Prediction, error)

	// SaveScores writes score, flags and scored_at for each tipp.
	SaveScores(ctx context.Context, db DBTX, preds []domain.Prediction) error

	// ClearScores resets score, flags and scored_at for every tipp of a fixture.
	ClearScores(ctx context.Context, db DBTX, fixtureID uuid.UUID) (int64, error)

	// ListScores returns the leaderboard projection of every tipp in the tournament.
	ListScores(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.TippScore, error)
}

// SpecialRepository provides access to special specs and special predictions.
type SpecialRepository interface {
	// CreateSpec inserts a new spec.
	CreateSpec(ctx context.Context, db DBTX, spec *domain.SpecialSpec) error

	// ListSpecs returns every spec of a tournament ordered by name.
	ListSpecs(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.SpecialSpec, error)

	// SetActual stores (or clears, with a nil Actual) the resolved outcome.
	SetActual(ctx context.Context, db DBTX, spec *domain.SpecialSpec) error

	// UpsertPrediction inserts or replaces a user's pick.
	UpsertPrediction(ctx context.Context, db DBTX, p *domain.SpecialPrediction) error

	// ListPredictions returns every pick for a spec.
	ListPredictions(ctx context.Context, db DBTX, specID uuid.UUID) ([]domain.SpecialPrediction, error)

	// SaveScores writes score and scored_at for each pick.
	SaveScores(ctx context.Context, db DBTX, preds []domain.SpecialPrediction) error

	// ClearScores resets every pick of the given specs.
	ClearScores(ctx context.Context, db DBTX, specIDs []uuid.UUID) (int64, error)

	// ListScores returns the leaderboard projection of every pick in the tournament.
	ListScores(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.SpecialScore, error)

	// ChampionPicks maps user id to the team picked for the named WINNER spec.
	ChampionPicks(ctx context.Context, db DBTX, tournamentID uuid.UUID, specName string) (map[uuid.UUID]uuid.UUID, error)
}

// ScoreRepository provides access to user_scores and user_score_history.
type ScoreRepository interface {
	// ListByTournament returns the current snapshot ordered by rank then user id.
	ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.UserScore, error)

	// ReplaceAll upserts every row and deletes rows of users no longer ranked.
	ReplaceAll(ctx context.Context, db DBTX, tournamentID uuid.UUID, scores []domain.UserScore) error

	// LatestHistory returns each user's newest history entry before matchDay.
	LatestHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, matchDay int) ([]domain.HistoryEntry, error)

	// ListHistory returns history entries ordered by match-day, optionally for some users.
	ListHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, userIDs []uuid.UUID) ([]domain.HistoryEntry, error)

	// UpsertHistory writes entries keyed by (tournament, user, match-day).
	UpsertHistory(ctx context.Context, db DBTX, entries []domain.HistoryEntry) error

	// PruneHistory deletes entries recorded for match-days after matchDay.
	PruneHistory(ctx context.Context, db DBTX, tournamentID uuid.UUID, matchDay int) (int64, error)
}

// TippGroupRepository provides access to tipp groups.
type TippGroupRepository interface {
	// FindByID returns a group with its members, or nil if absent.
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.TippGroup, error)

	// ListByTournament returns every group of a tournament with members.
	ListByTournament(ctx context.Context, db DBTX, tournamentID uuid.UUID) ([]domain.TippGroup, error)

	// Create inserts a group and its members.
	Create(ctx context.Context, db DBTX, g *domain.TippGroup) error
}

// OutboxRepository provides access to the event_outbox table.
type OutboxRepository interface {
	// Insert writes an outbox event (within the same transaction as the scoring change).
	Insert(ctx context.Context, db DBTX, draft domain.OutboxDraft) error

	// FetchUnpublished returns unpublished events for the outbox poller, oldest first.
	FetchUnpublished(ctx context.Context, db DBTX, limit int) ([]domain.OutboxRow, error)

	// MarkPublished stamps publishedAt on the given rows.
	MarkPublished(ctx context.Context, db DBTX, ids []int64) error
}
