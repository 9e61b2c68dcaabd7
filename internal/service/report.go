package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/infra"
	"github.com/attaboy/tippspiel/internal/projection"
	"github.com/attaboy/tippspiel/internal/report"
	"github.com/attaboy/tippspiel/internal/repository"
	"github.com/attaboy/tippspiel/internal/standings"
	"github.com/google/uuid"
)

// ReportRepositories groups the stores ReportService reads from.
type ReportRepositories struct {
	Tournaments repository.TournamentRepository
	Fixtures    repository.FixtureRepository
	Teams       repository.TeamRepository
	Predictions repository.PredictionRepository
	Scores      repository.ScoreRepository
	TippGroups  repository.TippGroupRepository
}

// ReportService serves read models over committed state.
type ReportService struct {
	db       repository.DBTX
	repos    ReportRepositories
	store    projection.Store
	cacheTTL time.Duration
	metrics  *infra.Metrics
	logger   *slog.Logger
}

// NewReportService creates a ReportService. store and metrics may be nil.
func NewReportService(db repository.DBTX, repos ReportRepositories, store projection.Store, cacheTTL time.Duration, metrics *infra.Metrics, logger *slog.Logger) *ReportService {
	return &ReportService{db: db, repos: repos, store: store, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// Leaderboard is a ranked snapshot with display names.
type Leaderboard struct {
	TournamentID uuid.UUID
	MatchDay     int
	Rows         []domain.UserScore
	Names        map[uuid.UUID]string
	Cached       bool
}

// GroupTable is the ordered table of one tournament group.
type GroupTable struct {
	Label string
	Teams []domain.Team
}

// Leaderboard returns the cached projection, falling back to Postgres on a miss.
func (s *ReportService) Leaderboard(ctx context.Context, tournamentID uuid.UUID) (*Leaderboard, error) {
	t, err := s.tournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	names, err := s.names(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	out := &Leaderboard{TournamentID: t.ID, Names: names}

	if s.store != nil {
		p, err := projection.GetLeaderboard(ctx, s.store, t.ID)
		switch {
		case err == nil:
			out.MatchDay = p.MatchDay
			out.Rows = p.Rows
			out.Cached = true
			return out, nil
		case errors.Is(err, projection.ErrNotFound):
			if s.metrics != nil {
				s.metrics.ProjectionMisses.Inc()
			}
		default:
			s.logger.Warn("leaderboard projection read failed", "tournament_id", t.ID, "error", err)
		}
	}

	rows, err := s.repos.Scores.ListByTournament(ctx, s.db, t.ID)
	if err != nil {
		return nil, domain.ErrInternal("list scores", err)
	}
	matchDay, err := s.repos.Fixtures.CountFinished(ctx, s.db, t.ID)
	if err != nil {
		return nil, domain.ErrInternal("count finished", err)
	}
	out.Rows = rows
	out.MatchDay = matchDay

	if s.store != nil {
		if err := projection.UpdateLeaderboard(ctx, s.store, t.ID, matchDay, rows, s.cacheTTL); err != nil {
			s.logger.Warn("leaderboard projection update failed", "tournament_id", t.ID, "error", err)
		}
	}
	return out, nil
}

// GroupLeaderboard ranks the members of one tipp group among themselves.
func (s *ReportService) GroupLeaderboard(ctx context.Context, groupID uuid.UUID) (*Leaderboard, error) {
	g, err := s.repos.TippGroups.FindByID(ctx, s.db, groupID)
	if err != nil {
		return nil, domain.ErrInternal("find tipp group", err)
	}
	if g == nil {
		return nil, domain.ErrNotFound("tipp group", groupID.String())
	}
	full, err := s.Leaderboard(ctx, g.TournamentID)
	if err != nil {
		return nil, err
	}
	full.Rows = report.GroupLeaderboard(full.Rows, g.MemberIDs)
	return full, nil
}

// Accuracy summarises a user's scored tipps.
func (s *ReportService) Accuracy(ctx context.Context, tournamentID, userID uuid.UUID) (report.AccuracyStats, error) {
	if _, err := s.tournament(ctx, tournamentID); err != nil {
		return report.AccuracyStats{}, err
	}
	preds, err := s.repos.Predictions.ListByTournament(ctx, s.db, tournamentID, &userID)
	if err != nil {
		return report.AccuracyStats{}, domain.ErrInternal("list predictions", err)
	}
	return report.Accuracy(preds), nil
}

// ProgressionChart renders the history of the given users, or of everyone when userIDs is empty.
func (s *ReportService) ProgressionChart(ctx context.Context, tournamentID uuid.UUID, userIDs []uuid.UUID, metric report.Metric) ([]byte, error) {
	if _, err := s.tournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	entries, err := s.repos.Scores.ListHistory(ctx, s.db, tournamentID, userIDs)
	if err != nil {
		return nil, domain.ErrInternal("list history", err)
	}
	names, err := s.names(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	png, err := report.ProgressionChart(report.SeriesFromHistory(entries, names), metric)
	if err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	return png, nil
}

// ExportLeaderboard writes the current leaderboard as an xlsx workbook.
func (s *ReportService) ExportLeaderboard(ctx context.Context, w io.Writer, tournamentID uuid.UUID) error {
	lb, err := s.Leaderboard(ctx, tournamentID)
	if err != nil {
		return err
	}
	if err := report.ExportLeaderboard(w, lb.Rows, lb.Names); err != nil {
		return domain.ErrInternal("export leaderboard", err)
	}
	return nil
}

// GroupTables returns every group of the tournament with its ordered teams.
func (s *ReportService) GroupTables(ctx context.Context, tournamentID uuid.UUID) ([]GroupTable, error) {
	if _, err := s.tournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	teams, err := s.repos.Teams.ListByTournament(ctx, s.db, tournamentID)
	if err != nil {
		return nil, domain.ErrInternal("list teams", err)
	}
	labels := standings.Groups(teams)
	out := make([]GroupTable, 0, len(labels))
	for _, label := range labels {
		out = append(out, GroupTable{Label: label, Teams: standings.GroupTable(teams, label)})
	}
	return out, nil
}

// TournamentBySlug resolves a slug to a tournament.
func (s *ReportService) TournamentBySlug(ctx context.Context, slug string) (*domain.Tournament, error) {
	t, err := s.repos.Tournaments.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, domain.ErrInternal("find tournament", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("tournament", slug)
	}
	return t, nil
}

func (s *ReportService) tournament(ctx context.Context, id uuid.UUID) (*domain.Tournament, error) {
	t, err := s.repos.Tournaments.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, domain.ErrInternal("find tournament", err)
	}
	if t == nil {
		return nil, domain.ErrNotFound("tournament", id.String())
	}
	return t, nil
}

func (s *ReportService) names(ctx context.Context, tournamentID uuid.UUID) (map[uuid.UUID]string, error) {
	participants, err := s.repos.Tournaments.ListParticipants(ctx, s.db, tournamentID)
	if err != nil {
		return nil, domain.ErrInternal(fmt.Sprintf("list participants of %s", tournamentID), err)
	}
	names := make(map[uuid.UUID]string, len(participants))
	for _, p := range participants {
		names[p.UserID] = p.DisplayName
	}
	return names, nil
}
