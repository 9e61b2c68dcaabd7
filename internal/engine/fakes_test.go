package engine

import (
	"bytes"
	"context"
	"sort"

	"github.com/attaboy/tippspiel/internal/domain"
	"github.com/attaboy/tippspiel/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeTx satisfies pgx.Tx; the in-memory repositories never call it.
type fakeTx struct{ pgx.Tx }

type pairKey [2]uuid.UUID

type historyKey struct {
	user     uuid.UUID
	matchDay int
}

// store is the in-memory state behind every fake repository. Reads hand out
// copies so the engine cannot mutate rows without writing them back.
type store struct {
	tournaments  map[uuid.UUID]domain.Tournament
	participants map[uuid.UUID][]domain.Participant
	fixtures     map[uuid.UUID]domain.Fixture
	teams        map[uuid.UUID]domain.Team
	tipps        map[pairKey]domain.Prediction
	specs        map[uuid.UUID]domain.SpecialSpec
	picks        map[pairKey]domain.SpecialPrediction
	scores       map[uuid.UUID][]domain.UserScore
	history      map[uuid.UUID]map[historyKey]domain.HistoryEntry
	outbox       []domain.OutboxDraft
}

func newStore() *store {
	return &store{
		tournaments:  make(map[uuid.UUID]domain.Tournament),
		participants: make(map[uuid.UUID][]domain.Participant),
		fixtures:     make(map[uuid.UUID]domain.Fixture),
		teams:        make(map[uuid.UUID]domain.Team),
		tipps:        make(map[pairKey]domain.Prediction),
		specs:        make(map[uuid.UUID]domain.SpecialSpec),
		picks:        make(map[pairKey]domain.SpecialPrediction),
		scores:       make(map[uuid.UUID][]domain.UserScore),
		history:      make(map[uuid.UUID]map[historyKey]domain.HistoryEntry),
	}
}

func (s *store) repos() Repositories {
	return Repositories{
		Tournaments: &fakeTournaments{s},
		Fixtures:    &fakeFixtures{s},
		Teams:       &fakeTeams{s},
		Predictions: &fakePredictions{s},
		Specials:    &fakeSpecials{s},
		Scores:      &fakeScores{s},
		Outbox:      &fakeOutbox{s},
	}
}

func (s *store) eventTypes() []domain.EventType {
	out := make([]domain.EventType, len(s.outbox))
	for i, e := range s.outbox {
		out[i] = e.EventType
	}
	return out
}

func less(a, b uuid.UUID) bool { return bytes.Compare(a[:], b[:]) < 0 }

// --- tournaments ---

type fakeTournaments struct{ s *store }

func (r *fakeTournaments) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Tournament, error) {
	t, ok := r.s.tournaments[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTournaments) FindBySlug(_ context.Context, _ repository.DBTX, slug string) (*domain.Tournament, error) {
	for _, t := range r.s.tournaments {
		if t.Slug == slug {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *fakeTournaments) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Tournament, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeTournaments) Create(_ context.Context, _ repository.DBTX, t *domain.Tournament) error {
	if t.ChampionSpecName == "" {
		t.ChampionSpecName = domain.DefaultChampionSpecName
	}
	r.s.tournaments[t.ID] = *t
	return nil
}

func (r *fakeTournaments) SetComplete(_ context.Context, _ repository.DBTX, id uuid.UUID, complete bool) error {
	t := r.s.tournaments[id]
	t.Complete = complete
	r.s.tournaments[id] = t
	return nil
}

func (r *fakeTournaments) AddParticipant(_ context.Context, _ repository.DBTX, p domain.Participant) error {
	list := r.s.participants[p.TournamentID]
	for i := range list {
		if list[i].UserID == p.UserID {
			list[i].DisplayName = p.DisplayName
			return nil
		}
	}
	r.s.participants[p.TournamentID] = append(list, p)
	return nil
}

func (r *fakeTournaments) ListParticipants(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.Participant, error) {
	out := append([]domain.Participant(nil), r.s.participants[tournamentID]...)
	sort.Slice(out, func(i, j int) bool { return less(out[i].UserID, out[j].UserID) })
	return out, nil
}

// --- fixtures ---

type fakeFixtures struct{ s *store }

func (r *fakeFixtures) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Fixture, error) {
	fx, ok := r.s.fixtures[id]
	if !ok {
		return nil, nil
	}
	return &fx, nil
}

func (r *fakeFixtures) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Fixture, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeFixtures) Create(_ context.Context, _ repository.DBTX, fx *domain.Fixture) error {
	r.s.fixtures[fx.ID] = *fx
	return nil
}

func (r *fakeFixtures) Update(_ context.Context, _ repository.DBTX, fx *domain.Fixture) error {
	if _, ok := r.s.fixtures[fx.ID]; !ok {
		return domain.ErrNotFound("fixture", fx.ID.String())
	}
	r.s.fixtures[fx.ID] = *fx
	return nil
}

func (r *fakeFixtures) ListByTournament(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.Fixture, error) {
	var out []domain.Fixture
	for _, fx := range r.s.fixtures {
		if fx.TournamentID == tournamentID {
			out = append(out, fx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].KickoffAt.Equal(out[j].KickoffAt) {
			return out[i].KickoffAt.Before(out[j].KickoffAt)
		}
		return less(out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *fakeFixtures) CountFinished(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) (int, error) {
	n := 0
	for _, fx := range r.s.fixtures {
		if fx.TournamentID == tournamentID && fx.IsFinished() {
			n++
		}
	}
	return n, nil
}

// --- teams ---

type fakeTeams struct{ s *store }

func (r *fakeTeams) FindByID(_ context.Context, _ repository.DBTX, id uuid.UUID) (*domain.Team, error) {
	t, ok := r.s.teams[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTeams) LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Team, error) {
	return r.FindByID(ctx, tx, id)
}

func (r *fakeTeams) Create(_ context.Context, _ repository.DBTX, team *domain.Team) error {
	r.s.teams[team.ID] = *team
	return nil
}

func (r *fakeTeams) UpdateTally(_ context.Context, _ repository.DBTX, team *domain.Team) error {
	t := r.s.teams[team.ID]
	t.Tally = team.Tally
	r.s.teams[team.ID] = t
	return nil
}

func (r *fakeTeams) ListByTournament(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.Team, error) {
	var out []domain.Team
	for _, t := range r.s.teams {
		if t.TournamentID == tournamentID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupLabel != out[j].GroupLabel {
			return out[i].GroupLabel < out[j].GroupLabel
		}
		return out[i].NationCode < out[j].NationCode
	})
	return out, nil
}

// --- tipps ---

type fakePredictions struct{ s *store }

func (r *fakePredictions) Upsert(_ context.Context, _ repository.DBTX, p *domain.Prediction) error {
	r.s.tipps[pairKey{p.UserID, p.FixtureID}] = *p
	return nil
}

func (r *fakePredictions) ListByFixture(_ context.Context, _ repository.DBTX, fixtureID uuid.UUID) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for _, p := range r.s.tipps {
		if p.FixtureID == fixtureID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].UserID, out[j].UserID) })
	return out, nil
}

func (r *fakePredictions) ListByTournament(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, userID *uuid.UUID) ([]domain.Prediction, error) {
	var out []domain.Prediction
	for _, p := range r.s.tipps {
		if r.s.fixtures[p.FixtureID].TournamentID != tournamentID {
			continue
		}
		if userID != nil && p.UserID != *userID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakePredictions) SaveScores(_ context.Context, _ repository.DBTX, preds []domain.Prediction) error {
	for _, p := range preds {
		r.s.tipps[pairKey{p.UserID, p.FixtureID}] = p
	}
	return nil
}

func (r *fakePredictions) ClearScores(_ context.Context, _ repository.DBTX, fixtureID uuid.UUID) (int64, error) {
	var n int64
	for k, p := range r.s.tipps {
		if p.FixtureID != fixtureID {
			continue
		}
		p.TippFlags = domain.TippFlags{}
		p.Score = 0
		p.ScoredAt = nil
		r.s.tipps[k] = p
		n++
	}
	return n, nil
}

func (r *fakePredictions) ListScores(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.TippScore, error) {
	var out []domain.TippScore
	for _, p := range r.s.tipps {
		fx := r.s.fixtures[p.FixtureID]
		if fx.TournamentID != tournamentID {
			continue
		}
		out = append(out, domain.TippScore{UserID: p.UserID, Score: p.Score, Finished: fx.IsFinished()})
	}
	return out, nil
}

// --- specials ---

type fakeSpecials struct{ s *store }

func (r *fakeSpecials) CreateSpec(_ context.Context, _ repository.DBTX, spec *domain.SpecialSpec) error {
	r.s.specs[spec.ID] = *spec
	return nil
}

func (r *fakeSpecials) ListSpecs(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.SpecialSpec, error) {
	var out []domain.SpecialSpec
	for _, spec := range r.s.specs {
		if spec.TournamentID == tournamentID {
			out = append(out, spec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeSpecials) SetActual(_ context.Context, _ repository.DBTX, spec *domain.SpecialSpec) error {
	cur := r.s.specs[spec.ID]
	cur.Actual = spec.Actual
	cur.ResolvedAt = spec.ResolvedAt
	r.s.specs[spec.ID] = cur
	return nil
}

func (r *fakeSpecials) UpsertPrediction(_ context.Context, _ repository.DBTX, p *domain.SpecialPrediction) error {
	r.s.picks[pairKey{p.UserID, p.SpecID}] = *p
	return nil
}

func (r *fakeSpecials) ListPredictions(_ context.Context, _ repository.DBTX, specID uuid.UUID) ([]domain.SpecialPrediction, error) {
	var out []domain.SpecialPrediction
	for _, p := range r.s.picks {
		if p.SpecID == specID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i].UserID, out[j].UserID) })
	return out, nil
}

func (r *fakeSpecials) SaveScores(_ context.Context, _ repository.DBTX, preds []domain.SpecialPrediction) error {
	for _, p := range preds {
		r.s.picks[pairKey{p.UserID, p.SpecID}] = p
	}
	return nil
}

func (r *fakeSpecials) ClearScores(_ context.Context, _ repository.DBTX, specIDs []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range specIDs {
		for k, p := range r.s.picks {
			if p.SpecID != id {
				continue
			}
			p.Score = 0
			p.ScoredAt = nil
			r.s.picks[k] = p
			n++
		}
	}
	return n, nil
}

func (r *fakeSpecials) ListScores(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.SpecialScore, error) {
	var out []domain.SpecialScore
	for _, p := range r.s.picks {
		spec := r.s.specs[p.SpecID]
		if spec.TournamentID != tournamentID {
			continue
		}
		out = append(out, domain.SpecialScore{UserID: p.UserID, Score: p.Score, Resolved: spec.Resolved()})
	}
	return out, nil
}

func (r *fakeSpecials) ChampionPicks(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, specName string) (map[uuid.UUID]uuid.UUID, error) {
	out := make(map[uuid.UUID]uuid.UUID)
	for _, p := range r.s.picks {
		spec := r.s.specs[p.SpecID]
		if spec.TournamentID != tournamentID || spec.Name != specName || p.Predicted.TeamID == nil {
			continue
		}
		out[p.UserID] = *p.Predicted.TeamID
	}
	return out, nil
}

// --- scores ---

type fakeScores struct{ s *store }

func (r *fakeScores) ListByTournament(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID) ([]domain.UserScore, error) {
	out := append([]domain.UserScore(nil), r.s.scores[tournamentID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return less(out[i].UserID, out[j].UserID)
	})
	return out, nil
}

func (r *fakeScores) ReplaceAll(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, scores []domain.UserScore) error {
	r.s.scores[tournamentID] = append([]domain.UserScore(nil), scores...)
	return nil
}

func (r *fakeScores) LatestHistory(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, matchDay int) ([]domain.HistoryEntry, error) {
	latest := make(map[uuid.UUID]domain.HistoryEntry)
	for k, e := range r.s.history[tournamentID] {
		if k.matchDay >= matchDay {
			continue
		}
		if cur, ok := latest[k.user]; !ok || e.MatchDay > cur.MatchDay {
			latest[k.user] = e
		}
	}
	var out []domain.HistoryEntry
	for _, e := range latest {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeScores) ListHistory(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, userIDs []uuid.UUID) ([]domain.HistoryEntry, error) {
	want := make(map[uuid.UUID]bool, len(userIDs))
	for _, id := range userIDs {
		want[id] = true
	}
	var out []domain.HistoryEntry
	for _, e := range r.s.history[tournamentID] {
		if len(want) == 0 || want[e.UserID] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MatchDay != out[j].MatchDay {
			return out[i].MatchDay < out[j].MatchDay
		}
		return less(out[i].UserID, out[j].UserID)
	})
	return out, nil
}

func (r *fakeScores) UpsertHistory(_ context.Context, _ repository.DBTX, entries []domain.HistoryEntry) error {
	for _, e := range entries {
		if r.s.history[e.TournamentID] == nil {
			r.s.history[e.TournamentID] = make(map[historyKey]domain.HistoryEntry)
		}
		r.s.history[e.TournamentID][historyKey{e.UserID, e.MatchDay}] = e
	}
	return nil
}

func (r *fakeScores) PruneHistory(_ context.Context, _ repository.DBTX, tournamentID uuid.UUID, matchDay int) (int64, error) {
	var n int64
	for k := range r.s.history[tournamentID] {
		if k.matchDay > matchDay {
			delete(r.s.history[tournamentID], k)
			n++
		}
	}
	return n, nil
}

// --- outbox ---

type fakeOutbox struct{ s *store }

func (r *fakeOutbox) Insert(_ context.Context, _ repository.DBTX, draft domain.OutboxDraft) error {
	r.s.outbox = append(r.s.outbox, draft)
	return nil
}

func (r *fakeOutbox) FetchUnpublished(_ context.Context, _ repository.DBTX, limit int) ([]domain.OutboxRow, error) {
	var out []domain.OutboxRow
	for i, d := range r.s.outbox {
		if len(out) == limit {
			break
		}
		out = append(out, domain.OutboxRow{SeqID: int64(i + 1), OutboxDraft: d})
	}
	return out, nil
}

func (r *fakeOutbox) MarkPublished(_ context.Context, _ repository.DBTX, _ []int64) error {
	return nil
}
