package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// In-memory stand-ins for the postgres repositories. They mirror the
// repository contracts closely enough to exercise the services, including
// the compare-and-set semantics of UpdateResultStatus.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTxManager struct{}

func (fakeTxManager) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	return fn(nil)
}

type fakeMatchRepo struct {
	matches map[int]*models.Match
	nextID  int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[int]*models.Match), nextID: 1}
}

func (r *fakeMatchRepo) add(m *models.Match) *models.Match {
	if m.ID == 0 {
		m.ID = r.nextID
		r.nextID++
	} else if m.ID >= r.nextID {
		r.nextID = m.ID + 1
	}
	r.matches[m.ID] = m
	return m
}

func (r *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) error {
	for _, m := range r.matches {
		if m.TournamentID == match.TournamentID && m.MatchNumber == match.MatchNumber {
			return repositories.ErrMatchNumberConflict
		}
	}
	match.CreatedAt = time.Now()
	r.add(match)
	return nil
}

func (r *fakeMatchRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) GetByNumber(ctx context.Context, exec repositories.SQLExecutor, tournamentID, matchNumber int) (*models.Match, error) {
	for _, m := range r.matches {
		if m.TournamentID == tournamentID && m.MatchNumber == matchNumber {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (r *fakeMatchRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, filter repositories.MatchFilter) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		if filter.Round != nil && m.Round != *filter.Round {
			continue
		}
		if filter.Status != nil && m.Status != *filter.Status {
			continue
		}
		if filter.GroupLabel != nil && (m.GroupLabel == nil || *m.GroupLabel != *filter.GroupLabel) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchNumber < out[j].MatchNumber })
	return out, nil
}

func (r *fakeMatchRepo) ListByAggregate(ctx context.Context, exec repositories.SQLExecutor, aggregateID int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range r.matches {
		if m.AggregateID != nil && *m.AggregateID == aggregateID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeMatchRepo) UpdateResultStatus(ctx context.Context, exec repositories.SQLExecutor, id int, result *models.MatchResult, expected []models.MatchStatus, next models.MatchStatus) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	allowed := false
	for _, s := range expected {
		if m.Status == s {
			allowed = true
			break
		}
	}
	if !allowed {
		return repositories.ErrMatchStateConflict
	}
	m.Result = result
	m.Status = next
	return nil
}

func (r *fakeMatchRepo) UpdateSlot(ctx context.Context, exec repositories.SQLExecutor, id int, slot int, value models.MatchSlot) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	if slot == models.SlotB {
		m.SlotB = value
	} else {
		m.SlotA = value
	}
	return nil
}

func (r *fakeMatchRepo) UpdateNextMatchInfo(ctx context.Context, exec repositories.SQLExecutor, id int, nextMatchID, nextSlot *int) error {
	m, ok := r.matches[id]
	if !ok {
		return repositories.ErrMatchNotFound
	}
	m.NextMatchID = nextMatchID
	m.NextSlot = nextSlot
	return nil
}

func (r *fakeMatchRepo) CountActiveByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	count := 0
	for _, m := range r.matches {
		if m.TournamentID != tournamentID {
			continue
		}
		switch m.Status {
		case models.MatchScheduled, models.MatchApproved, models.MatchRejected:
		default:
			count++
		}
	}
	return count, nil
}

func (r *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	for id, m := range r.matches {
		if m.TournamentID == tournamentID {
			delete(r.matches, id)
		}
	}
	return nil
}

type fakeTournamentRepo struct {
	tournaments map[int]*models.Tournament
}

func newFakeTournamentRepo(ts ...*models.Tournament) *fakeTournamentRepo {
	r := &fakeTournamentRepo{tournaments: make(map[int]*models.Tournament)}
	for _, t := range ts {
		r.tournaments[t.ID] = t
	}
	return r
}

func (r *fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	return nil
}

type fakeTeamRepo struct {
	teams   map[int]*models.Team
	rosters map[int][]models.User
}

func newFakeTeamRepo(teams ...*models.Team) *fakeTeamRepo {
	r := &fakeTeamRepo{teams: make(map[int]*models.Team), rosters: make(map[int][]models.User)}
	for _, t := range teams {
		r.teams[t.ID] = t
	}
	return r
}

func (r *fakeTeamRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Team, error) {
	t, ok := r.teams[id]
	if !ok {
		return nil, repositories.ErrTeamNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeTeamRepo) GetRoster(ctx context.Context, exec repositories.SQLExecutor, teamID int) ([]models.User, error) {
	return r.rosters[teamID], nil
}

type fakeRegistrationRepo struct {
	registrations map[int]*models.Registration
}

func newFakeRegistrationRepo(regs ...*models.Registration) *fakeRegistrationRepo {
	r := &fakeRegistrationRepo{registrations: make(map[int]*models.Registration)}
	for _, reg := range regs {
		r.registrations[reg.ID] = reg
	}
	return r
}

func (r *fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Registration, error) {
	reg, ok := r.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	cp := *reg
	return &cp, nil
}

func (r *fakeRegistrationRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, status *models.RegistrationStatus, withTeams bool) ([]*models.Registration, error) {
	var out []*models.Registration
	for _, reg := range r.registrations {
		if reg.TournamentID != tournamentID {
			continue
		}
		if status != nil && reg.Status != *status {
			continue
		}
		cp := *reg
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Seed != out[j].Seed {
			return out[i].Seed < out[j].Seed
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeRegistrationRepo) UpdateGroupLabel(ctx context.Context, exec repositories.SQLExecutor, id int, label *string, allocationVersion int) error {
	reg, ok := r.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	reg.GroupLabel = label
	reg.AllocationVersion = allocationVersion
	return nil
}

func (r *fakeRegistrationRepo) MaxAllocationVersion(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) (int, error) {
	max := 0
	for _, reg := range r.registrations {
		if reg.TournamentID == tournamentID && reg.AllocationVersion > max {
			max = reg.AllocationVersion
		}
	}
	return max, nil
}

type fakeStatsRepo struct {
	teamStats   map[string]*models.TeamStats
	playerStats map[string]*models.PlayerStats
}

func newFakeStatsRepo() *fakeStatsRepo {
	return &fakeStatsRepo{
		teamStats:   make(map[string]*models.TeamStats),
		playerStats: make(map[string]*models.PlayerStats),
	}
}

func (r *fakeStatsRepo) GetTeamStats(ctx context.Context, exec repositories.SQLExecutor, teamID int, game string) (*models.TeamStats, error) {
	s, ok := r.teamStats[models.StatsKey(teamID, game)]
	if !ok {
		return nil, repositories.ErrTeamStatsNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) GetOrCreateTeamStats(ctx context.Context, exec repositories.SQLExecutor, teamID int, game string) (*models.TeamStats, error) {
	key := models.StatsKey(teamID, game)
	if s, ok := r.teamStats[key]; ok {
		cp := *s
		return &cp, nil
	}
	s := &models.TeamStats{ID: key, TeamID: teamID, Game: game}
	r.teamStats[key] = s
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) UpdateTeamStats(ctx context.Context, exec repositories.SQLExecutor, stats *models.TeamStats) error {
	cp := *stats
	r.teamStats[stats.ID] = &cp
	return nil
}

func (r *fakeStatsRepo) GetPlayerStats(ctx context.Context, exec repositories.SQLExecutor, playerID int, game string) (*models.PlayerStats, error) {
	s, ok := r.playerStats[models.StatsKey(playerID, game)]
	if !ok {
		return nil, repositories.ErrPlayerStatsNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) GetOrCreatePlayerStats(ctx context.Context, exec repositories.SQLExecutor, playerID int, game string) (*models.PlayerStats, error) {
	key := models.StatsKey(playerID, game)
	if s, ok := r.playerStats[key]; ok {
		cp := *s
		return &cp, nil
	}
	s := &models.PlayerStats{ID: key, PlayerID: playerID, Game: game}
	r.playerStats[key] = s
	cp := *s
	return &cp, nil
}

func (r *fakeStatsRepo) UpdatePlayerStats(ctx context.Context, exec repositories.SQLExecutor, stats *models.PlayerStats) error {
	cp := *stats
	r.playerStats[stats.ID] = &cp
	return nil
}

type fakeAuditRepo struct {
	entries []*models.AuditLogEntry
}

func (r *fakeAuditRepo) Create(ctx context.Context, exec repositories.SQLExecutor, entry *models.AuditLogEntry) error {
	entry.ID = len(r.entries) + 1
	entry.CreatedAt = time.Now()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *fakeAuditRepo) ListByMatch(ctx context.Context, exec repositories.SQLExecutor, matchID int) ([]*models.AuditLogEntry, error) {
	var out []*models.AuditLogEntry
	for _, e := range r.entries {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) ListByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, limit int) ([]*models.AuditLogEntry, error) {
	var out []*models.AuditLogEntry
	for _, e := range r.entries {
		if e.TournamentID == tournamentID {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
