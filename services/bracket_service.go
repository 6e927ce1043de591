package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playvora/arena-engine/brackets"
	"github.com/playvora/arena-engine/models"
	"github.com/playvora/arena-engine/repositories"
)

// GenerateBracketInput carries the caller's choices for one generation run.
type GenerateBracketInput struct {
	// TwoLegFirstRound expands first-round pairings into home/away legs plus
	// an aggregate master match.
	TwoLegFirstRound bool
	// Rounds is the number of lobby rounds (battle royale only).
	Rounds int
	// GroupQualifiers is how many teams advance from each group
	// (group+knockout only, defaults to 2).
	GroupQualifiers int
	// Confirm acknowledges that an existing bracket will be destroyed.
	Confirm bool
	// ScheduledAt is the kickoff time stamped on every generated match.
	ScheduledAt time.Time
}

// BracketView is the full read model of a tournament's bracket.
type BracketView struct {
	Tournament *models.Tournament      `json:"tournament"`
	Matches    []*models.Match         `json:"matches"`
	Rounds     map[int][]*models.Match `json:"rounds"`
	Standings  []*GroupStandingView    `json:"standings,omitempty"`
}

// GroupStandingView is one team's line in the group-stage table.
type GroupStandingView struct {
	Group     string `json:"group"`
	Rank      int    `json:"rank"`
	TeamID    int    `json:"team_id"`
	TeamName  string `json:"team_name"`
	CaptainID int    `json:"captain_id"`
	Played    int    `json:"played"`
	Wins      int    `json:"wins"`
	Draws     int    `json:"draws"`
	Losses    int    `json:"losses"`
	Points    int    `json:"points"`
}

type BracketService interface {
	// GenerateBracket discards any previous bracket and builds a new one for
	// the tournament's bracket type. Refuses to run while any existing match
	// is still in play, and requires input.Confirm when replacing a bracket.
	GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*BracketView, error)
	// GenerateGroupStage builds the round-robin matches inside each allocated
	// group (group+knockout tournaments, before the knockout bracket).
	GenerateGroupStage(ctx context.Context, tournamentID int, input GenerateBracketInput) (*BracketView, error)
	GetBracket(ctx context.Context, tournamentID int) (*BracketView, error)
	GroupStandings(ctx context.Context, tournamentID int) ([]*GroupStandingView, error)
}

type bracketService struct {
	tx               repositories.TxManager
	matchRepo        repositories.MatchRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	generators       map[models.BracketType]brackets.BracketGenerator
	hub              Broadcaster
	logger           *slog.Logger
}

func NewBracketService(
	tx repositories.TxManager,
	matchRepo repositories.MatchRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	hub Broadcaster,
	logger *slog.Logger,
) BracketService {
	if hub == nil {
		hub = NoopBroadcaster()
	}
	return &bracketService{
		tx:               tx,
		matchRepo:        matchRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		generators: map[models.BracketType]brackets.BracketGenerator{
			models.BracketElimination:   brackets.NewSingleEliminationGenerator(),
			models.BracketGroupKnockout: brackets.NewSingleEliminationGenerator(),
			models.BracketBattleRoyale:  brackets.NewBattleRoyaleGenerator(),
		},
		hub:    hub,
		logger: logger,
	}
}

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int, input GenerateBracketInput) (*BracketView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}

	generator, ok := s.generators[tournament.BracketType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBracketType, tournament.BracketType)
	}

	if err := s.guardRegeneration(ctx, tournament, input.Confirm, tournament.BracketType == models.BracketGroupKnockout); err != nil {
		return nil, err
	}

	seeds, err := s.seedsFor(ctx, tournament, input)
	if err != nil {
		return nil, err
	}

	generated, err := generator.GenerateBracket(ctx, brackets.GenerateBracketParams{
		Tournament: tournament,
		Teams:      seeds,
		Options: brackets.GenerateOptions{
			TwoLegFirstRound: input.TwoLegFirstRound,
			Rounds:           input.Rounds,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnoughTeams, err)
	}

	keepGroups := tournament.BracketType == models.BracketGroupKnockout
	if err := s.persistBracket(ctx, tournament, generated, input.ScheduledAt, keepGroups); err != nil {
		return nil, err
	}

	if tournament.Status == models.TournamentUpcoming {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournamentID, models.TournamentOngoing); err != nil {
			s.logger.Error("failed to mark tournament ongoing", "tournament_id", tournamentID, "error", err)
		}
	}

	view, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		"tournament_id", tournamentID,
		"generator", generator.GetName(),
		"matches", len(generated))

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventBracketUpdated,
		Payload: view,
	})
	return view, nil
}

func (s *bracketService) GenerateGroupStage(ctx context.Context, tournamentID int, input GenerateBracketInput) (*BracketView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if tournament.BracketType != models.BracketGroupKnockout {
		return nil, fmt.Errorf("%w: group stage requires %s", ErrUnsupportedBracketType, models.BracketGroupKnockout)
	}

	if err := s.guardRegeneration(ctx, tournament, input.Confirm, false); err != nil {
		return nil, err
	}

	status := models.RegistrationApproved
	regs, err := s.registrationRepo.ListByTournament(ctx, nil, tournamentID, &status, true)
	if err != nil {
		return nil, mapRepoError(err)
	}

	byGroup := make(map[string][]brackets.SeededTeam)
	for _, reg := range regs {
		if reg.GroupLabel == nil || reg.Team == nil {
			continue
		}
		byGroup[*reg.GroupLabel] = append(byGroup[*reg.GroupLabel], brackets.SeededTeam{
			TeamID:    reg.TeamID,
			Name:      reg.Team.Name,
			CaptainID: reg.Team.CaptainID,
			Seed:      reg.Seed,
		})
	}
	if len(byGroup) == 0 {
		return nil, ErrNoRegistrations
	}

	labels := make([]string, 0, len(byGroup))
	for label := range byGroup {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	// Round robin inside every group. Round index is shared across groups so
	// the schedule interleaves.
	var generated []*brackets.BracketMatch
	for _, label := range labels {
		generated = append(generated, roundRobin(label, byGroup[label])...)
	}
	sort.SliceStable(generated, func(i, j int) bool {
		if generated[i].Round != generated[j].Round {
			return generated[i].Round < generated[j].Round
		}
		return generated[i].OrderInRound < generated[j].OrderInRound
	})

	if err := s.persistBracket(ctx, tournament, generated, input.ScheduledAt, false); err != nil {
		return nil, err
	}

	if tournament.Status == models.TournamentUpcoming {
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, tournamentID, models.TournamentOngoing); err != nil {
			s.logger.Error("failed to mark tournament ongoing", "tournament_id", tournamentID, "error", err)
		}
	}

	view, err := s.GetBracket(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("group stage generated", "tournament_id", tournamentID, "groups", len(labels), "matches", len(generated))

	s.hub.BroadcastToRoom(brackets.RoomForTournament(tournamentID), brackets.WebSocketMessage{
		Type:    brackets.EventGroupsUpdated,
		Payload: view,
	})
	return view, nil
}

// guardRegeneration refuses to wipe a bracket with matches still in play and
// demands an explicit confirmation when approved/finished matches would be
// destroyed. keepGroups limits the check to knockout matches so generating
// the knockout stage does not trip over the finished group stage.
func (s *bracketService) guardRegeneration(ctx context.Context, tournament *models.Tournament, confirm, keepGroups bool) error {
	active, err := s.matchRepo.CountActiveByTournament(ctx, nil, tournament.ID)
	if err != nil {
		return mapRepoError(err)
	}
	if active > 0 {
		return fmt.Errorf("%w: %d matches still in play", ErrBracketLocked, active)
	}

	existing, err := s.matchRepo.ListByTournament(ctx, nil, tournament.ID, repositories.MatchFilter{})
	if err != nil {
		return mapRepoError(err)
	}
	if keepGroups {
		kept := existing[:0]
		for _, m := range existing {
			if m.GroupLabel == nil {
				kept = append(kept, m)
			}
		}
		existing = kept
	}
	if len(existing) > 0 && !confirm {
		return ErrRegenerationNotConfirmed
	}
	return nil
}

// seedsFor builds the seed order for the tournament's bracket type.
func (s *bracketService) seedsFor(ctx context.Context, tournament *models.Tournament, input GenerateBracketInput) ([]brackets.SeededTeam, error) {
	if tournament.BracketType == models.BracketGroupKnockout {
		return s.seedsFromGroupStage(ctx, tournament, input.GroupQualifiers)
	}

	status := models.RegistrationApproved
	regs, err := s.registrationRepo.ListByTournament(ctx, nil, tournament.ID, &status, true)
	if err != nil {
		return nil, mapRepoError(err)
	}
	if len(regs) == 0 {
		return nil, ErrNoRegistrations
	}

	seeds := make([]brackets.SeededTeam, 0, len(regs))
	for i, reg := range regs {
		if reg.Team == nil {
			return nil, fmt.Errorf("%w: registration %d has no team loaded", ErrTeamNotFound, reg.ID)
		}
		seed := reg.Seed
		if seed == 0 {
			seed = i + 1
		}
		seeds = append(seeds, brackets.SeededTeam{
			TeamID:    reg.TeamID,
			Name:      reg.Team.Name,
			CaptainID: reg.Team.CaptainID,
			Seed:      seed,
		})
	}
	sort.SliceStable(seeds, func(i, j int) bool { return seeds[i].Seed < seeds[j].Seed })
	return seeds, nil
}

func (s *bracketService) seedsFromGroupStage(ctx context.Context, tournament *models.Tournament, qualifiers int) ([]brackets.SeededTeam, error) {
	if qualifiers <= 0 {
		qualifiers = 2
	}
	standings, err := s.GroupStandings(ctx, tournament.ID)
	if err != nil {
		return nil, err
	}
	if len(standings) == 0 {
		return nil, fmt.Errorf("%w: no finished group matches", ErrNotEnoughTeams)
	}

	entries := make([]brackets.GroupStandingEntry, 0, len(standings))
	for _, line := range standings {
		entries = append(entries, brackets.GroupStandingEntry{
			Team: brackets.SeededTeam{
				TeamID:    line.TeamID,
				Name:      line.TeamName,
				CaptainID: line.CaptainID,
			},
			Group:  line.Group,
			Rank:   line.Rank,
			Points: line.Points,
		})
	}
	seeds, err := brackets.SeedFromGroups(entries, qualifiers)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotEnoughTeams, err)
	}
	return seeds, nil
}

// persistBracket writes one generation run in a single transaction. Numbers
// are assigned up front in display order so placeholder slots can name their
// source match before it exists as a row. Masters go in before their legs
// (legs need the master's database id), links last.
func (s *bracketService) persistBracket(ctx context.Context, tournament *models.Tournament, generated []*brackets.BracketMatch, scheduledAt time.Time, keepGroups bool) error {
	if scheduledAt.IsZero() {
		scheduledAt = time.Now().Add(24 * time.Hour)
	}

	// Bye events never become rows: the advantaged team was already carried
	// into its next-round slot by the generator.
	playable := make([]*brackets.BracketMatch, 0, len(generated))
	for _, bm := range generated {
		if !bm.IsBye {
			playable = append(playable, bm)
		}
	}
	generated = playable

	return s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		// Numbers are unique within the tournament. A kept group stage
		// already owns the low numbers, so a knockout generated on top of
		// it continues counting after the highest one in use.
		numberOffset := 0
		if keepGroups {
			existing, err := s.matchRepo.ListByTournament(ctx, exec, tournament.ID, repositories.MatchFilter{})
			if err != nil {
				return mapRepoError(err)
			}
			for _, m := range existing {
				if m.MatchNumber > numberOffset {
					numberOffset = m.MatchNumber
				}
			}
		} else {
			if err := s.matchRepo.DeleteByTournament(ctx, exec, tournament.ID); err != nil {
				return err
			}
		}

		uidToNumber := make(map[string]int, len(generated))
		for i, bm := range generated {
			uidToNumber[bm.UID] = i + 1 + numberOffset
		}

		uidToID := make(map[string]int, len(generated))

		for _, bm := range generated {
			if bm.Leg != nil {
				continue
			}
			match := s.buildMatch(tournament, bm, uidToNumber, scheduledAt)
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return err
			}
			uidToID[bm.UID] = match.ID
		}

		for _, bm := range generated {
			if bm.Leg == nil {
				continue
			}
			match := s.buildMatch(tournament, bm, uidToNumber, scheduledAt)
			if bm.AggregateUID != nil {
				masterID, ok := uidToID[*bm.AggregateUID]
				if !ok {
					return fmt.Errorf("leg %s references unknown master %s", bm.UID, *bm.AggregateUID)
				}
				match.AggregateID = &masterID
			}
			if err := s.matchRepo.Create(ctx, exec, match); err != nil {
				return err
			}
			uidToID[bm.UID] = match.ID
		}

		for _, bm := range generated {
			targetID := uidToID[bm.UID]
			if bm.SourceMatchAUID != nil {
				sourceID, ok := uidToID[*bm.SourceMatchAUID]
				if !ok {
					return fmt.Errorf("match %s references unknown source %s", bm.UID, *bm.SourceMatchAUID)
				}
				if err := s.matchRepo.UpdateNextMatchInfo(ctx, exec, sourceID, &targetID, intPtr(models.SlotA)); err != nil {
					return err
				}
			}
			if bm.SourceMatchBUID != nil {
				sourceID, ok := uidToID[*bm.SourceMatchBUID]
				if !ok {
					return fmt.Errorf("match %s references unknown source %s", bm.UID, *bm.SourceMatchBUID)
				}
				if err := s.matchRepo.UpdateNextMatchInfo(ctx, exec, sourceID, &targetID, intPtr(models.SlotB)); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (s *bracketService) buildMatch(tournament *models.Tournament, bm *brackets.BracketMatch, uidToNumber map[string]int, scheduledAt time.Time) *models.Match {
	match := &models.Match{
		TournamentID: tournament.ID,
		Round:        bm.Round,
		MatchNumber:  uidToNumber[bm.UID],
		GroupLabel:   bm.GroupLabel,
		Format:       bm.Format,
		ScheduledAt:  scheduledAt,
		Status:       models.MatchScheduled,
		Leg:          bm.Leg,
	}
	if match.Format == "" {
		match.Format = models.FormatHeadToHead
	}
	match.SlotA = slotFor(bm.TeamA, bm.SourceMatchAUID, uidToNumber)
	match.SlotB = slotFor(bm.TeamB, bm.SourceMatchBUID, uidToNumber)
	return match
}

// slotFor builds the persisted slot for one side: concrete when the team is
// known at generation time, otherwise a placeholder naming the source match.
func slotFor(team *brackets.SeededTeam, sourceUID *string, uidToNumber map[string]int) models.MatchSlot {
	if team != nil {
		return concreteSlot(team.TeamID, team.Name, team.CaptainID)
	}
	if sourceUID != nil {
		if number, ok := uidToNumber[*sourceUID]; ok {
			return models.MatchSlot{SourceMatchNumber: &number}
		}
	}
	return models.MatchSlot{}
}

// roundRobin schedules every pairing inside one group with the circle
// method. A dummy team gives odd-sized groups their bye round.
func roundRobin(groupLabel string, teams []brackets.SeededTeam) []*brackets.BracketMatch {
	n := len(teams)
	if n < 2 {
		return nil
	}

	rotation := make([]*brackets.SeededTeam, 0, n+1)
	for i := range teams {
		rotation = append(rotation, &teams[i])
	}
	if n%2 == 1 {
		rotation = append(rotation, nil)
	}

	size := len(rotation)
	var matches []*brackets.BracketMatch
	for round := 1; round < size; round++ {
		order := 1
		for i := 0; i < size/2; i++ {
			a, b := rotation[i], rotation[size-1-i]
			if a == nil || b == nil {
				continue
			}
			label := groupLabel
			matches = append(matches, &brackets.BracketMatch{
				UID:          fmt.Sprintf("G%sR%dM%d", groupLabel, round, order),
				Round:        round,
				OrderInRound: order,
				TeamA:        a,
				TeamB:        b,
				Format:       models.FormatHeadToHead,
				GroupLabel:   &label,
			})
			order++
		}
		// Rotate everyone but the first entry.
		last := rotation[size-1]
		copy(rotation[2:], rotation[1:size-1])
		rotation[1] = last
	}
	return matches
}

func (s *bracketService) GetBracket(ctx context.Context, tournamentID int) (*BracketView, error) {
	var (
		tournament *models.Tournament
		matches    []*models.Match
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tournamentRepo.GetByID(gctx, nil, tournamentID)
		if err != nil {
			return mapRepoError(err)
		}
		tournament = t
		return nil
	})
	g.Go(func() error {
		list, err := s.matchRepo.ListByTournament(gctx, nil, tournamentID, repositories.MatchFilter{})
		if err != nil {
			return mapRepoError(err)
		}
		matches = list
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &BracketView{
		Tournament: tournament,
		Matches:    matches,
		Rounds:     make(map[int][]*models.Match),
	}
	for _, m := range matches {
		view.Rounds[m.Round] = append(view.Rounds[m.Round], m)
	}
	if tournament.BracketType == models.BracketGroupKnockout {
		view.Standings = standingsFromMatches(tournament, matches)
	}
	return view, nil
}

func (s *bracketService) GroupStandings(ctx context.Context, tournamentID int) ([]*GroupStandingView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	matches, err := s.matchRepo.ListByTournament(ctx, nil, tournamentID, repositories.MatchFilter{})
	if err != nil {
		return nil, mapRepoError(err)
	}
	return standingsFromMatches(tournament, matches), nil
}

// standingsFromMatches tallies approved group matches into per-group tables.
// Win/draw points come from the tournament's points config, 3/1 when unset.
func standingsFromMatches(tournament *models.Tournament, matches []*models.Match) []*GroupStandingView {
	winPoints := tournament.PointsConfig.WinPoints
	if winPoints == 0 {
		winPoints = 3
	}
	drawPoints := tournament.PointsConfig.DrawPoints
	if drawPoints == 0 {
		drawPoints = 1
	}

	lines := make(map[int]*GroupStandingView)
	lineFor := func(group string, slot models.MatchSlot) *GroupStandingView {
		if slot.TeamID == nil {
			return nil
		}
		line, ok := lines[*slot.TeamID]
		if !ok {
			line = &GroupStandingView{Group: group, TeamID: *slot.TeamID, TeamName: slot.TeamName}
			if slot.CaptainID != nil {
				line.CaptainID = *slot.CaptainID
			}
			lines[*slot.TeamID] = line
		}
		return line
	}

	for _, m := range matches {
		if m.GroupLabel == nil || m.Status != models.MatchApproved || m.Result == nil {
			continue
		}
		a := lineFor(*m.GroupLabel, m.SlotA)
		b := lineFor(*m.GroupLabel, m.SlotB)
		if a == nil || b == nil {
			continue
		}
		a.Played++
		b.Played++
		switch m.Result.WinnerSlot() {
		case models.SlotA:
			a.Wins++
			a.Points += winPoints
			b.Losses++
		case models.SlotB:
			b.Wins++
			b.Points += winPoints
			a.Losses++
		default:
			a.Draws++
			b.Draws++
			a.Points += drawPoints
			b.Points += drawPoints
		}
	}

	table := make([]*GroupStandingView, 0, len(lines))
	for _, line := range lines {
		table = append(table, line)
	}
	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Group != table[j].Group {
			return table[i].Group < table[j].Group
		}
		if table[i].Points != table[j].Points {
			return table[i].Points > table[j].Points
		}
		if table[i].Wins != table[j].Wins {
			return table[i].Wins > table[j].Wins
		}
		return table[i].TeamID < table[j].TeamID
	})

	rank := 0
	lastGroup := ""
	for _, line := range table {
		if line.Group != lastGroup {
			rank = 0
			lastGroup = line.Group
		}
		rank++
		line.Rank = rank
	}
	return table
}
