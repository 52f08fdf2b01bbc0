// Package series tracks a best-of-N sequence of drafts between the same two
// teams: aggregate score, per-game history, and the champion carry-forward
// that fearless mode feeds into the next game's exclusion pool.
package series

import (
	"errors"
	"fmt"
	"sort"

	"riftdraft/internal/engine"
)

var (
	ErrSeriesDecided = errors.New("series already decided")
	ErrNoResult      = errors.New("game has no recorded winner")
	ErrMissingRoster = errors.New("missing roster data")
)

type TeamRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GameRecord is one completed draft folded into the series.
type GameRecord struct {
	SessionID  string                   `json:"session_id"`
	GameNumber int                      `json:"game_number"`
	Winner     engine.Side              `json:"winner"`
	Forfeited  bool                     `json:"forfeited"`
	Bans       map[engine.Side][]string `json:"bans"`
	Picks      map[engine.Side][]string `json:"picks"`
}

// Series owns the cross-game state. It is only mutated between games, by the
// registry goroutine, never while a draft is in progress.
type Series struct {
	ID          string
	Kind        engine.SessionKind
	Type        engine.SeriesType
	Fearless    bool
	Patch       string
	Tournament  string
	BanTimerMs  int64
	PickTimerMs int64

	Score   map[engine.Side]int
	History []GameRecord

	roster map[engine.Side]TeamRef
	used   map[engine.Side]map[string]bool
}

func New(id string, cfg engine.Config) *Series {
	return &Series{
		ID:          id,
		Kind:        cfg.Kind,
		Type:        cfg.SeriesType,
		Fearless:    cfg.Fearless,
		Patch:       cfg.Patch,
		Tournament:  cfg.Tournament,
		BanTimerMs:  cfg.BanTimerMs,
		PickTimerMs: cfg.PickTimerMs,
		Score:       map[engine.Side]int{engine.SideBlue: 0, engine.SideRed: 0},
		roster:      map[engine.Side]TeamRef{},
		used:        map[engine.Side]map[string]bool{},
	}
}

// Record folds a completed draft into the series. The state must be terminal
// with a recorded winner; a violated precondition leaves the series intact.
func (s *Series) Record(sessionID string, state engine.State) error {
	if _, decided := s.Decided(); decided {
		return ErrSeriesDecided
	}
	if state.Phase != engine.PhaseCompleted || state.Winner == "" {
		return ErrNoResult
	}

	rec := GameRecord{
		SessionID:  sessionID,
		GameNumber: state.Config.GameNumber,
		Winner:     state.Winner,
		Forfeited:  state.ForfeitedBy != "",
		Bans:       map[engine.Side][]string{},
		Picks:      map[engine.Side][]string{},
	}
	for side, team := range state.Teams {
		rec.Bans[side] = append([]string{}, team.Bans...)
		rec.Picks[side] = append([]string{}, team.Picks...)
		s.roster[side] = TeamRef{ID: team.ID, Name: team.Name}
		if s.used[side] == nil {
			s.used[side] = map[string]bool{}
		}
		// Only picks carry forward; bans stay game-local.
		for _, id := range team.Picks {
			s.used[side][id] = true
		}
	}

	s.Score[state.Winner]++
	s.History = append(s.History, rec)
	return nil
}

// Decided reports the series winner once a side holds the majority.
func (s *Series) Decided() (engine.Side, bool) {
	need := s.Type.Majority()
	for _, side := range []engine.Side{engine.SideBlue, engine.SideRed} {
		if s.Score[side] >= need {
			return side, true
		}
	}
	return "", false
}

// Finished is true when no further game may be created: either one side has
// the majority or every game has been played.
func (s *Series) Finished() bool {
	if _, decided := s.Decided(); decided {
		return true
	}
	return len(s.History) >= s.Type.Games()
}

// NextConfig builds the config for the following game. It fails when the
// series is over or when no roster has been recorded yet.
func (s *Series) NextConfig() (engine.Config, error) {
	if s.Finished() {
		return engine.Config{}, ErrSeriesDecided
	}
	if len(s.History) == 0 {
		return engine.Config{}, fmt.Errorf("series %s: no completed game to continue from: %w", s.ID, ErrMissingRoster)
	}
	for _, side := range []engine.Side{engine.SideBlue, engine.SideRed} {
		if s.roster[side].ID == "" {
			return engine.Config{}, fmt.Errorf("series %s: side %s: %w", s.ID, side, ErrMissingRoster)
		}
	}
	return engine.Config{
		Kind:        s.Kind,
		SeriesType:  s.Type,
		GameNumber:  len(s.History) + 1,
		TotalGames:  s.Type.Games(),
		Fearless:    s.Fearless,
		Patch:       s.Patch,
		Tournament:  s.Tournament,
		BanTimerMs:  s.BanTimerMs,
		PickTimerMs: s.PickTimerMs,
	}, nil
}

// Roster returns the team reference recorded for a side.
func (s *Series) Roster(side engine.Side) (TeamRef, bool) {
	ref, ok := s.roster[side]
	return ref, ok && ref.ID != ""
}

// UsedBy lists the champions a side has picked across the series so far, in
// stable order, for seeding the next game's registration.
func (s *Series) UsedBy(side engine.Side) []string {
	ids := make([]string, 0, len(s.used[side]))
	for id := range s.used[side] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
