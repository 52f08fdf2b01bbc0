package engine

import (
	"errors"
	"reflect"
	"testing"

	"riftdraft/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Champion{
		{ID: "aatrox", Name: "Aatrox"},
		{ID: "ahri", Name: "Ahri"},
		{ID: "akali", Name: "Akali"},
		{ID: "alistar", Name: "Alistar"},
		{ID: "amumu", Name: "Amumu"},
		{ID: "annie", Name: "Annie"},
		{ID: "ashe", Name: "Ashe"},
		{ID: "azir", Name: "Azir"},
		{ID: "bard", Name: "Bard"},
		{ID: "braum", Name: "Braum"},
		{ID: "caitlyn", Name: "Caitlyn"},
		{ID: "camille", Name: "Camille"},
		{ID: "darius", Name: "Darius"},
		{ID: "diana", Name: "Diana"},
		{ID: "ekko", Name: "Ekko"},
		{ID: "elise", Name: "Elise"},
		{ID: "ezreal", Name: "Ezreal"},
		{ID: "fiora", Name: "Fiora"},
		{ID: "galio", Name: "Galio"},
		{ID: "garen", Name: "Garen"},
		{ID: "gnar", Name: "Gnar"},
		{ID: "gragas", Name: "Gragas"},
		{ID: "graves", Name: "Graves"},
		{ID: "gwen", Name: "Gwen"},
	})
	if err != nil {
		t.Fatalf("test catalog: %v", err)
	}
	return cat
}

func testConfig() Config {
	return Config{SeriesType: SeriesBo1, BanTimerMs: 25_000, PickTimerMs: 30_000}
}

// startedState drives a fresh session through registration and readiness so
// the draft sits at ban1 slot 0.
func startedState(t *testing.T, cat *catalog.Catalog, cfg Config, blueUsed, redUsed []string) State {
	t.Helper()
	s := NewState(cfg)
	for _, cmd := range []Command{
		{Type: CmdRegisterTeam, Side: SideBlue, TeamID: "t-blue", TeamName: "Blue Side", Used: blueUsed},
		{Type: CmdRegisterTeam, Side: SideRed, TeamID: "t-red", TeamName: "Red Side", Used: redUsed},
		{Type: CmdSetReady, Side: SideBlue, Ready: true},
		{Type: CmdSetReady, Side: SideRed, Ready: true},
	} {
		var err error
		if _, s, err = Apply(cat, s, cmd); err != nil {
			t.Fatalf("setup %s: %v", cmd.Type, err)
		}
	}
	if s.Phase != PhaseBan1 {
		t.Fatalf("setup: want phase ban1, got %v", s.Phase)
	}
	return s
}

// submitAndLock performs one full slot for the acting side.
func submitAndLock(t *testing.T, cat *catalog.Catalog, s State, champ string) State {
	t.Helper()
	step, done := CurrentStep(s)
	if done {
		t.Fatalf("submitAndLock on completed draft")
	}
	_, s, err := Apply(cat, s, Command{Type: CmdSubmitSelection, Side: step.Side, ChampionID: champ})
	if err != nil {
		t.Fatalf("submit %s: %v", champ, err)
	}
	_, s, err = Apply(cat, s, Command{Type: CmdLockSelection, Side: step.Side})
	if err != nil {
		t.Fatalf("lock %s: %v", champ, err)
	}
	return s
}

func TestRegisterBothTeamsEntersLobby(t *testing.T) {
	cat := testCatalog(t)
	s := NewState(testConfig())

	events, s, err := Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideBlue, TeamID: "t1", TeamName: "T1"})
	if err != nil {
		t.Fatalf("register blue: %v", err)
	}
	if s.Phase != PhaseConfig || ContainsEvent(events, EvtLobbyEntered) {
		t.Fatalf("one team registered: want config phase, got %v", s.Phase)
	}

	events, s, err = Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideRed, TeamID: "t2", TeamName: "GEN"})
	if err != nil {
		t.Fatalf("register red: %v", err)
	}
	if s.Phase != PhaseLobby {
		t.Fatalf("want lobby after both registered, got %v", s.Phase)
	}
	if !ContainsEvent(events, EvtLobbyEntered) {
		t.Fatalf("expected EvtLobbyEntered")
	}
}

func TestReadyGateStartsDraft(t *testing.T) {
	cat := testCatalog(t)
	s := NewState(testConfig())
	_, s, _ = Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideBlue, TeamID: "a", TeamName: "A"})
	_, s, _ = Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideRed, TeamID: "b", TeamName: "B"})

	events, s, err := Apply(cat, s, Command{Type: CmdSetReady, Side: SideBlue, Ready: true})
	if err != nil {
		t.Fatalf("ready blue: %v", err)
	}
	if s.Phase != PhaseLobby || ContainsEvent(events, EvtDraftStarted) {
		t.Fatalf("one side ready must not start the draft")
	}

	events, s, err = Apply(cat, s, Command{Type: CmdSetReady, Side: SideRed, Ready: true})
	if err != nil {
		t.Fatalf("ready red: %v", err)
	}
	if s.Phase != PhaseBan1 || s.Cursor != 0 {
		t.Fatalf("want ban1/0 after both ready, got %v/%d", s.Phase, s.Cursor)
	}
	if !ContainsEvent(events, EvtDraftStarted) || !ContainsEvent(events, EvtTimerStarted) {
		t.Fatalf("expected DraftStarted and TimerStarted, got %+v", events)
	}
}

func TestPhaseGuards(t *testing.T) {
	cat := testCatalog(t)
	cases := []struct {
		name    string
		state   func() State
		cmd     Command
		wantErr error
	}{
		{
			name:    "ready outside lobby",
			state:   func() State { return NewState(testConfig()) },
			cmd:     Command{Type: CmdSetReady, Side: SideBlue, Ready: true},
			wantErr: ErrInvalidPhaseForAction,
		},
		{
			name:    "submit before draft",
			state:   func() State { return NewState(testConfig()) },
			cmd:     Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"},
			wantErr: ErrInvalidPhaseForAction,
		},
		{
			name:    "register after config",
			state:   func() State { return startedState(t, cat, testConfig(), nil, nil) },
			cmd:     Command{Type: CmdRegisterTeam, Side: SideBlue, TeamID: "x"},
			wantErr: ErrInvalidPhaseForAction,
		},
		{
			name: "lock on completed draft",
			state: func() State {
				s := startedState(t, cat, testConfig(), nil, nil)
				s.Phase = PhaseCompleted
				s.Cursor = len(GameOrder)
				return s
			},
			cmd:     Command{Type: CmdLockSelection, Side: SideBlue},
			wantErr: ErrSessionAlreadyTerminal,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Apply(cat, tc.state(), tc.cmd)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSubmitLegality(t *testing.T) {
	cat := testCatalog(t)
	cases := []struct {
		name    string
		mutate  func(*State)
		cmd     Command
		wantErr error
	}{
		{
			name:    "wrong side",
			cmd:     Command{Type: CmdSubmitSelection, Side: SideRed, ChampionID: "ahri"},
			wantErr: ErrNotYourTurn,
		},
		{
			name:    "unknown champion",
			cmd:     Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "teemoo"},
			wantErr: ErrChampionUnavailable,
		},
		{
			name:    "already banned",
			mutate:  func(s *State) { s.Teams[SideRed].Bans = append(s.Teams[SideRed].Bans, "ahri") },
			cmd:     Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"},
			wantErr: ErrChampionUnavailable,
		},
		{
			name:    "already picked by opponent",
			mutate:  func(s *State) { s.Teams[SideRed].Picks = append(s.Teams[SideRed].Picks, "ahri") },
			cmd:     Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"},
			wantErr: ErrChampionUnavailable,
		},
		{
			name:   "legal hover",
			cmd:    Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := startedState(t, cat, testConfig(), nil, nil)
			if tc.mutate != nil {
				tc.mutate(&s)
			}
			before := s.clone()
			_, next, err := Apply(cat, s, tc.cmd)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("want %v, got %v", tc.wantErr, err)
				}
				if !reflect.DeepEqual(before, next.clone()) {
					t.Fatalf("rejected command mutated state")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if next.Teams[SideBlue].Selection != tc.cmd.ChampionID {
				t.Fatalf("hover not recorded: %+v", next.Teams[SideBlue])
			}
		})
	}
}

func TestLockWithoutSubmit(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	_, _, err := Apply(cat, s, Command{Type: CmdLockSelection, Side: SideBlue})
	if !errors.Is(err, ErrNoSelectionPending) {
		t.Fatalf("want ErrNoSelectionPending, got %v", err)
	}
}

func TestFirstBanAdvancesToRed(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	s = submitAndLock(t, cat, s, "ahri")

	if s.Cursor != 1 || TurnNumber(s.Cursor) != 1 {
		t.Fatalf("want cursor/turn 1 after first lock, got %d/%d", s.Cursor, TurnNumber(s.Cursor))
	}
	step, _ := CurrentStep(s)
	if step.Side != SideRed || step.Action != ActionBan || s.Phase != PhaseBan1 {
		t.Fatalf("want (ban1,1,red,ban), got phase=%v step=%+v", s.Phase, step)
	}
}

func TestFullDraftWalkthrough(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)

	champs := cat.Ordered()
	wantPhases := []Phase{PhaseBan1, PhasePick1, PhaseBan2, PhasePick2}
	seenPhases := []Phase{s.Phase}
	lastCursor := -1

	for i := 0; i < len(GameOrder); i++ {
		if s.Cursor <= lastCursor {
			t.Fatalf("cursor did not advance: %d -> %d", lastCursor, s.Cursor)
		}
		lastCursor = s.Cursor
		s = submitAndLock(t, cat, s, champs[i].ID)
		if s.Phase != seenPhases[len(seenPhases)-1] {
			seenPhases = append(seenPhases, s.Phase)
		}
	}

	if s.Phase != PhaseCompleted {
		t.Fatalf("want completed after %d slots, got %v", len(GameOrder), s.Phase)
	}
	wantSeen := append(wantPhases, PhaseCompleted)
	if !reflect.DeepEqual(seenPhases, wantSeen) {
		t.Fatalf("phase progression %v, want %v", seenPhases, wantSeen)
	}

	// No champion may appear twice across both teams' bans+picks.
	seen := map[string]bool{}
	total := 0
	for _, side := range []Side{SideBlue, SideRed} {
		for _, id := range append(append([]string{}, s.Teams[side].Bans...), s.Teams[side].Picks...) {
			if seen[id] {
				t.Fatalf("champion %s appears twice", id)
			}
			seen[id] = true
			total++
		}
	}
	if total != len(GameOrder) {
		t.Fatalf("want %d locked champions, got %d", len(GameOrder), total)
	}
	if got := len(s.Teams[SideBlue].Picks); got != 5 {
		t.Fatalf("blue picks = %d, want 5", got)
	}
	if got := len(s.Teams[SideRed].Bans); got != 5 {
		t.Fatalf("red bans = %d, want 5", got)
	}
}

func TestFearlessBlocksPriorSeriesPick(t *testing.T) {
	cat := testCatalog(t)
	cfg := testConfig()
	cfg.SeriesType = SeriesBo3
	cfg.Fearless = true
	cfg.GameNumber = 2

	// Blue picked ahri in game 1; it was never banned in game 2.
	s := startedState(t, cat, cfg, []string{"ahri"}, []string{"darius"})

	if !s.Fearless["ahri"] || !s.Fearless["darius"] {
		t.Fatalf("fearless pool not seeded from prior picks: %+v", s.Fearless)
	}

	_, _, err := Apply(cat, s, Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"})
	if !errors.Is(err, ErrChampionUnavailable) {
		t.Fatalf("fearless pick: want ErrChampionUnavailable, got %v", err)
	}
	// Banning a carried champion is refused too: it is already out of the pool.
	_, _, err = Apply(cat, s, Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "darius"})
	if !errors.Is(err, ErrChampionUnavailable) {
		t.Fatalf("fearless ban: want ErrChampionUnavailable, got %v", err)
	}
}

func TestNonFearlessIgnoresPriorGames(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), []string{"ahri"}, nil)
	if len(s.Fearless) != 0 {
		t.Fatalf("non-fearless series must not seed a pool: %+v", s.Fearless)
	}
	if _, _, err := Apply(cat, s, Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "ahri"}); err != nil {
		t.Fatalf("prior-game pick should be legal outside fearless: %v", err)
	}
}

func TestTimeoutLocksPendingHover(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	_, s, err := Apply(cat, s, Command{Type: CmdSubmitSelection, Side: SideBlue, ChampionID: "gwen"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	events, s, err := Apply(cat, s, Command{Type: CmdResolveTimeout, Cursor: 0})
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if !ContainsEvent(events, EvtTimerExpired) || !ContainsEvent(events, EvtChampionBanned) {
		t.Fatalf("want expiry + ban events, got %+v", events)
	}
	if got := s.Teams[SideBlue].Bans; len(got) != 1 || got[0] != "gwen" {
		t.Fatalf("timeout must lock the pending hover, got %v", got)
	}
	if s.Cursor != 1 {
		t.Fatalf("timeout must advance the turn, cursor=%d", s.Cursor)
	}
}

func TestTimeoutFallbackIsFirstAvailable(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	s.Teams[SideRed].Bans = append(s.Teams[SideRed].Bans, "aatrox") // first catalog entry gone

	events, s, err := Apply(cat, s, Command{Type: CmdResolveTimeout, Cursor: 0})
	if err != nil {
		t.Fatalf("timeout: %v", err)
	}
	if !ContainsEvent(events, EvtChampionBanned) {
		t.Fatalf("want fallback ban, got %+v", events)
	}
	if got := s.Teams[SideBlue].Bans; len(got) != 1 || got[0] != "ahri" {
		t.Fatalf("fallback must be first available in catalog order, got %v", got)
	}
}

func TestTimeoutStaleSlotIsNoOp(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	s = submitAndLock(t, cat, s, "ahri") // cursor now 1

	events, next, err := Apply(cat, s, Command{Type: CmdResolveTimeout, Cursor: 0})
	if err != nil {
		t.Fatalf("stale timeout must not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("stale timeout must emit nothing, got %+v", events)
	}
	if !reflect.DeepEqual(s.clone(), next.clone()) {
		t.Fatalf("stale timeout mutated state")
	}
}

func TestTimeoutOnCompletedDraftIsNoOp(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	s.Phase = PhaseCompleted
	s.Cursor = len(GameOrder)

	events, _, err := Apply(cat, s, Command{Type: CmdResolveTimeout, Cursor: len(GameOrder)})
	if err != nil || len(events) != 0 {
		t.Fatalf("want silent no-op, got events=%v err=%v", events, err)
	}
}

func TestLastLockCompletesDraft(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)
	champs := cat.Ordered()
	for i := 0; i < len(GameOrder)-1; i++ {
		s = submitAndLock(t, cat, s, champs[i].ID)
	}

	step, _ := CurrentStep(s)
	_, s, err := Apply(cat, s, Command{Type: CmdSubmitSelection, Side: step.Side, ChampionID: champs[len(GameOrder)-1].ID})
	if err != nil {
		t.Fatalf("submit last: %v", err)
	}
	events, s, err := Apply(cat, s, Command{Type: CmdLockSelection, Side: step.Side})
	if err != nil {
		t.Fatalf("lock last: %v", err)
	}
	if !ContainsEvent(events, EvtDraftCompleted) {
		t.Fatalf("expected EvtDraftCompleted, got %+v", events)
	}
	if ContainsEvent(events, EvtTimerStarted) {
		t.Fatalf("no timer after completion")
	}
	if s.Phase != PhaseCompleted {
		t.Fatalf("want completed, got %v", s.Phase)
	}
}

func TestForfeit(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)

	events, s, err := Apply(cat, s, Command{Type: CmdForfeit, Side: SideBlue})
	if err != nil {
		t.Fatalf("forfeit: %v", err)
	}
	if s.Phase != PhaseCompleted || s.Winner != SideRed || s.ForfeitedBy != SideBlue {
		t.Fatalf("forfeit outcome wrong: %+v", s)
	}
	if !ContainsEvent(events, EvtDraftForfeited) || !ContainsEvent(events, EvtResultRecorded) {
		t.Fatalf("forfeit events wrong: %+v", events)
	}

	_, _, err = Apply(cat, s, Command{Type: CmdForfeit, Side: SideRed})
	if !errors.Is(err, ErrSessionAlreadyTerminal) {
		t.Fatalf("second forfeit: want ErrSessionAlreadyTerminal, got %v", err)
	}
}

func TestForfeitAllowedInLobby(t *testing.T) {
	cat := testCatalog(t)
	s := NewState(testConfig())
	_, s, _ = Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideBlue, TeamID: "a", TeamName: "A"})
	_, s, _ = Apply(cat, s, Command{Type: CmdRegisterTeam, Side: SideRed, TeamID: "b", TeamName: "B"})

	_, s, err := Apply(cat, s, Command{Type: CmdForfeit, Side: SideRed})
	if err != nil {
		t.Fatalf("forfeit in lobby: %v", err)
	}
	if s.Winner != SideBlue {
		t.Fatalf("want blue as winner, got %v", s.Winner)
	}
}

func TestReportResult(t *testing.T) {
	cat := testCatalog(t)
	s := startedState(t, cat, testConfig(), nil, nil)

	if _, _, err := Apply(cat, s, Command{Type: CmdReportResult, Winner: SideBlue}); !errors.Is(err, ErrInvalidPhaseForAction) {
		t.Fatalf("result before completion: want ErrInvalidPhaseForAction, got %v", err)
	}

	s.Phase = PhaseCompleted
	s.Cursor = len(GameOrder)
	events, s, err := Apply(cat, s, Command{Type: CmdReportResult, Winner: SideBlue})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if s.Winner != SideBlue || !ContainsEvent(events, EvtResultRecorded) {
		t.Fatalf("result not recorded: %+v", s)
	}

	if _, _, err := Apply(cat, s, Command{Type: CmdReportResult, Winner: SideRed}); !errors.Is(err, ErrSessionAlreadyTerminal) {
		t.Fatalf("double report: want ErrSessionAlreadyTerminal, got %v", err)
	}
}
