// Package engine implements the draft state machine as a pure function:
// Apply(catalog, state, command) returns the events produced, the next state,
// and an error. Rejected commands return the input state untouched.
package engine

import (
	"errors"
	"maps"
	"slices"

	"riftdraft/internal/catalog"
)

var (
	ErrNotYourTurn            = errors.New("not your turn")
	ErrChampionUnavailable    = errors.New("champion unavailable")
	ErrNoSelectionPending     = errors.New("no selection pending")
	ErrInvalidPhaseForAction  = errors.New("invalid phase for action")
	ErrSessionAlreadyTerminal = errors.New("session already terminal")
	ErrUnsupportedCommand     = errors.New("unsupported command")
)

type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

func (s Side) Opponent() Side {
	if s == SideBlue {
		return SideRed
	}
	return SideBlue
}

func (s Side) Valid() bool { return s == SideBlue || s == SideRed }

type ActionKind string

const (
	ActionBan  ActionKind = "ban"
	ActionPick ActionKind = "pick"
)

type Phase string

const (
	PhaseConfig    Phase = "config"
	PhaseLobby     Phase = "lobby"
	PhaseBan1      Phase = "ban1"
	PhasePick1     Phase = "pick1"
	PhaseBan2      Phase = "ban2"
	PhasePick2     Phase = "pick2"
	PhaseCompleted Phase = "completed"
)

// Drafting reports whether the phase has an acting slot and a running clock.
func (p Phase) Drafting() bool {
	switch p {
	case PhaseBan1, PhasePick1, PhaseBan2, PhasePick2:
		return true
	}
	return false
}

type TurnStep struct {
	Side   Side       `json:"side"`
	Action ActionKind `json:"action"`
}

type SeriesType string

const (
	SeriesBo1 SeriesType = "bo1"
	SeriesBo3 SeriesType = "bo3"
	SeriesBo5 SeriesType = "bo5"
)

func (t SeriesType) Games() int {
	switch t {
	case SeriesBo3:
		return 3
	case SeriesBo5:
		return 5
	default:
		return 1
	}
}

// Majority is the score that decides the series.
func (t SeriesType) Majority() int { return t.Games()/2 + 1 }

// SessionKind tags how a session is driven; the engine treats all kinds the
// same, transports and overlays do not.
type SessionKind string

const (
	KindStatic     SessionKind = "static"
	KindLiveClient SessionKind = "live_client"
	KindTournament SessionKind = "tournament"
	KindWeb        SessionKind = "web"
)

// Config is fixed once the lobby is entered; only GameNumber moves between
// games of a series.
type Config struct {
	Kind        SessionKind `json:"kind,omitempty"`
	SeriesType  SeriesType  `json:"series_type"`
	GameNumber  int         `json:"game_number"`
	TotalGames  int         `json:"total_games"`
	Fearless    bool        `json:"fearless"`
	Patch       string      `json:"patch,omitempty"`
	Tournament  string      `json:"tournament,omitempty"`
	BanTimerMs  int64       `json:"ban_timer_ms"`
	PickTimerMs int64       `json:"pick_timer_ms"`
}

func (c Config) TimerFor(kind ActionKind) int64 {
	if kind == ActionBan {
		return c.BanTimerMs
	}
	return c.PickTimerMs
}

type TeamState struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Side      Side            `json:"side"`
	Bans      []string        `json:"bans"`
	Picks     []string        `json:"picks"`
	Selection string          `json:"selection,omitempty"`
	Ready     bool            `json:"ready"`
	Used      map[string]bool `json:"used,omitempty"`
}

type State struct {
	Phase       Phase               `json:"phase"`
	Cursor      int                 `json:"cursor"`
	Teams       map[Side]*TeamState `json:"teams"`
	Fearless    map[string]bool     `json:"fearless_used,omitempty"`
	Config      Config              `json:"config"`
	Winner      Side                `json:"winner,omitempty"`
	ForfeitedBy Side                `json:"forfeited_by,omitempty"`
}

type CommandType string

const (
	CmdRegisterTeam    CommandType = "RegisterTeam"
	CmdSetReady        CommandType = "SetReady"
	CmdSubmitSelection CommandType = "SubmitSelection"
	CmdLockSelection   CommandType = "LockSelection"
	CmdResolveTimeout  CommandType = "ResolveTimeout"
	CmdForfeit         CommandType = "Forfeit"
	CmdReportResult    CommandType = "ReportResult"
)

type Command struct {
	Type       CommandType
	Side       Side
	ChampionID string
	Ready      bool
	TeamID     string
	TeamName   string
	Used       []string // champions this team picked in earlier series games
	Winner     Side
	Cursor     int // ResolveTimeout: the slot the clock was armed for
}

type EventType string

const (
	EvtTeamRegistered  EventType = "TeamRegistered"
	EvtLobbyEntered    EventType = "LobbyEntered"
	EvtTeamReady       EventType = "TeamReady"
	EvtDraftStarted    EventType = "DraftStarted"
	EvtChampionHovered EventType = "ChampionHovered"
	EvtChampionPicked  EventType = "ChampionPicked"
	EvtChampionBanned  EventType = "ChampionBanned"
	EvtTurnAdvanced    EventType = "TurnAdvanced"
	EvtPhaseAdvanced   EventType = "PhaseAdvanced"
	EvtTimerStarted    EventType = "TimerStarted"
	EvtTimerExpired    EventType = "TimerExpired"
	EvtDraftCompleted  EventType = "DraftCompleted"
	EvtDraftForfeited  EventType = "DraftForfeited"
	EvtResultRecorded  EventType = "ResultRecorded"
)

type Event struct {
	Type       EventType  `json:"type"`
	Side       Side       `json:"side,omitempty"`
	ChampionID string     `json:"champion_id,omitempty"`
	Phase      Phase      `json:"phase,omitempty"`
	Winner     Side       `json:"winner,omitempty"`
	Action     ActionKind `json:"action,omitempty"`
}

// Apply runs one command against the state. It never mutates its input: on
// success the returned state is a fresh copy, on error the input state is
// returned as-is.
func Apply(cat *catalog.Catalog, s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdRegisterTeam:
		return applyRegister(s, cmd)
	case CmdSetReady:
		return applyReady(s, cmd)
	case CmdSubmitSelection:
		return applySubmit(cat, s, cmd)
	case CmdLockSelection:
		return applyLock(s, cmd)
	case CmdResolveTimeout:
		return applyTimeout(cat, s, cmd)
	case CmdForfeit:
		return applyForfeit(s, cmd)
	case CmdReportResult:
		return applyResult(s, cmd)
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func applyRegister(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseCompleted {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if s.Phase != PhaseConfig {
		return nil, s, ErrInvalidPhaseForAction
	}
	if !cmd.Side.Valid() || cmd.TeamID == "" {
		return nil, s, ErrUnsupportedCommand
	}

	ns := s.clone()
	team := ns.Teams[cmd.Side]
	team.ID = cmd.TeamID
	team.Name = cmd.TeamName
	team.Used = make(map[string]bool, len(cmd.Used))
	for _, id := range cmd.Used {
		team.Used[id] = true
	}

	events := []Event{{Type: EvtTeamRegistered, Side: cmd.Side}}

	if ns.Teams[SideBlue].ID != "" && ns.Teams[SideRed].ID != "" {
		ns.Phase = PhaseLobby
		if ns.Config.Fearless {
			ns.Fearless = fearlessPool(ns)
		}
		events = append(events, Event{Type: EvtLobbyEntered})
	}
	return events, ns, nil
}

// fearlessPool seeds the game's exclusion set from the union of both teams'
// prior-game picks. Prior bans never carry forward.
func fearlessPool(s State) map[string]bool {
	pool := make(map[string]bool)
	for _, team := range s.Teams {
		for id := range team.Used {
			pool[id] = true
		}
	}
	return pool
}

func applyReady(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseCompleted {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if s.Phase != PhaseLobby {
		return nil, s, ErrInvalidPhaseForAction
	}
	if !cmd.Side.Valid() {
		return nil, s, ErrUnsupportedCommand
	}

	ns := s.clone()
	ns.Teams[cmd.Side].Ready = cmd.Ready

	events := []Event{{Type: EvtTeamReady, Side: cmd.Side}}
	if ns.Teams[SideBlue].Ready && ns.Teams[SideRed].Ready {
		ns.Phase = PhaseBan1
		ns.Cursor = 0
		first := GameOrder[0]
		events = append(events,
			Event{Type: EvtDraftStarted},
			Event{Type: EvtTimerStarted, Side: first.Side, Action: first.Action},
		)
	}
	return events, ns, nil
}

func applySubmit(cat *catalog.Catalog, s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseCompleted {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if !s.Phase.Drafting() {
		return nil, s, ErrInvalidPhaseForAction
	}
	step, _ := currentStep(s)
	if step.Side != cmd.Side {
		return nil, s, ErrNotYourTurn
	}
	if !cat.Has(cmd.ChampionID) || !available(s, cmd.ChampionID) {
		return nil, s, ErrChampionUnavailable
	}

	ns := s.clone()
	ns.Teams[cmd.Side].Selection = cmd.ChampionID
	return []Event{{Type: EvtChampionHovered, Side: cmd.Side, ChampionID: cmd.ChampionID}}, ns, nil
}

func applyLock(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseCompleted {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if !s.Phase.Drafting() {
		return nil, s, ErrInvalidPhaseForAction
	}
	step, _ := currentStep(s)
	if step.Side != cmd.Side {
		return nil, s, ErrNotYourTurn
	}
	sel := s.Teams[cmd.Side].Selection
	if sel == "" {
		return nil, s, ErrNoSelectionPending
	}
	if !available(s, sel) {
		return nil, s, ErrChampionUnavailable
	}

	ns := s.clone()
	events := commit(&ns, step, sel)
	return events, ns, nil
}

// applyTimeout is the clock-expiry recovery path. It never errors outward: a
// stale or already-resolved slot is a no-op, everything else locks either the
// pending hover or the first available champion in catalog order.
func applyTimeout(cat *catalog.Catalog, s State, cmd Command) ([]Event, State, error) {
	if !s.Phase.Drafting() || cmd.Cursor != s.Cursor {
		return nil, s, nil
	}
	step, _ := currentStep(s)

	ns := s.clone()
	events := []Event{{Type: EvtTimerExpired, Side: step.Side}}

	sel := ns.Teams[step.Side].Selection
	if sel == "" || !available(ns, sel) {
		fallback, ok := cat.FirstAvailable(func(id string) bool { return available(ns, id) })
		if !ok {
			// Catalog exhausted: skip the slot so the draft still moves.
			ns.Teams[step.Side].Selection = ""
			ns.Cursor++
			ns.Phase = DerivePhase(ns.Cursor)
			return append(events, Event{Type: EvtTurnAdvanced}), ns, nil
		}
		sel = fallback
	}
	ns.Teams[step.Side].Selection = sel
	events = append(events, commit(&ns, step, sel)...)
	return events, ns, nil
}

func applyForfeit(s State, cmd Command) ([]Event, State, error) {
	if s.Phase == PhaseCompleted {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if !cmd.Side.Valid() {
		return nil, s, ErrUnsupportedCommand
	}

	ns := s.clone()
	ns.Phase = PhaseCompleted
	ns.ForfeitedBy = cmd.Side
	ns.Winner = cmd.Side.Opponent()
	events := []Event{
		{Type: EvtDraftForfeited, Side: cmd.Side},
		{Type: EvtDraftCompleted},
		{Type: EvtResultRecorded, Winner: ns.Winner},
	}
	return events, ns, nil
}

func applyResult(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseCompleted {
		return nil, s, ErrInvalidPhaseForAction
	}
	if s.Winner != "" {
		return nil, s, ErrSessionAlreadyTerminal
	}
	if !cmd.Winner.Valid() {
		return nil, s, ErrUnsupportedCommand
	}

	ns := s.clone()
	ns.Winner = cmd.Winner
	return []Event{{Type: EvtResultRecorded, Winner: cmd.Winner}}, ns, nil
}

// commit locks a champion into the acting team's bans or picks, advances the
// cursor, and derives the follow-on phase/timer events.
func commit(s *State, step TurnStep, id string) []Event {
	team := s.Teams[step.Side]
	var locked Event
	if step.Action == ActionBan {
		team.Bans = append(team.Bans, id)
		locked = Event{Type: EvtChampionBanned, Side: step.Side, ChampionID: id}
	} else {
		team.Picks = append(team.Picks, id)
		locked = Event{Type: EvtChampionPicked, Side: step.Side, ChampionID: id}
	}
	team.Selection = ""
	s.Cursor++

	events := []Event{locked, {Type: EvtTurnAdvanced}}

	next := DerivePhase(s.Cursor)
	if next != s.Phase {
		s.Phase = next
		if next == PhaseCompleted {
			return append(events, Event{Type: EvtDraftCompleted})
		}
		events = append(events, Event{Type: EvtPhaseAdvanced, Phase: next})
	}
	nextStep := GameOrder[s.Cursor]
	return append(events, Event{Type: EvtTimerStarted, Side: nextStep.Side, Action: nextStep.Action})
}

// available reports whether the champion is still selectable in this game:
// not banned or picked by either side and not in the fearless pool.
func available(s State, id string) bool {
	if s.Fearless[id] {
		return false
	}
	for _, team := range s.Teams {
		if slices.Contains(team.Bans, id) || slices.Contains(team.Picks, id) {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	ns := s
	ns.Teams = make(map[Side]*TeamState, len(s.Teams))
	for side, t := range s.Teams {
		ct := *t
		ct.Bans = slices.Clone(t.Bans)
		ct.Picks = slices.Clone(t.Picks)
		ct.Used = maps.Clone(t.Used)
		ns.Teams[side] = &ct
	}
	ns.Fearless = maps.Clone(s.Fearless)
	return ns
}
