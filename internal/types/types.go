// Package types defines the wire messages shared by the websocket and HTTP
// transports.
package types

import (
	"errors"

	"riftdraft/internal/engine"
	"riftdraft/internal/session"
)

type ClientMessage struct {
	Type       string `json:"type"`
	Side       string `json:"side,omitempty"`
	ChampionID string `json:"champion_id,omitempty"`
	Ready      bool   `json:"ready,omitempty"`
	TeamID     string `json:"team_id,omitempty"`
	TeamName   string `json:"team_name,omitempty"`
	Winner     string `json:"winner,omitempty"`
}

type ServerMessage struct {
	Type        string        `json:"type"` // "StateSnapshot" | "Error"
	Version     int           `json:"version,omitempty"`
	RemainingMs int64         `json:"remaining_ms,omitempty"`
	State       *engine.State `json:"state,omitempty"`
	Code        string        `json:"code,omitempty"`
	Error       string        `json:"error,omitempty"`
}

func SnapshotMessage(snap session.Snapshot) ServerMessage {
	state := snap.State
	return ServerMessage{
		Type:        "StateSnapshot",
		Version:     snap.Version,
		RemainingMs: snap.RemainingMs,
		State:       &state,
	}
}

func ErrorMessage(err error) ServerMessage {
	return ServerMessage{Type: "Error", Code: CodeFor(err), Error: err.Error()}
}

// CodeFor maps engine errors onto stable wire codes.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, engine.ErrChampionUnavailable):
		return "champion_unavailable"
	case errors.Is(err, engine.ErrNoSelectionPending):
		return "no_selection_pending"
	case errors.Is(err, engine.ErrInvalidPhaseForAction):
		return "invalid_phase"
	case errors.Is(err, engine.ErrSessionAlreadyTerminal):
		return "session_terminal"
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return "unsupported_command"
	default:
		return "internal"
	}
}

// ToCommand translates an inbound client message into an engine command.
func ToCommand(m ClientMessage) (engine.Command, bool) {
	side := engine.Side(m.Side)

	switch m.Type {
	case "RegisterTeam":
		return engine.Command{Type: engine.CmdRegisterTeam, Side: side, TeamID: m.TeamID, TeamName: m.TeamName}, true
	case "SetReady":
		return engine.Command{Type: engine.CmdSetReady, Side: side, Ready: m.Ready}, true
	case "SubmitSelection":
		return engine.Command{Type: engine.CmdSubmitSelection, Side: side, ChampionID: m.ChampionID}, true
	case "LockSelection":
		return engine.Command{Type: engine.CmdLockSelection, Side: side}, true
	case "Forfeit":
		return engine.Command{Type: engine.CmdForfeit, Side: side}, true
	case "ReportResult":
		return engine.Command{Type: engine.CmdReportResult, Winner: engine.Side(m.Winner)}, true
	default:
		return engine.Command{}, false
	}
}
