package types

// Wire protocol reference. The websocket endpoint is GET /ws?session=<id>,
// where <id> is the session uuid or its short join code;
// REST command endpoints accept the same client message bodies with the
// type fixed by the route.

// Client -> Server
// RegisterTeam:
//   side: "blue" | "red"
//   team_id: string
//   team_name: string
//
// SetReady:
//   side: "blue" | "red"
//   ready: boolean
//
// SubmitSelection (revisable until lock):
//   side: "blue" | "red"
//   champion_id: string
//
// LockSelection:
//   side: "blue" | "red"
//
// Forfeit:
//   side: "blue" | "red"
//
// ReportResult (completed drafts only):
//   winner: "blue" | "red"

// Server -> Client
// StateSnapshot:
//   version: number          // per-session, monotonic
//   remaining_ms: number     // clock left on the active slot, 0 when idle
//   state:
//     phase: "config" | "lobby" | "ban1" | "pick1" | "ban2" | "pick2" | "completed"
//     cursor: number         // index into the 20-slot draft order
//     teams: { blue: Team, red: Team }
//       // Team: id, name, side, bans: string[], picks: string[],
//       //       selection (pending hover), ready, used (fearless history)
//     fearless: { [championId]: true } // excluded this game
//     config: kind, series_type, game_number, total_games, fearless,
//             patch, tournament, ban_timer_ms, pick_timer_ms
//     winner: "blue" | "red" // only once recorded
//
// Error:
//   code: string    // "not_your_turn", "champion_unavailable", ...
//   error: string
