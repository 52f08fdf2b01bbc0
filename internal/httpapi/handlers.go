package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"riftdraft/internal/catalog"
	"riftdraft/internal/engine"
	"riftdraft/internal/hub"
	"riftdraft/internal/series"
	"riftdraft/internal/session"
	"riftdraft/internal/store"
	"riftdraft/internal/types"
)

const replyTimeout = 2 * time.Second

type createSessionRequest struct {
	Kind        string         `json:"kind,omitempty"`
	SeriesType  string         `json:"series_type,omitempty"`
	Fearless    bool           `json:"fearless,omitempty"`
	Patch       string         `json:"patch,omitempty"`
	Tournament  string         `json:"tournament,omitempty"`
	BanTimerMs  int64          `json:"ban_timer_ms,omitempty"`
	PickTimerMs int64          `json:"pick_timer_ms,omitempty"`
	Blue        series.TeamRef `json:"blue"`
	Red         series.TeamRef `json:"red"`
}

type createSessionResponse struct {
	SessionID string `json:"session_id"`
	SeriesID  string `json:"series_id"`
	JoinCode  string `json:"join_code,omitempty"`
}

func CreateSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeFailure(w, http.StatusBadRequest, "bad_json", "malformed request body")
			return
		}
		if req.Blue.ID == "" || req.Red.ID == "" {
			writeFailure(w, http.StatusBadRequest, "missing_team", "both blue and red teams are required")
			return
		}

		cfg := engine.Config{
			Kind:        engine.SessionKind(req.Kind),
			SeriesType:  engine.SeriesType(req.SeriesType),
			Fearless:    req.Fearless,
			Patch:       req.Patch,
			Tournament:  req.Tournament,
			BanTimerMs:  req.BanTimerMs,
			PickTimerMs: req.PickTimerMs,
		}

		reply := make(chan hub.Created, 1)
		h.Inbox() <- hub.CreateSession{Config: cfg, Blue: req.Blue, Red: req.Red, Reply: reply}
		created := <-reply
		if created.Session == nil {
			writeFailure(w, http.StatusInternalServerError, "internal", "failed to create session")
			return
		}

		writeJSON(w, http.StatusCreated, createSessionResponse{
			SessionID: created.SessionID,
			SeriesID:  created.SeriesID,
			JoinCode:  created.JoinCode,
		})
	}
}

func GetSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, h, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		reply := make(chan session.View, 1)
		sess.Inbox() <- session.GetState{Reply: reply}
		select {
		case view := <-reply:
			writeJSON(w, http.StatusOK, types.ServerMessage{
				Type:    "StateSnapshot",
				Version: view.Version,
				State:   &view.State,
			})
		case <-time.After(replyTimeout):
			writeFailure(w, http.StatusServiceUnavailable, "busy", "session did not respond")
		}
	}
}

func GetSeries(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan *hub.SeriesView, 1)
		h.Inbox() <- hub.GetSeries{ID: chi.URLParam(r, "id"), Reply: reply}
		view := <-reply
		if view == nil {
			writeFailure(w, http.StatusNotFound, "series_not_found", "series not found")
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// SessionCommand handles the REST command endpoints. The body is the same
// ClientMessage the websocket accepts, with the type fixed by the route.
func SessionCommand(h *hub.Hub, msgType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := lookupSession(w, h, chi.URLParam(r, "id"))
		if !ok {
			return
		}

		var cm types.ClientMessage
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&cm); err != nil {
				writeFailure(w, http.StatusBadRequest, "bad_json", "malformed request body")
				return
			}
		}
		cm.Type = msgType

		cmd, ok := types.ToCommand(cm)
		if !ok {
			writeFailure(w, http.StatusBadRequest, "unknown_type", "unknown command")
			return
		}

		reply := make(chan error, 1)
		sess.Inbox() <- session.FromClient{Cmd: cmd, Reply: reply}
		select {
		case err := <-reply:
			if err != nil {
				writeJSON(w, statusFor(err), types.ErrorMessage(err))
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		case <-time.After(replyTimeout):
			writeFailure(w, http.StatusServiceUnavailable, "busy", "session did not respond")
		}
	}
}

// GetArchivedGame serves the final state of a completed draft from the
// archive. Returns 404 until the game has been folded into its series.
func GetArchivedGame(archive *store.Archive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if archive == nil {
			writeFailure(w, http.StatusNotFound, "no_archive", "archive not configured")
			return
		}
		state, err := archive.LoadGame(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, store.ErrGameNotArchived) {
				writeFailure(w, http.StatusNotFound, "game_not_archived", "game not archived")
				return
			}
			writeFailure(w, http.StatusInternalServerError, "internal", "archive lookup failed")
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

func ListChampions(cat *catalog.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cat.Ordered())
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func lookupSession(w http.ResponseWriter, h *hub.Hub, id string) (*session.Session, bool) {
	reply := make(chan *session.Session, 1)
	h.Inbox() <- hub.GetSession{ID: id, Reply: reply}
	sess := <-reply
	if sess == nil {
		writeFailure(w, http.StatusNotFound, "session_not_found", hub.ErrSessionNotFound.Error())
		return nil, false
	}
	return sess, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrInvalidPhaseForAction),
		errors.Is(err, engine.ErrSessionAlreadyTerminal):
		return http.StatusConflict
	case errors.Is(err, engine.ErrChampionUnavailable),
		errors.Is(err, engine.ErrNoSelectionPending):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, types.ServerMessage{Type: "Error", Code: code, Error: msg})
}
