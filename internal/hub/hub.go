// Package hub is the session registry: one actor owning the map of live draft
// sessions and the series bookkeeping between them. Sessions run their own
// goroutines; the hub only routes, spawns, and evicts.
package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"riftdraft/internal/catalog"
	"riftdraft/internal/engine"
	"riftdraft/internal/obslog"
	"riftdraft/internal/series"
	"riftdraft/internal/session"
)

var ErrSessionNotFound = errors.New("session not found")

type Msg interface{ isHubMsg() }

type CreateSession struct {
	Config engine.Config
	Blue   series.TeamRef
	Red    series.TeamRef
	Reply  chan Created
}

// Created identifies a freshly spawned draft and its parent series. JoinCode
// is the short human-typeable alias accepted anywhere a session id is.
type Created struct {
	SessionID string
	SeriesID  string
	JoinCode  string
	Session   *session.Session
}

// GetSession resolves a session id or join code.
type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type GetSeries struct {
	ID    string
	Reply chan *SeriesView
}

type RemoveSession struct {
	ID string
}

type ShutdownHub struct{}

type sweep struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (GetSeries) isHubMsg()     {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}
func (sweep) isHubMsg()         {}

// SeriesView is a read-only projection of one series.
type SeriesView struct {
	ID               string              `json:"id"`
	Score            map[engine.Side]int `json:"score"`
	History          []series.GameRecord `json:"history"`
	Decided          bool                `json:"decided"`
	Winner           engine.Side         `json:"winner,omitempty"`
	CurrentSessionID string              `json:"current_session_id,omitempty"`
}

// Archive persists completed games and finalized series for historical
// display. Implementations must tolerate being called best-effort.
type Archive interface {
	SaveGame(ctx context.Context, seriesID string, rec series.GameRecord, state engine.State) error
	SaveSeries(ctx context.Context, sr *series.Series, winner engine.Side, decided bool) error
}

type Options struct {
	BanTimerMs    int64
	PickTimerMs   int64
	IdleTTL       time.Duration
	SweepInterval time.Duration
}

type seriesEntry struct {
	sr             *series.Series
	currentSession string
}

type Hub struct {
	inbox       chan Msg
	completions chan session.Completion

	sessions      map[string]*session.Session
	sessionSeries map[string]string
	sessionCodes  map[string]string // join code -> session id
	series        map[string]*seriesEntry

	cat     *catalog.Catalog
	opts    Options
	sink    session.SnapshotSink
	archive Archive
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, cat *catalog.Catalog, opts Options, sink session.SnapshotSink, archive Archive) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:         make(chan Msg, 64),
		completions:   make(chan session.Completion, 64),
		sessions:      make(map[string]*session.Session),
		sessionSeries: make(map[string]string),
		sessionCodes:  make(map[string]string),
		series:        make(map[string]*seriesEntry),
		cat:           cat,
		opts:          opts,
		sink:          sink,
		archive:       archive,
		log:           obslog.L().Named("hub"),
		ctx:           ctx,
		cancel:        cancel,
	}
	go h.loop()
	if opts.SweepInterval > 0 {
		go h.sweepLoop()
	}
	return h
}

func (h *Hub) Inbox() chan<- Msg { return h.inbox }

func (h *Hub) sweepLoop() {
	ticker := time.NewTicker(h.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			select {
			case h.inbox <- sweep{}:
			case <-h.ctx.Done():
				return
			}
		}
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case c := <-h.completions:
			h.handleCompletion(c)

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				msg.Reply <- h.createSession(msg)

			case GetSession:
				msg.Reply <- h.lookup(msg.ID) // may be nil

			case GetSeries:
				msg.Reply <- h.seriesView(msg.ID) // may be nil

			case RemoveSession:
				h.removeSession(msg.ID, "removed")

			case sweep:
				h.evictIdle()

			case ShutdownHub:
				for _, s := range h.sessions {
					s.Inbox() <- session.Shutdown{}
				}
				clear(h.sessions)
				clear(h.sessionSeries)
				clear(h.sessionCodes)
				h.cancel()
				return
			}
		}
	}
}

func (h *Hub) createSession(msg CreateSession) Created {
	cfg := msg.Config
	if cfg.BanTimerMs == 0 {
		cfg.BanTimerMs = h.opts.BanTimerMs
	}
	if cfg.PickTimerMs == 0 {
		cfg.PickTimerMs = h.opts.PickTimerMs
	}
	if cfg.Kind == "" {
		cfg.Kind = engine.KindWeb
	}

	seriesID := uuid.NewString()
	sr := series.New(seriesID, cfg)
	entry := &seriesEntry{sr: sr}
	h.series[seriesID] = entry

	state := engine.NewState(cfg)
	// Rosters supplied at creation register immediately; the session still
	// waits in lobby for both ready signals.
	state = h.register(state, engine.SideBlue, msg.Blue, nil)
	state = h.register(state, engine.SideRed, msg.Red, nil)

	id, code := h.spawn(seriesID, state)
	entry.currentSession = id
	h.log.Info("session_created",
		zap.String("session_id", id),
		zap.String("series_id", seriesID),
		zap.String("join_code", code),
		zap.String("series_type", string(cfg.SeriesType)),
		zap.Bool("fearless", cfg.Fearless))
	return Created{SessionID: id, SeriesID: seriesID, JoinCode: code, Session: h.sessions[id]}
}

func (h *Hub) lookup(id string) *session.Session {
	if s, ok := h.sessions[id]; ok {
		return s
	}
	if sid, ok := h.sessionCodes[id]; ok {
		return h.sessions[sid]
	}
	return nil
}

// newJoinCode draws short codes until one is free. Collisions are rare at
// this population; the retry loop is for correctness, not throughput.
func (h *Hub) newJoinCode() string {
	const charset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	for {
		code := make([]byte, 6)
		for i := range code {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				return "" // crypto/rand failure; session stays id-only
			}
			code[i] = charset[n.Int64()]
		}
		c := string(code)
		if _, taken := h.sessionCodes[c]; !taken {
			return c
		}
	}
}

func (h *Hub) register(state engine.State, side engine.Side, ref series.TeamRef, used []string) engine.State {
	if ref.ID == "" {
		return state
	}
	_, next, err := engine.Apply(h.cat, state, engine.Command{
		Type:     engine.CmdRegisterTeam,
		Side:     side,
		TeamID:   ref.ID,
		TeamName: ref.Name,
		Used:     used,
	})
	if err != nil {
		h.log.Error("team_register_error", zap.String("side", string(side)), zap.Error(err))
		return state
	}
	return next
}

func (h *Hub) spawn(seriesID string, state engine.State) (id, code string) {
	id = uuid.NewString()
	h.sessions[id] = session.New(h.ctx, id, h.cat, state, h.completions, h.sink)
	h.sessionSeries[id] = seriesID
	if code = h.newJoinCode(); code != "" {
		h.sessionCodes[code] = id
	}
	return id, code
}

func (h *Hub) handleCompletion(c session.Completion) {
	seriesID, ok := h.sessionSeries[c.SessionID]
	if !ok {
		h.log.Warn("completion_for_unknown_session", zap.String("session_id", c.SessionID))
		return
	}
	entry := h.series[seriesID]
	if entry == nil {
		h.log.Warn("completion_for_unknown_series", zap.String("series_id", seriesID))
		return
	}
	sr := entry.sr

	if err := sr.Record(c.SessionID, c.State); err != nil {
		h.log.Error("series_record_error",
			zap.String("session_id", c.SessionID),
			zap.String("series_id", seriesID),
			zap.Error(err))
		return
	}
	rec := sr.History[len(sr.History)-1]
	h.archiveGame(seriesID, rec, c.State)
	h.log.Info("game_recorded",
		zap.String("series_id", seriesID),
		zap.Int("game_number", rec.GameNumber),
		zap.String("winner", string(rec.Winner)),
		zap.Int("blue_score", sr.Score[engine.SideBlue]),
		zap.Int("red_score", sr.Score[engine.SideRed]))

	if sr.Finished() {
		winner, decided := sr.Decided()
		entry.currentSession = ""
		h.archiveSeries(sr, winner, decided)
		h.log.Info("series_finalized",
			zap.String("series_id", seriesID),
			zap.String("winner", string(winner)),
			zap.Bool("decided", decided))
		return
	}

	h.startNextGame(seriesID, entry)
}

// startNextGame builds the follow-on draft in the same series, carrying each
// team's prior picks into its registration when fearless is on.
func (h *Hub) startNextGame(seriesID string, entry *seriesEntry) {
	sr := entry.sr
	cfg, err := sr.NextConfig()
	if err != nil {
		h.log.Error("next_game_config_error", zap.String("series_id", seriesID), zap.Error(err))
		return
	}

	state := engine.NewState(cfg)
	for _, side := range []engine.Side{engine.SideBlue, engine.SideRed} {
		ref, ok := sr.Roster(side)
		if !ok {
			h.log.Error("next_game_missing_roster",
				zap.String("series_id", seriesID),
				zap.String("side", string(side)))
			return
		}
		var used []string
		if cfg.Fearless {
			used = sr.UsedBy(side)
		}
		state = h.register(state, side, ref, used)
	}

	id, code := h.spawn(seriesID, state)
	entry.currentSession = id
	h.log.Info("next_game_created",
		zap.String("series_id", seriesID),
		zap.String("session_id", id),
		zap.String("join_code", code),
		zap.Int("game_number", cfg.GameNumber))
}

func (h *Hub) seriesView(id string) *SeriesView {
	entry := h.series[id]
	if entry == nil {
		return nil
	}
	winner, decided := entry.sr.Decided()
	return &SeriesView{
		ID:               id,
		Score:            map[engine.Side]int{engine.SideBlue: entry.sr.Score[engine.SideBlue], engine.SideRed: entry.sr.Score[engine.SideRed]},
		History:          append([]series.GameRecord{}, entry.sr.History...),
		Decided:          decided,
		Winner:           winner,
		CurrentSessionID: entry.currentSession,
	}
}

func (h *Hub) removeSession(id, reason string) {
	s, ok := h.sessions[id]
	if !ok {
		return
	}
	s.Inbox() <- session.Shutdown{}
	delete(h.sessions, id)
	delete(h.sessionSeries, id)
	for code, sid := range h.sessionCodes {
		if sid == id {
			delete(h.sessionCodes, code)
		}
	}
	h.log.Info("session_removed", zap.String("session_id", id), zap.String("reason", reason))
}

// evictIdle drops sessions that never started drafting and terminal sessions
// nobody has touched within the TTL.
func (h *Hub) evictIdle() {
	if h.opts.IdleTTL <= 0 {
		return
	}
	cutoff := time.Now().Add(-h.opts.IdleTTL)
	for id, s := range h.sessions {
		reply := make(chan session.View, 1)
		s.Inbox() <- session.GetState{Reply: reply}
		var view session.View
		select {
		case view = <-reply:
		case <-time.After(time.Second):
			continue
		}
		if !view.LastActivity.Before(cutoff) {
			continue
		}
		switch view.State.Phase {
		case engine.PhaseConfig, engine.PhaseLobby, engine.PhaseCompleted:
			h.removeSession(id, "idle")
		}
	}
}

func (h *Hub) archiveGame(seriesID string, rec series.GameRecord, state engine.State) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if err := h.archive.SaveGame(ctx, seriesID, rec, state); err != nil {
		h.log.Error("archive_game_error", zap.String("series_id", seriesID), zap.Error(err))
	}
}

func (h *Hub) archiveSeries(sr *series.Series, winner engine.Side, decided bool) {
	if h.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()
	if err := h.archive.SaveSeries(ctx, sr, winner, decided); err != nil {
		h.log.Error("archive_series_error", zap.String("series_id", sr.ID), zap.Error(err))
	}
}
