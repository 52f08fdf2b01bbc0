// Package session runs one draft as a single-writer actor. Client commands,
// clock expiry, and subscriber management all arrive as messages on one inbox,
// so no two mutations of a draft can ever interleave.
package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"riftdraft/internal/catalog"
	"riftdraft/internal/engine"
	"riftdraft/internal/obslog"
)

type Msg interface{ isSessionMsg() }

// FromClient carries one engine command. Reply, when set, receives the apply
// result so the transport can surface named errors to the offending client.
type FromClient struct {
	Cmd   engine.Command
	Reply chan<- error
}

func (FromClient) isSessionMsg() {}

type Join struct {
	ClientID string
	Outbox   chan Snapshot
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// PrimeTimer arms the clock for the current slot. Normally the clock follows
// the engine's TimerStarted events; this exists for drivers that construct a
// session mid-draft.
type PrimeTimer struct{}

func (PrimeTimer) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type timerFired struct {
	gen    int
	cursor int
}

func (timerFired) isSessionMsg() {}

// Snapshot is the versioned, totally ordered view broadcast after every
// committed transition.
type Snapshot struct {
	Version     int          `json:"version"`
	RemainingMs int64        `json:"remaining_ms"`
	State       engine.State `json:"state"`
}

// View reflects internal state for the registry and for tests, without races.
type View struct {
	Version      int
	NumClients   int
	LastActivity time.Time
	State        engine.State
}

// Completion notifies the registry that this draft is terminal with a
// recorded winner.
type Completion struct {
	SessionID string
	State     engine.State
}

// SnapshotSink receives every committed snapshot, best-effort. A nil sink is
// valid.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, sessionID string, snap Snapshot) error
}

type Session struct {
	id      string
	inbox   chan Msg
	cat     *catalog.Catalog
	state   engine.State
	version int
	clients map[string]chan Snapshot

	timer    *time.Timer
	timerGen int
	deadline time.Time

	lastActivity   time.Time
	completions    chan<- Completion
	completionSent bool
	sink           SnapshotSink
	log            *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, id string, cat *catalog.Catalog, initial engine.State, completions chan<- Completion, sink SnapshotSink) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		id:           id,
		inbox:        make(chan Msg, 64),
		cat:          cat,
		state:        initial,
		clients:      make(map[string]chan Snapshot),
		lastActivity: time.Now(),
		completions:  completions,
		sink:         sink,
		log:          obslog.L().With(zap.String("session_id", id)),
		ctx:          ctx,
		cancel:       cancel,
	}
	go s.loop()
	return s
}

// Inbox exposes the message channel to the transport and registry layers.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.clients[msg.ClientID] = msg.Outbox
				msg.Outbox <- s.snapshot()

			case Leave:
				if ch, ok := s.clients[msg.ClientID]; ok {
					close(ch)
					delete(s.clients, msg.ClientID)
				}

			case FromClient:
				s.handleCommand(msg)

			case PrimeTimer:
				if s.state.Phase.Drafting() {
					s.armTimer()
				}

			case timerFired:
				s.handleTimerFired(msg)

			case GetState:
				msg.Reply <- View{
					Version:      s.version,
					NumClients:   len(s.clients),
					LastActivity: s.lastActivity,
					State:        s.state,
				}

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleCommand(msg FromClient) {
	s.lastActivity = time.Now()

	events, next, err := engine.Apply(s.cat, s.state, msg.Cmd)
	if msg.Reply != nil {
		select {
		case msg.Reply <- err:
		default:
		}
	}
	if err != nil {
		s.log.Debug("command_rejected",
			zap.String("command", string(msg.Cmd.Type)),
			zap.String("side", string(msg.Cmd.Side)),
			zap.Error(err))
		return
	}
	s.commitTransition(events, next)
}

func (s *Session) handleTimerFired(msg timerFired) {
	if msg.gen != s.timerGen {
		s.log.Debug("timer_fire_stale", zap.Int("gen", msg.gen), zap.Int("cursor", msg.cursor))
		return
	}
	events, next, err := engine.Apply(s.cat, s.state, engine.Command{
		Type:   engine.CmdResolveTimeout,
		Cursor: msg.cursor,
	})
	if err != nil {
		s.log.Error("timeout_resolve_error", zap.Error(err))
		return
	}
	if len(events) == 0 {
		// Slot already resolved by a racing lock.
		return
	}
	s.log.Info("timer_expired_resolved", zap.Int("cursor", msg.cursor))
	s.commitTransition(events, next)
}

// commitTransition installs the new state, drives the clock from the emitted
// events, and broadcasts the next snapshot.
func (s *Session) commitTransition(events []engine.Event, next engine.State) {
	if len(events) == 0 {
		return
	}
	s.state = next
	s.version++

	switch {
	case engine.ContainsEvent(events, engine.EvtDraftCompleted):
		s.stopTimer()
	case engine.ContainsEvent(events, engine.EvtTimerStarted):
		s.armTimer()
	}

	for _, ev := range events {
		switch ev.Type {
		case engine.EvtChampionPicked, engine.EvtChampionBanned:
			s.log.Info("champion_locked",
				zap.String("event", string(ev.Type)),
				zap.String("side", string(ev.Side)),
				zap.String("champion_id", ev.ChampionID),
				zap.Int("cursor", s.state.Cursor))
		case engine.EvtPhaseAdvanced:
			s.log.Info("phase_advanced", zap.String("phase", string(ev.Phase)))
		case engine.EvtDraftCompleted:
			s.log.Info("draft_completed", zap.String("winner", string(s.state.Winner)))
		}
	}

	snap := s.snapshot()
	s.broadcast(snap)
	s.persist(snap)
	s.notifyCompletion()
}

func (s *Session) notifyCompletion() {
	if s.completionSent || s.completions == nil {
		return
	}
	if s.state.Phase != engine.PhaseCompleted || s.state.Winner == "" {
		return
	}
	s.completionSent = true
	select {
	case s.completions <- Completion{SessionID: s.id, State: s.state}:
	case <-s.ctx.Done():
	}
}

func (s *Session) persist(snap Snapshot) {
	if s.sink == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
	defer cancel()
	if err := s.sink.SaveSnapshot(ctx, s.id, snap); err != nil {
		s.log.Warn("snapshot_persist_error", zap.Int("version", snap.Version), zap.Error(err))
	}
}

func (s *Session) armTimer() {
	s.stopTimer()
	step, done := engine.CurrentStep(s.state)
	if done {
		return
	}
	d := time.Duration(s.state.Config.TimerFor(step.Action)) * time.Millisecond
	s.timerGen++
	gen := s.timerGen
	cursor := s.state.Cursor
	s.deadline = time.Now().Add(d)
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.inbox <- timerFired{gen: gen, cursor: cursor}:
		case <-s.ctx.Done():
		}
	})
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
}

func (s *Session) remainingMs() int64 {
	if s.deadline.IsZero() {
		return 0
	}
	left := time.Until(s.deadline).Milliseconds()
	if left < 0 {
		return 0
	}
	return left
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{Version: s.version, RemainingMs: s.remainingMs(), State: s.state}
}

func (s *Session) broadcast(snap Snapshot) {
	for id, ch := range s.clients {
		select {
		case ch <- snap:
		default:
			// Slow or stalled subscriber: drop it rather than block the draft.
			close(ch)
			delete(s.clients, id)
			s.log.Warn("client_dropped_slow", zap.String("client_id", id))
		}
	}
}

func (s *Session) shutdown() {
	s.stopTimer()
	for id, ch := range s.clients {
		close(ch)
		delete(s.clients, id)
	}
	s.cancel()
}
