package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"riftdraft/internal/hub"
	"riftdraft/internal/obslog"
	"riftdraft/internal/session"
	"riftdraft/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	readTimeout  = 5 * time.Minute
	replyTimeout = 2 * time.Second
)

// Handler upgrades the connection and bridges it to the session actor:
// snapshots flow out through a per-client outbox, client messages flow in
// as commands with a per-message reply.
func Handler(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session", http.StatusBadRequest)
			return
		}

		reply := make(chan *session.Session, 1)
		h.Inbox() <- hub.GetSession{ID: sessionID, Reply: reply}
		sess := <-reply
		if sess == nil {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		out := make(chan session.Snapshot, 8)
		clientID := uuid.NewString()

		sess.Inbox() <- session.Join{ClientID: clientID, Outbox: out}
		defer func() { sess.Inbox() <- session.Leave{ClientID: clientID} }()

		obslog.L().Debug("ws_client_connected",
			zap.String("session_id", sessionID),
			zap.String("client_id", clientID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for snap := range out {
				payload, _ := json.Marshal(types.SnapshotMessage(snap))
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			ctx, cancel := context.WithTimeout(r.Context(), readTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				// Clean close or anything else: Leave fires in the defer.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(r.Context(), conn, `{"type":"Error","code":"bad_json","error":"malformed message"}`)
				continue
			}

			cmd, ok := types.ToCommand(cm)
			if !ok {
				writeError(r.Context(), conn, `{"type":"Error","code":"unknown_type","error":"unknown message type"}`)
				continue
			}

			cmdReply := make(chan error, 1)
			sess.Inbox() <- session.FromClient{Cmd: cmd, Reply: cmdReply}
			select {
			case err := <-cmdReply:
				if err != nil {
					payload, _ := json.Marshal(types.ErrorMessage(err))
					writeError(r.Context(), conn, string(payload))
				}
			case <-time.After(replyTimeout):
			}
		}
	}
}

func writeError(ctx context.Context, conn *websocket.Conn, payload string) {
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, []byte(payload))
}
