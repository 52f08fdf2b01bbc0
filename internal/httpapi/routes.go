package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"riftdraft/internal/catalog"
	"riftdraft/internal/hub"
	"riftdraft/internal/store"
	"riftdraft/internal/ws"
)

func SetupRoutes(h *hub.Hub, cat *catalog.Catalog, archive *store.Archive) http.Handler {
	r := chi.NewRouter()

	r.Post("/sessions", CreateSession(h))
	r.Get("/sessions/{id}", GetSession(h))
	r.Post("/sessions/{id}/ready", SessionCommand(h, "SetReady"))
	r.Post("/sessions/{id}/select", SessionCommand(h, "SubmitSelection"))
	r.Post("/sessions/{id}/lock", SessionCommand(h, "LockSelection"))
	r.Post("/sessions/{id}/forfeit", SessionCommand(h, "Forfeit"))
	r.Post("/sessions/{id}/result", SessionCommand(h, "ReportResult"))

	r.Get("/series/{id}", GetSeries(h))
	r.Get("/games/{id}", GetArchivedGame(archive))
	r.Get("/champions", ListChampions(cat))

	r.Get("/ws", ws.Handler(h))
	r.Get("/healthz", Healthz)
	return r
}
