package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wordwire/internal/dispatch"
	"wordwire/internal/tourney"
	"wordwire/internal/ws"
)

func SetupRoutes(d *dispatch.Dispatcher, tourneys *tourney.Manager, archive DivisionLoader, log *zap.Logger) http.Handler {
	a := NewAPI(tourneys, archive, log)
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d, log))

	r.Route("/api/tournaments", func(r chi.Router) {
		r.Post("/", a.createTournament)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getTournament)
			r.Post("/start", a.startTournament)
			r.Post("/finish", a.finishTournament)
			r.Post("/divisions", a.addDivision)
			r.Route("/divisions/{division}", func(r chi.Router) {
				r.Get("/", a.getDivision)
				r.Get("/archive", a.getDivisionArchive)
				r.Delete("/", a.removeDivision)
				r.Post("/controls", a.setControls)
				r.Post("/roundcontrols", a.setRoundControls)
				r.Post("/players", a.addPlayers)
				r.Delete("/players", a.removePlayers)
				r.Post("/pairings", a.setPairing)
				r.Delete("/pairings/{round}", a.deletePairings)
			})
		})
	})
	return r
}
