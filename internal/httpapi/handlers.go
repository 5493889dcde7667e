package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"wordwire/internal/ipc"
	"wordwire/internal/tourney"
)

// DivisionLoader reads archived division snapshots back out of persistence.
// Nil when the server runs without a database.
type DivisionLoader interface {
	LoadDivision(ctx context.Context, tournamentID, division string) (ipc.TournamentDivisionDataResponse, error)
}

// API exposes the director-facing tournament administration endpoints. Player
// traffic stays on the websocket; these are out-of-band setup calls.
type API struct {
	tourneys *tourney.Manager
	archive  DivisionLoader
	log      *zap.Logger
}

func NewAPI(tourneys *tourney.Manager, archive DivisionLoader, log *zap.Logger) *API {
	return &API{tourneys: tourneys, archive: archive, log: log.Named("httpapi")}
}

func generateID() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	id := make([]byte, 8)
	for i := range id {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		id[i] = charset[num.Int64()]
	}
	return string(id), nil
}

func (a *API) createTournament(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if body.ID == "" {
		id, err := generateID()
		if err != nil {
			http.Error(w, "failed to generate id", http.StatusInternalServerError)
			return
		}
		body.ID = id
	}
	resp := a.tourneys.NewTournament(body.ID, body.Name, body.Description)
	writeJSON(w, http.StatusCreated, resp)
}

func (a *API) getTournament(w http.ResponseWriter, r *http.Request) {
	resp, err := a.tourneys.TournamentData(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) addDivision(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Division string `json:"division"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Division == "" {
		http.Error(w, "division name required", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.AddDivision(chi.URLParam(r, "id"), body.Division); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (a *API) removeDivision(w http.ResponseWriter, r *http.Request) {
	if err := a.tourneys.RemoveDivision(chi.URLParam(r, "id"), chi.URLParam(r, "division")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) getDivision(w http.ResponseWriter, r *http.Request) {
	snap, err := a.tourneys.DivisionData(chi.URLParam(r, "id"), chi.URLParam(r, "division"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) setControls(w http.ResponseWriter, r *http.Request) {
	var controls ipc.DivisionControls
	if err := json.NewDecoder(r.Body).Decode(&controls); err != nil {
		http.Error(w, "bad controls", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.SetDivisionControls(chi.URLParam(r, "id"), chi.URLParam(r, "division"), controls); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) setRoundControls(w http.ResponseWriter, r *http.Request) {
	var rcs []ipc.RoundControl
	if err := json.NewDecoder(r.Body).Decode(&rcs); err != nil {
		http.Error(w, "bad round controls", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.SetRoundControls(chi.URLParam(r, "id"), chi.URLParam(r, "division"), rcs); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) addPlayers(w http.ResponseWriter, r *http.Request) {
	var persons []ipc.TournamentPerson
	if err := json.NewDecoder(r.Body).Decode(&persons); err != nil {
		http.Error(w, "bad players", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.AddPlayers(chi.URLParam(r, "id"), chi.URLParam(r, "division"), persons); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) removePlayers(w http.ResponseWriter, r *http.Request) {
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		http.Error(w, "bad player ids", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.RemovePlayers(chi.URLParam(r, "id"), chi.URLParam(r, "division"), ids); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) setPairing(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Round     int32    `json:"round"`
		GameIndex int32    `json:"gameIndex"`
		PlayerIDs []string `json:"playerIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad pairing", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.SetPairing(chi.URLParam(r, "id"), chi.URLParam(r, "division"),
		body.Round, body.GameIndex, body.PlayerIDs); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) deletePairings(w http.ResponseWriter, r *http.Request) {
	round, err := strconv.ParseInt(chi.URLParam(r, "round"), 10, 32)
	if err != nil {
		http.Error(w, "bad round", http.StatusBadRequest)
		return
	}
	if err := a.tourneys.DeletePairings(chi.URLParam(r, "id"), chi.URLParam(r, "division"), int32(round)); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getDivisionArchive serves the persisted snapshot, which outlives the
// in-memory tournament.
func (a *API) getDivisionArchive(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		http.Error(w, "no archive configured", http.StatusNotFound)
		return
	}
	snap, err := a.archive.LoadDivision(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "division"))
	if err != nil {
		http.Error(w, "no archived snapshot", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) startTournament(w http.ResponseWriter, r *http.Request) {
	if err := a.tourneys.StartTournament(r.Context(), chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *API) finishTournament(w http.ResponseWriter, r *http.Request) {
	if err := a.tourneys.FinishTournament(chi.URLParam(r, "id")); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
