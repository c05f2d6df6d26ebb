package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mcoot/treason-stats/internal/api/request"
	"github.com/mcoot/treason-stats/internal/api/response"
	"github.com/mcoot/treason-stats/internal/services/ranking"
	"github.com/mcoot/treason-stats/internal/services/recorder"
)

// GameHandler handles game statistics endpoints
type GameHandler struct {
	recorderService *recorder.Service
	rankingService  *ranking.Service
}

// NewGameHandler creates a new game handler
func NewGameHandler(recorderService *recorder.Service, rankingService *ranking.Service) *GameHandler {
	return &GameHandler{
		recorderService: recorderService,
		rankingService:  rankingService,
	}
}

// Record handles POST /api/v1/games
func (h *GameHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req request.RecordGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	strict := false
	if raw := r.URL.Query().Get("strict"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, NewInvalidRequestError("strict must be true or false"))
			return
		}
		strict = parsed
	}

	stats := req.ToModel()
	if strict {
		if err := stats.Validate(); err != nil {
			WriteError(w, err)
			return
		}
	}

	id, err := h.recorderService.Record(r.Context(), stats)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GameRecorded{ID: id})
}

// List handles GET /api/v1/games
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	games, err := h.rankingService.Games(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, games)
}

// Rankings handles GET /api/v1/rankings
func (h *GameHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	rankings, err := h.rankingService.Rankings(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, response.RankingsFromModel(rankings))
}
