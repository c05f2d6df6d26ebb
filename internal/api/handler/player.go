package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/treason-stats/internal/api/request"
	"github.com/mcoot/treason-stats/internal/api/response"
	"github.com/mcoot/treason-stats/internal/model"
	"github.com/mcoot/treason-stats/internal/services/identity"
	"github.com/mcoot/treason-stats/internal/services/ranking"
)

// PlayerHandler handles player-related endpoints
type PlayerHandler struct {
	identityService *identity.Service
	rankingService  *ranking.Service
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(identityService *identity.Service, rankingService *ranking.Service) *PlayerHandler {
	return &PlayerHandler{
		identityService: identityService,
		rankingService:  rankingService,
	}
}

// Register handles POST /api/v1/players/register
func (h *PlayerHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		WriteError(w, NewInvalidRequestError("name is required"))
		return
	}

	reg := h.identityService.Register(r.Context(), model.PlayerID(req.ID), name)

	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.RegistrationFromModel(reg))
}

// List handles GET /api/v1/players
func (h *PlayerHandler) List(w http.ResponseWriter, r *http.Request) {
	players, err := h.rankingService.AllPlayers(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	response.JSON(w, http.StatusOK, players)
}

// Wins handles GET /api/v1/players/{id}/wins
func (h *PlayerHandler) Wins(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	humanOnly := false
	if raw := r.URL.Query().Get("humanOnly"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			WriteError(w, NewInvalidRequestError("humanOnly must be true or false"))
			return
		}
		humanOnly = parsed
	}

	wins, err := h.rankingService.PlayerWins(r.Context(), model.PlayerID(id), ranking.HumanOnlyIf(humanOnly))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerWins{
		PlayerID:  id,
		Wins:      wins,
		HumanOnly: humanOnly,
	})
}
