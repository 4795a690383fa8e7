// Package v1 exposes the encounter service over HTTP.
package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/critfumble/encounter-api/internal/auth"
	"github.com/critfumble/encounter-api/internal/errors"
	"github.com/critfumble/encounter-api/internal/orchestrators/encounter"
	"github.com/critfumble/encounter-api/internal/streaming"
)

// HandlerConfig holds dependencies for the handler
type HandlerConfig struct {
	EncounterService encounter.Service
	Streams          *streaming.Broadcaster
}

// Validate ensures all required dependencies are present
func (c *HandlerConfig) Validate() error {
	if c.EncounterService == nil {
		return errors.InvalidArgument("encounter service is required")
	}
	if c.Streams == nil {
		return errors.InvalidArgument("streams broadcaster is required")
	}
	return nil
}

// Handler implements the encounter HTTP API
type Handler struct {
	encounterService encounter.Service
	streams          *streaming.Broadcaster
}

// NewHandler creates a new handler with the given configuration
func NewHandler(cfg *HandlerConfig) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Handler{
		encounterService: cfg.EncounterService,
		streams:          cfg.Streams,
	}, nil
}

// RegisterRoutes mounts the API under /api/v1, protected by the auth
// middleware. The health probe stays outside the authenticated group.
func (h *Handler) RegisterRoutes(router *gin.Engine, authMiddleware gin.HandlerFunc) {
	router.GET("/healthz", h.Health)

	api := router.Group("/api/v1", authMiddleware)
	{
		api.POST("/encounters", h.CreateEncounter)
		api.GET("/encounters", h.ListEncounters)
		api.GET("/encounters/:id", h.GetEncounter)
		api.PUT("/encounters/:id", h.UpdateEncounter)
		api.DELETE("/encounters/:id", h.DeleteEncounter)

		api.POST("/encounters/:id/participants", h.AddParticipant)
		api.POST("/encounters/:id/participants/:pid/hp", h.AdjustHitPoints)

		api.POST("/encounters/:id/start", h.StartCombat)
		api.POST("/encounters/:id/end", h.EndCombat)
		api.POST("/encounters/:id/turn", h.NextTurn)

		api.GET("/encounters/:id/stream", h.StreamEncounter)
	}
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CreateEncounter creates a new encounter owned by the caller
func (h *Handler) CreateEncounter(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	var req CreateEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	output, err := h.encounterService.CreateEncounter(c.Request.Context(), &encounter.CreateEncounterInput{
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, output.Encounter)
}

// ListEncounters returns the caller's encounters, most recently updated first
func (h *Handler) ListEncounters(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	output, err := h.encounterService.ListEncounters(c.Request.Context(), &encounter.ListEncountersInput{
		UserID: userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ListEncountersResponse{Encounters: output.Encounters})
}

// GetEncounter returns a single encounter
func (h *Handler) GetEncounter(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	output, err := h.encounterService.GetEncounter(c.Request.Context(), &encounter.GetEncounterInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// UpdateEncounter applies a partial update to encounter metadata
func (h *Handler) UpdateEncounter(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	var req UpdateEncounterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	output, err := h.encounterService.UpdateEncounter(c.Request.Context(), &encounter.UpdateEncounterInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// DeleteEncounter removes an encounter and its index entries
func (h *Handler) DeleteEncounter(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	_, err := h.encounterService.DeleteEncounter(c.Request.Context(), &encounter.DeleteEncounterInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddParticipant adds a character or creature to the roster
func (h *Handler) AddParticipant(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	output, err := h.encounterService.AddParticipant(c.Request.Context(), &encounter.AddParticipantInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
		Participant: encounter.ParticipantData{
			Type:           req.Type,
			Name:           req.Name,
			Initiative:     req.Initiative,
			InitiativeRoll: req.InitiativeRoll,
			CurrentHP:      req.CurrentHP,
			MaxHP:          req.MaxHP,
			TempHP:         req.TempHP,
			AC:             req.AC,
			CharacterID:    req.CharacterID,
			CreatureID:     req.CreatureID,
			Conditions:     req.Conditions,
			Notes:          req.Notes,
		},
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, output.Encounter)
}

// AdjustHitPoints applies damage, healing, or a direct HP set to one participant
func (h *Handler) AdjustHitPoints(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	var req AdjustHitPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	output, err := h.encounterService.AdjustHitPoints(c.Request.Context(), &encounter.AdjustHitPointsInput{
		EncounterID:   c.Param("id"),
		ParticipantID: c.Param("pid"),
		UserID:        userID,
		Damage:        req.Damage,
		Healing:       req.Healing,
		CurrentHP:     req.CurrentHP,
		TempHP:        req.TempHP,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// StartCombat locks in the initiative order and activates the encounter
func (h *Handler) StartCombat(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	output, err := h.encounterService.StartCombat(c.Request.Context(), &encounter.StartCombatInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// EndCombat completes the encounter
func (h *Handler) EndCombat(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	output, err := h.encounterService.EndCombat(c.Request.Context(), &encounter.EndCombatInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// NextTurn advances the turn counter
func (h *Handler) NextTurn(c *gin.Context) {
	userID, ok := auth.UserID(c)
	if !ok {
		respondError(c, errors.Unauthenticated("authentication required"))
		return
	}

	output, err := h.encounterService.NextTurn(c.Request.Context(), &encounter.NextTurnInput{
		EncounterID: c.Param("id"),
		UserID:      userID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, output.Encounter)
}

// respondError maps a domain error to its HTTP status and JSON body
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	c.JSON(code.HTTPStatus(), ErrorResponse{
		Error: ErrorBody{
			Code:    string(code),
			Message: errors.GetMessage(err),
		},
	})
}
