// Package http exposes the session operations over a JSON HTTP API. The
// handler translates transport framing to orchestrator inputs and error
// codes to HTTP statuses; it holds no game logic.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KirkDiggler/gamemaster-api/internal/combat"
	"github.com/KirkDiggler/gamemaster-api/internal/entities"
	"github.com/KirkDiggler/gamemaster-api/internal/errors"
	"github.com/KirkDiggler/gamemaster-api/internal/mutation"
	session "github.com/KirkDiggler/gamemaster-api/internal/orchestrators/session"
)

// Config holds the dependencies for the HTTP handler
type Config struct {
	SessionService session.Service
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	if c == nil {
		return errors.InvalidArgument("config cannot be nil")
	}
	if c.SessionService == nil {
		return errors.InvalidArgument("session service cannot be nil")
	}
	return nil
}

// Handler serves the session API
type Handler struct {
	service session.Service
}

// NewHandler creates a new HTTP handler with the provided dependencies
func NewHandler(cfg *Config) (*Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Handler{service: cfg.SessionService}, nil
}

// RegisterRoutes attaches all session routes to the router
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.health)

	v1 := r.Group("/v1")
	{
		v1.POST("/sessions", h.createSession)
		v1.GET("/sessions", h.listSessions)
		v1.GET("/sessions/:id", h.getSession)
		v1.POST("/sessions/:id/combat/start", h.startCombat)
		v1.POST("/sessions/:id/combat/advance", h.advanceTurn)
		v1.POST("/sessions/:id/actions", h.applyAction)
		v1.POST("/sessions/:id/narration", h.submitNarration)
		v1.POST("/sessions/:id/narration/generate", h.narrateTurn)
		v1.POST("/sessions/:id/pause", h.pauseSession)
		v1.POST("/sessions/:id/resume", h.resumeSession)
		v1.POST("/sessions/:id/end", h.endSession)
		v1.PUT("/sessions/:id/summary", h.saveSummary)
		v1.POST("/dice/roll", h.rollDice)
	}
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createSessionRequest struct {
	CampaignID string `json:"campaign_id" binding:"required"`
	Location   string `json:"location"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	out, err := h.service.CreateSession(c.Request.Context(), &session.CreateSessionInput{
		CampaignID: req.CampaignID,
		Location:   req.Location,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"session": out.Session})
}

func (h *Handler) getSession(c *gin.Context) {
	out, err := h.service.GetSession(c.Request.Context(), &session.GetSessionInput{
		SessionID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

func (h *Handler) listSessions(c *gin.Context) {
	out, err := h.service.ListSessions(c.Request.Context(), &session.ListSessionsInput{
		CampaignID: c.Query("campaign_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": out.Sessions})
}

type participantRequest struct {
	ID         string `json:"id" binding:"required"`
	Name       string `json:"name"`
	Type       string `json:"type" binding:"required"`
	MaxHP      int32  `json:"max_hp" binding:"required"`
	CurrentHP  *int32 `json:"current_hp"`
	ArmorClass int32  `json:"armor_class"`
	Initiative *int32 `json:"initiative"`
}

type startCombatRequest struct {
	Participants    []participantRequest `json:"participants" binding:"required"`
	ExpectedVersion int64                `json:"expected_version" binding:"required"`
}

func (h *Handler) startCombat(c *gin.Context) {
	var req startCombatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	participants := make([]combat.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, combat.Participant{
			ID:         p.ID,
			Name:       p.Name,
			Type:       entities.CombatantType(p.Type),
			MaxHP:      p.MaxHP,
			CurrentHP:  p.CurrentHP,
			ArmorClass: p.ArmorClass,
			Initiative: p.Initiative,
		})
	}

	out, err := h.service.StartCombat(c.Request.Context(), &session.StartCombatInput{
		SessionID:       c.Param("id"),
		Participants:    participants,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

type advanceTurnRequest struct {
	ExpectedVersion int64 `json:"expected_version" binding:"required"`
}

func (h *Handler) advanceTurn(c *gin.Context) {
	var req advanceTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	out, err := h.service.AdvanceTurn(c.Request.Context(), &session.AdvanceTurnInput{
		SessionID:       c.Param("id"),
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      out.Session,
		"current":      out.Current,
		"combat_ended": out.CombatEnded,
		"outcome":      out.Outcome,
	})
}

type stateChangeRequest struct {
	Kind        string `json:"kind" binding:"required"`
	Target      string `json:"target"`
	Value       int32  `json:"value"`
	Detail      string `json:"detail"`
	Description string `json:"description"`
}

type applyActionRequest struct {
	Changes         []stateChangeRequest `json:"changes" binding:"required"`
	ExpectedVersion int64                `json:"expected_version" binding:"required"`
}

func (h *Handler) applyAction(c *gin.Context) {
	var req applyActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	changes := make([]entities.StateChange, 0, len(req.Changes))
	for _, ch := range req.Changes {
		changes = append(changes, entities.StateChange{
			Kind:        entities.StateChangeKind(ch.Kind),
			Target:      ch.Target,
			Value:       ch.Value,
			Detail:      ch.Detail,
			Description: ch.Description,
		})
	}

	out, err := h.service.ApplyAction(c.Request.Context(), &session.ApplyActionInput{
		SessionID:       c.Param("id"),
		Changes:         changes,
		ExpectedVersion: req.ExpectedVersion,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session":      out.Session,
		"applied":      out.Applied,
		"rejected":     rejectionMessages(out.Rejected),
		"combat_ended": out.CombatEnded,
		"outcome":      out.Outcome,
	})
}

type submitNarrationRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *Handler) submitNarration(c *gin.Context) {
	var req submitNarrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	out, err := h.service.SubmitNarration(c.Request.Context(), &session.SubmitNarrationInput{
		SessionID: c.Param("id"),
		RawText:   req.Text,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, narrationResponse(out))
}

type narrateTurnRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) narrateTurn(c *gin.Context) {
	// Body is optional; without one the prompt is built from session state
	var req narrateTurnRequest
	_ = c.ShouldBindJSON(&req)

	out, err := h.service.NarrateTurn(c.Request.Context(), &session.NarrateTurnInput{
		SessionID: c.Param("id"),
		Prompt:    req.Prompt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, narrationResponse(&out.SubmitNarrationOutput))
}

func (h *Handler) pauseSession(c *gin.Context) {
	out, err := h.service.PauseSession(c.Request.Context(), &session.PauseSessionInput{
		SessionID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

func (h *Handler) resumeSession(c *gin.Context) {
	out, err := h.service.ResumeSession(c.Request.Context(), &session.ResumeSessionInput{
		SessionID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

func (h *Handler) endSession(c *gin.Context) {
	out, err := h.service.EndSession(c.Request.Context(), &session.EndSessionInput{
		SessionID: c.Param("id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

type saveSummaryRequest struct {
	Summary string `json:"summary" binding:"required"`
}

func (h *Handler) saveSummary(c *gin.Context) {
	var req saveSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	out, err := h.service.SaveSummary(c.Request.Context(), &session.SaveSummaryInput{
		SessionID: c.Param("id"),
		Summary:   req.Summary,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": out.Session})
}

type rollDiceRequest struct {
	Notation string `json:"notation" binding:"required"`
}

func (h *Handler) rollDice(c *gin.Context) {
	var req rollDiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid request body"))
		return
	}

	out, err := h.service.RollDice(c.Request.Context(), &session.RollDiceInput{
		Notation: req.Notation,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": out.Result})
}

func narrationResponse(out *session.SubmitNarrationOutput) gin.H {
	resp := gin.H{
		"session":      out.Session,
		"narrative":    out.Narrative,
		"applied":      out.Applied,
		"rejected":     rejectionMessages(out.Rejected),
		"combat_ended": out.CombatEnded,
	}
	if out.RequiresRoll != nil {
		resp["requires_roll"] = out.RequiresRoll
	}
	if out.CombatEnded {
		resp["outcome"] = out.Outcome
	}
	return resp
}

type rejectionMessage struct {
	Change entities.StateChange `json:"change"`
	Reason string               `json:"reason"`
}

func rejectionMessages(rejected []mutation.RejectedChange) []rejectionMessage {
	out := make([]rejectionMessage, 0, len(rejected))
	for _, r := range rejected {
		out = append(out, rejectionMessage{Change: r.Change, Reason: r.Err.Error()})
	}
	return out
}

func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := code.HTTPStatus()

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"code":    code.String(),
		"message": err.Error(),
	})
}
