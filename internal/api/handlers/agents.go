package handlers

import (
	"net/http"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// agentFailure is the only message clients see for agent setup errors.
const agentFailure = "Agent not found or error occurred"

func (h *Handlers) ListAgents(c *gin.Context) {
	c.JSON(http.StatusOK, models.AgentListResponse{Agents: h.Registry.AgentNames()})
}

func (h *Handlers) GetAgent(c *gin.Context) {
	a, err := h.Registry.Agent(c.Param("name"))
	if err != nil {
		respondError(c, http.StatusNotFound, codeNotFound, "Agent not found")
		return
	}

	c.JSON(http.StatusOK, models.AgentDetail{
		Name:        a.Name,
		ID:          a.ID,
		Description: a.Description,
	})
}

func (h *Handlers) GenerateAgent(c *gin.Context) {
	name := c.Param("name")
	logger := h.Logger.With().Str("agent", name).Logger()

	a, err := h.Registry.Agent(name)
	if err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	var req models.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	completion, err := a.Generate(c.Request.Context(), req)
	if err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	c.JSON(http.StatusOK, models.GenerateResponse{Text: completion.Text})
}

func (h *Handlers) StreamAgent(c *gin.Context) {
	name := c.Param("name")
	logger := h.Logger.With().Str("agent", name).Logger()

	a, err := h.Registry.Agent(name)
	if err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	var req models.AgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	src, err := a.Stream(c.Request.Context(), req)
	if err != nil {
		h.agentFailed(c, logger, err)
		return
	}

	state := sse.Stream(c, src, h.Sessions, logger)
	logger.Debug().Str("state", state.String()).Msg("Agent stream ended")
}

func (h *Handlers) agentFailed(c *gin.Context, logger zerolog.Logger, err error) {
	logger.Error().Err(err).Msg("Agent request failed")
	respondError(c, http.StatusNotFound, codeNotFound, agentFailure)
}
