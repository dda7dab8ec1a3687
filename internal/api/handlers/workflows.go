package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"agent-relay-gateway/internal/models"
	"agent-relay-gateway/internal/workflows"
	"agent-relay-gateway/pkg/sse"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func (h *Handlers) ListWorkflows(c *gin.Context) {
	c.JSON(http.StatusOK, models.WorkflowListResponse{Workflows: h.Registry.WorkflowNames()})
}

func (h *Handlers) GetWorkflow(c *gin.Context) {
	name := c.Param("name")
	wf, err := h.Registry.Workflow(name)
	if err != nil {
		respondError(c, http.StatusNotFound, codeNotFound, "Workflow not found")
		return
	}

	c.JSON(http.StatusOK, models.WorkflowDetail{
		Name:        name,
		Description: wf.Description,
		Steps:       wf.StepIDs(),
	})
}

// workflowFailure is the only message clients see for workflow setup errors.
const workflowFailure = "Workflow not found or error occurred"

// prepareRun resolves the workflow and validates the request input. Any
// failure is answered with 404 and nil is returned.
func (h *Handlers) prepareRun(c *gin.Context, logger zerolog.Logger) *workflows.Run {
	wf, err := h.Registry.Workflow(c.Param("name"))
	if err != nil {
		h.workflowFailed(c, logger, err)
		return nil
	}

	var req models.WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.workflowFailed(c, logger, err)
		return nil
	}

	run, err := wf.CreateRun(req.InputData)
	if err != nil {
		h.workflowFailed(c, logger, err)
		return nil
	}

	return run
}

func (h *Handlers) workflowFailed(c *gin.Context, logger zerolog.Logger, err error) {
	logger.Warn().Err(err).Msg("Workflow request failed")
	respondError(c, http.StatusNotFound, codeNotFound, workflowFailure)
}

func (h *Handlers) StreamWorkflow(c *gin.Context) {
	name := c.Param("name")
	logger := h.Logger.With().Str("workflow", name).Logger()

	run := h.prepareRun(c, logger)
	if run == nil {
		return
	}
	logger = logger.With().Str("run_id", run.ID).Logger()

	record := &models.WorkflowRun{
		ID:           run.ID,
		WorkflowName: run.WorkflowID(),
		Status:       models.RunStatusRunning,
		Input:        run.Input(),
		CreatedAt:    time.Now(),
	}
	h.saveRun(c.Request.Context(), logger, record)

	// Deferred so the outcome is recorded even when a failed stream aborts
	// the handler.
	defer h.finishStreamedRun(context.WithoutCancel(c.Request.Context()), logger, record, run)

	state := sse.Stream(c, run.Stream(c.Request.Context()), h.Sessions, logger)
	logger.Debug().Str("state", state.String()).Msg("Workflow stream ended")
}

func (h *Handlers) finishStreamedRun(ctx context.Context, logger zerolog.Logger, record *models.WorkflowRun, run *workflows.Run) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	finished := time.Now()
	record.FinishedAt = &finished
	if res := run.Result(); res != nil {
		record.Status = res.Status
		record.Result = res.Result
		record.ErrorMessage = res.Error
	} else {
		record.Status = models.RunStatusFailed
		record.ErrorMessage = "stream aborted before the run finished"
	}

	if h.Archive != nil {
		if key, err := h.Archive.ArchiveRun(ctx, record); err != nil {
			logger.Warn().Err(err).Msg("Failed to archive run")
		} else {
			record.ArchiveKey = key
		}
	}

	h.saveRun(ctx, logger, record)
}

func (h *Handlers) saveRun(ctx context.Context, logger zerolog.Logger, record *models.WorkflowRun) {
	if err := h.Repository.SaveRun(ctx, record); err != nil {
		logger.Error().Err(err).Msg("Failed to record workflow run")
	}
}

// StartWorkflow schedules a durable run on the Temporal worker and returns
// immediately.
func (h *Handlers) StartWorkflow(c *gin.Context) {
	if h.Temporal == nil {
		respondError(c, http.StatusServiceUnavailable, codeUnavailable, "Durable runs are not configured")
		return
	}

	name := c.Param("name")
	logger := h.Logger.With().Str("workflow", name).Logger()

	run := h.prepareRun(c, logger)
	if run == nil {
		return
	}
	logger = logger.With().Str("run_id", run.ID).Logger()

	record := &models.WorkflowRun{
		ID:           run.ID,
		WorkflowName: run.WorkflowID(),
		Status:       models.RunStatusRunning,
		Input:        run.Input(),
		CreatedAt:    time.Now(),
	}
	if err := h.Repository.SaveRun(c.Request.Context(), record); err != nil {
		logger.Error().Err(err).Msg("Failed to record workflow run")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to record workflow run")
		return
	}

	_, err := h.Temporal.StartWorkflowRun(c.Request.Context(), models.DurableRunInput{
		RunID:        run.ID,
		WorkflowName: run.WorkflowID(),
		Input:        run.Input(),
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to start durable run")
		finished := time.Now()
		record.Status = models.RunStatusFailed
		record.ErrorMessage = err.Error()
		record.FinishedAt = &finished
		h.saveRun(c.Request.Context(), logger, record)
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to start workflow run")
		return
	}

	logger.Info().Msg("Durable run started")
	c.JSON(http.StatusAccepted, models.StartRunResponse{RunID: run.ID, Status: models.RunStatusRunning})
}
