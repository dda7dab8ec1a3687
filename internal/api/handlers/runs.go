package handlers

import (
	"net/http"

	"agent-relay-gateway/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListRuns(c *gin.Context) {
	limit, offset := pagination(c)

	runs, total, err := h.Repository.ListRuns(c.Request.Context(), c.Query("workflow"), limit, offset)
	if err != nil {
		h.Logger.Error().Err(err).Msg("Failed to list runs")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to list runs")
		return
	}

	list := make([]models.WorkflowRun, len(runs))
	for i, run := range runs {
		list[i] = *run
	}

	c.JSON(http.StatusOK, models.RunListResponse{
		Runs:   list,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// loadRun fetches the run named in the path, writing a 404 or 500 response
// when it cannot.
func (h *Handlers) loadRun(c *gin.Context) *models.WorkflowRun {
	runID := c.Param("runId")

	run, err := h.Repository.GetRun(c.Request.Context(), runID)
	if err != nil {
		h.Logger.Error().Err(err).Str("run_id", runID).Msg("Failed to get run")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to get run")
		return nil
	}
	if run == nil {
		respondError(c, http.StatusNotFound, codeNotFound, "Run not found")
		return nil
	}
	return run
}

func (h *Handlers) GetRun(c *gin.Context) {
	run := h.loadRun(c)
	if run == nil {
		return
	}

	resp := models.RunDetailResponse{Run: run}
	if h.Temporal != nil {
		status, err := h.Temporal.QueryWorkflowStatus(c.Request.Context(), run.ID)
		if err != nil {
			h.Logger.Debug().Err(err).Str("run_id", run.ID).Msg("No durable execution for run")
		} else {
			resp.DurableStatus = status
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) CancelRun(c *gin.Context) {
	if h.Temporal == nil {
		respondError(c, http.StatusServiceUnavailable, codeUnavailable, "Durable runs are not configured")
		return
	}

	run := h.loadRun(c)
	if run == nil {
		return
	}

	if err := h.Temporal.CancelWorkflow(c.Request.Context(), run.ID); err != nil {
		h.Logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to cancel run")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to cancel run")
		return
	}

	c.JSON(http.StatusAccepted, models.StartRunResponse{RunID: run.ID, Status: "cancel_requested"})
}

// GetRunArchive returns a presigned link to the archived run result.
func (h *Handlers) GetRunArchive(c *gin.Context) {
	if h.Archive == nil {
		respondError(c, http.StatusServiceUnavailable, codeUnavailable, "Run archive is not configured")
		return
	}

	run := h.loadRun(c)
	if run == nil {
		return
	}
	if run.ArchiveKey == "" {
		respondError(c, http.StatusNotFound, codeNotFound, "Run has not been archived")
		return
	}

	url, err := h.Archive.GeneratePresignedDownloadURL(c.Request.Context(), run.ArchiveKey, h.ArchiveExpiry)
	if err != nil {
		h.Logger.Error().Err(err).Str("run_id", run.ID).Msg("Failed to generate presigned URL")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to generate download URL")
		return
	}

	c.JSON(http.StatusOK, models.ArchiveResponse{
		RunID:       run.ID,
		DownloadURL: url,
		ExpiresIn:   h.ArchiveExpiry.String(),
	})
}
