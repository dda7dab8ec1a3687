package handlers

import (
	"errors"
	"net/http"

	"agent-relay-gateway/internal/memory"
	"agent-relay-gateway/internal/models"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) ListThreads(c *gin.Context) {
	limit, offset := pagination(c)

	threads, total, err := h.Memory.ListThreads(c.Request.Context(), c.Query("resourceId"), limit, offset)
	if err != nil {
		h.Logger.Error().Err(err).Msg("Failed to list threads")
		respondError(c, http.StatusInternalServerError, codeInternal, "Failed to list threads")
		return
	}

	list := make([]models.Thread, len(threads))
	for i, t := range threads {
		list[i] = *t
	}

	c.JSON(http.StatusOK, models.ThreadListResponse{
		Threads: list,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	})
}

func (h *Handlers) GetThreadMessages(c *gin.Context) {
	threadID := c.Param("id")
	limit, offset := pagination(c)

	messages, err := h.Memory.Messages(c.Request.Context(), threadID, limit, offset)
	if err != nil {
		h.threadFailed(c, threadID, err, "Failed to get messages")
		return
	}

	list := make([]models.Message, len(messages))
	for i, msg := range messages {
		list[i] = *msg
	}

	c.JSON(http.StatusOK, models.MessageListResponse{Messages: list})
}

func (h *Handlers) DeleteThread(c *gin.Context) {
	threadID := c.Param("id")

	if err := h.Memory.Forget(c.Request.Context(), threadID); err != nil {
		h.threadFailed(c, threadID, err, "Failed to delete thread")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handlers) threadFailed(c *gin.Context, threadID string, err error, message string) {
	if errors.Is(err, memory.ErrThreadNotFound) {
		respondError(c, http.StatusNotFound, codeNotFound, "Thread not found")
		return
	}
	h.Logger.Error().Err(err).Str("thread_id", threadID).Msg(message)
	respondError(c, http.StatusInternalServerError, codeInternal, message)
}
