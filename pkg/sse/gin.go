package sse

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Stream relays src into the response of c and returns the final session
// state. Headers are committed before the first pull, so any failure after
// this point cannot change the status code. A Failed session aborts the
// connection without the sentinel frame; this requires that no recovery
// middleware swallows http.ErrAbortHandler. Once hub is shut down the
// request is answered with 503 and src is closed unread.
func Stream(c *gin.Context, src Source, hub *Hub, logger zerolog.Logger) State {
	ctx := c.Request.Context()
	if hub != nil {
		sessionCtx, id, release, err := hub.Register(ctx)
		if err != nil {
			if closeErr := src.Close(); closeErr != nil {
				logger.Debug().Err(closeErr).Msg("Failed to close refused source")
			}
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "Server is shutting down",
				"code":  "SERVICE_UNAVAILABLE",
			})
			return StateCancelled
		}
		defer release()
		ctx = sessionCtx
		logger = logger.With().Str("session_id", id).Logger()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	session := NewSession(src, c.Writer, logger)
	logger.Debug().Msg("Relay session started")

	if err := session.Run(ctx); err != nil {
		logger.Error().Err(err).Int("frames", session.Frames()).Msg("Relay session failed")
		panic(http.ErrAbortHandler)
	}

	return session.State()
}
