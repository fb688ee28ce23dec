package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-review/internal/shared/server/respond"
	"resume-review/internal/shared/telemetry"
)

const internalErrorMessage = "Unexpected server error"

// Recovery turns handler panics into a 500. Once a response has started,
// nothing more is written, except on an event stream, which gets a final
// error event.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			telemetry.Error("panic", map[string]any{
				"request_id":     RequestIDFromContext(c),
				"error":          rec,
				"stack":          string(debug.Stack()),
				"path":           c.Request.URL.Path,
				"method":         c.Request.Method,
				"resume_id":      c.GetString("resumeId"),
				"pipeline_stage": c.GetString("pipelineStage"),
			})

			switch {
			case !c.Writer.Written():
				respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, internalErrorMessage, nil)
			case isEventStream(c):
				c.SSEvent("error", gin.H{"kind": "internal", "message": internalErrorMessage})
				c.Writer.Flush()
				c.Abort()
			default:
				c.Abort()
			}
		}()
		c.Next()
	}
}

func isEventStream(c *gin.Context) bool {
	return strings.HasPrefix(c.Writer.Header().Get("Content-Type"), "text/event-stream")
}
