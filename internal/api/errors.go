// errors.go maps workflow error types to HTTP responses so every handler
// reports the same status codes for the same failures.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shiplog/shiplog-server/internal/workflow"
)

// respondWorkflowError translates a workflow error into the appropriate HTTP
// response. Unrecognized errors become opaque 500s; the detail goes to the log,
// not the client.
func respondWorkflowError(c *gin.Context, err error) {
	var validationErr *workflow.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Error(),
		})
		return
	}

	var notFoundErr *workflow.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": notFoundErr.Error(),
		})
		return
	}

	var alreadyErr *workflow.AlreadyProcessedError
	if errors.As(err, &alreadyErr) {
		// Informational: report the current terminal state so a retried
		// decision can reconcile instead of failing blind.
		c.JSON(http.StatusConflict, gin.H{
			"error":  alreadyErr.Error(),
			"status": string(alreadyErr.Status),
		})
		return
	}

	var duplicateErr *workflow.DuplicateRequestError
	if errors.As(err, &duplicateErr) {
		c.JSON(http.StatusConflict, gin.H{
			"error":       duplicateErr.Error(),
			"existing_id": duplicateErr.ExistingID.String(),
		})
		return
	}

	if errors.Is(err, workflow.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Operation not permitted for your role",
		})
		return
	}

	var unknownErr *workflow.UnknownProcessorError
	if errors.As(err, &unknownErr) {
		slog.Error("unknown processor kind reached a handler", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	var execErr *workflow.ProcessorExecutionError
	if errors.As(err, &execErr) {
		slog.Error("processor execution failed", "kind", execErr.Kind, "error", execErr.Err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to apply mutation",
		})
		return
	}

	slog.Error("unhandled error in request handler", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}
