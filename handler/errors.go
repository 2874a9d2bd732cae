package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jorellortega/covionpartners-sub001/access"
	"github.com/jorellortega/covionpartners-sub001/editor"
	"github.com/jorellortega/covionpartners-sub001/fields"
	"github.com/jorellortega/covionpartners-sub001/pager"
	"github.com/jorellortega/covionpartners-sub001/pdfform"
	"github.com/jorellortega/covionpartners-sub001/pkg/logger"
	"github.com/jorellortega/covionpartners-sub001/service"
)

// respondError writes err as {"error": ...} with the status its type maps to.
func respondError(c *gin.Context, err error) {
	status, body := errorResponse(err)
	switch {
	case service.Retryable(err):
		logger.Warn(c.Request.Context(), "storage step failed", "error", err, "retryable", true)
	case status >= http.StatusInternalServerError:
		logger.Error(c.Request.Context(), "request failed", "error", err)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func errorResponse(err error) (int, gin.H) {
	var (
		denied  *access.AccessDeniedError
		bounds  *editor.SelectionOutOfBoundsError
		parse   *pdfform.DocumentParseError
		upload  *service.StorageUploadError
		pointer *service.PointerUpdateError
	)
	switch {
	case errors.As(err, &denied):
		return http.StatusForbidden, gin.H{"error": denied.Error()}
	case errors.As(err, &bounds):
		return http.StatusUnprocessableEntity, gin.H{
			"error":       bounds.Error(),
			"page":        bounds.Page,
			"start":       bounds.Start,
			"end":         bounds.End,
			"page_length": bounds.PageLength,
			"reason":      bounds.Reason,
		}
	case errors.As(err, &parse):
		return http.StatusUnprocessableEntity, gin.H{"error": parse.Error()}
	case errors.As(err, &upload):
		return http.StatusBadGateway, gin.H{"error": "Failed to store file", "retryable": true}
	case errors.As(err, &pointer):
		return http.StatusServiceUnavailable, gin.H{
			"error":      "File stored but the contract still points at its previous file",
			"retryable":  true,
			"orphan_key": pointer.OrphanKey,
		}
	case errors.Is(err, service.ErrContractNotFound):
		return http.StatusNotFound, gin.H{"error": "Contract not found"}
	case errors.Is(err, service.ErrNoFile):
		return http.StatusNotFound, gin.H{"error": "Contract has no file"}
	case errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound, gin.H{"error": "Editing session not found"}
	case errors.Is(err, fields.ErrFieldNotFound):
		return http.StatusNotFound, gin.H{"error": "Field not found"}
	case errors.Is(err, service.ErrSessionForbidden):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, service.ErrAccessCodeInvalid):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, editor.ErrHighlightPending), errors.Is(err, editor.ErrNoHighlight),
		errors.Is(err, service.ErrNotFillable):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, fields.ErrDuplicateField), errors.Is(err, fields.ErrDuplicatePlaceholder):
		return http.StatusConflict, gin.H{"error": err.Error()}
	case errors.Is(err, fields.ErrInvalidField), errors.Is(err, pager.ErrPageOutOfRange),
		errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	}
	return http.StatusInternalServerError, gin.H{"error": "Internal server error"}
}
