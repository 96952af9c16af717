package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shubh-37/music-brief-analyzer/internal/apperr"
	"github.com/shubh-37/music-brief-analyzer/internal/workflow"
)

func statusFor(err error) int {
	switch apperr.TypeOf(err) {
	case apperr.TypeValidation:
		return http.StatusBadRequest
	case apperr.TypeNotFound:
		return http.StatusNotFound
	case apperr.TypeConflict, apperr.TypeSuperseded:
		return http.StatusConflict
	case apperr.TypeTransport, apperr.TypeUpstream, apperr.TypeEmptyResponse, apperr.TypeMalformedResponse:
		return http.StatusBadGateway
	case apperr.TypePersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// fail writes err with its mapped status. When a controller is given the
// body carries its snapshot and any user-facing message it recorded.
func fail(c *gin.Context, ctrl *workflow.Controller, err error) {
	body := gin.H{
		"error": err.Error(),
		"type":  apperr.TypeOf(err),
	}
	if ctrl != nil {
		snap := ctrl.Snapshot()
		if snap.Error != "" {
			body["message"] = snap.Error
		}
		body["snapshot"] = snap
	}
	c.JSON(statusFor(err), body)
}
