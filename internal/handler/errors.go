package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/tenant_pos/internal/utils"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind utils.ErrorKind) int {
	switch kind {
	case utils.KindValidation:
		return http.StatusBadRequest
	case utils.KindNotFound:
		return http.StatusNotFound
	case utils.KindInvariant, utils.KindInsufficientStock, utils.KindDuplicate:
		return http.StatusConflict
	case utils.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err using the standard envelope. Unclassified errors are
// logged and reported as INTERNAL_ERROR without leaking their text.
func respondError(c *gin.Context, err error) {
	var appErr *utils.AppError
	if !errors.As(err, &appErr) {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Str("path", c.Request.URL.Path).Msg("Unhandled error")
		utils.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	status := statusFor(appErr.Kind)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", c.GetString("request_id")).Msg("Store unavailable")
	}
	utils.Error(c, status, string(appErr.Kind), appErr.Message)
}

// bindError reports a malformed request body.
func bindError(c *gin.Context, err error) {
	utils.Error(c, http.StatusBadRequest, string(utils.KindValidation), "Invalid request body: "+err.Error())
}
