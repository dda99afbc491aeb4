package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Parley/internal/domain"
)

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUnauthorized:
		return http.StatusForbidden
	case domain.KindCapacity:
		return http.StatusConflict
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"success": false, "error": ...}. Only domain errors
// reach the client verbatim.
func respondError(c *gin.Context, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("unexpected error")
		de = domain.ErrInternal
	}
	c.JSON(statusFor(de.Kind), gin.H{"success": false, "error": de.Message})
}

var errBadBody = &domain.Error{Kind: domain.KindValidation, Message: "invalid request body"}
