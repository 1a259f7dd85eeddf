package adaptor

import (
	"errors"
	"net/http"

	"cinema-booking/internal/apperr"
	"cinema-booking/pkg/utils"

	"go.uber.org/zap"
)

// clientMessage is the outermost apperr message, without wrapped driver errors.
func clientMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

// handleServiceError maps an apperr kind onto the response envelope.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	msg := clientMessage(err)
	details := apperr.DetailsOf(err)

	switch apperr.KindOf(err) {
	case apperr.Validation:
		if errors.Is(err, apperr.ErrInvalidSignature) {
			log.Warn(operation+" rejected - bad signature", zap.String("operation", operation))
			utils.ResponseUnauthorized(w, msg)
			return
		}
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, msg, details)

	case apperr.NotFound:
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, msg)

	case apperr.Conflict:
		log.Warn(operation+" failed - conflict",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, msg, details)

	case apperr.Expired:
		log.Info(operation+" failed - expired",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseGone(w, msg)

	case apperr.RuleViolation:
		log.Info(operation+" failed - seat rules",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseUnprocessable(w, msg, details)

	case apperr.Gateway:
		log.Error(operation+" failed - payment provider",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadGateway(w, msg)

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
