package delivery

import (
	"context"
	"errors"
	"net/http"

	"jobhunt-backend/internal/errs"
	"jobhunt-backend/internal/push/domain"
	"jobhunt-backend/internal/push/usecase"
	"jobhunt-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TokenVerifier checks the push request's Authorization header.
type TokenVerifier interface {
	Verify(ctx context.Context, authHeader string) bool
}

// NotificationIngestor handles a verified push message.
type NotificationIngestor interface {
	Ingest(ctx context.Context, msg domain.PushMessage) (*usecase.Result, error)
}

type PushHandler struct {
	verifier TokenVerifier
	ingestor NotificationIngestor
	logger   *zap.Logger
}

func NewPushHandler(verifier TokenVerifier, ingestor NotificationIngestor, logger *zap.Logger) *PushHandler {
	return &PushHandler{
		verifier: verifier,
		ingestor: ingestor,
		logger:   logger.Named("push_handler"),
	}
}

// Receive is the Pub/Sub push endpoint. Any 2xx acks the message, so only
// storage failures answer with an error status to get a redelivery.
func (h *PushHandler) Receive(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.Fail(c, http.StatusUnauthorized, errs.CodeUnauthorized, "authorization header required")
		return
	}
	if !h.verifier.Verify(c.Request.Context(), authHeader) {
		response.Error(c, errs.ErrVerification)
		return
	}

	var envelope domain.PushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		// Redelivering a malformed body will not fix it.
		h.logger.Warn("malformed push body dropped", zap.Error(err))
		c.Status(http.StatusNoContent)
		return
	}

	_, err := h.ingestor.Ingest(c.Request.Context(), envelope.Message)
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		h.logger.Warn("undecodable push message dropped",
			zap.String("message_id", envelope.Message.MessageID),
			zap.String("subscription", envelope.Subscription),
			zap.Error(err))
		c.Status(http.StatusNoContent)
	case err != nil:
		h.logger.Error("push ingest failed", zap.String("message_id", envelope.Message.MessageID), zap.Error(err))
		response.Error(c, err)
	default:
		c.Status(http.StatusNoContent)
	}
}
