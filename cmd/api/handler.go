package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	authDelivery "jobhunt-backend/internal/auth/delivery"
	emailDelivery "jobhunt-backend/internal/email/delivery"
	pushDelivery "jobhunt-backend/internal/push/delivery"
	syncDelivery "jobhunt-backend/internal/syncjob/delivery"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler owns the HTTP surface of the sync service.
type Handler struct {
	authHandler  *authDelivery.AuthHandler
	emailHandler *emailDelivery.EmailHandler
	pushHandler  *pushDelivery.PushHandler
	syncHandler  *syncDelivery.SyncHandler
	sessions     authDelivery.TokenValidator
	apiKey       string
	logger       *zap.Logger

	server *http.Server
}

func NewHandler(
	authHandler *authDelivery.AuthHandler,
	emailHandler *emailDelivery.EmailHandler,
	pushHandler *pushDelivery.PushHandler,
	syncHandler *syncDelivery.SyncHandler,
	sessions authDelivery.TokenValidator,
	apiKey string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		authHandler:  authHandler,
		emailHandler: emailHandler,
		pushHandler:  pushHandler,
		syncHandler:  syncHandler,
		sessions:     sessions,
		apiKey:       apiKey,
		logger:       logger.Named("http"),
	}
}

// Engine builds the gin engine with middleware and routes.
func (h *Handler) Engine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-API-Key, X-Owner-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h)
	return r
}

// Start serves on addr until Shutdown is called.
func (h *Handler) Start(addr string) error {
	h.server = &http.Server{
		Addr:              addr,
		Handler:           h.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	h.logger.Info("server starting", zap.String("addr", addr))
	if err := h.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *Handler) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
