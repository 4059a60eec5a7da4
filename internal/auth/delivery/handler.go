package delivery

import (
	"context"
	"net/http"

	authdto "jobhunt-backend/internal/auth/dto"
	"jobhunt-backend/internal/auth/usecase"
	"jobhunt-backend/internal/errs"
	"jobhunt-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type Connector interface {
	Connect(ctx context.Context, ownerID, code string) (*usecase.Connection, error)
	Disconnect(ctx context.Context, ownerID string) error
}

type DeviceTokens interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	DeleteUserToken(ctx context.Context, userID, token string) error
}

type AuthHandler struct {
	connector Connector
	tokens    DeviceTokens
}

func NewAuthHandler(connector Connector, tokens DeviceTokens) *AuthHandler {
	return &AuthHandler{connector: connector, tokens: tokens}
}

func (h *AuthHandler) ConnectGoogle(c *gin.Context) {
	var req authdto.ConnectGoogleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, errs.CodeInvalidRequest, err.Error())
		return
	}

	conn, err := h.connector.Connect(c.Request.Context(), c.GetString("userID"), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, authdto.ConnectGoogleResponse{
		Success:      true,
		EmailAddress: conn.EmailAddress,
		JobID:        conn.JobID,
	})
}

func (h *AuthHandler) DisconnectGoogle(c *gin.Context) {
	if err := h.connector.Disconnect(c.Request.Context(), c.GetString("userID")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) RegisterFCMToken(c *gin.Context) {
	var req authdto.RegisterFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, errs.CodeInvalidRequest, err.Error())
		return
	}

	if err := h.tokens.SaveToken(c.Request.Context(), c.GetString("userID"), req.Token, req.DeviceInfo); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *AuthHandler) DeleteFCMToken(c *gin.Context) {
	if err := h.tokens.DeleteUserToken(c.Request.Context(), c.GetString("userID"), c.Param("token")); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
