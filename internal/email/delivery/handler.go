package delivery

import (
	"net/http"
	"strconv"

	emaildto "jobhunt-backend/internal/email/dto"
	"jobhunt-backend/internal/email/repository"
	"jobhunt-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

type EmailHandler struct {
	records repository.MailRecordRepository
}

func NewEmailHandler(records repository.MailRecordRepository) *EmailHandler {
	return &EmailHandler{records: records}
}

// GetEmails returns the caller's mirrored messages, newest first.
func (h *EmailHandler) GetEmails(c *gin.Context) {
	userID := c.GetString("userID")

	limit := defaultLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, maxLimit)
		}
	}

	emails, err := h.records.ListByOwner(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, emaildto.EmailsResponse{
		Emails: emails,
		Limit:  limit,
		Count:  len(emails),
	})
}
