// Package response writes the JSON error envelope used by every handler.
package response

import (
	"jobhunt-backend/internal/errs"

	"github.com/gin-gonic/gin"
)

// ErrorBody is the {success:false, error, code} envelope.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// Error maps err to a status and code and aborts the request.
func Error(c *gin.Context, err error) {
	status, code := errs.HTTPStatus(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: err.Error(), Code: code})
}

// Fail aborts with an explicit status and code.
func Fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{Error: message, Code: code})
}
