package dto

import emaildomain "jobhunt-backend/internal/email/domain"

type EmailsResponse struct {
	Emails []*emaildomain.MailRecord `json:"emails"`
	Limit  int                       `json:"limit"`
	Count  int                       `json:"count"`
}
