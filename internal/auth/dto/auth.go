package dto

type ConnectGoogleRequest struct {
	Code string `json:"code" binding:"required"`
}

type ConnectGoogleResponse struct {
	Success      bool   `json:"success"`
	EmailAddress string `json:"emailAddress"`
	JobID        string `json:"jobId,omitempty"`
}

type RegisterFCMTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceInfo string `json:"device_info"`
}
