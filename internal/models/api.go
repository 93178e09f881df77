package models

// Wire types for the remote enhancement API.

type UpscaleRequest struct {
	Image string `json:"image"`
	Model string `json:"model"`
	Scale int    `json:"scale"`
}

type UpscaleJobResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	ResultURL string `json:"resultUrl,omitempty"`
}

type JobStatusResponse struct {
	Status    string  `json:"status"`
	ResultURL *string `json:"resultUrl,omitempty"`
	Error     *string `json:"error,omitempty"`
}

type RemoveBackgroundRequest struct {
	Image string `json:"image"`
	Model string `json:"model"`
}

type RemoveBackgroundResponse struct {
	Status    string  `json:"status"`
	ResultURL *string `json:"resultUrl,omitempty"`
	Error     *string `json:"error,omitempty"`
}

type CreditsResponse struct {
	ImageCredits int `json:"imageCredits"`
	VideoSeconds int `json:"videoSeconds"`
}

type AppleAuthRequest struct {
	IdentityToken string `json:"identityToken" validate:"required"`
	UserID        string `json:"userId" validate:"required"`
	Email         string `json:"email,omitempty"`
}

type AppleAuthResponse struct {
	SessionToken string `json:"sessionToken"`
	User         User   `json:"user"`
}
