package models

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
}

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Msg string `json:"msg"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`

	// ScrapedAt is empty until a dataset has been published.
	ScrapedAt string `json:"scraped_at,omitempty"`
	Uptime    string `json:"uptime"`
}
