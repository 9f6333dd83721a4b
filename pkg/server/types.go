package server

const (
	ChatPath    = "/v1/chat"
	HealthzPath = "/healthz"
	MetricsPath = "/metrics"

	// UserIDHeader carries the authenticated tenant, set by the proxy in front of the server.
	UserIDHeader = "X-User-ID"
)

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	Route     string `json:"route"`
	ToolError bool   `json:"tool_error"`
	Attempts  int    `json:"attempts,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
