package model

// ChatRequest is the input of a single chat turn.
type ChatRequest struct {
	TenantID  string `json:"tenant_id"`
	SessionID string `json:"session_id"`
	Message   string `json:"message"`

	// CorrelationID ties the turn's logs to the request that carried it.
	CorrelationID string `json:"-"`
}

// ChatResponse is what the assistant returns for a chat turn.
type ChatResponse struct {
	Message        string  `json:"message"`
	Intent         Intent  `json:"intent"`
	Confidence     float64 `json:"confidence"`
	ProductsFound  int     `json:"products_found"`
	ProcessingTime float64 `json:"processing_time_s"`
	Method         Method  `json:"method,omitempty"`
	SessionID      string  `json:"session_id,omitempty"`
}
