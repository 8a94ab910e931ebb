package types

// SuccessEnvelope wraps every successful REST payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a failed request. RequestID echoes the
// X-Request-Id header so operators can find the matching log line.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// StreamEnvelope is one message pushed to a bay WebSocket client.
type StreamEnvelope struct {
	Type  string `json:"type"`
	BayID string `json:"bayId"`
	Event any    `json:"event"`
}
