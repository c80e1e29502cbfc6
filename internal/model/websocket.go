package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage carries a non-terminal workflow status
type WSStatusMessage struct {
	Type   string `json:"type"`
	JobID  string `json:"jobId"`
	Status string `json:"status"`
}

// WSCompleteMessage represents job completion
type WSCompleteMessage struct {
	Type     string `json:"type"`
	JobID    string `json:"jobId"`
	VideoURL string `json:"videoUrl"`
}
