package model

// UGC proxy actions
const (
	ActionValidate = "validate"
	ActionStart    = "start"
	ActionStatus   = "status"
)

// UGCRequest is the body of POST /api/ugc
type UGCRequest struct {
	Action   string `json:"action"`
	Password string `json:"password,omitempty"`
	JobID    string `json:"jobId,omitempty"`
	Brief
}

// ValidateResponse is returned for a correct password
type ValidateResponse struct {
	Valid     bool   `json:"valid"`
	IsAdmin   bool   `json:"isAdmin"`
	Remaining int    `json:"remaining"`
	Token     string `json:"token,omitempty"`
}

// JobStartResponse is returned once the workflow accepted a job
type JobStartResponse struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	Message   string `json:"message"`
	Remaining int    `json:"remaining"`
	IsAdmin   bool   `json:"isAdmin"`
}

// JobStatusResponse mirrors the workflow's execution status
type JobStatusResponse struct {
	JobID    string `json:"jobId"`
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl"`
	Product  string `json:"product"`
	Model    string `json:"model"`
}

// Finished reports whether the job reached terminal success.
func (r *JobStatusResponse) Finished() bool {
	return r.Status == UpstreamStatusFinished && r.VideoURL != ""
}

// ScoreResponse is returned by POST /api/score
type ScoreResponse struct {
	Score     int            `json:"score"`
	Tier      string         `json:"tier"`
	Breakdown map[string]int `json:"breakdown"`
}

// ProgressResponse is returned by POST /api/progress
type ProgressResponse struct {
	Level       int     `json:"level"`
	CurrentXP   int     `json:"currentXp"`
	NextLevelXP int     `json:"nextLevelXp"`
	Percent     int     `json:"percent"`
	Badges      []Badge `json:"badges"`
}
