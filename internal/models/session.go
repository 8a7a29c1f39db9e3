package models

// LoadStatus represents the status of an analysis session load.
type LoadStatus string

const (
	StatusPending  LoadStatus = "pending"
	StatusLoading  LoadStatus = "loading"
	StatusComplete LoadStatus = "complete"
	StatusError    LoadStatus = "error"
)

// AnalysisSession represents one loaded year/track/session tuple.
type AnalysisSession struct {
	ID       string       `json:"id"`
	Year     int          `json:"year"`
	Track    string       `json:"track"`
	Code     string       `json:"session"`
	Status   LoadStatus   `json:"status"`
	Progress float64      `json:"progress"` // 0-100
	Info     *SessionInfo `json:"info,omitempty"`
	Error    string       `json:"error,omitempty"`
}

// NewAnalysisSession creates a session in pending status.
func NewAnalysisSession(id string, year int, track, code string) *AnalysisSession {
	return &AnalysisSession{
		ID:     id,
		Year:   year,
		Track:  track,
		Code:   code,
		Status: StatusPending,
	}
}
