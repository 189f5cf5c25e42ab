package models

// AuthStats is the read-only snapshot emitted by the housekeeper.
type AuthStats struct {
	TotalUsers     int64 `json:"totalUsers"`
	ActiveUsers    int64 `json:"activeUsers"`
	InactiveUsers  int64 `json:"inactiveUsers"`
	ActiveSessions int64 `json:"activeSessions"`
	ActiveTokens   int64 `json:"activeTokens"`
}
