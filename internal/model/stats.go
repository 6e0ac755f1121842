package model

// ProfileStats is the analytics payload of a profile page
type ProfileStats struct {
	UserID              int64          `json:"user_id"`
	Role                Role           `json:"role"`
	TotalSessions       int            `json:"total_sessions"`
	CompletedSessions   int            `json:"completed_sessions"`
	UpcomingSessions    int            `json:"upcoming_sessions"`
	CancelledSessions   int            `json:"cancelled_sessions"`
	PendingSessions     int            `json:"pending_sessions"`
	TotalHours          float64        `json:"total_hours"`
	AverageRating       *float64       `json:"average_rating"`
	RatedSessions       int            `json:"rated_sessions"`
	BySubject           []SubjectStats `json:"by_subject"`
	ByMonth             []MonthStats   `json:"by_month"`
	Connections         int            `json:"connections"`
	ActiveStudyPlans    int            `json:"active_study_plans"`
	AveragePlanProgress float64        `json:"average_plan_progress"`
}

type SubjectStats struct {
	Subject   string  `json:"subject"`
	Sessions  int     `json:"sessions"`
	Completed int     `json:"completed"`
	Hours     float64 `json:"hours"`
}

type MonthStats struct {
	Month     string  `json:"month"` // YYYY-MM
	Sessions  int     `json:"sessions"`
	Completed int     `json:"completed"`
	Hours     float64 `json:"hours"`
}
