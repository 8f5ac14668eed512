package models

// Pagination describes the slice of results returned by a list call.
// Total counts every record matching the filter, ignoring the page.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

type StatsOverview struct {
	Total          int64 `json:"total"`
	Completed      int64 `json:"completed"`
	Pending        int64 `json:"pending"`
	Overdue        int64 `json:"overdue"`
	CompletionRate int   `json:"completionRate"`
}

// GroupCount is one bucket of a grouped count aggregation.
type GroupCount struct {
	ID    string `gorm:"column:_id" json:"_id"`
	Count int64  `json:"count"`
}

type TaskStats struct {
	Overview   StatsOverview `json:"overview"`
	ByCategory []GroupCount  `json:"byCategory"`
	ByPriority []GroupCount  `json:"byPriority"`
}
