package entity

// ExpenseStatistics is an aggregated view of spending, grouped per
// operation, for one user or for everyone.
type ExpenseStatistics struct {
	TotalCost    float64            `json:"total_cost"`
	TotalEntries int64              `json:"total_entries"`
	ByOperation  map[string]float64 `json:"by_operation"`
}
