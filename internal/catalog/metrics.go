package catalog

import "github.com/vitrina-labs/vitrina/internal/model"

// Metrics is the dashboard rollup over a user's execution history.
type Metrics struct {
	TotalExecutions int     `json:"total_executions"`
	TotalCost       float64 `json:"total_cost"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
}

// Aggregate reduces a list of execution records into summary statistics:
//
//   - TotalExecutions: the record count.
//   - TotalCost: sum of estimated_cost, null treated as 0.
//   - AvgSatisfaction: mean of satisfaction_rating over the records where a
//     rating is present; 0 when no record carries one. The 0 is a sentinel:
//     ratings themselves are 1 to 5, so callers render 0 as "N/A", never as
//     a score.
//
// The result is order-independent up to floating-point rounding. An empty
// input yields all-zero metrics; a failed or empty fetch upstream is therefore
// not an error condition here.
func Aggregate(execs []model.AgentExecution) Metrics {
	var m Metrics
	m.TotalExecutions = len(execs)

	var ratingSum float64
	var rated int
	for _, e := range execs {
		if e.EstimatedCost != nil {
			m.TotalCost += *e.EstimatedCost
		}
		if e.SatisfactionRating != nil && *e.SatisfactionRating != 0 {
			ratingSum += *e.SatisfactionRating
			rated++
		}
	}
	if rated > 0 {
		m.AvgSatisfaction = ratingSum / float64(rated)
	}
	return m
}
