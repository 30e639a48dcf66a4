package repository

import "deal-underwriter/domain"

// computeDashboardStats counts every deal but averages only deals that
// finished an analysis.
func computeDashboardStats(deals []domain.Deal) domain.DashboardStats {
	stats := domain.DashboardStats{DealsAnalyzed: len(deals)}

	completed := 0
	var cocSum, timeSum float64
	for _, d := range deals {
		if d.Status == domain.DealStatusPass {
			stats.PassedDeals++
		}
		if d.Status == domain.DealStatusAnalyzing {
			continue
		}
		completed++
		if d.Results != nil {
			cocSum += d.Results.CashOnCashReturn
		}
		timeSum += d.ProcessingTimeSeconds
	}

	if completed > 0 {
		stats.AvgCashOnCashReturn = cocSum / float64(completed)
		stats.AvgProcessingTime = timeSum / float64(completed)
	}
	return stats
}
