package underwriting

import "deal-underwriter/domain"

const (
	StrongDSCRThreshold           = 1.5
	HighCapRateThreshold          = 7.0
	HighCashOnCashReturnThreshold = 12.0
)

const (
	RecommendationLeverage         = "Strong debt coverage allows for potential leverage optimization"
	RecommendationValueOpportunity = "Above-market cap rate suggests good value opportunity"
	RecommendationStrongCashFlow   = "Excellent cash-on-cash return indicates strong cash flow potential"
)

// GenerateRecommendations extends the evaluation's advice with
// performance-based notes. The evaluation is left untouched.
func GenerateRecommendations(
	results domain.UnderwritingResults,
	evaluation domain.EvaluationResult,
) []string {

	recommendations := make([]string, 0, len(evaluation.Recommendations)+3)
	recommendations = append(recommendations, evaluation.Recommendations...)

	if results.DSCR > StrongDSCRThreshold {
		recommendations = append(recommendations, RecommendationLeverage)
	}
	if results.CapRate > HighCapRateThreshold {
		recommendations = append(recommendations, RecommendationValueOpportunity)
	}
	if results.CashOnCashReturn > HighCashOnCashReturnThreshold {
		recommendations = append(recommendations, RecommendationStrongCashFlow)
	}

	return recommendations
}
