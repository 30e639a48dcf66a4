package underwriting

import (
	"fmt"

	"deal-underwriter/domain"
)

const (
	RecommendationRaiseCashOnCash = "Consider reducing purchase price or increasing rents to improve cash-on-cash return"
	RecommendationRaiseCapRate    = "Negotiate lower purchase price or identify value-add opportunities to increase NOI"
	RecommendationAgeReserves     = "Consider higher reserves for capital improvements due to property age"
	RecommendationRiskFlags       = "Address identified risk flags to strengthen the investment thesis"
)

// Evaluate checks underwriting results against the investor's buy box.
// Checks run in a fixed order and each failure contributes one failed
// criterion and one recommendation. Risk flags add advice but never fail
// the deal.
func Evaluate(
	results domain.UnderwritingResults,
	criteria domain.BuyBoxCriteria,
	property domain.Property,
) domain.EvaluationResult {

	failed := []string{}
	recommendations := []string{}

	if results.CashOnCashReturn < criteria.MinCashOnCashReturn {
		failed = append(failed, fmt.Sprintf(
			"Cash-on-Cash Return: %.2f%% < %.2f%% (required)",
			results.CashOnCashReturn, criteria.MinCashOnCashReturn,
		))
		recommendations = append(recommendations, RecommendationRaiseCashOnCash)
	}

	if results.CapRate < criteria.MinCapRate {
		failed = append(failed, fmt.Sprintf(
			"Cap Rate: %.2f%% < %.2f%% (required)",
			results.CapRate, criteria.MinCapRate,
		))
		recommendations = append(recommendations, RecommendationRaiseCapRate)
	}

	if property.YearBuilt != nil && *property.YearBuilt < criteria.YearBuiltThreshold {
		failed = append(failed, fmt.Sprintf(
			"Year Built: %d < %d (minimum)",
			*property.YearBuilt, criteria.YearBuiltThreshold,
		))
		recommendations = append(recommendations, RecommendationAgeReserves)
	}

	if len(results.RiskFlags) > 0 {
		recommendations = append(recommendations, RecommendationRiskFlags)
	}

	return domain.EvaluationResult{
		Passed:          len(failed) == 0,
		FailedCriteria:  failed,
		Recommendations: recommendations,
	}
}
