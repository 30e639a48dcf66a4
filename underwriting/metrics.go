package underwriting

import "deal-underwriter/domain"

const (
	LowDSCRThreshold             = 1.2
	LowCapRateThreshold          = 4.0
	HighExpenseRatioThreshold    = 0.5
	LowCashOnCashReturnThreshold = 5.0
)

const (
	RiskFlagLowDSCR             = "Low DSCR – debt service coverage below 1.2x"
	RiskFlagLowCapRate          = "Low Cap Rate – below market standards"
	RiskFlagHighExpenses        = "High Operating Expenses – above 50% of gross income"
	RiskFlagLowCashOnCashReturn = "Low Cash-on-Cash Return – below 5%"
)

// CalculateMetrics derives the standard investment metrics for a deal.
// Ratios whose denominator is zero are reported as 0 rather than failing.
func CalculateMetrics(inputs domain.DealInputs) domain.UnderwritingResults {
	downPayment := inputs.PurchasePrice * inputs.DownPaymentPercent / 100
	loanAmount := inputs.PurchasePrice - downPayment
	noi := inputs.GrossRentalIncome - inputs.OperatingExpenses

	debtService := AnnualDebtService(loanAmount, inputs.InterestRate, inputs.LoanTermYears)
	cashFlow := noi - debtService

	var cashOnCash, capRate, dscr float64
	if downPayment > 0 {
		cashOnCash = cashFlow / downPayment * 100
	}
	if inputs.PurchasePrice > 0 {
		capRate = noi / inputs.PurchasePrice * 100
	}
	if debtService > 0 {
		dscr = noi / debtService
	}

	results := domain.UnderwritingResults{
		PurchasePrice:      inputs.PurchasePrice,
		DownPayment:        downPayment,
		LoanAmount:         loanAmount,
		GrossRentalIncome:  inputs.GrossRentalIncome,
		OperatingExpenses:  inputs.OperatingExpenses,
		NetOperatingIncome: noi,
		AnnualDebtService:  debtService,
		CashFlowBeforeTax:  cashFlow,
		CashOnCashReturn:   cashOnCash,
		CapRate:            capRate,
		DSCR:               dscr,
	}
	results.RiskFlags = riskFlags(results)

	return results
}

func riskFlags(r domain.UnderwritingResults) []string {
	flags := []string{}

	if r.DSCR < LowDSCRThreshold {
		flags = append(flags, RiskFlagLowDSCR)
	}
	if r.CapRate < LowCapRateThreshold {
		flags = append(flags, RiskFlagLowCapRate)
	}
	// No income means no meaningful expense ratio.
	if r.GrossRentalIncome != 0 && r.OperatingExpenses/r.GrossRentalIncome > HighExpenseRatioThreshold {
		flags = append(flags, RiskFlagHighExpenses)
	}
	if r.CashOnCashReturn < LowCashOnCashReturnThreshold {
		flags = append(flags, RiskFlagLowCashOnCashReturn)
	}

	return flags
}
