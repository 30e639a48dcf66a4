package underwriting

import "math"

// MonthlyPayment returns the level monthly payment that fully amortizes
// principal over months at annualRate percent per year.
//
// A zero rate has no annuity solution (0/0), so the principal is spread
// evenly across the term instead. Empty loans and non-positive terms cost
// nothing.
func MonthlyPayment(principal, annualRate float64, months int) float64 {
	if principal == 0 || months <= 0 {
		return 0
	}

	monthlyRate := annualRate / 100 / 12
	n := float64(months)

	if monthlyRate == 0 {
		return principal / n
	}

	growth := math.Pow(1+monthlyRate, n)
	return principal * (monthlyRate * growth) / (growth - 1)
}

// AnnualDebtService is twelve monthly payments on a loan of loanTermYears.
func AnnualDebtService(loanAmount, interestRate float64, loanTermYears int) float64 {
	return MonthlyPayment(loanAmount, interestRate, loanTermYears*12) * 12
}
