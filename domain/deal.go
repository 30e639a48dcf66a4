package domain

import "time"

type PropertyType string

const (
	PropertyTypeMultifamily PropertyType = "Multifamily"
	PropertyTypeOffice      PropertyType = "Office"
	PropertyTypeRetail      PropertyType = "Retail"
	PropertyTypeIndustrial  PropertyType = "Industrial"
)

type Property struct {
	ID           string       `json:"id"`
	Address      string       `json:"address" validate:"required"`
	PropertyType PropertyType `json:"propertyType" validate:"required,oneof=Multifamily Office Retail Industrial"`
	TotalUnits   *int         `json:"totalUnits,omitempty" validate:"omitempty,min=1"`
	YearBuilt    *int         `json:"yearBuilt,omitempty" validate:"omitempty,min=1700,max=2200"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// DealInputs is the financial snapshot the metrics are derived from.
// Percentages are plain numbers: 25 means 25%.
type DealInputs struct {
	PurchasePrice      float64 `json:"purchasePrice" validate:"gt=0"`
	DownPaymentPercent float64 `json:"downPaymentPercent" validate:"gte=0,lte=100"`
	GrossRentalIncome  float64 `json:"grossRentalIncome" validate:"gte=0"`
	OperatingExpenses  float64 `json:"operatingExpenses" validate:"gte=0"`
	InterestRate       float64 `json:"interestRate" validate:"gte=0,lte=100"`
	LoanTermYears      int     `json:"loanTermYears" validate:"gt=0,lte=50"`
}

type BuyBoxCriteria struct {
	MinCashOnCashReturn float64 `json:"minCashOnCashReturn"`
	MinCapRate          float64 `json:"minCapRate"`
	YearBuiltThreshold  int     `json:"yearBuiltThreshold" validate:"gte=0"`
	TargetHoldPeriod    int     `json:"targetHoldPeriod" validate:"gte=0"`
}

type UnderwritingResults struct {
	PurchasePrice      float64  `json:"purchasePrice"`
	DownPayment        float64  `json:"downPayment"`
	LoanAmount         float64  `json:"loanAmount"`
	GrossRentalIncome  float64  `json:"grossRentalIncome"`
	OperatingExpenses  float64  `json:"operatingExpenses"`
	NetOperatingIncome float64  `json:"netOperatingIncome"`
	AnnualDebtService  float64  `json:"annualDebtService"`
	CashFlowBeforeTax  float64  `json:"cashFlowBeforeTax"`
	CashOnCashReturn   float64  `json:"cashOnCashReturn"`
	CapRate            float64  `json:"capRate"`
	DSCR               float64  `json:"dscr"`
	RiskFlags          []string `json:"riskFlags"`
}

type EvaluationResult struct {
	Passed          bool     `json:"passed"`
	FailedCriteria  []string `json:"failedCriteria"`
	Recommendations []string `json:"recommendations"`
}
