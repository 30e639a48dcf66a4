package domain

import "time"

type DealStatus string

const (
	DealStatusAnalyzing DealStatus = "analyzing"
	DealStatusPass      DealStatus = "pass"
	DealStatusFail      DealStatus = "fail"
)

type Deal struct {
	ID                    string               `json:"id"`
	PropertyID            string               `json:"propertyId"`
	Status                DealStatus           `json:"status"`
	DownPaymentPercent    float64              `json:"downPaymentPercent"`
	Results               *UnderwritingResults `json:"results,omitempty"`
	Evaluation            *EvaluationResult    `json:"evaluation,omitempty"`
	Recommendations       []string             `json:"recommendations,omitempty"`
	ProcessingTimeSeconds float64              `json:"processingTimeSeconds"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

type NewDeal struct {
	PropertyID string `json:"propertyId" validate:"required,uuid"`
}

// AnalysisInputs carries the caller's deal figures. Nil fields fall back to
// configured defaults or, for income and expenses, to the latest T12 upload.
type AnalysisInputs struct {
	PurchasePrice      float64  `json:"purchasePrice"`
	DownPaymentPercent *float64 `json:"downPaymentPercent,omitempty"`
	GrossRentalIncome  *float64 `json:"grossRentalIncome,omitempty"`
	OperatingExpenses  *float64 `json:"operatingExpenses,omitempty"`
	InterestRate       *float64 `json:"interestRate,omitempty"`
	LoanTermYears      *int     `json:"loanTermYears,omitempty"`
}

type AnalysisRequest struct {
	Inputs AnalysisInputs `json:"inputs"`
	BuyBox BuyBoxCriteria `json:"buyBox"`
}

type AnalysisResult struct {
	Deal            Deal                `json:"deal"`
	Property        Property            `json:"property"`
	Results         UnderwritingResults `json:"results"`
	Evaluation      EvaluationResult    `json:"evaluation"`
	Recommendations []string            `json:"recommendations"`
	MarketData      *MarketData         `json:"marketData,omitempty"`
	ProcessingTime  float64             `json:"processingTime"`
}

type DealWithProperty struct {
	Deal
	Property Property `json:"property"`
}

type DealResults struct {
	Deal        Deal               `json:"deal"`
	Property    Property           `json:"property"`
	BuyBox      *BuyBoxCriteria    `json:"buyBox,omitempty"`
	MarketComps []MarketComparable `json:"marketComps"`
	Documents   []DocumentUpload   `json:"documents"`
}

type DashboardStats struct {
	DealsAnalyzed       int     `json:"dealsAnalyzed"`
	PassedDeals         int     `json:"passedDeals"`
	AvgCashOnCashReturn float64 `json:"avgCoCReturn"`
	AvgProcessingTime   float64 `json:"avgProcessingTime"`
}
