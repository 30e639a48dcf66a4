package domain

type RentComparable struct {
	PropertyName string   `json:"propertyName"`
	Address      string   `json:"address"`
	RentPerSqft  float64  `json:"rentPerSqft"`
	CapRate      *float64 `json:"capRate,omitempty"`
	Distance     float64  `json:"distance"`
}

type AreaInsights struct {
	NeighborhoodScore int     `json:"neighborhoodScore"`
	SchoolRating      int     `json:"schoolRating"`
	CrimeIndex        string  `json:"crimeIndex"`
	WalkScore         int     `json:"walkScore"`
	UnemploymentRate  float64 `json:"unemploymentRate"`
	MedianIncome      float64 `json:"medianIncome"`
}

type PriceTrend struct {
	Year             int     `json:"year"`
	AveragePrice     float64 `json:"averagePrice"`
	AppreciationRate float64 `json:"appreciationRate"`
}

type MarketData struct {
	Source       string           `json:"source"`
	RentComps    []RentComparable `json:"rentComps"`
	AreaInsights *AreaInsights    `json:"areaInsights,omitempty"`
	PriceTrends  []PriceTrend     `json:"priceTrends,omitempty"`
}

// MarketComparable is a rent comparable persisted against a deal.
type MarketComparable struct {
	ID           string   `json:"id"`
	DealID       string   `json:"dealId"`
	PropertyName string   `json:"propertyName"`
	RentPerSqft  float64  `json:"rentPerSqft"`
	CapRate      *float64 `json:"capRate,omitempty"`
	Source       string   `json:"source"`
}
