package domain

import "time"

type DocumentType string

const (
	DocumentTypeT12      DocumentType = "t12"
	DocumentTypeRentRoll DocumentType = "rentRoll"
)

// ExtractedData holds whatever figures could be read from an uploaded
// document. T12 statements fill the income fields, rent rolls the unit fields.
type ExtractedData struct {
	GrossRentalIncome  *float64       `json:"grossRentalIncome,omitempty"`
	OperatingExpenses  *float64       `json:"operatingExpenses,omitempty"`
	NetOperatingIncome *float64       `json:"netOperatingIncome,omitempty"`
	VacancyRate        *float64       `json:"vacancyRate,omitempty"`
	TotalUnits         *int           `json:"totalUnits,omitempty"`
	UnitMix            map[string]int `json:"unitMix,omitempty"`
	AverageRent        *float64       `json:"averageRent,omitempty"`
	OccupancyRate      *float64       `json:"occupancyRate,omitempty"`
}

type DocumentUpload struct {
	ID            string        `json:"id"`
	DealID        string        `json:"dealId"`
	FileName      string        `json:"fileName"`
	FileType      DocumentType  `json:"fileType"`
	MimeType      string        `json:"mimeType"`
	FileSize      int64         `json:"fileSize"`
	ExtractedData ExtractedData `json:"extractedData"`
	UploadedAt    time.Time     `json:"uploadedAt"`
}
