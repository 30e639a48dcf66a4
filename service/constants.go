package service

import "time"

const (
	DefaultDownPaymentPercent = 25.0
	DefaultInterestRate       = 6.5
	DefaultLoanTermYears      = 30

	DefaultResultsCacheTTL = 15 * time.Minute
	DefaultRecentDeals     = 10
	MaxRecentDeals         = 100

	MaxDocumentSize = 10 << 20 // 10 MiB

	resultsCacheKeyFormat = "deal:%s:results"
)

// AllowedDocumentTypes are the sniffed MIME types accepted for uploads.
var AllowedDocumentTypes = []string{
	"application/pdf",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-excel",
	"text/csv",
	"text/plain",
}
