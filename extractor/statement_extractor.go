package extractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strconv"
	"strings"

	"deal-underwriter/domain"
)

// ErrUnsupportedFormat is returned for documents the extractor cannot read,
// such as scanned PDFs or binary spreadsheets.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// StatementExtractor reads figures out of delimited T12 summaries and rent
// rolls. It does no OCR: only CSV and plain-text uploads are understood.
type StatementExtractor struct{}

func NewStatementExtractor() *StatementExtractor {
	return &StatementExtractor{}
}

func (e *StatementExtractor) Extract(
	ctx context.Context,
	docType domain.DocumentType,
	mimeType string,
	content []byte,
) (domain.ExtractedData, error) {

	if err := ctx.Err(); err != nil {
		return domain.ExtractedData{}, err
	}

	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil || (mediaType != "text/csv" && mediaType != "text/plain") {
		return domain.ExtractedData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	records, err := readRecords(content)
	if err != nil {
		return domain.ExtractedData{}, err
	}

	switch docType {
	case domain.DocumentTypeT12:
		return parseT12(records), nil
	case domain.DocumentTypeRentRoll:
		return parseRentRoll(records), nil
	}
	return domain.ExtractedData{}, fmt.Errorf("unknown document type %q", docType)
}

func readRecords(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comment = '#'

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read statement: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// parseT12 scans "label, amount[, amount...]" rows. The last number on a row
// is taken as the annual figure, and later rows win so that totals at the
// bottom of a statement override line items.
func parseT12(records [][]string) domain.ExtractedData {
	var (
		data                   domain.ExtractedData
		potentialRent, vacLoss float64
	)

	for _, rec := range records {
		if len(rec) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(rec[0]))
		value, percent, ok := lastAmount(rec[1:])
		if !ok {
			continue
		}

		switch {
		case strings.Contains(label, "net operating income") || label == "noi":
			data.NetOperatingIncome = &value
		case strings.Contains(label, "operating expenses") || strings.Contains(label, "total expenses"):
			data.OperatingExpenses = &value
		case strings.Contains(label, "gross rental income"),
			strings.Contains(label, "gross potential rent"),
			strings.Contains(label, "effective gross income"),
			strings.Contains(label, "total income"),
			strings.Contains(label, "total revenue"):
			data.GrossRentalIncome = &value
			if strings.Contains(label, "gross potential rent") {
				potentialRent = value
			}
		case strings.Contains(label, "vacancy"):
			if rate, ok := vacancyRate(value, percent); ok {
				data.VacancyRate = &rate
				vacLoss = 0
			} else if !percent {
				vacLoss = math.Abs(value)
			}
		case strings.Contains(label, "units"):
			units := int(value)
			data.TotalUnits = &units
		}
	}

	if vacLoss > 0 && potentialRent > 0 {
		rate := vacLoss / potentialRent
		data.VacancyRate = &rate
	}
	if data.NetOperatingIncome == nil && data.GrossRentalIncome != nil && data.OperatingExpenses != nil {
		noi := *data.GrossRentalIncome - *data.OperatingExpenses
		data.NetOperatingIncome = &noi
	}
	return data
}

// vacancyRate reads a vacancy row as a rate. Losses are often shown negative,
// so the sign is dropped. Values above 100 are dollar losses, not rates.
func vacancyRate(value float64, percent bool) (float64, bool) {
	v := math.Abs(value)
	switch {
	case percent && v <= 100:
		return v / 100, true
	case percent:
		return 0, false
	case v <= 1:
		return v, true
	case v <= 100:
		return v / 100, true
	}
	return 0, false
}

// parseRentRoll expects a header row naming at least a unit column; type,
// rent and status columns are optional.
func parseRentRoll(records [][]string) domain.ExtractedData {
	var data domain.ExtractedData
	if len(records) < 2 {
		return data
	}

	cols := rentRollColumns(records[0])
	if cols.unit < 0 {
		return data
	}

	var (
		units, occupied, rented int
		rentSum                 float64
		mix                     = map[string]int{}
	)
	for _, rec := range records[1:] {
		if cell(rec, cols.unit) == "" {
			continue
		}
		units++

		if t := cell(rec, cols.kind); t != "" {
			mix[t]++
		}
		if rent, _, ok := parseAmount(cell(rec, cols.rent)); ok && rent > 0 {
			rentSum += rent
			rented++
		}
		if !strings.EqualFold(cell(rec, cols.status), "vacant") {
			occupied++
		}
	}

	if units == 0 {
		return data
	}
	data.TotalUnits = &units
	if len(mix) > 0 {
		data.UnitMix = mix
	}
	if rented > 0 {
		avg := rentSum / float64(rented)
		data.AverageRent = &avg
	}
	if cols.status >= 0 {
		occupancy := float64(occupied) / float64(units)
		data.OccupancyRate = &occupancy
	}
	return data
}

type rentRollIndex struct {
	unit, kind, rent, status int
}

func rentRollColumns(header []string) rentRollIndex {
	idx := rentRollIndex{unit: -1, kind: -1, rent: -1, status: -1}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case h == "unit" || h == "unit number" || h == "unit #":
			idx.unit = i
		case h == "type" || h == "unit type" || h == "floorplan":
			idx.kind = i
		case strings.Contains(h, "rent") && idx.rent < 0:
			idx.rent = i
		case h == "status" || h == "occupancy":
			idx.status = i
		}
	}
	return idx
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func lastAmount(fields []string) (value float64, percent bool, ok bool) {
	for i := len(fields) - 1; i >= 0; i-- {
		if v, pct, ok := parseAmount(fields[i]); ok {
			return v, pct, true
		}
	}
	return 0, false, false
}

// parseAmount accepts accounting-style numbers: "$1,234.50", "(1,200)", "7.5%".
func parseAmount(s string) (value float64, percent bool, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false, false
	}
	if negative {
		v = -v
	}
	return v, percent, true
}
