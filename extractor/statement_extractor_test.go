package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-underwriter/domain"
)

const t12CSV = `# Trailing twelve months, Harbor Way Apartments
Line Item,Jan,Feb,Total
Gross Rental Income,"$39,000","$39,000","$468,000"
Vacancy Loss,,,4.5%
Repairs & Maintenance,"2,000","1,800","24,000"
Total Operating Expenses,"16,950","16,950","203,400"
Total Units,,,48
`

const rentRollCSV = `Unit,Type,Market Rent,Status
101,1BR/1BA,"$1,250",Occupied
102,1BR/1BA,"$1,275",Vacant
201,2BR/2BA,"$1,650",Occupied
202,2BR/2BA,,Occupied
`

func TestExtract_T12(t *testing.T) {
	e := NewStatementExtractor()

	data, err := e.Extract(context.Background(), domain.DocumentTypeT12, "text/csv; charset=utf-8", []byte(t12CSV))
	require.NoError(t, err)

	require.NotNil(t, data.GrossRentalIncome)
	assert.Equal(t, 468_000.0, *data.GrossRentalIncome)
	require.NotNil(t, data.OperatingExpenses)
	assert.Equal(t, 203_400.0, *data.OperatingExpenses)
	require.NotNil(t, data.NetOperatingIncome)
	assert.Equal(t, 264_600.0, *data.NetOperatingIncome)
	require.NotNil(t, data.VacancyRate)
	assert.InDelta(t, 0.045, *data.VacancyRate, 1e-9)
	require.NotNil(t, data.TotalUnits)
	assert.Equal(t, 48, *data.TotalUnits)
}

func TestExtract_T12ExplicitNOIWins(t *testing.T) {
	doc := "Gross Rental Income,500000\nOperating Expenses,200000\nNet Operating Income,290000\n"

	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeT12, "text/plain", []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, 290_000.0, *data.NetOperatingIncome)
}

func TestExtract_T12NonFiniteAmountsIgnored(t *testing.T) {
	doc := "Gross Rental Income,Inf\nOperating Expenses,NaN\nNet Operating Income,-Infinity\n"

	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeT12, "text/csv", []byte(doc))
	require.NoError(t, err)

	assert.Nil(t, data.GrossRentalIncome)
	assert.Nil(t, data.OperatingExpenses)
	assert.Nil(t, data.NetOperatingIncome)
}

func TestExtract_T12VacancyDollarLoss(t *testing.T) {
	doc := "Gross Potential Rent,500000\nVacancy Loss,(32000)\nEffective Gross Income,468000\n"

	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeT12, "text/csv", []byte(doc))
	require.NoError(t, err)

	require.NotNil(t, data.VacancyRate)
	assert.InDelta(t, 0.064, *data.VacancyRate, 1e-9)
	assert.Equal(t, 468_000.0, *data.GrossRentalIncome)
}

func TestExtract_T12VacancyDollarLossWithoutPotentialRent(t *testing.T) {
	doc := "Vacancy Loss,(32000)\nGross Rental Income,468000\n"

	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeT12, "text/csv", []byte(doc))
	require.NoError(t, err)

	assert.Nil(t, data.VacancyRate)
}

func TestVacancyRate(t *testing.T) {
	cases := []struct {
		value   float64
		percent bool
		want    float64
		ok      bool
	}{
		{4.5, true, 0.045, true},
		{-4.5, true, 0.045, true},
		{0.07, false, 0.07, true},
		{-0.07, false, 0.07, true},
		{6, false, 0.06, true},
		{-32000, false, 0, false},
		{250, true, 0, false},
	}

	for _, tc := range cases {
		got, ok := vacancyRate(tc.value, tc.percent)
		assert.Equal(t, tc.ok, ok, "%v", tc.value)
		assert.InDelta(t, tc.want, got, 1e-9, "%v", tc.value)
	}
}

func TestExtract_RentRoll(t *testing.T) {
	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeRentRoll, "text/csv", []byte(rentRollCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, *data.TotalUnits)
	assert.Equal(t, map[string]int{"1BR/1BA": 2, "2BR/2BA": 2}, data.UnitMix)
	assert.InDelta(t, (1250.0+1275+1650)/3, *data.AverageRent, 1e-9)
	assert.InDelta(t, 0.75, *data.OccupancyRate, 1e-9)
}

func TestExtract_RentRollWithoutUnitColumn(t *testing.T) {
	data, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeRentRoll, "text/csv", []byte("a,b\n1,2\n"))
	require.NoError(t, err)

	assert.Equal(t, domain.ExtractedData{}, data)
}

func TestExtract_BinaryFormatsUnsupported(t *testing.T) {
	_, err := NewStatementExtractor().Extract(context.Background(), domain.DocumentTypeT12, "application/pdf", []byte("%PDF-1.7"))

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		percent bool
		ok      bool
	}{
		{"$1,234.50", 1234.5, false, true},
		{"(1,200)", -1200, false, true},
		{"7.5%", 7.5, true, true},
		{" 42 ", 42, false, true},
		{"n/a", 0, false, false},
		{"Inf", 0, false, false},
		{"-Infinity", 0, false, false},
		{"NaN", 0, false, false},
		{"", 0, false, false},
	}

	for _, tc := range cases {
		got, pct, ok := parseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.percent, pct, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}
