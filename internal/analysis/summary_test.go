package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comptrend/server/internal/models"
)

func TestSuggestedTimeAdjustments(t *testing.T) {
	monthly := growthMarket(2024, time.January, 4, 300000, 150, 1.0)
	monthly[1].PricePerSqFtChangePct = fptr(1.0)
	monthly[2].PricePerSqFtChangePct = fptr(2.0)
	monthly[3].PricePerSqFtChangePct = fptr(3.0)

	summary := SuggestedTimeAdjustments(monthly, 2)

	// Only the last two changes are considered
	assert.Equal(t, 2, summary.MonthsUsed)
	assert.InDelta(t, 2.5, summary.MedianLastNMonths, 1e-9)
	assert.InDelta(t, 2.5, summary.MeanLastNMonths, 1e-9)

	// Regression over a steady 1% market lands close to 1% per month
	assert.InDelta(t, 1.0, summary.RegressionMonthlyPct, 0.1)
}

func TestSuggestedTimeAdjustments_SparseSeries(t *testing.T) {
	monthly := []models.MonthlyAggregate{
		{Year: 2024, Month: time.January, MedianPrice: 300000},
	}

	summary := SuggestedTimeAdjustments(monthly, 12)

	assert.Equal(t, 0, summary.MonthsUsed)
	assert.Equal(t, 0.0, summary.MedianLastNMonths)
	assert.Equal(t, 0.0, summary.MeanLastNMonths)
	assert.Equal(t, 0.0, summary.RegressionMonthlyPct)
}

func TestAnalyze(t *testing.T) {
	records := []models.SaleRecord{
		sale("2024-01-10", 300000, fptr(150)),
		sale("2024-01-25", 320000, fptr(155)),
		sale("2024-02-12", 310000, fptr(152)),
		sale("2024-03-05", 330000, fptr(158)),
		sale("2024-04-18", 335000, fptr(160)),
		sale("2024-05-02", 340000, fptr(163)),
	}

	results := Analyze(records, 12, 50)

	assert.Equal(t, 6, results.RowsProcessed)
	assert.Len(t, results.MonthlyTable, 5)
	assert.Len(t, results.YearlyTable, 1)
	assert.Len(t, results.PriceTrendlines.Linear, 50)
	assert.Len(t, results.PriceTrendlines.Polynomial, 50)
	assert.Len(t, results.PSFTrendlines.Linear, 50)
	assert.Equal(t, 4, results.TimeAdjustments.MonthsUsed)
}
