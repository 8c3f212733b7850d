package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comptrend/server/internal/models"
)

func sale(closeDate string, closePrice float64, pricePerSqFt *float64) models.SaleRecord {
	d, _ := time.Parse("2006-01-02", closeDate)
	return models.SaleRecord{ClosePrice: closePrice, CloseDate: d, PricePerSqFt: pricePerSqFt}
}

func fptr(v float64) *float64 {
	return &v
}

func TestAggregateMonthly_Statistics(t *testing.T) {
	records := []models.SaleRecord{
		sale("2024-01-10", 100000, fptr(100)),
		sale("2024-01-15", 200000, fptr(200)),
		sale("2024-01-20", 600000, nil),
	}

	monthly := AggregateMonthly(records)

	assert.Len(t, monthly, 1)
	m := monthly[0]
	assert.Equal(t, 2024, m.Year)
	assert.Equal(t, time.January, m.Month)
	assert.Equal(t, "2024-01", m.YearMonth)
	assert.Equal(t, 3, m.Count)
	assert.InDelta(t, 200000, m.MedianPrice, 1e-9)
	assert.InDelta(t, 300000, m.MeanPrice, 1e-9)

	// Per-sqft stats only consider the records that have a figure
	assert.NotNil(t, m.MedianPricePerSqFt)
	assert.InDelta(t, 150, *m.MedianPricePerSqFt, 1e-9)
	assert.InDelta(t, 150, *m.MeanPricePerSqFt, 1e-9)

	// First bucket has no change baseline
	assert.Nil(t, m.PriceChangePct)
	assert.Nil(t, m.PricePerSqFtChangePct)
}

func TestAggregateMonthly_EvenCountMedian(t *testing.T) {
	records := []models.SaleRecord{
		sale("2024-02-01", 100000, nil),
		sale("2024-02-08", 200000, nil),
		sale("2024-02-15", 300000, nil),
		sale("2024-02-22", 400000, nil),
	}

	monthly := AggregateMonthly(records)

	assert.Len(t, monthly, 1)
	assert.InDelta(t, 250000, monthly[0].MedianPrice, 1e-9)
	assert.Nil(t, monthly[0].MedianPricePerSqFt)
}

func TestAggregateMonthly_GapsSkipped(t *testing.T) {
	// January and March with no February in between
	records := []models.SaleRecord{
		sale("2024-01-10", 100000, fptr(100)),
		sale("2024-03-10", 110000, fptr(110)),
	}

	monthly := AggregateMonthly(records)

	assert.Len(t, monthly, 2)
	assert.Equal(t, "2024-01", monthly[0].YearMonth)
	assert.Equal(t, "2024-03", monthly[1].YearMonth)

	// Change is against the previous emitted bucket, not the previous
	// calendar month
	assert.NotNil(t, monthly[1].PriceChangePct)
	assert.InDelta(t, 10.0, *monthly[1].PriceChangePct, 1e-9)
	assert.NotNil(t, monthly[1].PricePerSqFtChangePct)
	assert.InDelta(t, 10.0, *monthly[1].PricePerSqFtChangePct, 1e-9)
}

func TestAggregateMonthly_ChronologicalOrder(t *testing.T) {
	records := []models.SaleRecord{
		sale("2024-03-01", 300000, nil),
		sale("2023-11-01", 100000, nil),
		sale("2024-01-01", 200000, nil),
	}

	monthly := AggregateMonthly(records)

	assert.Len(t, monthly, 3)
	assert.Equal(t, "2023-11", monthly[0].YearMonth)
	assert.Equal(t, "2024-01", monthly[1].YearMonth)
	assert.Equal(t, "2024-03", monthly[2].YearMonth)
}

func TestAggregateMonthly_Empty(t *testing.T) {
	monthly := AggregateMonthly(nil)
	assert.Empty(t, monthly)
}

func TestAggregateYearly(t *testing.T) {
	records := []models.SaleRecord{
		sale("2023-02-01", 100000, fptr(100)),
		sale("2023-09-01", 200000, nil),
		sale("2024-04-01", 240000, fptr(120)),
	}

	yearly := AggregateYearly(records)

	assert.Len(t, yearly, 2)
	assert.Equal(t, 2023, yearly[0].Year)
	assert.Equal(t, 2, yearly[0].Count)
	assert.InDelta(t, 150000, yearly[0].MedianPrice, 1e-9)

	assert.Equal(t, 2024, yearly[1].Year)
	assert.NotNil(t, yearly[1].PriceChangePct)
	assert.InDelta(t, 60.0, *yearly[1].PriceChangePct, 1e-9)
	assert.NotNil(t, yearly[1].PricePerSqFtChangePct)
	assert.InDelta(t, 20.0, *yearly[1].PricePerSqFtChangePct, 1e-9)
}

func TestPercentChange(t *testing.T) {
	assert.Nil(t, percentChange(nil, fptr(10)))
	assert.Nil(t, percentChange(fptr(10), nil))
	assert.Nil(t, percentChange(fptr(0), fptr(10)))

	change := percentChange(fptr(200), fptr(210))
	assert.NotNil(t, change)
	assert.InDelta(t, 5.0, *change, 1e-9)
}
