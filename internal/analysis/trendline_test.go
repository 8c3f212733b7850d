package analysis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"comptrend/server/internal/models"
)

func TestFitLinear_ExactLine(t *testing.T) {
	points := []SeriesPoint{
		{Ordinal: 0, Value: 100},
		{Ordinal: 10, Value: 200},
	}

	model, err := FitLinear(points)
	assert.NoError(t, err)
	assert.Equal(t, TrendLinear, model.Kind)
	assert.InDelta(t, 10.0, model.Slope(), 1e-9)
	assert.InDelta(t, 100.0, model.Intercept(), 1e-9)

	value, extrapolated := model.Evaluate(5)
	assert.InDelta(t, 150.0, value, 1e-9)
	assert.False(t, extrapolated)
}

func TestFitLinear_LeastSquares(t *testing.T) {
	// Symmetric residuals around y = x + 1
	points := []SeriesPoint{
		{Ordinal: 0, Value: 0},
		{Ordinal: 0, Value: 2},
		{Ordinal: 2, Value: 2},
		{Ordinal: 2, Value: 4},
	}

	model, err := FitLinear(points)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, model.Slope(), 1e-9)
	assert.InDelta(t, 1.0, model.Intercept(), 1e-9)
}

func TestFitLinear_ExtrapolationFlag(t *testing.T) {
	points := []SeriesPoint{
		{Ordinal: 100, Value: 1},
		{Ordinal: 200, Value: 2},
	}

	model, err := FitLinear(points)
	assert.NoError(t, err)

	_, extrapolated := model.Evaluate(150)
	assert.False(t, extrapolated)
	_, extrapolated = model.Evaluate(100)
	assert.False(t, extrapolated)
	_, extrapolated = model.Evaluate(99)
	assert.True(t, extrapolated)
	_, extrapolated = model.Evaluate(201)
	assert.True(t, extrapolated)
}

func TestFitLinear_DuplicateOrdinals(t *testing.T) {
	// Two observations at one ordinal are one distinct point
	points := []SeriesPoint{
		{Ordinal: 1, Value: 5},
		{Ordinal: 1, Value: 7},
	}

	_, err := FitLinear(points)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFitPolynomial4_InsufficientData(t *testing.T) {
	points := []SeriesPoint{
		{Ordinal: 0, Value: 1},
		{Ordinal: 1, Value: 2},
		{Ordinal: 2, Value: 3},
	}

	_, err := FitPolynomial4(points)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestFitPolynomial4_ReproducesQuadratic(t *testing.T) {
	// A degree-4 fit reproduces lower-degree data exactly
	points := make([]SeriesPoint, 0, 6)
	for x := 0.0; x < 6; x++ {
		points = append(points, SeriesPoint{Ordinal: x, Value: x * x})
	}

	model, err := FitPolynomial4(points)
	assert.NoError(t, err)
	assert.Equal(t, TrendPolynomial4, model.Kind)
	assert.Len(t, model.Coefficients, 5)

	for x := 0.0; x < 6; x += 0.5 {
		value, extrapolated := model.Evaluate(x)
		assert.InDelta(t, x*x, value, 1e-6)
		assert.False(t, extrapolated)
	}
}

func TestFit_NonFiniteInput(t *testing.T) {
	_, err := FitLinear([]SeriesPoint{
		{Ordinal: 0, Value: math.NaN()},
		{Ordinal: 1, Value: 2},
	})
	assert.ErrorIs(t, err, ErrNonFiniteInput)

	_, err = FitLinear([]SeriesPoint{
		{Ordinal: math.Inf(1), Value: 1},
		{Ordinal: 1, Value: 2},
	})
	assert.ErrorIs(t, err, ErrNonFiniteInput)
}

func TestSlopeIntercept_NonLinearModel(t *testing.T) {
	points := make([]SeriesPoint, 0, 6)
	for x := 0.0; x < 6; x++ {
		points = append(points, SeriesPoint{Ordinal: x, Value: x})
	}

	model, err := FitPolynomial4(points)
	assert.NoError(t, err)
	assert.True(t, math.IsNaN(model.Slope()))
	assert.True(t, math.IsNaN(model.Intercept()))
}

func TestDateOrdinal_RoundTrip(t *testing.T) {
	date := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ordinal := DateOrdinal(date)
	assert.Equal(t, date, OrdinalDate(ordinal))

	// One calendar day is one ordinal unit
	next := DateOrdinal(date.AddDate(0, 0, 1))
	assert.InDelta(t, 1.0, next-ordinal, 1e-9)
}

func TestMonthlySeriesPoints(t *testing.T) {
	monthly := []models.MonthlyAggregate{
		{Year: 2024, Month: time.January, MedianPrice: 100000, MedianPricePerSqFt: fptr(100)},
		{Year: 2024, Month: time.February, MedianPrice: 110000},
		{Year: 2024, Month: time.March, MedianPrice: 120000, MedianPricePerSqFt: fptr(120)},
	}

	prices := MonthlySeriesPoints(monthly, models.MetricPrice)
	assert.Len(t, prices, 3)
	assert.Equal(t, DateOrdinal(time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)), prices[0].Ordinal)
	assert.Equal(t, 100000.0, prices[0].Value)

	// Months without a per-sqft median are skipped for that metric
	pps := MonthlySeriesPoints(monthly, models.MetricPricePerSqFt)
	assert.Len(t, pps, 2)
	assert.Equal(t, 100.0, pps[0].Value)
	assert.Equal(t, 120.0, pps[1].Value)
}
