package analysis

import (
	"errors"

	"comptrend/server/internal/models"
)

// TrendlineChartSeries samples the fitted curves for one metric at numPoints
// evenly spaced ordinals across the fitted date range, for the chart layer.
// A curve that cannot meet its minimum-data requirement is omitted entirely
// rather than fitted at a lower degree; an under-fit curve on a chart reads
// as real signal.
func TrendlineChartSeries(monthly []models.MonthlyAggregate, metric models.Metric, numPoints int) models.ChartSeries {
	series := models.ChartSeries{
		Linear:     []models.ChartPoint{},
		Polynomial: []models.ChartPoint{},
	}

	points := MonthlySeriesPoints(monthly, metric)
	if len(points) < 2 || numPoints < 2 {
		return series
	}

	if model, err := FitLinear(points); err == nil {
		series.Linear = sampleCurve(model, numPoints)
	}
	if model, err := FitPolynomial4(points); err == nil {
		series.Polynomial = sampleCurve(model, numPoints)
	} else if !errors.Is(err, ErrInsufficientData) {
		// Non-finite input would already have failed the linear fit above;
		// nothing else is expected here, but stay silent rather than panic
		// in a presentation helper.
		return series
	}

	return series
}

func sampleCurve(model *TrendModel, numPoints int) []models.ChartPoint {
	minOrd := model.Domain[0].Ordinal
	maxOrd := model.Domain[len(model.Domain)-1].Ordinal
	step := (maxOrd - minOrd) / float64(numPoints-1)

	sampled := make([]models.ChartPoint, 0, numPoints)
	for i := 0; i < numPoints; i++ {
		ordinal := minOrd + float64(i)*step
		value, _ := model.Evaluate(ordinal)
		sampled = append(sampled, models.ChartPoint{
			Date:  OrdinalDate(ordinal).Format("2006-01"),
			Value: value,
		})
	}
	return sampled
}
