package analysis

import (
	"github.com/montanaflynn/stats"

	"comptrend/server/internal/models"
)

// SuggestedTimeAdjustments derives candidate monthly adjustment rates from
// the tail of the per-sqft median change series: the median and mean of the
// last recentMonths changes, plus a regression-based rate from a linear fit
// over the month index normalized by the average level. Sparse series yield
// zeros with MonthsUsed reporting how much data actually backed the numbers.
func SuggestedTimeAdjustments(monthly []models.MonthlyAggregate, recentMonths int) models.SuggestedAdjustments {
	var summary models.SuggestedAdjustments

	changes := make([]float64, 0, len(monthly))
	for _, m := range monthly {
		if m.PricePerSqFtChangePct != nil {
			changes = append(changes, *m.PricePerSqFtChangePct)
		}
	}
	if len(changes) > recentMonths {
		changes = changes[len(changes)-recentMonths:]
	}
	summary.MonthsUsed = len(changes)

	if len(changes) > 0 {
		median, _ := stats.Median(changes)
		mean, _ := stats.Mean(changes)
		summary.MedianLastNMonths = roundPct(median)
		summary.MeanLastNMonths = roundPct(mean)
	}

	summary.RegressionMonthlyPct = regressionMonthlyPct(monthly)
	return summary
}

// regressionMonthlyPct fits the per-sqft median against its month index and
// expresses the slope as a monthly percentage of the mean level.
func regressionMonthlyPct(monthly []models.MonthlyAggregate) float64 {
	points := make([]SeriesPoint, 0, len(monthly))
	levels := make([]float64, 0, len(monthly))
	for _, m := range monthly {
		if m.MedianPricePerSqFt == nil {
			continue
		}
		points = append(points, SeriesPoint{Ordinal: float64(len(points)), Value: *m.MedianPricePerSqFt})
		levels = append(levels, *m.MedianPricePerSqFt)
	}

	model, err := FitLinear(points)
	if err != nil {
		return 0
	}
	meanLevel, _ := stats.Mean(levels)
	if meanLevel == 0 {
		return 0
	}
	return roundPct(model.Slope() / meanLevel * 100)
}

// Analyze runs the full pipeline over a cleaned record set: aggregation,
// suggested adjustments, and chart trendlines for both metrics. It is the
// one-call entry point the upload handler uses; each stage remains callable
// on its own.
func Analyze(records []models.SaleRecord, recentMonths, chartPoints int) *models.AnalysisResults {
	monthly := AggregateMonthly(records)
	yearly := AggregateYearly(records)

	return &models.AnalysisResults{
		MonthlyTable:    monthly,
		YearlyTable:     yearly,
		TimeAdjustments: SuggestedTimeAdjustments(monthly, recentMonths),
		PriceTrendlines: TrendlineChartSeries(monthly, models.MetricPrice, chartPoints),
		PSFTrendlines:   TrendlineChartSeries(monthly, models.MetricPricePerSqFt, chartPoints),
		RowsProcessed:   len(records),
	}
}
