package analysis

import (
	"errors"
	"math"
	"time"

	"comptrend/server/internal/models"
)

// Sign convention, fixed across every methodology: positive means the market
// appreciated from the comparable's sale date to the effective date, and the
// caller adds the percentage to the comparable's price. The operand order in
// adjustmentPct must never be flipped.
func adjustmentPct(saleValue, effectiveValue float64) *float64 {
	if saleValue == 0 {
		return nil
	}
	pct := roundPct((effectiveValue - saleValue) / saleValue * 100)
	return &pct
}

// Adjustments are reported to four decimal places, same as the stored
// comparable columns.
func roundPct(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// trendModels holds the per-metric fits shared by a batch so the series is
// fitted once, not once per comparable.
type trendModels struct {
	linear     *TrendModel
	polynomial *TrendModel
}

func fitTrendModels(monthly []models.MonthlyAggregate, metric models.Metric) (trendModels, error) {
	points := MonthlySeriesPoints(monthly, metric)

	var tm trendModels
	var err error

	tm.linear, err = FitLinear(points)
	if err != nil && !errors.Is(err, ErrInsufficientData) {
		return trendModels{}, err
	}
	tm.polynomial, err = FitPolynomial4(points)
	if err != nil && !errors.Is(err, ErrInsufficientData) {
		return trendModels{}, err
	}
	return tm, nil
}

// ComputeAdjustment computes every methodology for a single comparable and
// metric. Methodologies are attempted independently: a nil AdjustmentPct on
// one never suppresses the others. The only error condition is non-finite
// input reaching the trendline fitter, which indicates an upstream contract
// violation rather than ordinary data sparsity.
func ComputeAdjustment(effectiveDate time.Time, comparable models.ComparableSale, monthly []models.MonthlyAggregate, metric models.Metric) ([]models.TimeAdjustmentResult, error) {
	tm, err := fitTrendModels(monthly, metric)
	if err != nil {
		return nil, err
	}
	return computeWithModels(effectiveDate, comparable, monthly, metric, tm), nil
}

func computeWithModels(effectiveDate time.Time, comparable models.ComparableSale, monthly []models.MonthlyAggregate, metric models.Metric, tm trendModels) []models.TimeAdjustmentResult {
	return []models.TimeAdjustmentResult{
		monthlyMedianAdjustment(effectiveDate, comparable.SaleDate, monthly, metric),
		trendlineAdjustment(models.MethodologyLinearTrendline, metric, tm.linear, effectiveDate, comparable.SaleDate),
		trendlineAdjustment(models.MethodologyPolynomialTrendline, metric, tm.polynomial, effectiveDate, comparable.SaleDate),
	}
}

// monthlyMedianAdjustment compares the median of the bucket containing the
// sale date against the median of the bucket containing the effective date.
// A month absent from the series means no sales closed that month, which is
// a nil result, not a zero.
func monthlyMedianAdjustment(effectiveDate, saleDate time.Time, monthly []models.MonthlyAggregate, metric models.Metric) models.TimeAdjustmentResult {
	result := models.TimeAdjustmentResult{
		Methodology: models.MethodologyMonthlyMedian,
		Metric:      metric,
	}

	saleMedian := monthMedian(monthly, saleDate, metric)
	effectiveMedian := monthMedian(monthly, effectiveDate, metric)
	result.SaleMonthMedian = saleMedian
	result.EffectiveMonthMedian = effectiveMedian

	if saleMedian == nil || effectiveMedian == nil {
		return result
	}
	result.AdjustmentPct = adjustmentPct(*saleMedian, *effectiveMedian)
	return result
}

func monthMedian(monthly []models.MonthlyAggregate, date time.Time, metric models.Metric) *float64 {
	for i := range monthly {
		if monthly[i].Year != date.Year() || monthly[i].Month != date.Month() {
			continue
		}
		switch metric {
		case models.MetricPricePerSqFt:
			return monthly[i].MedianPricePerSqFt
		default:
			median := monthly[i].MedianPrice
			return &median
		}
	}
	return nil
}

func trendlineAdjustment(methodology models.Methodology, metric models.Metric, model *TrendModel, effectiveDate, saleDate time.Time) models.TimeAdjustmentResult {
	result := models.TimeAdjustmentResult{
		Methodology: methodology,
		Metric:      metric,
	}
	if model == nil {
		return result
	}

	saleValue, saleExtrapolated := model.Evaluate(DateOrdinal(saleDate))
	effectiveValue, effectiveExtrapolated := model.Evaluate(DateOrdinal(effectiveDate))

	result.SaleTrendlineValue = &saleValue
	result.EffectiveTrendlineValue = &effectiveValue
	result.Extrapolated = saleExtrapolated || effectiveExtrapolated
	result.AdjustmentPct = adjustmentPct(saleValue, effectiveValue)
	return result
}

// ComputeTimeAdjustments runs all methodologies over both metrics for each
// comparable, preserving input order. Comparables are independent: one with
// no computable adjustments still yields a result entry with nil fields and
// never aborts the batch.
func ComputeTimeAdjustments(effectiveDate time.Time, comparables []models.ComparableSale, monthly []models.MonthlyAggregate) ([]models.ComparableAdjustments, error) {
	priceModels, err := fitTrendModels(monthly, models.MetricPrice)
	if err != nil {
		return nil, err
	}
	psfModels, err := fitTrendModels(monthly, models.MetricPricePerSqFt)
	if err != nil {
		return nil, err
	}

	results := make([]models.ComparableAdjustments, 0, len(comparables))
	for i, comparable := range comparables {
		entry := models.ComparableAdjustments{
			ComparableIndex: i,
			SaleDate:        comparable.SaleDate,
			SalePrice:       comparable.SalePrice,
			SquareFootage:   comparable.SquareFootage,
			Address:         comparable.Address,
			EffectiveDate:   effectiveDate,
		}
		entry.Results = append(entry.Results,
			computeWithModels(effectiveDate, comparable, monthly, models.MetricPrice, priceModels)...)
		entry.Results = append(entry.Results,
			computeWithModels(effectiveDate, comparable, monthly, models.MetricPricePerSqFt, psfModels)...)
		results = append(results, entry)
	}
	return results, nil
}

// ApplyAdjustments copies computed results onto the comparable's stored
// adjustment columns.
func ApplyAdjustments(comparable *models.ComparableSale, results []models.TimeAdjustmentResult) {
	for _, r := range results {
		switch {
		case r.Methodology == models.MethodologyMonthlyMedian && r.Metric == models.MetricPrice:
			comparable.MonthlyPriceAdjustment = r.AdjustmentPct
		case r.Methodology == models.MethodologyMonthlyMedian && r.Metric == models.MetricPricePerSqFt:
			comparable.MonthlyPSFAdjustment = r.AdjustmentPct
		case r.Methodology == models.MethodologyLinearTrendline && r.Metric == models.MetricPrice:
			comparable.LinearPriceAdjustment = r.AdjustmentPct
		case r.Methodology == models.MethodologyLinearTrendline && r.Metric == models.MetricPricePerSqFt:
			comparable.LinearPSFAdjustment = r.AdjustmentPct
		case r.Methodology == models.MethodologyPolynomialTrendline && r.Metric == models.MetricPrice:
			comparable.PolynomialPriceAdjustment = r.AdjustmentPct
		case r.Methodology == models.MethodologyPolynomialTrendline && r.Metric == models.MetricPricePerSqFt:
			comparable.PolynomialPSFAdjustment = r.AdjustmentPct
		}
	}
}
