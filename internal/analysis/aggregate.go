package analysis

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"

	"comptrend/server/internal/models"
)

// AggregateMonthly groups sale records by calendar month of their close date
// and computes per-bucket statistics. Only populated months are emitted, in
// chronological order. Output is rebuilt fresh on every call.
func AggregateMonthly(records []models.SaleRecord) []models.MonthlyAggregate {
	type key struct {
		year  int
		month time.Month
	}

	buckets := make(map[key][]models.SaleRecord)
	for _, r := range records {
		k := key{year: r.CloseDate.Year(), month: r.CloseDate.Month()}
		buckets[k] = append(buckets[k], r)
	}

	keys := make([]key, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	aggregates := make([]models.MonthlyAggregate, 0, len(keys))
	for _, k := range keys {
		prices, pps := bucketValues(buckets[k])

		agg := models.MonthlyAggregate{
			Year:      k.year,
			Month:     k.month,
			YearMonth: fmt.Sprintf("%04d-%02d", k.year, int(k.month)),
			Count:     len(prices),
		}
		agg.MedianPrice, agg.MeanPrice = medianMean(prices)
		agg.MedianPricePerSqFt, agg.MeanPricePerSqFt = medianMeanOptional(pps)

		aggregates = append(aggregates, agg)
	}

	// Change is computed against the previous emitted bucket; calendar gaps
	// between buckets are skipped, not treated as zero months.
	for i := 1; i < len(aggregates); i++ {
		prev := aggregates[i-1]
		aggregates[i].PriceChangePct = percentChange(&prev.MedianPrice, &aggregates[i].MedianPrice)
		aggregates[i].PricePerSqFtChangePct = percentChange(prev.MedianPricePerSqFt, aggregates[i].MedianPricePerSqFt)
	}

	return aggregates
}

// AggregateYearly groups sale records by calendar year. It works from the
// raw records, not the monthly buckets, so yearly medians are true order
// statistics rather than medians of medians.
func AggregateYearly(records []models.SaleRecord) []models.YearlyAggregate {
	buckets := make(map[int][]models.SaleRecord)
	for _, r := range records {
		y := r.CloseDate.Year()
		buckets[y] = append(buckets[y], r)
	}

	years := make([]int, 0, len(buckets))
	for y := range buckets {
		years = append(years, y)
	}
	sort.Ints(years)

	aggregates := make([]models.YearlyAggregate, 0, len(years))
	for _, y := range years {
		prices, pps := bucketValues(buckets[y])

		agg := models.YearlyAggregate{
			Year:  y,
			Count: len(prices),
		}
		agg.MedianPrice, agg.MeanPrice = medianMean(prices)
		agg.MedianPricePerSqFt, agg.MeanPricePerSqFt = medianMeanOptional(pps)

		aggregates = append(aggregates, agg)
	}

	for i := 1; i < len(aggregates); i++ {
		prev := aggregates[i-1]
		aggregates[i].PriceChangePct = percentChange(&prev.MedianPrice, &aggregates[i].MedianPrice)
		aggregates[i].PricePerSqFtChangePct = percentChange(prev.MedianPricePerSqFt, aggregates[i].MedianPricePerSqFt)
	}

	return aggregates
}

// bucketValues splits a bucket into its close prices and the per-sqft subset
// of records with a derivable price per square foot.
func bucketValues(records []models.SaleRecord) (prices, pps []float64) {
	prices = make([]float64, 0, len(records))
	for _, r := range records {
		prices = append(prices, r.ClosePrice)
		if r.PricePerSqFt != nil {
			pps = append(pps, *r.PricePerSqFt)
		}
	}
	return prices, pps
}

// medianMean computes the order-statistic median and arithmetic mean of a
// non-empty value set.
func medianMean(values []float64) (median, mean float64) {
	median, _ = stats.Median(values)
	mean, _ = stats.Mean(values)
	return median, mean
}

// medianMeanOptional is medianMean for possibly-empty subsets; an empty
// subset yields nil statistics rather than zeros.
func medianMeanOptional(values []float64) (median, mean *float64) {
	if len(values) == 0 {
		return nil, nil
	}
	med, mn := medianMean(values)
	return &med, &mn
}

// percentChange returns (current-previous)/previous*100, or nil when either
// value is absent or the denominator is zero.
func percentChange(previous, current *float64) *float64 {
	if previous == nil || current == nil || *previous == 0 {
		return nil
	}
	change := (*current - *previous) / *previous * 100
	return &change
}
