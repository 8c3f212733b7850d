package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metric selects which value an aggregate series or adjustment is computed
// over.
type Metric int

const (
	MetricPrice Metric = iota
	MetricPricePerSqFt
)

func (m Metric) String() string {
	switch m {
	case MetricPrice:
		return "price"
	case MetricPricePerSqFt:
		return "price_per_sqft"
	default:
		return "unknown"
	}
}

func (m Metric) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Metric) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "price":
		*m = MetricPrice
	case "price_per_sqft":
		*m = MetricPricePerSqFt
	default:
		return fmt.Errorf("unknown metric: %q", s)
	}
	return nil
}

// Methodology identifies how a time adjustment was computed.
type Methodology int

const (
	MethodologyMonthlyMedian Methodology = iota
	MethodologyLinearTrendline
	MethodologyPolynomialTrendline
)

func (m Methodology) String() string {
	switch m {
	case MethodologyMonthlyMedian:
		return "monthly_median"
	case MethodologyLinearTrendline:
		return "linear_trendline"
	case MethodologyPolynomialTrendline:
		return "polynomial_trendline"
	default:
		return "unknown"
	}
}

func (m Methodology) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Methodology) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "monthly_median":
		*m = MethodologyMonthlyMedian
	case "linear_trendline":
		*m = MethodologyLinearTrendline
	case "polynomial_trendline":
		*m = MethodologyPolynomialTrendline
	default:
		return fmt.Errorf("unknown methodology: %q", s)
	}
	return nil
}

// MonthlyAggregate is one calendar month of market statistics. Months with
// no sales are never emitted, so consumers must treat gaps as missing data
// rather than zero.
type MonthlyAggregate struct {
	Year      int        `json:"year"`
	Month     time.Month `json:"month"`
	YearMonth string     `json:"year_month"`
	Count     int        `json:"n"`

	MeanPrice   float64 `json:"mean_close"`
	MedianPrice float64 `json:"median_close"`

	// Nil when no record in the bucket had a derivable price per sqft.
	MeanPricePerSqFt   *float64 `json:"mean_pps"`
	MedianPricePerSqFt *float64 `json:"median_pps"`

	// Percentage change versus the preceding emitted bucket, nil for the
	// first bucket or when the prior value is zero or absent.
	PriceChangePct        *float64 `json:"median_close_pct_change"`
	PricePerSqFtChangePct *float64 `json:"median_pps_pct_change"`
}

// YearlyAggregate has the same shape as MonthlyAggregate keyed by calendar
// year, computed independently from the raw records rather than summed from
// monthly buckets.
type YearlyAggregate struct {
	Year  int `json:"year"`
	Count int `json:"n"`

	MeanPrice   float64 `json:"mean_close"`
	MedianPrice float64 `json:"median_close"`

	MeanPricePerSqFt   *float64 `json:"mean_pps"`
	MedianPricePerSqFt *float64 `json:"median_pps"`

	PriceChangePct        *float64 `json:"median_close_pct_change"`
	PricePerSqFtChangePct *float64 `json:"median_pps_pct_change"`
}

// TimeAdjustmentResult is the outcome of one methodology for one comparable
// and one metric. A nil AdjustmentPct means "not computable"; the
// presentation layer must render it as missing data, never as 0%.
type TimeAdjustmentResult struct {
	Methodology   Methodology `json:"methodology"`
	Metric        Metric      `json:"metric"`
	AdjustmentPct *float64    `json:"adjustment_pct"`

	// Diagnostics for the monthly median methodology.
	SaleMonthMedian      *float64 `json:"sale_month_median,omitempty"`
	EffectiveMonthMedian *float64 `json:"effective_month_median,omitempty"`

	// Diagnostics for the trendline methodologies.
	SaleTrendlineValue      *float64 `json:"sale_trendline_value,omitempty"`
	EffectiveTrendlineValue *float64 `json:"effective_trendline_value,omitempty"`

	// True when a trendline was evaluated outside its fitted date range.
	Extrapolated bool `json:"extrapolated,omitempty"`
}

// ComparableAdjustments carries every methodology/metric result for one
// comparable, in input order.
type ComparableAdjustments struct {
	ComparableIndex int                    `json:"comparable_index"`
	SaleDate        time.Time              `json:"sale_date"`
	SalePrice       float64                `json:"sale_price"`
	SquareFootage   *int                   `json:"square_footage"`
	Address         string                 `json:"address"`
	EffectiveDate   time.Time              `json:"effective_date"`
	Results         []TimeAdjustmentResult `json:"adjustments"`
}

// SuggestedAdjustments summarizes recent per-sqft movement as candidate
// monthly adjustment rates. All values are percentages.
type SuggestedAdjustments struct {
	MedianLastNMonths    float64 `json:"median_last_n_months"`
	MeanLastNMonths      float64 `json:"mean_last_n_months"`
	RegressionMonthlyPct float64 `json:"regression_monthly_pct"`
	MonthsUsed           int     `json:"n_used"`
}

// ChartPoint is one sampled point of a fitted trendline, labelled with its
// year-month for the chart axis.
type ChartPoint struct {
	Date  string  `json:"x"`
	Value float64 `json:"y"`
}

// ChartSeries holds the sampled curves for one metric. A curve that could
// not be fitted is an empty slice.
type ChartSeries struct {
	Linear     []ChartPoint `json:"linear"`
	Polynomial []ChartPoint `json:"polynomial"`
}

// AnalysisResults is the full summary stored with an upload and returned to
// the presentation layer.
type AnalysisResults struct {
	MonthlyTable    []MonthlyAggregate   `json:"monthly_table"`
	YearlyTable     []YearlyAggregate    `json:"yearly_table"`
	TimeAdjustments SuggestedAdjustments `json:"time_adjustments"`
	PriceTrendlines ChartSeries          `json:"price_trendlines"`
	PSFTrendlines   ChartSeries          `json:"psf_trendlines"`
	RowsProcessed   int                  `json:"rows_processed"`
	RowsExcluded    int                  `json:"rows_excluded"`
}
