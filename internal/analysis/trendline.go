package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"comptrend/server/internal/models"
)

var (
	// ErrInsufficientData is returned when a fit has fewer distinct ordinal
	// points than its degree requires.
	ErrInsufficientData = errors.New("insufficient data points for fit")

	// ErrNonFiniteInput is returned when a fit input contains NaN or Inf,
	// which indicates the cleaning stage let corrupted data through.
	ErrNonFiniteInput = errors.New("non-finite value in fit input")
)

// TrendKind identifies the fitted curve family.
type TrendKind int

const (
	TrendLinear TrendKind = iota
	TrendPolynomial4
)

func (k TrendKind) String() string {
	switch k {
	case TrendLinear:
		return "linear"
	case TrendPolynomial4:
		return "polynomial4"
	default:
		return "unknown"
	}
}

// SeriesPoint is one (date ordinal, value) observation.
type SeriesPoint struct {
	Ordinal float64 `json:"ordinal"`
	Value   float64 `json:"value"`
}

// TrendModel is an immutable fitted curve over one metric series.
//
// Coefficients are ordered highest degree first over the centered and scaled
// ordinal t = (ordinal - Center) / Scale. Centering keeps the Vandermonde
// system well conditioned for degree-4 fits across large day ordinals; it is
// an internal basis choice and does not change Evaluate semantics.
type TrendModel struct {
	Kind         TrendKind     `json:"kind"`
	Coefficients []float64     `json:"coefficients"`
	Center       float64       `json:"center"`
	Scale        float64       `json:"scale"`
	Domain       []SeriesPoint `json:"domain"`

	minOrdinal float64
	maxOrdinal float64
}

// FitLinear fits value ~ slope*ordinal + intercept by ordinary least
// squares. At least 2 distinct ordinals are required.
func FitLinear(series []SeriesPoint) (*TrendModel, error) {
	return fit(series, 1, TrendLinear)
}

// FitPolynomial4 fits a degree-4 polynomial by least squares. At least 5
// distinct ordinals are required; fewer points would make the fit
// underdetermined rather than merely noisy, so it is rejected outright.
func FitPolynomial4(series []SeriesPoint) (*TrendModel, error) {
	return fit(series, 4, TrendPolynomial4)
}

func fit(series []SeriesPoint, degree int, kind TrendKind) (*TrendModel, error) {
	distinct := make(map[float64]struct{}, len(series))
	for _, p := range series {
		if !isFinite(p.Ordinal) || !isFinite(p.Value) {
			return nil, fmt.Errorf("point (%v, %v): %w", p.Ordinal, p.Value, ErrNonFiniteInput)
		}
		distinct[p.Ordinal] = struct{}{}
	}
	if len(distinct) < degree+1 {
		return nil, fmt.Errorf("%w: degree %d needs %d distinct points, have %d",
			ErrInsufficientData, degree, degree+1, len(distinct))
	}

	domain := make([]SeriesPoint, len(series))
	copy(domain, series)
	sort.Slice(domain, func(i, j int) bool { return domain[i].Ordinal < domain[j].Ordinal })

	minOrd := domain[0].Ordinal
	maxOrd := domain[len(domain)-1].Ordinal
	center := (minOrd + maxOrd) / 2
	scale := (maxOrd - minOrd) / 2

	// Vandermonde design matrix on the scaled axis, solved with the
	// QR-backed least squares path rather than explicit normal equations.
	rows := len(domain)
	cols := degree + 1
	a := mat.NewDense(rows, cols, nil)
	b := mat.NewVecDense(rows, nil)
	for i, p := range domain {
		t := (p.Ordinal - center) / scale
		pow := 1.0
		for j := cols - 1; j >= 0; j-- {
			a.Set(i, j, pow)
			pow *= t
		}
		b.SetVec(i, p.Value)
	}

	var coeffs mat.VecDense
	if err := coeffs.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("least squares solve failed: %w", err)
	}

	model := &TrendModel{
		Kind:         kind,
		Coefficients: make([]float64, cols),
		Center:       center,
		Scale:        scale,
		Domain:       domain,
		minOrdinal:   minOrd,
		maxOrdinal:   maxOrd,
	}
	for j := 0; j < cols; j++ {
		model.Coefficients[j] = coeffs.AtVec(j)
	}
	return model, nil
}

// Evaluate computes the fitted curve at an arbitrary date ordinal. The
// second return is true when the ordinal falls outside the fitted range;
// callers surface that flag because appraisal conclusions drawn from heavy
// extrapolation need to be visibly distinguishable.
func (m *TrendModel) Evaluate(ordinal float64) (float64, bool) {
	t := (ordinal - m.Center) / m.Scale
	value := 0.0
	for _, c := range m.Coefficients {
		value = value*t + c
	}
	return value, ordinal < m.minOrdinal || ordinal > m.maxOrdinal
}

// Slope returns the per-ordinal slope on the raw date axis. Only meaningful
// for linear models.
func (m *TrendModel) Slope() float64 {
	if len(m.Coefficients) != 2 {
		return math.NaN()
	}
	return m.Coefficients[0] / m.Scale
}

// Intercept returns the value at ordinal zero on the raw date axis. Only
// meaningful for linear models.
func (m *TrendModel) Intercept() float64 {
	if len(m.Coefficients) != 2 {
		return math.NaN()
	}
	return m.Coefficients[1] - m.Coefficients[0]*m.Center/m.Scale
}

// DateOrdinal converts a date to its ordinal: whole days since the Unix
// epoch, UTC. Double precision holds decades of dates with fractional-day
// resolution to spare.
func DateOrdinal(t time.Time) float64 {
	return float64(t.UTC().Unix()) / 86400.0
}

// OrdinalDate is the inverse of DateOrdinal, used for chart labels.
func OrdinalDate(ordinal float64) time.Time {
	return time.Unix(int64(ordinal*86400.0), 0).UTC()
}

// MonthlySeriesPoints extracts the (ordinal, median) series for one metric
// from a monthly aggregate series. Months without a usable positive value
// are skipped, matching the aggregator's gap semantics. The ordinal is the
// first day of each month.
func MonthlySeriesPoints(monthly []models.MonthlyAggregate, metric models.Metric) []SeriesPoint {
	points := make([]SeriesPoint, 0, len(monthly))
	for _, m := range monthly {
		var value float64
		switch metric {
		case models.MetricPricePerSqFt:
			if m.MedianPricePerSqFt == nil {
				continue
			}
			value = *m.MedianPricePerSqFt
		default:
			value = m.MedianPrice
		}
		if value <= 0 {
			continue
		}
		monthStart := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
		points = append(points, SeriesPoint{Ordinal: DateOrdinal(monthStart), Value: value})
	}
	return points
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
