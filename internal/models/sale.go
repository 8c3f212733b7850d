package models

import "time"

// SaleRecord is one closed transaction from an MLS export, already cleaned
// by the ingest stage. ClosePrice is always positive and CloseDate is always
// valid; rows failing either rule never become a SaleRecord.
type SaleRecord struct {
	ID           int64      `json:"id"`
	UploadID     int64      `json:"upload_id"`
	MLSNumber    string     `json:"mls_number"`
	StreetNumber *int       `json:"street_number"`
	StreetName   string     `json:"street_name"`
	City         string     `json:"city"`
	CDOM         *int       `json:"cdom"`
	ListPrice    *float64   `json:"list_price"`
	CurrentPrice *float64   `json:"current_price"`
	ClosePrice   float64    `json:"close_price"`
	PendingDate  *time.Time `json:"pending_date"`
	CloseDate    time.Time  `json:"close_date"`
	SqFtTotal    *float64   `json:"sqft_total"`
	SqFtLivArea  *float64   `json:"sqft_liv_area"`
	View         string     `json:"view"`
	WaterView    string     `json:"water_view"`

	// PricePerSqFt is derived once at ingestion: living area if present and
	// positive, else total area, else nil. A nil value excludes the record
	// from per-square-foot statistics only.
	PricePerSqFt *float64 `json:"price_per_sqft"`
}

// Upload stores metadata and the analysis summary for one processed file.
type Upload struct {
	ID               int64            `json:"id"`
	OriginalFilename string           `json:"original_filename"`
	Address          string           `json:"address"`
	UploadedAt       time.Time        `json:"uploaded_at"`
	RowsProcessed    int              `json:"rows_processed"`
	RowsExcluded     int              `json:"rows_excluded"`
	ResultsSummary   *AnalysisResults `json:"results_summary,omitempty"`
}

// ComparableSale is one comparable in a time adjustment analysis. It is not
// required to exist in the underlying sale-record population.
type ComparableSale struct {
	ID            int64     `json:"id"`
	AnalysisID    int64     `json:"analysis_id"`
	SaleDate      time.Time `json:"sale_date"`
	SalePrice     float64   `json:"sale_price"`
	SquareFootage *int      `json:"square_footage"`
	Address       string    `json:"address"`

	// Computed adjustments, nil when not computable.
	MonthlyPriceAdjustment    *float64 `json:"monthly_price_adjustment"`
	MonthlyPSFAdjustment      *float64 `json:"monthly_psf_adjustment"`
	LinearPriceAdjustment     *float64 `json:"linear_price_adjustment"`
	LinearPSFAdjustment       *float64 `json:"linear_psf_adjustment"`
	PolynomialPriceAdjustment *float64 `json:"polynomial_price_adjustment"`
	PolynomialPSFAdjustment   *float64 `json:"polynomial_psf_adjustment"`
}

// TimeAdjustmentAnalysis groups the comparables and results computed for one
// effective date against one upload's monthly series.
type TimeAdjustmentAnalysis struct {
	ID            int64                   `json:"id"`
	UploadID      int64                   `json:"upload_id"`
	EffectiveDate time.Time               `json:"effective_date"`
	CreatedAt     time.Time               `json:"created_at"`
	Results       []ComparableAdjustments `json:"results,omitempty"`
}
