package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"comptrend/server/internal/models"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

// InsertUpload stores an upload and its analysis summary, setting the ID on
// the passed model.
func (d *Database) InsertUpload(upload *models.Upload) error {
	var summary sql.NullString
	if upload.ResultsSummary != nil {
		var err error
		summary, err = marshalJSON(upload.ResultsSummary)
		if err != nil {
			return fmt.Errorf("failed to encode results summary: %w", err)
		}
	}

	result, err := d.db.Exec(`
		INSERT INTO uploads
		(original_filename, address, uploaded_at, rows_processed, rows_excluded, results_summary)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		upload.OriginalFilename,
		upload.Address,
		upload.UploadedAt.UTC().Format(time.RFC3339),
		upload.RowsProcessed,
		upload.RowsExcluded,
		summary,
	)
	if err != nil {
		return fmt.Errorf("failed to insert upload: %w", err)
	}

	upload.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get upload ID: %w", err)
	}
	return nil
}

// ListUploads returns all uploads, most recent first, without the (large)
// results summary payload.
func (d *Database) ListUploads() ([]models.Upload, error) {
	rows, err := d.db.Query(`
		SELECT id, COALESCE(original_filename, ''), COALESCE(address, ''),
		       uploaded_at, rows_processed, rows_excluded
		FROM uploads
		ORDER BY uploaded_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var uploads []models.Upload
	for rows.Next() {
		var u models.Upload
		var uploadedAt string
		if err := rows.Scan(&u.ID, &u.OriginalFilename, &u.Address, &uploadedAt, &u.RowsProcessed, &u.RowsExcluded); err != nil {
			return nil, fmt.Errorf("failed to scan upload: %w", err)
		}
		u.UploadedAt = parseTimestamp(uploadedAt)
		uploads = append(uploads, u)
	}
	return uploads, rows.Err()
}

// GetUpload returns one upload with its full analysis summary, or nil when
// it does not exist.
func (d *Database) GetUpload(id int64) (*models.Upload, error) {
	var u models.Upload
	var uploadedAt string
	var summary sql.NullString

	err := d.db.QueryRow(`
		SELECT id, COALESCE(original_filename, ''), COALESCE(address, ''),
		       uploaded_at, rows_processed, rows_excluded, results_summary
		FROM uploads
		WHERE id = ?
	`, id).Scan(&u.ID, &u.OriginalFilename, &u.Address, &uploadedAt, &u.RowsProcessed, &u.RowsExcluded, &summary)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query upload: %w", err)
	}

	u.UploadedAt = parseTimestamp(uploadedAt)
	if summary.Valid && summary.String != "" {
		var results models.AnalysisResults
		if err := json.Unmarshal([]byte(summary.String), &results); err != nil {
			return nil, fmt.Errorf("failed to decode results summary: %w", err)
		}
		u.ResultsSummary = &results
	}
	return &u, nil
}

// GetSales returns the stored sale records for an upload, oldest close date
// first, capped at limit.
func (d *Database) GetSales(uploadID int64, limit int) ([]models.SaleRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, upload_id, COALESCE(mls_number, ''), street_number,
		       COALESCE(street_name, ''), COALESCE(city, ''), cdom,
		       list_price, current_price, close_price, pending_date, close_date,
		       sqft_total, sqft_liv_area, COALESCE(view, ''), COALESCE(water_view, ''),
		       price_per_sqft
		FROM sales
		WHERE upload_id = ?
		ORDER BY close_date
		LIMIT ?
	`, uploadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []models.SaleRecord
	for rows.Next() {
		var s models.SaleRecord
		var streetNumber, cdom sql.NullInt64
		var listPrice, currentPrice, sqftTotal, sqftLivArea, pricePerSqFt sql.NullFloat64
		var pendingDate sql.NullString
		var closeDate string

		err := rows.Scan(
			&s.ID, &s.UploadID, &s.MLSNumber, &streetNumber,
			&s.StreetName, &s.City, &cdom,
			&listPrice, &currentPrice, &s.ClosePrice, &pendingDate, &closeDate,
			&sqftTotal, &sqftLivArea, &s.View, &s.WaterView,
			&pricePerSqFt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}

		if streetNumber.Valid {
			n := int(streetNumber.Int64)
			s.StreetNumber = &n
		}
		if cdom.Valid {
			n := int(cdom.Int64)
			s.CDOM = &n
		}
		s.ListPrice = nullFloat(listPrice)
		s.CurrentPrice = nullFloat(currentPrice)
		s.SqFtTotal = nullFloat(sqftTotal)
		s.SqFtLivArea = nullFloat(sqftLivArea)
		s.PricePerSqFt = nullFloat(pricePerSqFt)

		s.CloseDate = parseDateColumn(closeDate)
		if pendingDate.Valid && pendingDate.String != "" {
			t := parseDateColumn(pendingDate.String)
			s.PendingDate = &t
		}

		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// CountSales returns how many sale rows are stored for an upload.
func (d *Database) CountSales(uploadID int64) (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sales WHERE upload_id = ?", uploadID).Scan(&count)
	return count, err
}

// InsertTimeAdjustment stores an analysis and its comparables in one
// transaction, setting IDs on the passed models.
func (d *Database) InsertTimeAdjustment(analysis *models.TimeAdjustmentAnalysis, comparables []models.ComparableSale) error {
	var results sql.NullString
	if analysis.Results != nil {
		var err error
		results, err = marshalJSON(analysis.Results)
		if err != nil {
			return fmt.Errorf("failed to encode adjustment results: %w", err)
		}
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		INSERT INTO time_adjustment_analyses (upload_id, effective_date, created_at, results)
		VALUES (?, ?, ?, ?)
	`,
		analysis.UploadID,
		analysis.EffectiveDate.UTC().Format("2006-01-02"),
		analysis.CreatedAt.UTC().Format(time.RFC3339),
		results,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	analysis.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get analysis ID: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO comparable_sales
		(analysis_id, sale_date, sale_price, square_footage, address,
		 monthly_price_adjustment, monthly_psf_adjustment,
		 linear_price_adjustment, linear_psf_adjustment,
		 polynomial_price_adjustment, polynomial_psf_adjustment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range comparables {
		c := &comparables[i]
		c.AnalysisID = analysis.ID
		res, err := stmt.Exec(
			c.AnalysisID,
			c.SaleDate.UTC().Format("2006-01-02"),
			c.SalePrice,
			intPtrValue(c.SquareFootage),
			c.Address,
			c.MonthlyPriceAdjustment,
			c.MonthlyPSFAdjustment,
			c.LinearPriceAdjustment,
			c.LinearPSFAdjustment,
			c.PolynomialPriceAdjustment,
			c.PolynomialPSFAdjustment,
		)
		if err != nil {
			return fmt.Errorf("failed to insert comparable: %w", err)
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get comparable ID: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetTimeAdjustment returns one analysis with its comparables, or nil when
// it does not exist.
func (d *Database) GetTimeAdjustment(id int64) (*models.TimeAdjustmentAnalysis, []models.ComparableSale, error) {
	var a models.TimeAdjustmentAnalysis
	var effectiveDate, createdAt string
	var results sql.NullString

	err := d.db.QueryRow(`
		SELECT id, upload_id, effective_date, created_at, results
		FROM time_adjustment_analyses
		WHERE id = ?
	`, id).Scan(&a.ID, &a.UploadID, &effectiveDate, &createdAt, &results)

	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query analysis: %w", err)
	}

	a.EffectiveDate = parseDateColumn(effectiveDate)
	a.CreatedAt = parseTimestamp(createdAt)
	if results.Valid && results.String != "" {
		if err := json.Unmarshal([]byte(results.String), &a.Results); err != nil {
			return nil, nil, fmt.Errorf("failed to decode adjustment results: %w", err)
		}
	}

	comparables, err := d.getComparables(a.ID)
	if err != nil {
		return nil, nil, err
	}
	return &a, comparables, nil
}

// ListTimeAdjustments returns the analyses stored for one upload, most
// recent first.
func (d *Database) ListTimeAdjustments(uploadID int64) ([]models.TimeAdjustmentAnalysis, error) {
	rows, err := d.db.Query(`
		SELECT id, upload_id, effective_date, created_at
		FROM time_adjustment_analyses
		WHERE upload_id = ?
		ORDER BY created_at DESC, id DESC
	`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("failed to query analyses: %w", err)
	}
	defer rows.Close()

	var analyses []models.TimeAdjustmentAnalysis
	for rows.Next() {
		var a models.TimeAdjustmentAnalysis
		var effectiveDate, createdAt string
		if err := rows.Scan(&a.ID, &a.UploadID, &effectiveDate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan analysis: %w", err)
		}
		a.EffectiveDate = parseDateColumn(effectiveDate)
		a.CreatedAt = parseTimestamp(createdAt)
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func (d *Database) getComparables(analysisID int64) ([]models.ComparableSale, error) {
	rows, err := d.db.Query(`
		SELECT id, analysis_id, sale_date, sale_price, square_footage, COALESCE(address, ''),
		       monthly_price_adjustment, monthly_psf_adjustment,
		       linear_price_adjustment, linear_psf_adjustment,
		       polynomial_price_adjustment, polynomial_psf_adjustment
		FROM comparable_sales
		WHERE analysis_id = ?
		ORDER BY sale_date, id
	`, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparables: %w", err)
	}
	defer rows.Close()

	var comparables []models.ComparableSale
	for rows.Next() {
		var c models.ComparableSale
		var saleDate string
		var squareFootage sql.NullInt64
		var monthlyPrice, monthlyPSF, linearPrice, linearPSF, polyPrice, polyPSF sql.NullFloat64

		err := rows.Scan(
			&c.ID, &c.AnalysisID, &saleDate, &c.SalePrice, &squareFootage, &c.Address,
			&monthlyPrice, &monthlyPSF, &linearPrice, &linearPSF, &polyPrice, &polyPSF,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparable: %w", err)
		}

		c.SaleDate = parseDateColumn(saleDate)
		if squareFootage.Valid {
			n := int(squareFootage.Int64)
			c.SquareFootage = &n
		}
		c.MonthlyPriceAdjustment = nullFloat(monthlyPrice)
		c.MonthlyPSFAdjustment = nullFloat(monthlyPSF)
		c.LinearPriceAdjustment = nullFloat(linearPrice)
		c.LinearPSFAdjustment = nullFloat(linearPSF)
		c.PolynomialPriceAdjustment = nullFloat(polyPrice)
		c.PolynomialPSFAdjustment = nullFloat(polyPSF)

		comparables = append(comparables, c)
	}
	return comparables, rows.Err()
}

func marshalJSON(v interface{}) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtrValue(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return parseDateColumn(s)
}

func parseDateColumn(s string) time.Time {
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
