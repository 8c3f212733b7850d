package database

import "fmt"

func (d *Database) RunMigrations() error {
	// Create uploads table
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS uploads (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			original_filename TEXT,
			address TEXT,
			uploaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			rows_processed INTEGER DEFAULT 0,
			rows_excluded INTEGER DEFAULT 0,
			results_summary TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create uploads table: %v", err)
	}

	// Create sales table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			upload_id INTEGER REFERENCES uploads(id) ON DELETE CASCADE,
			mls_number TEXT,
			street_number INTEGER,
			street_name TEXT,
			city TEXT,
			cdom INTEGER,
			list_price REAL,
			current_price REAL,
			close_price REAL NOT NULL,
			pending_date DATE,
			close_date DATE NOT NULL,
			sqft_total REAL,
			sqft_liv_area REAL,
			view TEXT,
			water_view TEXT,
			price_per_sqft REAL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create sales table: %v", err)
	}

	// Create time adjustment analyses table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS time_adjustment_analyses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			upload_id INTEGER NOT NULL REFERENCES uploads(id) ON DELETE CASCADE,
			effective_date DATE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			results TEXT
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create time_adjustment_analyses table: %v", err)
	}

	// Create comparable sales table
	_, err = d.db.Exec(`
		CREATE TABLE IF NOT EXISTS comparable_sales (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			analysis_id INTEGER NOT NULL REFERENCES time_adjustment_analyses(id) ON DELETE CASCADE,
			sale_date DATE NOT NULL,
			sale_price REAL NOT NULL,
			square_footage INTEGER,
			address TEXT,
			monthly_price_adjustment REAL,
			monthly_psf_adjustment REAL,
			linear_price_adjustment REAL,
			linear_psf_adjustment REAL,
			polynomial_price_adjustment REAL,
			polynomial_psf_adjustment REAL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create comparable_sales table: %v", err)
	}

	// Index sales by upload and close date for the analysis queries
	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sales_upload_close_date
		ON sales(upload_id, close_date);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analyses_upload
		ON time_adjustment_analyses(upload_id);
	`)
	if err != nil {
		return err
	}

	return nil
}
