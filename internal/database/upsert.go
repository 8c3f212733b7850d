package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"comptrend/server/internal/models"
)

// saleRow is the gorm mapping for the sales table, used only by the batch
// insert path. The query side stays on database/sql.
type saleRow struct {
	ID           int64      `gorm:"column:id;primaryKey"`
	UploadID     int64      `gorm:"column:upload_id"`
	MLSNumber    string     `gorm:"column:mls_number"`
	StreetNumber *int       `gorm:"column:street_number"`
	StreetName   string     `gorm:"column:street_name"`
	City         string     `gorm:"column:city"`
	CDOM         *int       `gorm:"column:cdom"`
	ListPrice    *float64   `gorm:"column:list_price"`
	CurrentPrice *float64   `gorm:"column:current_price"`
	ClosePrice   float64    `gorm:"column:close_price"`
	PendingDate  *time.Time `gorm:"column:pending_date"`
	CloseDate    time.Time  `gorm:"column:close_date"`
	SqFtTotal    *float64   `gorm:"column:sqft_total"`
	SqFtLivArea  *float64   `gorm:"column:sqft_liv_area"`
	View         string     `gorm:"column:view"`
	WaterView    string     `gorm:"column:water_view"`
	PricePerSqFt *float64   `gorm:"column:price_per_sqft"`
}

func (saleRow) TableName() string {
	return "sales"
}

// UpsertSales inserts a batch of sale records for an upload inside the given
// transaction. Replays of the same batch are harmless.
func UpsertSales(tx *gorm.DB, uploadID int64, sales []*models.SaleRecord) error {
	if len(sales) == 0 {
		return nil
	}

	rows := make([]saleRow, 0, len(sales))
	for _, s := range sales {
		rows = append(rows, saleRow{
			UploadID:     uploadID,
			MLSNumber:    s.MLSNumber,
			StreetNumber: s.StreetNumber,
			StreetName:   s.StreetName,
			City:         s.City,
			CDOM:         s.CDOM,
			ListPrice:    s.ListPrice,
			CurrentPrice: s.CurrentPrice,
			ClosePrice:   s.ClosePrice,
			PendingDate:  s.PendingDate,
			CloseDate:    s.CloseDate,
			SqFtTotal:    s.SqFtTotal,
			SqFtLivArea:  s.SqFtLivArea,
			View:         s.View,
			WaterView:    s.WaterView,
			PricePerSqFt: s.PricePerSqFt,
		})
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to insert sales batch: %w", err)
	}
	return nil
}
