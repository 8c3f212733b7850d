package api

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"comptrend/server/config"
	"comptrend/server/internal/analysis"
	"comptrend/server/internal/database"
	"comptrend/server/internal/ingest"
	"comptrend/server/internal/models"
	"comptrend/server/internal/queue"
)

type Handler struct {
	db     *database.Database
	queue  *queue.SaleQueue
	config *config.Config
	logger *logrus.Logger
}

// ComparableInput is one comparable sale submitted for time adjustment.
type ComparableInput struct {
	SaleDate      string  `json:"sale_date" binding:"required"`
	SalePrice     float64 `json:"sale_price" binding:"required"`
	SquareFootage *int    `json:"square_footage"`
	Address       string  `json:"address"`
}

// TimeAdjustmentRequest asks for comparables to be adjusted to an effective
// date using an upload's market data.
type TimeAdjustmentRequest struct {
	EffectiveDate string            `json:"effective_date" binding:"required"`
	Comparables   []ComparableInput `json:"comparables" binding:"required,min=1"`
}

func NewHandler(db *database.Database, queue *queue.SaleQueue, cfg *config.Config, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:     db,
		queue:  queue,
		config: cfg,
		logger: logger,
	}
}

// UploadFile accepts an MLS export, runs the market analysis and stores the
// upload. Persisting the individual sale rows happens asynchronously through
// the batch queue.
func (h *Handler) UploadFile(c *gin.Context) {
	maxBytes := h.config.Upload.MaxSizeMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.logger.WithError(err).Error("Failed to read uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": "A file upload is required"})
		return
	}
	defer file.Close()

	if header.Size > maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
		return
	}

	parsed, err := ingest.ParseSalesFile(file, header.Filename)
	if err != nil {
		h.logger.WithError(err).WithField("filename", header.Filename).Error("Failed to parse uploaded file")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(parsed.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No valid sale records found in file"})
		return
	}

	results := analysis.Analyze(parsed.Records, h.config.Analysis.RecentMonths, h.config.Analysis.ChartPoints)
	results.RowsExcluded = parsed.RowsExcluded

	upload := &models.Upload{
		OriginalFilename: header.Filename,
		Address:          c.PostForm("address"),
		UploadedAt:       time.Now().UTC(),
		RowsProcessed:    len(parsed.Records),
		RowsExcluded:     parsed.RowsExcluded,
		ResultsSummary:   results,
	}
	if err := h.db.InsertUpload(upload); err != nil {
		h.logger.WithError(err).Error("Failed to store upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store upload"})
		return
	}

	if saveSales(c.PostForm("save_sales")) {
		records := make([]*models.SaleRecord, len(parsed.Records))
		for i := range parsed.Records {
			records[i] = &parsed.Records[i]
		}
		if err := h.queue.Push(&queue.SaleBatch{UploadID: upload.ID, Records: records}); err != nil {
			// The analysis summary is already stored; losing the raw rows only
			// affects later re-analysis.
			h.logger.WithError(err).WithField("upload_id", upload.ID).Error("Failed to queue sales batch")
		}
	}

	c.JSON(http.StatusCreated, upload)
}

// ListUploads returns all uploads without their analysis payloads.
func (h *Handler) ListUploads(c *gin.Context) {
	uploads, err := h.db.ListUploads()
	if err != nil {
		h.logger.WithError(err).Error("Failed to list uploads")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
		return
	}
	if uploads == nil {
		uploads = []models.Upload{}
	}
	c.JSON(http.StatusOK, uploads)
}

// GetUpload returns one upload with its full analysis summary, stored sale
// count and the time adjustment analyses run against it.
func (h *Handler) GetUpload(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
		return
	}

	upload, err := h.db.GetUpload(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get upload"})
		return
	}
	if upload == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}

	salesCount, err := h.db.CountSales(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count sales")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get upload"})
		return
	}

	analyses, err := h.db.ListTimeAdjustments(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list time adjustments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get upload"})
		return
	}
	if analyses == nil {
		analyses = []models.TimeAdjustmentAnalysis{}
	}

	c.JSON(http.StatusOK, gin.H{
		"upload":           upload,
		"sales_stored":     salesCount,
		"time_adjustments": analyses,
	})
}

// CreateTimeAdjustment computes time adjustments for submitted comparables
// using the monthly statistics of an upload, stores and returns the analysis.
func (h *Handler) CreateTimeAdjustment(c *gin.Context) {
	uploadID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
		return
	}

	var req TimeAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse time adjustment request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	effectiveDate, err := time.Parse("2006-01-02", req.EffectiveDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "effective_date must be formatted as YYYY-MM-DD"})
		return
	}

	comparables := make([]models.ComparableSale, 0, len(req.Comparables))
	for _, in := range req.Comparables {
		saleDate, err := time.Parse("2006-01-02", in.SaleDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sale_date must be formatted as YYYY-MM-DD"})
			return
		}
		comparables = append(comparables, models.ComparableSale{
			SaleDate:      saleDate,
			SalePrice:     in.SalePrice,
			SquareFootage: in.SquareFootage,
			Address:       in.Address,
		})
	}

	upload, err := h.db.GetUpload(uploadID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get upload")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get upload"})
		return
	}
	if upload == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
		return
	}

	monthly, err := h.monthlyTable(upload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load monthly statistics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load market data for upload"})
		return
	}
	if len(monthly) == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Upload has no monthly market data"})
		return
	}

	results, err := analysis.ComputeTimeAdjustments(effectiveDate, comparables, monthly)
	if err != nil {
		h.logger.WithError(err).Error("Failed to compute time adjustments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute time adjustments"})
		return
	}
	for i := range comparables {
		analysis.ApplyAdjustments(&comparables[i], results[i].Results)
	}

	record := &models.TimeAdjustmentAnalysis{
		UploadID:      uploadID,
		EffectiveDate: effectiveDate,
		CreatedAt:     time.Now().UTC(),
		Results:       results,
	}
	if err := h.db.InsertTimeAdjustment(record, comparables); err != nil {
		h.logger.WithError(err).Error("Failed to store time adjustment analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store time adjustment analysis"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"analysis":    record,
		"comparables": comparables,
	})
}

// GetTimeAdjustment returns one stored analysis with its comparables.
func (h *Handler) GetTimeAdjustment(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid analysis ID"})
		return
	}

	record, comparables, err := h.db.GetTimeAdjustment(id)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get time adjustment analysis")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get time adjustment analysis"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Analysis not found"})
		return
	}
	if comparables == nil {
		comparables = []models.ComparableSale{}
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":    record,
		"comparables": comparables,
	})
}

// Health reports service liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// saveSales interprets the optional save_sales form field, defaulting to
// keeping the rows.
func saveSales(v string) bool {
	if v == "" {
		return true
	}
	keep, err := strconv.ParseBool(v)
	if err != nil {
		return true
	}
	return keep
}

// monthlyTable prefers the stored analysis summary and falls back to
// re-aggregating the persisted sale rows for uploads stored before the
// summary existed.
func (h *Handler) monthlyTable(upload *models.Upload) ([]models.MonthlyAggregate, error) {
	if upload.ResultsSummary != nil && len(upload.ResultsSummary.MonthlyTable) > 0 {
		return upload.ResultsSummary.MonthlyTable, nil
	}

	sales, err := h.db.GetSales(upload.ID, 100000)
	if err != nil {
		return nil, err
	}
	return analysis.AggregateMonthly(sales), nil
}
