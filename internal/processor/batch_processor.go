package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"comptrend/server/config"
	"comptrend/server/internal/database"
	"comptrend/server/internal/queue"
)

// TxRunner is the slice of *gorm.DB the processor needs. Tests substitute a
// mock implementation.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor handles the persistence of sale record batches
type BatchProcessor struct {
	db        TxRunner
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.SaleQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db TxRunner, queue *queue.SaleQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing batches from the queue
func (p *BatchProcessor) Start() {
	p.queue.Subscribe(func(batch *queue.SaleBatch) error {
		return p.processBatch(batch)
	})
	p.queue.Start(p.config.BatchProcessing.ProcessorCount)
}

// Stop gracefully shuts down the processor
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

// processBatch handles a single batch of sales with transaction and retry logic
func (p *BatchProcessor) processBatch(batch *queue.SaleBatch) error {
	var err error
	for attempt := 0; attempt <= p.config.BatchProcessing.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.BatchProcessing.MaxRetries)
			time.Sleep(time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertSales(tx, batch.UploadID, batch.Records); err != nil {
				return fmt.Errorf("failed to insert sales batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithFields(logrus.Fields{
				"upload_id":  batch.UploadID,
				"batch_size": len(batch.Records),
			}).Info("Successfully processed sales batch")
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.BatchProcessing.MaxRetries, err)
}
