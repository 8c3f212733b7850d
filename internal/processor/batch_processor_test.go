package processor

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"comptrend/server/config"
	"comptrend/server/internal/models"
	"comptrend/server/internal/queue"
)

// MockDB is a mock implementation of TxRunner
type MockDB struct {
	mock.Mock
}

func (m *MockDB) Transaction(fc func(*gorm.DB) error, opts ...*sql.TxOptions) error {
	args := m.Called(fc)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.BatchProcessing.ProcessorCount = 2
	cfg.BatchProcessing.MaxRetries = 3
	cfg.BatchProcessing.RetryDelay = 0
	return cfg
}

func TestNewBatchProcessor(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	mockQueue := queue.NewSaleQueue(10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	// Test
	processor := NewBatchProcessor(mockDB, mockQueue, cfg, logger)

	// Assert
	assert.NotNil(t, processor)
	assert.Equal(t, mockDB, processor.db)
	assert.Equal(t, mockQueue, processor.queue)
	assert.Equal(t, cfg, processor.config)
	assert.Equal(t, logger, processor.logger)
}

func TestBatchProcessor_ProcessBatch(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	mockQueue := queue.NewSaleQueue(10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	processor := NewBatchProcessor(mockDB, mockQueue, cfg, logger)

	batch := &queue.SaleBatch{
		UploadID: 1,
		Records: []*models.SaleRecord{
			{MLSNumber: "MLS-1", ClosePrice: 400000},
			{MLSNumber: "MLS-2", ClosePrice: 525000},
		},
	}

	// Test successful processing
	mockDB.On("Transaction", mock.Anything).Return(nil).Once()
	err := processor.processBatch(batch)
	assert.NoError(t, err)

	// Test retry exhaustion: initial attempt plus MaxRetries retries
	mockDB.On("Transaction", mock.Anything).Return(errors.New("db error")).Times(4)
	err = processor.processBatch(batch)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to process batch after 3 attempts")

	mockDB.AssertExpectations(t)
}

func TestBatchProcessor_StartStop(t *testing.T) {
	// Setup
	mockDB := &MockDB{}
	mockQueue := queue.NewSaleQueue(10, logrus.New())
	cfg := testConfig()
	logger := logrus.New()

	processor := NewBatchProcessor(mockDB, mockQueue, cfg, logger)

	// Test Start
	mockDB.On("Transaction", mock.Anything).Return(nil)
	processor.Start()

	err := mockQueue.Push(&queue.SaleBatch{
		UploadID: 1,
		Records:  []*models.SaleRecord{{MLSNumber: "MLS-1"}},
	})
	assert.NoError(t, err)
	time.Sleep(100 * time.Millisecond)
	mockDB.AssertCalled(t, "Transaction", mock.Anything)

	// Test Stop
	processor.Stop()
	mockQueue.Close()
	assert.True(t, mockQueue.IsClosed())
}
