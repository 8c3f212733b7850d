package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"comptrend/server/internal/models"
)

func testBatch(uploadID int64, mlsNumbers ...string) *SaleBatch {
	records := make([]*models.SaleRecord, 0, len(mlsNumbers))
	for _, mls := range mlsNumbers {
		records = append(records, &models.SaleRecord{MLSNumber: mls})
	}
	return &SaleBatch{UploadID: uploadID, Records: records}
}

func TestNewSaleQueue(t *testing.T) {
	logger := logrus.New()
	q := NewSaleQueue(10, logger)
	assert.NotNil(t, q)
	assert.Equal(t, 10, q.maxSize)
	assert.False(t, q.IsClosed())
}

func TestSaleQueue_Push(t *testing.T) {
	logger := logrus.New()
	q := NewSaleQueue(2, logger)

	// Test successful push
	err := q.Push(testBatch(1, "MLS-1"))
	assert.NoError(t, err)
	assert.Equal(t, 1, q.Len())

	// Test queue full
	for i := 0; i < 2; i++ {
		_ = q.Push(testBatch(1, "MLS-x"))
	}
	err = q.Push(testBatch(1, "MLS-overflow"))
	assert.Equal(t, ErrQueueFull, err)

	// Test closed queue
	q.Close()
	err = q.Push(testBatch(1, "MLS-closed"))
	assert.Equal(t, ErrQueueClosed, err)
}

func TestSaleQueue_Subscribe(t *testing.T) {
	logger := logrus.New()
	q := NewSaleQueue(10, logger)

	var processed []*models.SaleRecord
	var mu sync.Mutex

	// Add handler
	q.Subscribe(func(batch *SaleBatch) error {
		mu.Lock()
		processed = append(processed, batch.Records...)
		mu.Unlock()
		return nil
	})

	// Start queue
	q.Start(1)

	// Push items
	err := q.Push(testBatch(7, "MLS-1", "MLS-2"))
	assert.NoError(t, err)

	// Wait for processing
	time.Sleep(100 * time.Millisecond)

	// Verify processing
	mu.Lock()
	assert.Equal(t, 2, len(processed))
	assert.Equal(t, "MLS-1", processed[0].MLSNumber)
	assert.Equal(t, "MLS-2", processed[1].MLSNumber)
	mu.Unlock()
}

func TestSaleQueue_Close(t *testing.T) {
	logger := logrus.New()
	q := NewSaleQueue(10, logger)

	// Test first close
	err := q.Close()
	assert.NoError(t, err)
	assert.True(t, q.IsClosed())

	// Test second close (should be no-op)
	err = q.Close()
	assert.NoError(t, err)
}

func TestSaleQueue_ProcessBatch(t *testing.T) {
	logger := logrus.New()
	q := NewSaleQueue(10, logger)

	var wg sync.WaitGroup
	processedBatches := 0
	var mu sync.Mutex

	// Add multiple handlers
	for i := 0; i < 3; i++ {
		wg.Add(1)
		q.Subscribe(func(batch *SaleBatch) error {
			mu.Lock()
			processedBatches++
			mu.Unlock()
			wg.Done()
			return nil
		})
	}

	// Start queue
	q.Start(1)

	// Push a batch
	err := q.Push(testBatch(1, "MLS-1"))
	assert.NoError(t, err)

	// Wait for all handlers
	wg.Wait()

	// Verify all handlers processed the batch
	mu.Lock()
	assert.Equal(t, 3, processedBatches)
	mu.Unlock()
}
