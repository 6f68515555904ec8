package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func record(sku string, rowNumber int64) ProductRecord {
	return ProductRecord{SKU: sku, Name: "Product " + sku, RowNumber: rowNumber}
}

func TestBatcherEmitsAtMaxSize(t *testing.T) {
	b := NewBatcher(3)

	assert.Nil(t, b.Add(record("A-1", 2)))
	assert.Nil(t, b.Add(record("A-2", 3)))

	batch := b.Add(record("A-3", 4))
	assert.NotNil(t, batch)
	assert.Len(t, batch.Records, 3)
	assert.Equal(t, int64(0), batch.DuplicateRows)

	// Buffer resets after an emitted batch.
	assert.Nil(t, b.Add(record("A-4", 5)))
	final := b.Flush()
	assert.NotNil(t, final)
	assert.Len(t, final.Records, 1)
}

func TestBatcherFlushEmpty(t *testing.T) {
	b := NewBatcher(3)
	assert.Nil(t, b.Flush())
}

func TestBatcherPreservesOrder(t *testing.T) {
	b := NewBatcher(100)
	for i := 0; i < 5; i++ {
		b.Add(record(fmt.Sprintf("A-%d", i), int64(i+2)))
	}

	batch := b.Flush()
	assert.NotNil(t, batch)
	for i, rec := range batch.Records {
		assert.Equal(t, fmt.Sprintf("A-%d", i), rec.SKU)
	}
}

func TestBatcherCollapsesDuplicatesLastWins(t *testing.T) {
	b := NewBatcher(100)
	b.Add(ProductRecord{SKU: "PROD-001", Name: "First", RowNumber: 2})
	b.Add(ProductRecord{SKU: "PROD-002", Name: "Second", RowNumber: 3})
	b.Add(ProductRecord{SKU: "PROD-001", Name: "Third", RowNumber: 4})

	batch := b.Flush()
	assert.NotNil(t, batch)
	assert.Len(t, batch.Records, 2)
	assert.Equal(t, int64(1), batch.DuplicateRows)

	// Survivor is the later occurrence, shifted to last-write position.
	assert.Equal(t, "PROD-002", batch.Records[0].SKU)
	assert.Equal(t, "PROD-001", batch.Records[1].SKU)
	assert.Equal(t, "Third", batch.Records[1].Name)
}

func TestBatcherReindexesAfterCollapse(t *testing.T) {
	b := NewBatcher(100)
	b.Add(record("A", 2))
	b.Add(record("B", 3))
	b.Add(record("C", 4))
	b.Add(ProductRecord{SKU: "A", Name: "A v2", RowNumber: 5})
	// B's tracked position shifted down by one; a later B must still collapse.
	b.Add(ProductRecord{SKU: "B", Name: "B v2", RowNumber: 6})

	batch := b.Flush()
	assert.NotNil(t, batch)
	assert.Len(t, batch.Records, 3)
	assert.Equal(t, int64(2), batch.DuplicateRows)
	assert.Equal(t, "C", batch.Records[0].SKU)
	assert.Equal(t, "A v2", batch.Records[1].Name)
	assert.Equal(t, "B v2", batch.Records[2].Name)
}

func TestBatcherDuplicateCountResetsPerBatch(t *testing.T) {
	b := NewBatcher(2)
	b.Add(record("A", 2))
	batch := b.Add(record("B", 3))
	assert.NotNil(t, batch)
	assert.Equal(t, int64(0), batch.DuplicateRows)

	b.Add(record("C", 4))
	second := b.Add(record("C", 5))
	assert.Nil(t, second) // collapse leaves one buffered record

	final := b.Flush()
	assert.NotNil(t, final)
	assert.Len(t, final.Records, 1)
	assert.Equal(t, int64(1), final.DuplicateRows)
}
