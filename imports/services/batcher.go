package services

// Batch is one bounded, ordered group of records applied as a single store
// operation. DuplicateRows counts source rows collapsed by intra-batch
// last-write-wins resolution; each collapsed row is reported as an update.
type Batch struct {
	Records       []ProductRecord
	DuplicateRows int64
}

// Batcher buffers validated records into ordered batches of a maximum size.
// Input order is preserved across and within batches, so a later write for a
// given SKU always follows and overrides an earlier one. Within one batch,
// duplicate SKUs are collapsed keeping the last occurrence, because a single
// set-based upsert cannot touch the same row twice.
type Batcher struct {
	maxSize    int
	records    []ProductRecord
	positions  map[string]int // normalized SKU -> index in records
	duplicates int64
}

const DefaultChunkSize = 5000

func NewBatcher(maxSize int) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultChunkSize
	}
	return &Batcher{
		maxSize:   maxSize,
		positions: make(map[string]int),
	}
}

// Add buffers one record. When the buffer reaches the configured size the
// full batch is returned and the buffer resets; otherwise the batch is nil.
func (b *Batcher) Add(record ProductRecord) *Batch {
	if idx, seen := b.positions[record.SKU]; seen {
		// Last occurrence wins: drop the earlier row and append at the end
		// so the surviving record keeps last-write order.
		b.records = append(b.records[:idx], b.records[idx+1:]...)
		for sku, pos := range b.positions {
			if pos > idx {
				b.positions[sku] = pos - 1
			}
		}
		b.duplicates++
	}
	b.positions[record.SKU] = len(b.records)
	b.records = append(b.records, record)

	if len(b.records) >= b.maxSize {
		return b.flush()
	}
	return nil
}

// Flush returns the final, possibly shorter batch, or nil when empty.
func (b *Batcher) Flush() *Batch {
	if len(b.records) == 0 && b.duplicates == 0 {
		return nil
	}
	return b.flush()
}

func (b *Batcher) flush() *Batch {
	batch := &Batch{Records: b.records, DuplicateRows: b.duplicates}
	b.records = nil
	b.positions = make(map[string]int)
	b.duplicates = 0
	return batch
}
