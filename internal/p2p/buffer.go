package p2p

import (
	"sync"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/model"
)

// BufferMaxEntries / BufferMaxAgeSeconds / BufferMaxRetries are the §3/§4.4
// bounds on the out-of-order block buffer.
const (
	BufferMaxEntries  = 100
	BufferMaxAgeSeconds = 30
	BufferMaxRetries  = 5
)

type bufferedEntry struct {
	block      model.Microblock
	insertedAt uint64
	retryCount int
}

// Buffer is the bounded FIFO-by-height out-of-order block buffer. A single
// mutex guards it; operations are O(1) and rare relative to network I/O
// (§5 shared-resource model).
type Buffer struct {
	mu      sync.Mutex
	clock   qnetclock.Clock
	entries map[uint64]*bufferedEntry
	order   []uint64 // insertion order, oldest first

	processing uint64
	hasProcessing bool
}

// NewBuffer constructs an empty buffer.
func NewBuffer(clock qnetclock.Clock) *Buffer {
	return &Buffer{
		clock:   clock,
		entries: make(map[uint64]*bufferedEntry),
	}
}

// SetProcessing marks height as the entry currently being applied, which
// Evict must never remove.
func (b *Buffer) SetProcessing(height uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processing = height
	b.hasProcessing = true
}

// ClearProcessing releases the processing guard.
func (b *Buffer) ClearProcessing() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hasProcessing = false
}

// Insert adds block to the buffer, evicting the oldest non-current entry
// if the buffer is at capacity. Returns false if the block was dropped
// (e.g. a duplicate already buffered).
func (b *Buffer) Insert(block model.Microblock, now uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.entries[block.Height]; exists {
		return false
	}

	if len(b.entries) >= BufferMaxEntries {
		b.evictOldestLocked()
	}

	b.entries[block.Height] = &bufferedEntry{block: block, insertedAt: now}
	b.order = append(b.order, block.Height)
	return true
}

// evictOldestLocked removes the oldest non-current entry. Caller holds mu.
func (b *Buffer) evictOldestLocked() {
	for i, h := range b.order {
		if b.hasProcessing && h == b.processing {
			continue
		}
		delete(b.entries, h)
		b.order = append(b.order[:i], b.order[i+1:]...)
		return
	}
}

// Prune removes entries at least BufferMaxAgeSeconds old or with
// retry_count >= BufferMaxRetries, never evicting the entry currently
// being processed.
func (b *Buffer) Prune(now uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	kept := b.order[:0:0]
	for _, h := range b.order {
		if b.hasProcessing && h == b.processing {
			kept = append(kept, h)
			continue
		}
		e := b.entries[h]
		if now-e.insertedAt >= BufferMaxAgeSeconds || e.retryCount >= BufferMaxRetries {
			delete(b.entries, h)
			pruned++
			continue
		}
		kept = append(kept, h)
	}
	b.order = kept
	return pruned
}

// Get returns the buffered block at height, if any.
func (b *Buffer) Get(height uint64) (model.Microblock, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[height]
	if !ok {
		return model.Microblock{}, false
	}
	return e.block, true
}

// IncrementRetry bumps the retry counter for a buffered height.
func (b *Buffer) IncrementRetry(height uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[height]; ok {
		e.retryCount++
	}
}

// Take removes and returns the buffered block at height.
func (b *Buffer) Take(height uint64) (model.Microblock, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[height]
	if !ok {
		return model.Microblock{}, false
	}
	delete(b.entries, height)
	for i, h := range b.order {
		if h == height {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return e.block, true
}

// Len reports the current buffer size.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// DrainContiguous removes and returns, in ascending height order, every
// buffered block that chains contiguously from fromHeight+1 — used once
// the missing parent arrives so all descendants apply transitively
// (§4.8 "Out-of-order handling").
func (b *Buffer) DrainContiguous(fromHeight uint64) []model.Microblock {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []model.Microblock
	next := fromHeight + 1
	for {
		e, ok := b.entries[next]
		if !ok {
			break
		}
		out = append(out, e.block)
		delete(b.entries, next)
		for i, h := range b.order {
			if h == next {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
		next++
	}
	return out
}
