// Package mempool implements the MEV / priority mempool (§4.12): a
// gas-price priority queue of public transactions plus a signed-bundle
// channel, composed into each microblock at an 80/20 floor/ceiling split.
package mempool

import (
	"container/heap"
	"sync"

	"github.com/qnet-xyz/qnet-core/model"
)

// publicQueue is a max-heap over Transaction ordered by gas price, FIFO
// within equal gas price via a monotonic sequence tiebreaker.
type publicQueue struct {
	items []queuedTx
}

type queuedTx struct {
	tx  model.Transaction
	seq uint64
}

func (q *publicQueue) Len() int { return len(q.items) }
func (q *publicQueue) Less(i, j int) bool {
	if q.items[i].tx.GasPriceNano != q.items[j].tx.GasPriceNano {
		return q.items[i].tx.GasPriceNano > q.items[j].tx.GasPriceNano
	}
	return q.items[i].seq < q.items[j].seq
}
func (q *publicQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *publicQueue) Push(x interface{}) {
	q.items = append(q.items, x.(queuedTx))
}
func (q *publicQueue) Pop() interface{} {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}

// Mempool owns the public priority queue and the signed-bundle channel.
type Mempool struct {
	mu sync.Mutex

	queue   publicQueue
	nextSeq uint64

	bundles          []model.Bundle
	bundlesPerMinute map[string]int
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		bundlesPerMinute: make(map[string]int),
	}
}

// SubmitTransaction admits tx to the public priority queue if it clears the
// minimum gas price floor.
func (m *Mempool) SubmitTransaction(tx model.Transaction) bool {
	if tx.GasPriceNano < model.MinGasPriceNano {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	heap.Push(&m.queue, queuedTx{tx: tx, seq: m.nextSeq})
	m.nextSeq++
	return true
}

// BundleSubmission carries the context needed to validate a bundle against
// the submitter's reputation and the public-tx floor.
type BundleSubmission struct {
	Bundle              model.Bundle
	SubmitterScore      float64
	TopPublicGasPrice   uint64
	SubmitterRecentSubs int // bundles already submitted by this sender in the last minute
}

// SubmitBundle validates and admits a bundle per §4.12's constraints: size,
// submitter score, gas premium, rate limit.
func (m *Mempool) SubmitBundle(sub BundleSubmission) bool {
	b := sub.Bundle
	if len(b.TxHashes) == 0 || len(b.TxHashes) > model.BundleMaxTxs {
		return false
	}
	if sub.SubmitterScore < model.BundleMinSubmitterScore {
		return false
	}
	minGas := uint64(float64(sub.TopPublicGasPrice) * (1 + model.BundleGasPremiumFraction))
	if b.TotalGasPriceNano < minGas {
		return false
	}
	if b.MaxTimestamp > b.MinTimestamp+model.BundleMaxLifetimeSeconds {
		return false
	}
	if sub.SubmitterRecentSubs >= model.BundleMaxPerMinutePerSender {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles = append(m.bundles, b)
	m.bundlesPerMinute[string(b.SubmitterPK)]++
	return true
}

// PendingBundles returns currently queued, non-expired bundles as of now.
func (m *Mempool) PendingBundles(now uint64) []model.Bundle {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.bundles[:0:0]
	for _, b := range m.bundles {
		if now <= b.MinTimestamp+model.BundleMaxLifetimeSeconds {
			live = append(live, b)
		}
	}
	m.bundles = live
	return append([]model.Bundle(nil), live...)
}

// BundleSlotCount returns how many of the maxSlots may be filled with
// bundle transactions, honoring the 80% public floor / 20% bundle ceiling,
// scaled by demand (number of pending bundle transactions available).
func BundleSlotCount(maxSlots int, pendingBundleTxs int) int {
	ceiling := int(float64(maxSlots) * model.BundleMaxSlotFraction)
	if pendingBundleTxs < ceiling {
		return pendingBundleTxs
	}
	return ceiling
}

// ComposeBlock drains up to maxSlots transactions for the next microblock:
// bundles fill their allotted (<=20%) slots atomically, the public queue
// fills the rest (>=80% floor). Bundles that don't fully fit are skipped
// entirely rather than partially included (atomicity, §4.12).
func (m *Mempool) ComposeBlock(maxSlots int, now uint64) []model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()

	pendingBundles := make([]model.Bundle, 0, len(m.bundles))
	for _, b := range m.bundles {
		if now <= b.MinTimestamp+model.BundleMaxLifetimeSeconds {
			pendingBundles = append(pendingBundles, b)
		}
	}

	bundleCeiling := int(float64(maxSlots) * model.BundleMaxSlotFraction)
	out := make([]model.Transaction, 0, maxSlots)

	used := 0
	remaining := pendingBundles
	m.bundles = nil
	for _, b := range remaining {
		if used+len(b.TxHashes) > bundleCeiling {
			m.bundles = append(m.bundles, b) // retry next block
			continue
		}
		for _, h := range b.TxHashes {
			out = append(out, model.Transaction{Hash: h})
		}
		used += len(b.TxHashes)
	}

	for len(out) < maxSlots && m.queue.Len() > 0 {
		qt := heap.Pop(&m.queue).(queuedTx)
		out = append(out, qt.tx)
	}

	return out
}
