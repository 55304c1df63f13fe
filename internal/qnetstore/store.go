// Package qnetstore is the Storage Abstraction (§4.3): a column-family-style
// key-value store layered over goleveldb, with its own pruning and
// snapshot policy. It is consumed by reputation, the ledger, PoH state,
// attestations/heartbeats, and pending rewards.
package qnetstore

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/util"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
)

// ColumnFamily names the logical namespaces from §4.3. Keys are prefixed
// with the column family name since goleveldb has no native CF concept.
type ColumnFamily string

const (
	CFMicroblocks       ColumnFamily = "microblocks"
	CFMacroblocks       ColumnFamily = "macroblocks"
	CFTransactions      ColumnFamily = "transactions"
	CFTxIndex           ColumnFamily = "tx_index"
	CFTxByAddress       ColumnFamily = "tx_by_address"
	CFPoHState          ColumnFamily = "poh_state"
	CFAttestations      ColumnFamily = "attestations"
	CFHeartbeats        ColumnFamily = "heartbeats"
	CFPendingRewards    ColumnFamily = "pending_rewards"
	CFReputationHistory ColumnFamily = "reputation_history"
	CFCertificates      ColumnFamily = "certificates"
	CFSyncState         ColumnFamily = "sync_state"
	CFConsensus         ColumnFamily = "consensus"
)

// FullNodePruneWindow is the sliding window of microblocks a Full node
// retains.
const FullNodePruneWindow = 100_000

// TxCFPruneDelaySeconds is how long after covering-macroblock finalization
// transaction column families are kept before pruning.
const TxCFPruneDelaySeconds = 12 * 3600

// Store wraps a single goleveldb handle shared by every column family.
type Store struct {
	mu sync.RWMutex
	db *leveldb.DB

	// lightNode records that the store was opened for a Light node. No
	// method consults it: a Light node's store accepts full entries in every
	// column family, not headers only.
	lightNode bool
}

// Open opens (or creates) the goleveldb database at path.
func Open(path string, lightNode bool) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, qnetErrors.New(qnetErrors.ERR_CORRUPTED_ENTRY, "qnetstore: open %s", path, err)
	}
	return &Store{db: db, lightNode: lightNode}, nil
}

// Close flushes and closes the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func cfKey(cf ColumnFamily, key []byte) []byte {
	out := make([]byte, 0, len(cf)+1+len(key))
	out = append(out, []byte(cf)...)
	out = append(out, ':')
	out = append(out, key...)
	return out
}

// Put writes value under (cf, key).
func (s *Store) Put(cf ColumnFamily, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Put(cfKey(cf, key), value, nil)
}

// Get reads the value stored at (cf, key).
func (s *Store) Get(cf ColumnFamily, key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := s.db.Get(cfKey(cf, key), nil)
	if err == leveldb.ErrNotFound {
		return nil, qnetErrors.New(qnetErrors.ERR_NOT_FOUND, "qnetstore: %s/%x not found", string(cf), key)
	}
	return v, err
}

// Delete removes (cf, key).
func (s *Store) Delete(cf ColumnFamily, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Delete(cfKey(cf, key), nil)
}

// Has reports whether (cf, key) exists.
func (s *Store) Has(cf ColumnFamily, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Has(cfKey(cf, key), nil)
}

// Iterate calls fn for every (key, value) in cf whose key has the given
// prefix, in ascending key order, until fn returns false.
func (s *Store) Iterate(cf ColumnFamily, prefix []byte, fn func(key, value []byte) bool) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rng := util.BytesPrefix(cfKey(cf, prefix))
	it := s.db.NewIterator(rng, nil)
	defer it.Release()

	for it.Next() {
		k := bytes.TrimPrefix(it.Key(), []byte(cf.String()+":"))
		if !fn(append([]byte(nil), k...), append([]byte(nil), it.Value()...)) {
			break
		}
	}
	return it.Error()
}

func (cf ColumnFamily) String() string { return string(cf) }

// PutHeight writes value keyed by a big-endian height, the key shape used
// by CFMicroblocks, CFMacroblocks, and CFPoHState.
func (s *Store) PutHeight(cf ColumnFamily, height uint64, value []byte) error {
	return s.Put(cf, heightKey(height), value)
}

// GetHeight reads the value at a big-endian height key.
func (s *Store) GetHeight(cf ColumnFamily, height uint64) ([]byte, error) {
	return s.Get(cf, heightKey(height))
}

// DeleteHeight removes the entry at a big-endian height key.
func (s *Store) DeleteHeight(cf ColumnFamily, height uint64) error {
	return s.Delete(cf, heightKey(height))
}

func heightKey(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

// PruneMicroblocksBelow removes microblock (and PoH state) entries below
// the sliding-window floor for Full nodes (§4.3).
func (s *Store) PruneMicroblocksBelow(floorHeight uint64) int {
	var heights []uint64
	_ = s.Iterate(CFMicroblocks, nil, func(key, _ []byte) bool {
		if len(key) != 8 {
			return true
		}
		if h := binary.BigEndian.Uint64(key); h < floorHeight {
			heights = append(heights, h)
		}
		return true
	})
	for _, h := range heights {
		_ = s.DeleteHeight(CFMicroblocks, h)
		_ = s.DeleteHeight(CFPoHState, h)
	}
	return len(heights)
}
