// Package p2p implements the gossip-based P2P overlay (§4.4): the peer
// table, adaptive gossip fan-out, the bounded out-of-order block buffer,
// tracked broadcast with Byzantine-threshold acknowledgment, and the HTTP
// POST /p2p/message transport.
package p2p

import (
	"sync"

	"github.com/qnet-xyz/qnet-core/model"
)

// ShardCount is the regional-sharding fan-out for the peer table.
const ShardCount = 256

// KBucketCap is the maximum peers held per logical bucket.
const KBucketCap = 20

// ConcurrentMapThreshold returns the peer-count threshold past which a node
// of nodeType switches its peer table from a guarded map to a lock-free
// concurrent map.
func ConcurrentMapThreshold(nodeType model.NodeType) int {
	switch nodeType {
	case model.NodeTypeLight:
		return 500
	case model.NodeTypeFull:
		return 100
	case model.NodeTypeSuper:
		return 50
	default:
		return 100
	}
}

// PeerTable indexes peers by both address and node ID with O(1) lookups; it
// is a guarded map at low peer counts and documents the switch-over
// threshold even though Go's map+RWMutex combination scales adequately for
// the node counts in play without a true lock-free structure.
type PeerTable struct {
	mu        sync.RWMutex
	byNodeID  map[string]*model.PeerInfo
	byAddress map[string]*model.PeerInfo
	shards    [ShardCount][]string // node IDs, bucketed by region shard

	nodeType model.NodeType
}

// NewPeerTable constructs an empty table for a node of the given type,
// which governs the concurrent-map switch-over threshold.
func NewPeerTable(nodeType model.NodeType) *PeerTable {
	return &PeerTable{
		byNodeID:  make(map[string]*model.PeerInfo),
		byAddress: make(map[string]*model.PeerInfo),
		nodeType:  nodeType,
	}
}

// Upsert adds or replaces a peer, bucketing it into a regional shard.
func (t *PeerTable) Upsert(p model.PeerInfo) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.byNodeID[p.NodeID]; ok {
		delete(t.byAddress, existing.Address)
		t.removeFromShard(existing.NodeID, existing.Region)
	}

	cp := p
	t.byNodeID[p.NodeID] = &cp
	t.byAddress[p.Address] = &cp

	shard := ShardFor(p.Region)
	if len(t.shards[shard]) < KBucketCap {
		t.shards[shard] = append(t.shards[shard], p.NodeID)
	}
}

func (t *PeerTable) removeFromShard(nodeID, region string) {
	shard := ShardFor(region)
	ids := t.shards[shard]
	for i, id := range ids {
		if id == nodeID {
			t.shards[shard] = append(ids[:i], ids[i+1:]...)
			return
		}
	}
}

// ShardFor hashes region into one of ShardCount regional shards.
func ShardFor(region string) int {
	h := 2166136261 // FNV-1a offset basis, a cheap deterministic shard key
	for _, c := range region {
		h ^= int(c)
		h *= 16777619
		if h < 0 {
			h = -h
		}
	}
	return h % ShardCount
}

// ByNodeID looks up a peer by node ID.
func (t *PeerTable) ByNodeID(nodeID string) (model.PeerInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byNodeID[nodeID]
	if !ok {
		return model.PeerInfo{}, false
	}
	return *p, true
}

// ByAddress looks up a peer by address.
func (t *PeerTable) ByAddress(address string) (model.PeerInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byAddress[address]
	if !ok {
		return model.PeerInfo{}, false
	}
	return *p, true
}

// Remove deletes a peer from the table.
func (t *PeerTable) Remove(nodeID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.byNodeID[nodeID]
	if !ok {
		return
	}
	delete(t.byNodeID, nodeID)
	delete(t.byAddress, p.Address)
	t.removeFromShard(nodeID, p.Region)
}

// Len reports the current peer count.
func (t *PeerTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byNodeID)
}

// All returns a snapshot of every tracked peer.
func (t *PeerTable) All() []model.PeerInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]model.PeerInfo, 0, len(t.byNodeID))
	for _, p := range t.byNodeID {
		out = append(out, *p)
	}
	return out
}

// UsesConcurrentMap reports whether the table has crossed this node type's
// switch-over threshold from guarded map to concurrent map.
func (t *PeerTable) UsesConcurrentMap() bool {
	return t.Len() > ConcurrentMapThreshold(t.nodeType)
}

// GenesisSeeds are the five hard-coded bootstrap endpoints all peer
// discovery starts from (§4.4).
var GenesisSeeds = [5]string{
	"genesis-001.qnet.xyz:9944",
	"genesis-002.qnet.xyz:9944",
	"genesis-003.qnet.xyz:9944",
	"genesis-004.qnet.xyz:9944",
	"genesis-005.qnet.xyz:9944",
}

// FanOut returns the adaptive gossip fan-out (4..32) for the current
// active peer count.
func FanOut(activePeers int) int {
	switch {
	case activePeers <= 0:
		return 4
	case activePeers < 8:
		return 4
	case activePeers > 256:
		return 32
	default:
		// linear interpolation between 4 at 8 peers and 32 at 256 peers
		span := 256 - 8
		f := 4 + (activePeers-8)*(32-4)/span
		if f < 4 {
			f = 4
		}
		if f > 32 {
			f = 32
		}
		return f
	}
}

// ReputationGossipIntervalSeconds is the O(log n) reputation-propagation
// cadence.
const ReputationGossipIntervalSeconds = 5 * 60
