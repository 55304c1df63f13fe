// Package reputation implements the split consensus/network scoring and
// progressive jail ladder from §4.5.
package reputation

import (
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/qnet-xyz/qnet-core/internal/telemetry"
	"github.com/qnet-xyz/qnet-core/model"
)

// Event is a consensus- or network-meaningful observation about a peer.
type Event int

const (
	EventValidBlock Event = iota
	EventRotationBonus
	EventInvalidBlock
	EventConsensusParticipation
	EventMaliciousBehavior
	EventTimeoutFailure
	EventConnectionFailure
)

func (e Event) String() string {
	switch e {
	case EventValidBlock:
		return "valid_block"
	case EventRotationBonus:
		return "rotation_bonus"
	case EventInvalidBlock:
		return "invalid_block"
	case EventConsensusParticipation:
		return "consensus_participation"
	case EventMaliciousBehavior:
		return "malicious_behavior"
	case EventTimeoutFailure:
		return "timeout_failure"
	case EventConnectionFailure:
		return "connection_failure"
	default:
		return "unknown"
	}
}

// consensusDelta returns the consensus_score change for events that touch
// consensus_score; ok is false for network-only events.
func consensusDelta(e Event) (float64, bool) {
	switch e {
	case EventValidBlock:
		return 5, true
	case EventRotationBonus:
		return 2, true
	case EventInvalidBlock:
		return -20, true
	case EventConsensusParticipation:
		return 1, true
	case EventMaliciousBehavior:
		return -50, true
	default:
		return 0, false
	}
}

// networkDelta returns the network_score change for events that touch
// network_score; ok is false for consensus-only events.
func networkDelta(e Event) (float64, bool) {
	switch e {
	case EventTimeoutFailure:
		return -2, true
	case EventConnectionFailure:
		return -5, true
	default:
		return 0, false
	}
}

// JailRung is one step of the progressive jail ladder (§4.5).
type JailRung struct {
	Duration time.Duration
	Score    float64
}

// JailLadder is the six-step escalation: 1h/24h/7d/30d/3mo/1y.
var JailLadder = []JailRung{
	{Duration: time.Hour, Score: 30},
	{Duration: 24 * time.Hour, Score: 25},
	{Duration: 7 * 24 * time.Hour, Score: 20},
	{Duration: 30 * 24 * time.Hour, Score: 15},
	{Duration: 90 * 24 * time.Hour, Score: 12},
	{Duration: 365 * 24 * time.Hour, Score: 10},
}

// MaxStrikesBeforeYearJail is the strike count that forces a full year's
// jail regardless of ladder position.
const MaxStrikesBeforeYearJail = 6

// PassiveRecoveryIntervalSeconds / PassiveRecoveryAmount implement the
// "every 4h, +1 if in [10,70)" rule.
const (
	PassiveRecoveryIntervalSeconds = 4 * 3600
	PassiveRecoveryAmount          = 1.0
	PassiveRecoveryFloor           = 10.0
	PassiveRecoveryCeiling         = 70.0
)

// GossipConvergenceIntervalSeconds is the period between reputation-gossip
// rounds.
const GossipConvergenceIntervalSeconds = 5 * 60

// ConvergenceWeight is the local-vs-remote weighting of the gossip
// convergence rule: local = w*local + (1-w)*remote.
const ConvergenceWeight = 0.7

// Engine owns every peer's PeerInfo plus the soft-blacklist TTL cache. Jail
// state has no expiry: JailLadder's durations are not applied, and no
// method releases a jailed peer.
type Engine struct {
	mu    sync.RWMutex
	peers map[string]*model.PeerInfo

	blacklist *ttlcache.Cache[string, model.BlacklistState]
}

// NewEngine constructs an Engine with an empty peer set.
func NewEngine() *Engine {
	bl := ttlcache.New[string, model.BlacklistState]()
	go bl.Start()
	return &Engine{
		peers:     make(map[string]*model.PeerInfo),
		blacklist: bl,
	}
}

// Register adds or replaces a peer's tracked state.
func (e *Engine) Register(p model.PeerInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p.NodeType == model.NodeTypeLight {
		p.ConsensusScore = model.LightNodeConsensusScore
	}
	e.peers[p.NodeID] = &p
}

// Get returns a copy of a peer's current state.
func (e *Engine) Get(nodeID string) (model.PeerInfo, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.peers[nodeID]
	if !ok {
		return model.PeerInfo{}, false
	}
	return *p, true
}

// Apply mutates nodeID's scores for event. Light nodes are a hard no-op:
// their consensus_score remains the fixed 70 regardless of event (§4.5).
func (e *Engine) Apply(nodeID string, event Event) {
	telemetry.ReputationEvents.WithLabelValues(event.String()).Inc()

	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.peers[nodeID]
	if !ok {
		return
	}
	if p.NodeType == model.NodeTypeLight {
		p.ConsensusScore = model.LightNodeConsensusScore
		return
	}

	if d, ok := consensusDelta(event); ok {
		p.ConsensusScore = clamp(p.ConsensusScore + d)
		if event == EventMaliciousBehavior {
			e.jailForMalice(p)
		} else if p.ConsensusScore < model.QualifiedConsensusThreshold {
			e.strikeAndMaybeJail(p)
		}
	}
	if d, ok := networkDelta(event); ok {
		p.NetworkScore = clamp(p.NetworkScore + d)
	}
}

// ApplyDelta applies an arbitrary consensus_score adjustment, used where the
// caller (certificate verification, §4.2) already computed its own penalty
// rather than dispatching through a fixed Event. Light nodes are unaffected,
// matching Apply's behavior.
func (e *Engine) ApplyDelta(nodeID string, delta float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	p, ok := e.peers[nodeID]
	if !ok || p.NodeType == model.NodeTypeLight {
		return
	}
	p.ConsensusScore = clamp(p.ConsensusScore + delta)
	if p.ConsensusScore < model.QualifiedConsensusThreshold {
		e.strikeAndMaybeJail(p)
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// strikeAndMaybeJail increments the strike counter for non-critical
// misbehavior and jails the peer according to the ladder position implied
// by its strike count; six strikes force a one-year jail.
func (e *Engine) strikeAndMaybeJail(p *model.PeerInfo) {
	p.JailState.Strikes++
	idx := p.JailState.Strikes - 1
	if idx >= MaxStrikesBeforeYearJail-1 || idx >= len(JailLadder) {
		idx = len(JailLadder) - 1
	}
	rung := JailLadder[idx]
	p.JailState.Jailed = true
	p.JailState.RungScore = rung.Score
	p.ConsensusScore = rung.Score
}

// jailForMalice applies a permanent ban for critical offenses (database
// substitution, authored fork, deliberate deletion) — no ladder, no return.
func (e *Engine) jailForMalice(p *model.PeerInfo) {
	p.JailState.Jailed = true
	p.JailState.Permanent = true
	p.ConsensusScore = 0
}

// BanPermanently marks a peer permanently banned for a critical offense
// observed out-of-band (divergent state root at equal height, chain fork
// by a consensus-eligible node, deliberate storage deletion).
func (e *Engine) BanPermanently(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.peers[nodeID]; ok {
		e.jailForMalice(p)
	}
}

// SoftBlacklist applies the escalating 15/30/60s transient-failure
// blacklist, escalated by violation count.
func (e *Engine) SoftBlacklist(nodeID string, violationCount int) {
	e.mu.Lock()
	p, ok := e.peers[nodeID]
	if ok {
		p.Blacklist = model.BlacklistSoft
	}
	e.mu.Unlock()

	ttl := softBlacklistTTL(violationCount)
	e.blacklist.Set(nodeID, model.BlacklistSoft, ttl)
}

func softBlacklistTTL(violationCount int) time.Duration {
	switch {
	case violationCount <= 1:
		return 15 * time.Second
	case violationCount == 2:
		return 30 * time.Second
	default:
		return 60 * time.Second
	}
}

// HardBlacklist applies the hard blacklist for a cryptographic failure,
// lifted only when consensus_score returns to the qualified threshold.
func (e *Engine) HardBlacklist(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.peers[nodeID]; ok {
		p.Blacklist = model.BlacklistHard
	}
}

// MaybeLiftHardBlacklist clears a hard blacklist once the peer's
// consensus_score is back at or above the qualified threshold.
func (e *Engine) MaybeLiftHardBlacklist(nodeID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.peers[nodeID]
	if !ok || p.Blacklist != model.BlacklistHard {
		return
	}
	if p.ConsensusScore >= model.QualifiedConsensusThreshold {
		p.Blacklist = model.BlacklistNone
	}
}

// PassiveRecoveryTick applies the +1 recovery to every non-jailed peer
// whose consensus_score sits in [10, 70). Intended to be called every
// PassiveRecoveryIntervalSeconds.
func (e *Engine) PassiveRecoveryTick() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.peers {
		if p.NodeType == model.NodeTypeLight || p.JailState.Jailed {
			continue
		}
		if p.ConsensusScore >= PassiveRecoveryFloor && p.ConsensusScore < PassiveRecoveryCeiling {
			p.ConsensusScore = clamp(p.ConsensusScore + PassiveRecoveryAmount)
		}
	}
}

// MergeGossip applies the weighted-average convergence rule for a remote
// observation of a peer this engine also tracks. Idempotent: applying the
// same (nodeID, remote) pair twice converges rather than drifting further
// after the first application, since local moves toward remote each time
// but the delta shrinks geometrically.
func (e *Engine) MergeGossip(nodeID string, remoteConsensus, remoteNetwork float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.peers[nodeID]
	if !ok || p.NodeType == model.NodeTypeLight {
		return
	}
	p.ConsensusScore = clamp(ConvergenceWeight*p.ConsensusScore + (1-ConvergenceWeight)*remoteConsensus)
	p.NetworkScore = clamp(ConvergenceWeight*p.NetworkScore + (1-ConvergenceWeight)*remoteNetwork)
}

// Qualified reports whether a peer currently sits in the qualified pool:
// non-Light, not jailed, and consensus_score at or above the threshold.
func (e *Engine) Qualified(nodeID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.peers[nodeID]
	if !ok {
		return false
	}
	return p.NodeType != model.NodeTypeLight && p.ConsensusScore >= model.QualifiedConsensusThreshold && !p.JailState.Jailed
}
