// Package macroblock implements the commit-reveal macroblock consensus
// protocol (§4.9): a 20-block round (10 commit, 10 reveal) that finalizes
// the prior 90 microblocks, running in parallel with microblock production.
package macroblock

import (
	"sync"

	"github.com/looplab/fsm"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

// CommitPhaseBlocks / RevealPhaseBlocks are the 10+10 block windows.
const (
	CommitPhaseBlocks = 10
	RevealPhaseBlocks = 10
)

// QuorumFraction is the reputation-weighted fraction of reveals required
// to finalize a state root.
const QuorumFraction = 2.0 / 3.0

// RoundStartHeight returns the height at which the commit phase for
// macroblock index k begins: 90*(k-1)+61.
func RoundStartHeight(k uint64) uint64 {
	return model.MicroblocksPerMacroblock*(k-1) + 61
}

// RevealStartHeight returns the height at which the reveal phase begins.
func RevealStartHeight(k uint64) uint64 {
	return RoundStartHeight(k) + CommitPhaseBlocks
}

// TallyHeight returns the height by which tally must complete: 90*k.
func TallyHeight(k uint64) uint64 {
	return model.MicroblocksPerMacroblock * k
}

// States for the looplab/fsm state machine.
const (
	StateIdle      = "idle"
	StateCommit    = "commit"
	StateReveal    = "reveal"
	StateTally     = "tally"
	StateFinalized = "finalized"
	StatePFP       = "pfp_required"
)

// Events drive transitions.
const (
	EventStartCommit = "start_commit"
	EventStartReveal = "start_reveal"
	EventStartTally  = "start_tally"
	EventFinalize    = "finalize"
	EventRequirePFP  = "require_pfp"
	EventReset       = "reset"
)

// NewFSM builds the per-round state machine: Idle -> Commit -> Reveal ->
// Tally -> (Finalized | PFP-Required) -> Idle.
func NewFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: EventStartCommit, Src: []string{StateIdle}, Dst: StateCommit},
			{Name: EventStartReveal, Src: []string{StateCommit}, Dst: StateReveal},
			{Name: EventStartTally, Src: []string{StateReveal}, Dst: StateTally},
			{Name: EventFinalize, Src: []string{StateTally}, Dst: StateFinalized},
			{Name: EventRequirePFP, Src: []string{StateTally}, Dst: StatePFP},
			{Name: EventReset, Src: []string{StateFinalized, StatePFP}, Dst: StateIdle},
		},
		fsm.Callbacks{},
	)
}

// CommitRecord is a validator's commit-phase broadcast.
type CommitRecord struct {
	ValidatorID string
	CommitHash  [32]byte
	Weight      float64
}

// RevealRecord is a validator's reveal-phase broadcast.
type RevealRecord struct {
	ValidatorID string
	StateRoot   [32]byte
	Nonce       uint64
	Weight      float64
}

// CommitHash computes hash(candidate_state_root || nonce).
func CommitHash(stateRoot [32]byte, nonce uint64) [32]byte {
	var nb [8]byte
	for i := 0; i < 8; i++ {
		nb[i] = byte(nonce >> (8 * i))
	}
	return qcrypto.SHA3_256(stateRoot[:], nb[:])
}

// Round accumulates commits and reveals for one macroblock index and
// computes the tally.
type Round struct {
	mu      sync.Mutex
	Index   uint64
	FSM     *fsm.FSM
	Commits map[string]CommitRecord
	Reveals map[string]RevealRecord
}

// NewRound constructs a fresh round for macroblock index k.
func NewRound(k uint64) *Round {
	return &Round{
		Index:   k,
		FSM:     NewFSM(),
		Commits: make(map[string]CommitRecord),
		Reveals: make(map[string]RevealRecord),
	}
}

// AddCommit records a validator's commit.
func (r *Round) AddCommit(c CommitRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Commits[c.ValidatorID] = c
}

// AddReveal records a validator's reveal if it matches that validator's
// earlier commit; mismatched reveals are silently dropped (treated as a
// non-reveal for tally purposes, consistent with the Byzantine model).
func (r *Round) AddReveal(rv RevealRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.Commits[rv.ValidatorID]
	if !ok {
		return false
	}
	if CommitHash(rv.StateRoot, rv.Nonce) != c.CommitHash {
		return false
	}
	r.Reveals[rv.ValidatorID] = rv
	return true
}

// TallyResult is the outcome of a macroblock consensus round.
type TallyResult struct {
	Finalized   bool
	StateRoot   [32]byte
	Revealers   []string
	TotalWeight float64
	PoolWeight  float64
}

// Tally computes the winning state root: the candidate with >= 2/3 of the
// sampled qualified pool's total reputation weight among its revealers. If
// no candidate reaches quorum, Finalized is false and the caller should
// transition to PFP.
func (r *Round) Tally(poolWeight float64) TallyResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	byRoot := make(map[[32]byte][]string)
	weightByRoot := make(map[[32]byte]float64)

	for id, rv := range r.Reveals {
		byRoot[rv.StateRoot] = append(byRoot[rv.StateRoot], id)
		weightByRoot[rv.StateRoot] += rv.Weight
	}

	threshold := poolWeight * QuorumFraction

	var bestRoot [32]byte
	bestWeight := -1.0
	for root, w := range weightByRoot {
		if w > bestWeight {
			bestRoot, bestWeight = root, w
		}
	}

	if bestWeight >= threshold && bestWeight >= 0 {
		return TallyResult{
			Finalized:   true,
			StateRoot:   bestRoot,
			Revealers:   byRoot[bestRoot],
			TotalWeight: bestWeight,
			PoolWeight:  poolWeight,
		}
	}

	return TallyResult{Finalized: false, PoolWeight: poolWeight}
}

// BuildMacroblock assembles the finalized macroblock from a winning tally,
// given the 90 microblock hashes it finalizes and the validator signatures
// of the union of revealing validators.
func BuildMacroblock(k uint64, microblockHashes [][32]byte, stateRoot [32]byte, signatures []model.MacroblockSignature, timestamp, consensusRound uint64) model.Macroblock {
	return model.Macroblock{
		Height:              k,
		Timestamp:           timestamp,
		StateRoot:           stateRoot,
		MicroblockHashes:    microblockHashes,
		ValidatorSignatures: signatures,
		ConsensusRound:      consensusRound,
	}
}
