// Package pfp implements the Progressive Finalization Protocol (§4.10):
// four-level macroblock-recovery degradation that runs without halting
// microblock production.
package pfp

import "github.com/qnet-xyz/qnet-core/model"

// Level identifies one of the four PFP degradation tiers.
type Level int

const (
	LevelNone Level = iota
	Level1
	Level2
	Level3
	Level4
)

// LevelPolicy describes a level's quorum requirement and per-request
// timeout.
type LevelPolicy struct {
	Level            Level
	QuorumFraction   float64
	QuorumCap        int
	TimeoutSeconds   int
	PreservesSafety  bool
}

// Policies is the table from §4.10.
var Policies = []LevelPolicy{
	{Level: Level1, QuorumFraction: 0.80, QuorumCap: 800, TimeoutSeconds: 30, PreservesSafety: true},
	{Level: Level2, QuorumFraction: 0.60, QuorumCap: 600, TimeoutSeconds: 10, PreservesSafety: true},
	{Level: Level3, QuorumFraction: 0.40, QuorumCap: 400, TimeoutSeconds: 5, PreservesSafety: false},
	{Level: Level4, QuorumFraction: 0.01, QuorumCap: 10, TimeoutSeconds: 2, PreservesSafety: false},
}

// TickIntervalBlocks is the cadence at which PFP re-evaluates (every 30
// blocks past the expected macroblock height).
const TickIntervalBlocks = 30

// LevelFor maps the delay (in blocks) past the macroblock's expected
// height to the active PFP level, per the §4.10 table. Returns LevelNone
// if delta is within the normal consensus window (<30).
func LevelFor(delta uint64) Level {
	switch {
	case delta < 30:
		return LevelNone
	case delta <= 90:
		return Level1
	case delta <= 180:
		return Level2
	case delta <= 270:
		return Level3
	default:
		return Level4
	}
}

// PolicyFor returns the LevelPolicy for a level, or the zero value for
// LevelNone.
func PolicyFor(l Level) (LevelPolicy, bool) {
	for _, p := range Policies {
		if p.Level == l {
			return p, true
		}
	}
	return LevelPolicy{}, false
}

// ShouldTick reports whether delta blocks past the expected height is a
// PFP tick boundary (delta mod 30 == 0, delta > 0).
func ShouldTick(delta uint64) bool {
	return delta > 0 && delta%TickIntervalBlocks == 0
}

// RequiredQuorum returns the minimum validator count needed at level l
// given a qualified pool of poolSize, applying both the fraction and the
// hard cap.
func RequiredQuorum(l Level, poolSize int) int {
	p, ok := PolicyFor(l)
	if !ok {
		return poolSize
	}
	need := int(float64(poolSize) * p.QuorumFraction)
	if need > p.QuorumCap {
		need = p.QuorumCap
	}
	if need < 1 {
		need = 1
	}
	return need
}

// RecoveredMacroblock is the result of a successful PFP recovery,
// including whether it must be flagged for audit (Level 4 last-resort
// recovery).
type RecoveredMacroblock struct {
	Block        model.Macroblock
	Level        Level
	RequiresAudit bool
}

// Recover builds the recovered macroblock once RequiredQuorum responses
// with an identical state root have been collected.
func Recover(k uint64, microblockHashes [][32]byte, stateRoot [32]byte, signatures []model.MacroblockSignature, timestamp, round uint64, level Level) RecoveredMacroblock {
	return RecoveredMacroblock{
		Block: model.Macroblock{
			Height:              k,
			Timestamp:           timestamp,
			StateRoot:           stateRoot,
			MicroblockHashes:    microblockHashes,
			ValidatorSignatures: signatures,
			ConsensusRound:      round,
		},
		Level:         level,
		RequiresAudit: level == Level4,
	}
}
