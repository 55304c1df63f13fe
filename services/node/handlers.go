package node

import (
	"context"
	"fmt"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/certs"
	"github.com/qnet-xyz/qnet-core/internal/macroblock"
	"github.com/qnet-xyz/qnet-core/internal/microblock"
	"github.com/qnet-xyz/qnet-core/internal/p2p"
	"github.com/qnet-xyz/qnet-core/internal/producer"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/internal/qnetstore"
	"github.com/qnet-xyz/qnet-core/internal/reputation"
	"github.com/qnet-xyz/qnet-core/internal/rewards"
	"github.com/qnet-xyz/qnet-core/internal/wire"
	"github.com/qnet-xyz/qnet-core/model"
)

// handleMicroblock applies the non-producer validation chain (§4.8) to a
// gossiped microblock, buffering it if it arrives out of order (§4.4).
func (n *Node) handleMicroblock(ctx context.Context, env wire.Envelope) error {
	var msg wire.MicroblockMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}
	block := msg.Block
	now := uint64(qnetclock.UnixNano(n.clock.Now()) / 1e9)

	n.mu.RLock()
	localHeight := n.localHeight
	localPrev := n.localPrevHash
	localPoH := n.lastPoH
	n.mu.RUnlock()

	if block.Height != localHeight+1 {
		if block.Height > localHeight+1 {
			n.buffer.Insert(block, now)
		}
		return nil
	}

	if err := microblock.Validate(block, localHeight, localPrev, localPoH, n.certs.Get); err != nil {
		n.reputation.Apply(block.ProducerID, reputation.EventInvalidBlock)
		return err
	}

	n.applyMicroblock(block)
	n.reputation.Apply(block.ProducerID, reputation.EventValidBlock)

	for {
		drained := n.buffer.DrainContiguous(n.LocalHeight())
		if len(drained) == 0 {
			break
		}
		for _, next := range drained {
			n.mu.RLock()
			h, ph, poh := n.localHeight, n.localPrevHash, n.lastPoH
			n.mu.RUnlock()
			if err := microblock.Validate(next, h, ph, poh, n.certs.Get); err == nil {
				n.applyMicroblock(next)
			}
		}
	}

	return nil
}

// applyMicroblock advances local chain state after a block passes
// validation, whether produced locally or received over the network, and
// appends it (and its PoH state) to storage (§4.8, §4.3).
func (n *Node) applyMicroblock(b model.Microblock) {
	poHState := model.PoHState{
		Height:       b.Height,
		PoHHash:      b.PoHHash,
		PoHCount:     b.PoHCount,
		PreviousHash: b.PreviousHash,
	}

	if raw, err := wire.Marshal(wire.MicroblockMessage{Block: b}); err == nil {
		_ = n.store.PutHeight(qnetstore.CFMicroblocks, b.Height, raw)
	}
	if raw, err := wire.Marshal(poHState); err == nil {
		_ = n.store.PutHeight(qnetstore.CFPoHState, b.Height, raw)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.localHeight = b.Height
	n.localPrevHash = microblock.Hash(b)
	n.lastPoH = poHState
}

// verifyAndAdmitCertificate runs the §4.2 six-layer check against a
// gossiped certificate. Promotion only follows success; a failing
// certificate is dropped from the shadow cache and its issuer takes the
// reputation penalty Verify computed for that failure mode.
func (n *Node) verifyAndAdmitCertificate(cert model.HybridCertificate, senderID string) {
	now := uint64(qnetclock.UnixNano(n.clock.Now()) / 1e9)
	result := certs.Verify(cert, senderID, now, "")
	if result.Valid {
		n.certs.PromoteVerified(cert)
		return
	}

	n.certs.RejectPending(cert.Serial)
	if result.ReputationDelta != 0 {
		n.reputation.ApplyDelta(cert.IssuerNodeID, result.ReputationDelta)
	}
	n.logger.Warnf("[node] certificate %s from %s rejected: %s", cert.Serial, senderID, result.Failure)
}

// handleCertificateAnnounce admits a gossiped certificate to the shadow
// cache and runs §4.2 verification against it before promoting it.
func (n *Node) handleCertificateAnnounce(ctx context.Context, env wire.Envelope) error {
	var msg wire.CertificateAnnounceMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}
	n.certs.AdmitPending(msg.Certificate)
	n.verifyAndAdmitCertificate(msg.Certificate, env.SenderID)
	return nil
}

// handlePeerDiscovery registers a newly learned peer and verifies its
// advertised certificate before admitting it to the verified cache (§4.2,
// §4.4).
func (n *Node) handlePeerDiscovery(ctx context.Context, env wire.Envelope) error {
	var msg wire.PeerDiscoveryMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}
	n.peerTable.Upsert(msg.Peer)
	n.reputation.Register(msg.Peer)
	n.certs.AdmitPending(msg.Certificate)
	n.verifyAndAdmitCertificate(msg.Certificate, env.SenderID)
	return nil
}

// handleEntropyQuery answers a peer's §4.7 entropy-consensus sample query
// with this node's own view of E(h) for the requested rotation boundary.
func (n *Node) handleEntropyQuery(ctx context.Context, env wire.Envelope) error {
	var msg wire.EntropyQueryMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	entropyHeight := producer.EntropyHeightFor(msg.Height)
	state, err := n.store.GetHeight(qnetstore.CFPoHState, entropyHeight)
	if err != nil || len(state) == 0 {
		return nil
	}
	var st model.PoHState
	if err := wire.Unmarshal(state, &st); err != nil {
		return nil
	}

	payload, err := wire.Marshal(wire.EntropyVoteMessage{
		Height:  msg.Height,
		Entropy: producer.Entropy(st),
		VoterID: n.keys.NodeID,
	})
	if err != nil {
		return err
	}
	voteEnv := wire.Envelope{MessageType: wire.MessageEntropyVote, SenderID: n.keys.NodeID, Payload: payload}
	signed, err := p2p.Sign(voteEnv, func(m []byte) []byte { return qcrypto.Ed25519Sign(n.keys.Ed25519.Private, m) })
	if err != nil {
		return err
	}

	go func() {
		_ = n.httpClient.Send(context.Background(), msg.QuerierAddress, signed)
	}()
	return nil
}

// handleEntropyVote records a peer's reply to this node's own in-flight
// entropy-consensus query (§4.7); a vote for a round that has already
// closed, or was never opened locally, is silently dropped.
func (n *Node) handleEntropyVote(ctx context.Context, env wire.Envelope) error {
	var msg wire.EntropyVoteMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	n.entropyMu.Lock()
	round := n.entropyRounds[msg.Height]
	n.entropyMu.Unlock()
	if round == nil {
		return nil
	}
	round.add(producer.VoteObservation{PeerID: msg.VoterID, Entropy: msg.Entropy})
	return nil
}

// handleCommit records a validator's commit-phase broadcast (§4.9) against
// the currently active macroblock round; a commit for any other round is
// dropped.
func (n *Node) handleCommit(ctx context.Context, env wire.Envelope) error {
	var msg wire.CommitMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	round := n.currentRoundRef()
	if round == nil || round.Index != msg.Round {
		return nil
	}

	weight := model.QualifiedConsensusThreshold
	if p, ok := n.reputation.Get(msg.ValidatorID); ok {
		weight = p.ConsensusScore
	}
	round.AddCommit(macroblock.CommitRecord{ValidatorID: msg.ValidatorID, CommitHash: msg.CommitHash, Weight: weight})
	return nil
}

// handleReveal records a validator's reveal-phase broadcast (§4.9),
// crediting consensus-participation reputation once it is confirmed to
// match that validator's earlier commit.
func (n *Node) handleReveal(ctx context.Context, env wire.Envelope) error {
	var msg wire.RevealMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	round := n.currentRoundRef()
	if round == nil || round.Index != msg.Round {
		return nil
	}

	weight := model.QualifiedConsensusThreshold
	if p, ok := n.reputation.Get(msg.ValidatorID); ok {
		weight = p.ConsensusScore
	}
	if round.AddReveal(macroblock.RevealRecord{ValidatorID: msg.ValidatorID, StateRoot: msg.StateRoot, Nonce: msg.Nonce, Weight: weight}) {
		n.reputation.Apply(msg.ValidatorID, reputation.EventConsensusParticipation)
	}
	return nil
}

// handleBlockRequest answers a BlockRequest with a BlocksBatch covering as
// much of [FromHeight, ToHeight] as is locally available, capped at
// wire.BlocksBatchMaxLen — the PFP/entropy-divergence network recovery
// path (§4.7, §4.10).
func (n *Node) handleBlockRequest(ctx context.Context, env wire.Envelope) error {
	var msg wire.BlockRequestMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}
	if msg.ToHeight < msg.FromHeight {
		return nil
	}

	to := msg.ToHeight
	if to-msg.FromHeight+1 > wire.BlocksBatchMaxLen {
		to = msg.FromHeight + wire.BlocksBatchMaxLen - 1
	}

	blocks := make([]model.Microblock, 0, to-msg.FromHeight+1)
	for h := msg.FromHeight; h <= to; h++ {
		raw, err := n.store.GetHeight(qnetstore.CFMicroblocks, h)
		if err != nil || len(raw) == 0 {
			break
		}
		var bm wire.MicroblockMessage
		if err := wire.Unmarshal(raw, &bm); err != nil {
			break
		}
		blocks = append(blocks, bm.Block)
	}
	if len(blocks) == 0 {
		return nil
	}

	peer, ok := n.peerTable.ByNodeID(env.SenderID)
	if !ok {
		return nil
	}

	payload, err := wire.Marshal(wire.BlocksBatchMessage{Blocks: blocks})
	if err != nil {
		return err
	}
	batchEnv := wire.Envelope{MessageType: wire.MessageBlocksBatch, SenderID: n.keys.NodeID, Payload: payload}
	signed, err := p2p.Sign(batchEnv, func(m []byte) []byte { return qcrypto.Ed25519Sign(n.keys.Ed25519.Private, m) })
	if err != nil {
		return err
	}

	go func() {
		_ = n.httpClient.Send(context.Background(), peer.Address, signed)
	}()
	return nil
}

// handleBlocksBatch applies a BlocksBatch received in response to a
// BlockRequest — the full state-sync path taken after two consecutive
// entropy-consensus divergences (§4.7, §8) — validating and applying each
// block in height order and stopping at the first one that fails.
func (n *Node) handleBlocksBatch(ctx context.Context, env wire.Envelope) error {
	var msg wire.BlocksBatchMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	for _, block := range msg.Blocks {
		n.mu.RLock()
		h, ph, poh := n.localHeight, n.localPrevHash, n.lastPoH
		n.mu.RUnlock()

		if block.Height != h+1 {
			continue
		}
		if err := microblock.Validate(block, h, ph, poh, n.certs.Get); err != nil {
			n.reputation.Apply(block.ProducerID, reputation.EventInvalidBlock)
			continue
		}
		n.applyMicroblock(block)
		n.reputation.Apply(block.ProducerID, reputation.EventValidBlock)
	}
	return nil
}

// creditIfNewlyEligible increments nodeID's per-window success count and,
// the first time rewards.Eligible reports that nodeType has crossed its
// window threshold, credits one Pool 1 share to the reward ledger (§4.11).
// The per-node latch prevents re-crediting on every subsequent attestation
// or heartbeat within the same window.
func (n *Node) creditIfNewlyEligible(nodeID string, nodeType model.NodeType, wallet string) {
	n.rewardMu.Lock()
	n.successCounts[nodeID]++
	count := n.successCounts[nodeID]
	newlyEligible := !n.rewardCredited[nodeID] && rewards.Eligible(nodeType, count)
	if newlyEligible {
		n.rewardCredited[nodeID] = true
	}
	n.rewardMu.Unlock()

	if !newlyEligible {
		return
	}

	eligibleCount := n.peerTable.Len() + 1
	amount := rewards.Pool1PerNode(model.DefaultRewardCurve, 0, eligibleCount)
	now := uint64(qnetclock.UnixNano(n.clock.Now()) / 1e9)
	n.rewardMu.Lock()
	n.ledger.Credit(nodeID, wallet, 1, amount, now)
	n.rewardMu.Unlock()
}

// handleAttestation ingests a Light node's dual-signed liveness proof
// (§4.11).
func (n *Node) handleAttestation(ctx context.Context, env wire.Envelope) error {
	var msg wire.AttestationMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	key := []byte(fmt.Sprintf("%s:%d", msg.Attestation.LightNodeID, msg.Attestation.Slot))
	if raw, err := wire.Marshal(msg); err == nil {
		_ = n.store.Put(qnetstore.CFAttestations, key, raw)
	}

	n.creditIfNewlyEligible(msg.Attestation.LightNodeID, model.NodeTypeLight, "")
	return nil
}

// handleHeartbeat ingests a Full/Super node's self-issued liveness signal
// (§4.11).
func (n *Node) handleHeartbeat(ctx context.Context, env wire.Envelope) error {
	var msg wire.HeartbeatMessage
	if err := wire.Unmarshal(env.Payload, &msg); err != nil {
		return err
	}

	key := []byte(fmt.Sprintf("%s:%d", msg.Heartbeat.NodeID, msg.Heartbeat.Index))
	if raw, err := wire.Marshal(msg); err == nil {
		_ = n.store.Put(qnetstore.CFHeartbeats, key, raw)
	}

	n.creditIfNewlyEligible(msg.Heartbeat.NodeID, msg.Heartbeat.NodeType, "")
	return nil
}
