// Package node wires every consensus-core component into one process:
// crypto suite, certificate service, storage, P2P overlay, reputation
// engine, PoH ticker, producer selection, microblock pipeline, macroblock
// consensus, PFP, reward ledger, and mempool. Lifecycle is explicit: Init
// runs after config and key load, Teardown runs on SIGTERM (§5, §9).
package node

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	utils "github.com/ordishs/go-utils"
	"go.opentelemetry.io/otel"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
	"github.com/qnet-xyz/qnet-core/internal/certs"
	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/config"
	"github.com/qnet-xyz/qnet-core/internal/macroblock"
	"github.com/qnet-xyz/qnet-core/internal/mempool"
	"github.com/qnet-xyz/qnet-core/internal/microblock"
	"github.com/qnet-xyz/qnet-core/internal/p2p"
	"github.com/qnet-xyz/qnet-core/internal/pfp"
	"github.com/qnet-xyz/qnet-core/internal/poh"
	"github.com/qnet-xyz/qnet-core/internal/producer"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/internal/qnetstore"
	"github.com/qnet-xyz/qnet-core/internal/reputation"
	"github.com/qnet-xyz/qnet-core/internal/rewards"
	"github.com/qnet-xyz/qnet-core/internal/telemetry"
	"github.com/qnet-xyz/qnet-core/internal/wire"
	"github.com/qnet-xyz/qnet-core/model"
	"github.com/qnet-xyz/qnet-core/util"
)

var tracer = otel.Tracer("qnet-core/services/node")

// Node owns every wired component for one process.
type Node struct {
	cfg    config.NodeConfig
	logger utils.Logger
	clock  qnetclock.Clock

	store      *qnetstore.Store
	certs      *certs.Service
	reputation *reputation.Engine
	peerTable  *p2p.PeerTable
	buffer     *p2p.Buffer
	transport  *p2p.Server
	httpClient *p2p.Client
	poh        *poh.Ticker
	mempool    *mempool.Mempool
	ledger     *rewards.Ledger

	keys    certs.NodeKeys
	ownCert model.HybridCertificate

	localHeight   uint64
	localPrevHash [32]byte
	lastPoH       model.PoHState
	mu            sync.RWMutex

	roundMu      sync.Mutex
	currentRound *macroblock.Round

	entropyMu        sync.Mutex
	entropyRounds    map[uint64]*entropyRound
	divergenceStreak int

	rewardMu       sync.Mutex
	successCounts  map[string]int
	rewardCredited map[string]bool

	p2pSrv *http.Server

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// entropyRound collects EntropyVoteMessage replies for one rotation
// boundary's §4.7 adaptive sampling round.
type entropyRound struct {
	mu    sync.Mutex
	votes []producer.VoteObservation
}

func (r *entropyRound) add(v producer.VoteObservation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.votes = append(r.votes, v)
}

func (r *entropyRound) snapshot() []producer.VoteObservation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]producer.VoteObservation(nil), r.votes...)
}

// New constructs a Node without starting any background loops.
func New(cfg config.NodeConfig, logger utils.Logger, clock qnetclock.Clock, storePath string) (*Node, error) {
	store, err := qnetstore.Open(storePath, cfg.NodeType == model.NodeTypeLight)
	if err != nil {
		return nil, err
	}

	certSvc, err := certs.NewService(clock)
	if err != nil {
		return nil, err
	}

	ed, err := qcrypto.Ed25519KeyGen()
	if err != nil {
		return nil, qnetErrors.New(qnetErrors.ERR_BAD_KEY, "ed25519 keygen failed", err)
	}
	dil, err := qcrypto.DilithiumKeyGen()
	if err != nil {
		return nil, qnetErrors.New(qnetErrors.ERR_BAD_KEY, "dilithium keygen failed", err)
	}

	nodeID := cfg.BootstrapID
	if nodeID == "" {
		nodeID = cfg.Region + "-" + uuid.NewString()
	}

	if zl, ok := logger.(*util.ZLoggerWrapper); ok {
		logger = zl.WithNode(nodeID, cfg.Region)
	}

	n := &Node{
		cfg:        cfg,
		logger:     logger,
		clock:      clock,
		store:      store,
		certs:      certSvc,
		reputation: reputation.NewEngine(),
		peerTable:  p2p.NewPeerTable(cfg.NodeType),
		buffer:     p2p.NewBuffer(clock),
		transport:  p2p.NewServer(),
		httpClient: p2p.NewClient(),
		poh:        poh.NewTicker(clock, model.PoHState{}),
		mempool:    mempool.New(),
		ledger:     rewards.NewLedger(),
		keys: certs.NodeKeys{
			NodeID:    nodeID,
			Ed25519:   ed,
			Dilithium: dil,
		},
		entropyRounds:  make(map[uint64]*entropyRound),
		successCounts:  make(map[string]int),
		rewardCredited: make(map[string]bool),
		stopCh:         make(chan struct{}),
	}

	n.wireHandlers()
	return n, nil
}

// wireHandlers registers every wire.MessageType handler on the HTTP
// transport (§4.4, §6).
func (n *Node) wireHandlers() {
	n.transport.Handle(wire.MessageMicroblock, n.handleMicroblock)
	n.transport.Handle(wire.MessageCertificateAnnounce, n.handleCertificateAnnounce)
	n.transport.Handle(wire.MessagePeerDiscovery, n.handlePeerDiscovery)
	n.transport.Handle(wire.MessageEntropyQuery, n.handleEntropyQuery)
	n.transport.Handle(wire.MessageEntropyVote, n.handleEntropyVote)
	n.transport.Handle(wire.MessageCommit, n.handleCommit)
	n.transport.Handle(wire.MessageReveal, n.handleReveal)
	n.transport.Handle(wire.MessageBlockRequest, n.handleBlockRequest)
	n.transport.Handle(wire.MessageBlocksBatch, n.handleBlocksBatch)
	n.transport.Handle(wire.MessageAttestation, n.handleAttestation)
	n.transport.Handle(wire.MessageHeartbeat, n.handleHeartbeat)
}

// currentRoundRef returns the active macroblock round, if any. Safe to call
// from the producer loop or from an HTTP handler goroutine concurrently.
func (n *Node) currentRoundRef() *macroblock.Round {
	n.roundMu.Lock()
	defer n.roundMu.Unlock()
	return n.currentRound
}

func (n *Node) setCurrentRound(r *macroblock.Round) {
	n.roundMu.Lock()
	n.currentRound = r
	n.roundMu.Unlock()
}

// selfAddress is this node's own P2P transport address, used as the reply
// address for round-trip queries such as entropy consensus sampling (§4.7).
func (n *Node) selfAddress() string {
	return fmt.Sprintf("127.0.0.1:%d", n.cfg.P2PPort)
}

// Init starts the PoH ticker, the producer loop (if this node is
// Full/Super), and the periodic reputation/certificate maintenance loops.
// Called once, after config and key load (§5, §9).
func (n *Node) Init(ctx context.Context) error {
	n.logger.Infof("[node] init: %s", n.cfg.Describe())

	cert := certs.Issue(n.keys, qnetclock.UnixNano(n.clock.Now())/1e9)
	n.certs.PromoteVerified(cert)
	n.mu.Lock()
	n.ownCert = cert
	n.mu.Unlock()

	n.p2pSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", n.cfg.P2PPort),
		Handler: n.transport.Router(),
	}
	go func() {
		if err := n.p2pSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.logger.Errorf("[node] p2p transport stopped: %v", err)
		}
	}()

	if n.cfg.NodeType != model.NodeTypeLight {
		n.wg.Add(1)
		go n.producerLoop(ctx)
	}

	n.wg.Add(1)
	go n.maintenanceLoop(ctx)

	return nil
}

// Teardown flushes pending writes, stops the producer loop, and closes
// storage. Invoked on SIGTERM (§5, §9).
func (n *Node) Teardown(ctx context.Context) error {
	n.logger.Infof("[node] teardown")
	close(n.stopCh)
	n.wg.Wait()
	if n.p2pSrv != nil {
		_ = n.p2pSrv.Shutdown(ctx)
	}
	return n.store.Close()
}

// producerLoop drives the 1-second microblock cadence on a dedicated
// goroutine, preserving slot timing independent of other suspension
// points (§5: "Producer loop runs on a dedicated real-time thread").
func (n *Node) producerLoop(ctx context.Context) {
	defer n.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, span := tracer.Start(ctx, "producer.slot")
			n.tickSlot()
			span.End()
		}
	}
}

// tickSlot advances PoH by one slot and, if this node is the elected
// producer for the current rotation, builds and gossips the next
// microblock. Consensus-critical transitions happen synchronously here,
// after the suspension points (network I/O, storage writes) complete
// (§5).
func (n *Node) tickSlot() {
	n.mu.RLock()
	height := n.localHeight + 1
	prevHash := n.localPrevHash
	priorPoH := n.lastPoH
	n.mu.RUnlock()

	if producer.RotationBoundary(height) {
		n.runEntropyConsensus(height)
	}

	if macroblock.RoundStartHeight(model.MacroblockIndex(height)) == height {
		round := macroblock.NewRound(model.MacroblockIndex(height))
		_ = round.FSM.Event(context.Background(), macroblock.EventStartCommit)
		n.setCurrentRound(round)
	}

	if round := n.currentRoundRef(); round != nil {
		expected := macroblock.TallyHeight(round.Index)
		if height > expected {
			telemetry.PFPLevel.Set(float64(pfp.LevelFor(height - expected)))
		} else {
			telemetry.PFPLevel.Set(0)
		}
		if height == macroblock.RevealStartHeight(round.Index) {
			_ = round.FSM.Event(context.Background(), macroblock.EventStartReveal)
		}
		if height == expected {
			n.finalizeMacroblockRound(round)
		}
	}

	if n.electedProducer(height) == n.keys.NodeID {
		n.produceMicroblock(height, prevHash, priorPoH)
	}
}

// electedProducer computes the deterministic producer for height's rotation
// from the locally-known peer table and the finality-window entropy (§4.7).
// Self is always a candidate so a solitary Genesis node can still produce.
func (n *Node) electedProducer(height uint64) string {
	entropyHeight := producer.EntropyHeightFor(producer.RotationLength * producer.SlotFor(height))
	entropyState, err := n.store.GetHeight(qnetstore.CFPoHState, entropyHeight)
	var entropy [32]byte
	if err == nil && len(entropyState) > 0 {
		var st model.PoHState
		if uerr := wire.Unmarshal(entropyState, &st); uerr == nil {
			entropy = producer.Entropy(st)
		}
	}

	peers := n.peerTable.All()
	self := model.PeerInfo{NodeID: n.keys.NodeID, NodeType: n.cfg.NodeType, ConsensusScore: model.QualifiedConsensusThreshold}
	if p, ok := n.reputation.Get(n.keys.NodeID); ok {
		self = p
	}
	peers = append(peers, self)

	validatedCounts := make(map[string]int, len(peers))
	for _, p := range peers {
		validatedCounts[p.NodeID] = producer.MinFullNodeValidatedPeers
	}

	pool := producer.QualifiedPool(peers, validatedCounts)
	sampled := producer.SamplePool(pool, entropy)
	return producer.ForSlot(sampled, entropy, producer.SlotFor(height))
}

// produceMicroblock builds, signs, stores, and gossips the next microblock
// for the elected producer (§4.8 producer path): drain the mempool, snap
// PoH, sign with the compact hybrid signature, apply locally, then gossip.
func (n *Node) produceMicroblock(height uint64, prevHash [32]byte, priorPoH model.PoHState) {
	now := qnetclock.UnixNano(n.clock.Now()) / 1e9

	txs := n.mempool.ComposeBlock(model.MicroblockMaxSlots, now)

	poHState := priorPoH
	if n.poh != nil {
		poHState = n.poh.Slot(height, prevHash)
	}

	n.mu.RLock()
	serial := n.ownCert.Serial
	n.mu.RUnlock()

	block := microblock.Build(microblock.BuildInput{
		Height:          height,
		Timestamp:       now,
		PreviousHash:    prevHash,
		Transactions:    txs,
		ProducerID:      n.keys.NodeID,
		CertSerial:      serial,
		Ed25519Priv:     n.keys.Ed25519.Private,
		DilithiumSignFn: func(msg []byte) []byte { return qcrypto.DilithiumSign(n.keys.Dilithium.Private, msg) },
		PoHState:        poHState,
	})

	n.applyMicroblock(block)
	n.reputation.Apply(n.keys.NodeID, reputation.EventValidBlock)

	payload, err := wire.Marshal(wire.MicroblockMessage{Block: block})
	if err != nil {
		n.logger.Errorf("[node] failed to encode produced microblock %d: %v", height, err)
		return
	}
	env := wire.Envelope{MessageType: wire.MessageMicroblock, SenderID: n.keys.NodeID, Payload: payload}
	signed, err := p2p.Sign(env, func(msg []byte) []byte { return qcrypto.Ed25519Sign(n.keys.Ed25519.Private, msg) })
	if err != nil {
		n.logger.Errorf("[node] failed to sign produced microblock envelope %d: %v", height, err)
		return
	}

	addrs := make([]string, 0, n.peerTable.Len())
	for _, p := range n.peerTable.All() {
		addrs = append(addrs, p.Address)
	}
	fanout := p2p.SelectFanOut(addrs, p2p.FanOut(len(addrs)))
	p2p.Gossip(context.Background(), n.httpClient, fanout, signed)
}

// runEntropyConsensus performs the §4.7 adaptive sampling round at a
// rotation boundary: query a deterministically-sampled subset of the
// qualified pool for their view of E(h), wait the pool-size-adaptive
// timeout for EntropyVote replies, and tally. Two consecutive rounds where
// the sampled pool agrees on a value that differs from the local one
// trigger a full state sync request (literal scenario 6); a single
// divergence or a round that fails to reach agreement just retains the
// local value.
func (n *Node) runEntropyConsensus(height uint64) {
	entropyHeight := producer.EntropyHeightFor(height)
	state, err := n.store.GetHeight(qnetstore.CFPoHState, entropyHeight)
	if err != nil || len(state) == 0 {
		return
	}
	var st model.PoHState
	if err := wire.Unmarshal(state, &st); err != nil {
		return
	}
	local := producer.Entropy(st)

	peers := n.peerTable.All()
	if len(peers) == 0 {
		n.divergenceStreak = 0
		return
	}

	validatedCounts := make(map[string]int, len(peers))
	addrByID := make(map[string]string, len(peers))
	for _, p := range peers {
		validatedCounts[p.NodeID] = producer.MinFullNodeValidatedPeers
		addrByID[p.NodeID] = p.Address
	}
	pool := producer.QualifiedPool(peers, validatedCounts)
	if len(pool) == 0 {
		return
	}

	sampleSize := producer.SampleSize(len(pool))
	sampled := producer.SamplePool(pool, local)
	if sampleSize < len(sampled) {
		sampled = sampled[:sampleSize]
	}

	addrs := make([]string, 0, len(sampled))
	for _, c := range sampled {
		if a := addrByID[c.NodeID]; a != "" {
			addrs = append(addrs, a)
		}
	}
	if len(addrs) == 0 {
		return
	}

	round := &entropyRound{}
	n.entropyMu.Lock()
	n.entropyRounds[height] = round
	n.entropyMu.Unlock()
	defer func() {
		n.entropyMu.Lock()
		delete(n.entropyRounds, height)
		n.entropyMu.Unlock()
	}()

	payload, err := wire.Marshal(wire.EntropyQueryMessage{Height: height, QuerierAddress: n.selfAddress()})
	if err != nil {
		n.logger.Errorf("[node] failed to encode entropy query at height %d: %v", height, err)
		return
	}
	env := wire.Envelope{MessageType: wire.MessageEntropyQuery, SenderID: n.keys.NodeID, Payload: payload}
	signed, err := p2p.Sign(env, func(msg []byte) []byte { return qcrypto.Ed25519Sign(n.keys.Ed25519.Private, msg) })
	if err != nil {
		n.logger.Errorf("[node] failed to sign entropy query at height %d: %v", height, err)
		return
	}

	timeout := time.Duration(producer.TimeoutSeconds(len(pool), producer.RegionGenesisWAN) * float64(time.Second))
	waitCtx, cancel := context.WithTimeout(context.Background(), timeout)
	p2p.Gossip(waitCtx, n.httpClient, addrs, signed)
	<-waitCtx.Done()
	cancel()

	tally := producer.Tally(round.snapshot(), sampleSize)
	if !tally.Agreed || tally.Entropy == local {
		n.divergenceStreak = 0
		return
	}

	n.divergenceStreak++
	n.logger.Warnf("[node] entropy divergence at height %d (streak=%d/%d)", height, n.divergenceStreak, producer.ConsecutiveDivergenceBeforeSync)
	if n.divergenceStreak >= producer.ConsecutiveDivergenceBeforeSync {
		n.requestFullSync(addrs)
		n.divergenceStreak = 0
	}
}

// requestFullSync asks the first of addrs for the contiguous microblock
// range starting just past the local chain tip, the recovery path taken
// after two consecutive entropy-consensus divergences (§4.7, §8).
func (n *Node) requestFullSync(addrs []string) {
	if len(addrs) == 0 {
		return
	}

	n.mu.RLock()
	from := n.localHeight + 1
	n.mu.RUnlock()
	to := from + wire.BlocksBatchMaxLen - 1

	payload, err := wire.Marshal(wire.BlockRequestMessage{FromHeight: from, ToHeight: to})
	if err != nil {
		return
	}
	env := wire.Envelope{MessageType: wire.MessageBlockRequest, SenderID: n.keys.NodeID, Payload: payload}
	signed, err := p2p.Sign(env, func(msg []byte) []byte { return qcrypto.Ed25519Sign(n.keys.Ed25519.Private, msg) })
	if err != nil {
		return
	}

	n.logger.Warnf("[node] requesting full state sync [%d,%d] after consecutive entropy divergence", from, to)
	p2p.Gossip(context.Background(), n.httpClient, addrs[:1], signed)
}

// finalizeMacroblockRound tallies the current commit-reveal round at its
// expected tally height (§4.9), persisting the finalized macroblock on
// quorum or deferring to PFP otherwise, then resets the round to Idle.
func (n *Node) finalizeMacroblockRound(round *macroblock.Round) {
	if round == nil {
		return
	}

	peers := n.peerTable.All()
	validatedCounts := make(map[string]int, len(peers))
	for _, p := range peers {
		validatedCounts[p.NodeID] = producer.MinFullNodeValidatedPeers
	}
	pool := producer.QualifiedPool(peers, validatedCounts)

	var poolWeight float64
	for _, c := range pool {
		poolWeight += c.Weight
	}
	if poolWeight == 0 {
		poolWeight = model.QualifiedConsensusThreshold
	}

	_ = round.FSM.Event(context.Background(), macroblock.EventStartTally)
	tally := round.Tally(poolWeight)

	if !tally.Finalized {
		_ = round.FSM.Event(context.Background(), macroblock.EventRequirePFP)
		n.logger.Warnf("[node] macroblock round %d missed quorum, deferring to PFP", round.Index)
		n.setCurrentRound(nil)
		return
	}

	hashes := n.microblockHashesFor(round.Index)
	now := uint64(qnetclock.UnixNano(n.clock.Now()) / 1e9)
	block := macroblock.BuildMacroblock(round.Index, hashes, tally.StateRoot, nil, now, round.Index)

	if raw, err := wire.Marshal(wire.MacroblockMessage{Block: block}); err == nil {
		_ = n.store.PutHeight(qnetstore.CFMacroblocks, block.Height, raw)
	}
	for _, id := range tally.Revealers {
		n.reputation.Apply(id, reputation.EventRotationBonus)
	}

	_ = round.FSM.Event(context.Background(), macroblock.EventFinalize)
	n.setCurrentRound(nil)
}

// microblockHashesFor recomputes the identity hash of every microblock in
// macroblock index k's 90-block range from storage.
func (n *Node) microblockHashesFor(k uint64) [][32]byte {
	from := model.MicroblocksPerMacroblock*(k-1) + 1
	to := model.MicroblocksPerMacroblock * k
	hashes := make([][32]byte, 0, model.MicroblocksPerMacroblock)
	for h := from; h <= to; h++ {
		raw, err := n.store.GetHeight(qnetstore.CFMicroblocks, h)
		if err != nil || len(raw) == 0 {
			continue
		}
		var msg wire.MicroblockMessage
		if err := wire.Unmarshal(raw, &msg); err != nil {
			continue
		}
		hashes = append(hashes, microblock.Hash(msg.Block))
	}
	return hashes
}

// maintenanceLoop runs the periodic, low-frequency maintenance tasks:
// certificate cache purge and passive reputation recovery.
func (n *Node) maintenanceLoop(ctx context.Context) {
	defer n.wg.Done()

	certTicker := time.NewTicker(30 * time.Second)
	defer certTicker.Stop()
	recoveryTicker := time.NewTicker(reputation.PassiveRecoveryIntervalSeconds * time.Second)
	defer recoveryTicker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ctx.Done():
			return
		case <-certTicker.C:
			now := qnetclock.UnixNano(n.clock.Now()) / 1e9
			n.certs.Purge(now)
		case <-recoveryTicker.C:
			n.reputation.PassiveRecoveryTick()
		}
	}
}

// LocalHeight returns the highest applied microblock height.
func (n *Node) LocalHeight() uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.localHeight
}
