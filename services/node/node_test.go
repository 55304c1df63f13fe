package node

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/config"
	"github.com/qnet-xyz/qnet-core/model"
	"github.com/qnet-xyz/qnet-core/util"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestNewWiresEveryComponent(t *testing.T) {
	cfg := config.NodeConfig{
		BootstrapID: "001",
		NodeType:    model.NodeTypeFull,
		Region:      "us-east",
		P2PPort:     freePort(t),
	}

	n, err := New(cfg, util.NewZeroLogger("test"), clock.New(), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, n.store)
	require.NotNil(t, n.certs)
	require.NotNil(t, n.reputation)
	require.NotNil(t, n.peerTable)
	require.NotNil(t, n.buffer)
	require.NotNil(t, n.transport)
	require.NotNil(t, n.poh)
	require.NotNil(t, n.mempool)
	require.NotNil(t, n.ledger)
	require.NotEmpty(t, n.keys.NodeID)
	require.Equal(t, uint64(0), n.LocalHeight())

	require.NoError(t, n.Teardown(context.Background()))
}

func TestInitStartsProducerLoopForFullNodesOnly(t *testing.T) {
	cfg := config.NodeConfig{
		BootstrapID: "002",
		NodeType:    model.NodeTypeLight,
		Region:      "us-east",
		P2PPort:     freePort(t),
	}

	n, err := New(cfg, util.NewZeroLogger("test"), clock.New(), t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, n.Init(ctx))

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.NoError(t, n.Teardown(context.Background()))
}

func TestTickSlotProducesWhenSoleElectedProducer(t *testing.T) {
	cfg := config.NodeConfig{
		BootstrapID: "003",
		NodeType:    model.NodeTypeFull,
		Region:      "us-east",
		P2PPort:     freePort(t),
	}

	n, err := New(cfg, util.NewZeroLogger("test"), clock.New(), t.TempDir())
	require.NoError(t, err)

	n.tickSlot()
	require.Equal(t, uint64(1), n.LocalHeight(), "a lone Full node is its own sampled pool and must self-elect")

	n.tickSlot()
	require.Equal(t, uint64(2), n.LocalHeight())
}

func TestTickSlotSkipsProductionWhenNotElected(t *testing.T) {
	cfg := config.NodeConfig{
		BootstrapID: "004",
		NodeType:    model.NodeTypeFull,
		Region:      "us-east",
		P2PPort:     freePort(t),
	}

	n, err := New(cfg, util.NewZeroLogger("test"), clock.New(), t.TempDir())
	require.NoError(t, err)

	n.reputation.Register(model.PeerInfo{
		NodeID:         n.keys.NodeID,
		NodeType:       model.NodeTypeFull,
		ConsensusScore: model.QualifiedConsensusThreshold - 1,
	})

	n.tickSlot()
	require.Equal(t, uint64(0), n.LocalHeight(), "a below-threshold node is not in the qualified pool and cannot be elected")
}
