package p2p

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/qnet-xyz/qnet-core/internal/wire"
)

func startEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := NewServer()
	srv.Handle(wire.MessageHeartbeat, func(ctx context.Context, env wire.Envelope) error {
		return nil
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func TestTrackedBroadcastSucceedsAboveThreshold(t *testing.T) {
	ts1 := startEchoServer(t)
	ts2 := startEchoServer(t)
	ts3 := startEchoServer(t)

	client := NewClient()
	peers := []string{ts1.Listener.Addr().String(), ts2.Listener.Addr().String(), ts3.Listener.Addr().String()}
	env := wire.Envelope{MessageType: wire.MessageHeartbeat, SenderID: "node-a"}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	outcome := TrackedBroadcast(ctx, client, peers, env)
	require.Equal(t, BroadcastSuccess, outcome)
}

func TestTrackedBroadcastPartialWhenPeersUnreachable(t *testing.T) {
	ts1 := startEchoServer(t)

	client := NewClient()
	peers := []string{ts1.Listener.Addr().String(), "127.0.0.1:1", "127.0.0.1:2"}
	env := wire.Envelope{MessageType: wire.MessageHeartbeat, SenderID: "node-a"}

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	outcome := TrackedBroadcast(ctx, client, peers, env)
	require.Equal(t, BroadcastPartialAcknowledgment, outcome)
}

func TestTrackedBroadcastEmptyPeerListSucceedsTrivially(t *testing.T) {
	client := NewClient()
	outcome := TrackedBroadcast(context.Background(), client, nil, wire.Envelope{})
	require.Equal(t, BroadcastSuccess, outcome)
}

func TestSelectFanOutCapsAtPoolSize(t *testing.T) {
	pool := []string{"a", "b", "c"}
	require.Equal(t, []string{"a", "b"}, SelectFanOut(pool, 2))
	require.Equal(t, []string{"a", "b", "c"}, SelectFanOut(pool, 10))
}

func TestGossipSendsToAllPeersBestEffort(t *testing.T) {
	ts1 := startEchoServer(t)
	client := NewClient()
	peers := []string{ts1.Listener.Addr().String(), "127.0.0.1:1"}
	Gossip(context.Background(), client, peers, wire.Envelope{MessageType: wire.MessageHeartbeat, SenderID: "node-a"})
}
