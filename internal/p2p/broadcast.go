package p2p

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/qnet-xyz/qnet-core/internal/wire"
)

// BroadcastOutcome is returned by TrackedBroadcast.
type BroadcastOutcome int

const (
	BroadcastSuccess BroadcastOutcome = iota
	BroadcastPartialAcknowledgment
)

// TrackedBroadcast sends env to every peer address concurrently and waits
// (until ctx's deadline) for at least ByzantineThreshold(len(peers)) of
// them to ack. On timeout it returns BroadcastPartialAcknowledgment, which
// the caller may downgrade to the untracked Gossip primitive (§4.4, §5).
func TrackedBroadcast(ctx context.Context, client *Client, peers []string, env wire.Envelope) BroadcastOutcome {
	need := ByzantineThreshold(len(peers))
	if need == 0 {
		return BroadcastSuccess
	}

	var acked int64
	g, gctx := errgroup.WithContext(ctx)

	for _, addr := range peers {
		addr := addr
		g.Go(func() error {
			if err := client.Send(gctx, addr, env); err == nil {
				atomic.AddInt64(&acked, 1)
			}
			return nil
		})
	}

	_ = g.Wait()

	if int(atomic.LoadInt64(&acked)) >= need {
		return BroadcastSuccess
	}
	return BroadcastPartialAcknowledgment
}

// Gossip is the untracked fire-and-forget broadcast primitive: send to a
// fan-out sample of peers without waiting for acknowledgment.
func Gossip(ctx context.Context, client *Client, peers []string, env wire.Envelope) {
	var wg sync.WaitGroup
	for _, addr := range peers {
		addr := addr
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = client.Send(ctx, addr, env)
		}()
	}
	wg.Wait()
}

// SelectFanOut returns the first n peer addresses from pool (the pool is
// expected to already be shuffled/ordered by the caller's sampling policy).
func SelectFanOut(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	return pool[:n]
}
