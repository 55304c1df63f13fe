package certs

import (
	"testing"

	"github.com/stretchr/testify/require"

	qnetclock "github.com/qnet-xyz/qnet-core/internal/clock"
	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
	"github.com/qnet-xyz/qnet-core/model"
)

func testKeys(t *testing.T, nodeID string) NodeKeys {
	t.Helper()
	ed, err := qcrypto.Ed25519KeyGen()
	require.NoError(t, err)
	dil, err := qcrypto.DilithiumKeyGen()
	require.NoError(t, err)
	return NodeKeys{NodeID: nodeID, Ed25519: ed, Dilithium: dil}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	res := Verify(cert, "node-a", 1000, "")
	require.True(t, res.Valid)
	require.Equal(t, VerifyOK, res.Failure)
}

func TestVerifyRejectsSpoofedSender(t *testing.T) {
	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	res := Verify(cert, "node-b", 1000, "")
	require.False(t, res.Valid)
	require.Equal(t, VerifySpoof, res.Failure)
}

func TestVerifyRejectsExpired(t *testing.T) {
	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	res := Verify(cert, "node-a", cert.ValidUntil+1, "")
	require.False(t, res.Valid)
	require.Equal(t, VerifyExpired, res.Failure)
}

func TestVerifyRejectsProducerMismatch(t *testing.T) {
	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	res := Verify(cert, "node-a", 1000, "node-b")
	require.False(t, res.Valid)
	require.Equal(t, VerifyProducerMismatch, res.Failure)
}

func TestNeedsRotation(t *testing.T) {
	keys := testKeys(t, "node-a")
	cert := Issue(keys, 0)
	require.False(t, NeedsRotation(cert, 0))

	lifetime := cert.ValidUntil - cert.ValidFrom
	almostExpired := uint64(float64(lifetime) * model.CertificateRotationFraction)
	require.True(t, NeedsRotation(cert, almostExpired))
}

func TestServicePromoteGetPurge(t *testing.T) {
	clock := qnetclock.NewMock()
	svc, err := NewService(clock)
	require.NoError(t, err)

	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	svc.AdmitPending(cert)
	svc.PromoteVerified(cert)

	got, ok := svc.Get(cert.Serial)
	require.True(t, ok)
	require.Equal(t, cert, got)
	require.Equal(t, 1, svc.Len())

	purged := svc.Purge(1000 + model.CertificatePurgeAfterSeconds + 1)
	require.Equal(t, 1, purged)
	require.Equal(t, 0, svc.Len())
}

func TestShouldBroadcastDedup(t *testing.T) {
	clock := qnetclock.NewMock()
	svc, err := NewService(clock)
	require.NoError(t, err)

	keys := testKeys(t, "node-a")
	cert := Issue(keys, 1000)

	require.True(t, svc.ShouldBroadcast(cert))
	require.False(t, svc.ShouldBroadcast(cert), "same serial should not re-trigger broadcast")

	next := Issue(keys, 2000)
	require.True(t, svc.ShouldBroadcast(next))
}

func TestRebroadcastInterval(t *testing.T) {
	require.Equal(t, uint64(10), RebroadcastInterval(0))
	require.Equal(t, uint64(30), RebroadcastInterval(200))
	require.Equal(t, uint64(120), RebroadcastInterval(301))
}

func TestTrackedBroadcastTimeout(t *testing.T) {
	require.Equal(t, uint64(3), TrackedBroadcastTimeout(5))
	require.Equal(t, uint64(5), TrackedBroadcastTimeout(50))
	require.Equal(t, uint64(10), TrackedBroadcastTimeout(500))
}
