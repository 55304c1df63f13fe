package qnetstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	qnetErrors "github.com/qnet-xyz/qnet-core/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "qnet"), false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetDelete(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(CFCertificates, []byte("k1"), []byte("v1")))

	v, err := s.Get(CFCertificates, []byte("k1"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	ok, err := s.Has(CFCertificates, []byte("k1"))
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, s.Delete(CFCertificates, []byte("k1")))
	ok, err = s.Has(CFCertificates, []byte("k1"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Get(CFTransactions, []byte("missing"))
	require.Error(t, err)

	var qerr *qnetErrors.Error
	require.ErrorAs(t, err, &qerr)
	require.Equal(t, qnetErrors.ERR_NOT_FOUND, qerr.Code)
}

func TestColumnFamiliesAreIsolated(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(CFMicroblocks, []byte("1"), []byte("block-a")))
	require.NoError(t, s.Put(CFMacroblocks, []byte("1"), []byte("block-b")))

	v1, err := s.Get(CFMicroblocks, []byte("1"))
	require.NoError(t, err)
	v2, err := s.Get(CFMacroblocks, []byte("1"))
	require.NoError(t, err)

	require.Equal(t, []byte("block-a"), v1)
	require.Equal(t, []byte("block-b"), v2)
}

func TestHeightKeyRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.PutHeight(CFMicroblocks, 42, []byte("block-42")))
	v, err := s.GetHeight(CFMicroblocks, 42)
	require.NoError(t, err)
	require.Equal(t, []byte("block-42"), v)

	require.NoError(t, s.DeleteHeight(CFMicroblocks, 42))
	_, err = s.GetHeight(CFMicroblocks, 42)
	require.Error(t, err)
}

func TestIterateOrdersAscendingAndRespectsStop(t *testing.T) {
	s := openTestStore(t)

	for h := uint64(1); h <= 5; h++ {
		require.NoError(t, s.PutHeight(CFMicroblocks, h, []byte{byte(h)}))
	}

	var seen []uint64
	err := s.Iterate(CFMicroblocks, nil, func(key, _ []byte) bool {
		seen = append(seen, uint64(key[7]))
		return len(seen) < 3
	})
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3}, seen)
}

func TestPruneMicroblocksBelow(t *testing.T) {
	s := openTestStore(t)

	for h := uint64(1); h <= 5; h++ {
		require.NoError(t, s.PutHeight(CFMicroblocks, h, []byte{byte(h)}))
	}

	pruned := s.PruneMicroblocksBelow(3)
	require.Equal(t, 2, pruned)

	_, err := s.GetHeight(CFMicroblocks, 1)
	require.Error(t, err)
	_, err = s.GetHeight(CFMicroblocks, 3)
	require.NoError(t, err)
}

func TestBuildSnapshotProducesManifest(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(CFCertificates, []byte("a"), []byte("value-a")))

	data, manifest, err := s.BuildSnapshot([]ColumnFamily{CFCertificates})
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, len(data), manifest.SizeBytes)
	require.Equal(t, []ColumnFamily{CFCertificates}, manifest.ColumnFamilies)
}
