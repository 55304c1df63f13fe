package qnetstore

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/zstd"

	"github.com/qnet-xyz/qnet-core/internal/qcrypto"
)

// SnapshotFullIntervalSeconds / SnapshotIncrementalIntervalSeconds are the
// cadences from §4.3: full snapshots every 12h, incremental every 1h.
const (
	SnapshotFullIntervalSeconds        = 12 * 3600
	SnapshotIncrementalIntervalSeconds = 3600
	SnapshotRetainCount                = 5
)

// snapshotZstdLevel approximates a "zstd-15" compression target with the
// closest klauspost/compress/zstd encoder level (the library exposes four
// speed tiers rather than zstd's 1-22 scale).
var snapshotZstdLevel = zstd.SpeedBestCompression

// Manifest describes a snapshot tarball's contents and integrity hash.
type Manifest struct {
	ColumnFamilies []ColumnFamily `json:"column_families"`
	SHA3256        [32]byte       `json:"sha3_256"`
	SizeBytes      int            `json:"size_bytes"`
}

// BuildSnapshot tars every entry of the given column families, compresses
// the tarball with zstd at snapshotZstdLevel, and returns it alongside its
// manifest.
func (s *Store) BuildSnapshot(cfs []ColumnFamily) ([]byte, Manifest, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, cf := range cfs {
		err := s.Iterate(cf, nil, func(key, value []byte) bool {
			name := fmt.Sprintf("%s/%x", cf, key)
			_ = tw.WriteHeader(&tar.Header{Name: name, Size: int64(len(value)), Mode: 0o600})
			_, _ = tw.Write(value)
			return true
		})
		if err != nil {
			return nil, Manifest{}, err
		}
	}
	if err := tw.Close(); err != nil {
		return nil, Manifest{}, err
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(snapshotZstdLevel))
	if err != nil {
		return nil, Manifest{}, err
	}
	compressed := enc.EncodeAll(buf.Bytes(), nil)
	_ = enc.Close()

	manifest := Manifest{
		ColumnFamilies: cfs,
		SHA3256:        qcrypto.SHA3_256(compressed),
		SizeBytes:      len(compressed),
	}
	return compressed, manifest, nil
}

// Archiver uploads snapshot tarballs to an S3-compatible object store. It
// does not delete older objects; SnapshotRetainCount is not applied here.
type Archiver struct {
	uploader *manager.Uploader
	bucket   string
	client   *s3.Client
}

// NewArchiver wraps an s3.Client with the upload-manager conventions the
// teacher's asset/blob services use for large-object archival.
func NewArchiver(client *s3.Client, bucket string) *Archiver {
	return &Archiver{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		client:   client,
	}
}

// Upload stores a compressed snapshot under key in the archiver's bucket,
// returning any upload error.
func (a *Archiver) Upload(ctx context.Context, key string, data []byte) error {
	_, err := a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	return err
}
