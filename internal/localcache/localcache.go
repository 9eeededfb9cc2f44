// Package localcache is a reference, non-core implementation of the
// on-node segment cache the façade itself never provides — an operator
// embedding pkg/swarmnet is expected to supply their own. This package
// stores segments compressed and erasure-coded against local disk
// corruption; no command in cmd/ uses it.
package localcache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/reedsolomon"
)

// ErrNotFound is returned when a segment id has no cached shards.
var ErrNotFound = errors.New("localcache: segment not found")

// ErrCorrupt is returned when too many shards are missing or damaged to
// reconstruct the original segment.
var ErrCorrupt = errors.New("localcache: segment unrecoverable")

// dataShards/parityShards bound how many disk-level shard losses a
// cached segment tolerates (2 of 6 shards may be lost without data loss).
const (
	dataShards   = 4
	parityShards = 2
	totalShards  = dataShards + parityShards
)

// Cache stores zstd-compressed, Reed-Solomon-sharded segment payloads
// under dir, one subdirectory per segment id.
type Cache struct {
	dir     string
	enc     *zstd.Encoder
	dec     *zstd.Decoder
	shardEC reedsolomon.Encoder
}

// New opens (creating if necessary) a cache rooted at dir.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("localcache: mkdir %s: %w", dir, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("localcache: zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("localcache: zstd decoder: %w", err)
	}
	ec, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, fmt.Errorf("localcache: reed-solomon: %w", err)
	}
	return &Cache{dir: dir, enc: enc, dec: dec, shardEC: ec}, nil
}

// Close releases the encoder/decoder's resources.
func (c *Cache) Close() {
	c.enc.Close()
	c.dec.Close()
}

func (c *Cache) segmentDir(segmentID string) string {
	return filepath.Join(c.dir, segmentID)
}

// Put compresses data and stores it as totalShards shard files, any
// parityShards of which may later be missing or corrupted without
// losing the segment.
func (c *Cache) Put(segmentID string, data []byte) error {
	compressed := c.enc.EncodeAll(data, nil)

	shards, err := c.shardEC.Split(padToShardMultiple(compressed))
	if err != nil {
		return fmt.Errorf("localcache: split: %w", err)
	}
	if err := c.shardEC.Encode(shards); err != nil {
		return fmt.Errorf("localcache: encode parity: %w", err)
	}

	dir := c.segmentDir(segmentID)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("localcache: mkdir %s: %w", dir, err)
	}

	meta := fmt.Sprintf("%d\n", len(compressed))
	if err := os.WriteFile(filepath.Join(dir, "meta"), []byte(meta), 0600); err != nil {
		return fmt.Errorf("localcache: write meta: %w", err)
	}
	for i, shard := range shards {
		path := filepath.Join(dir, shardName(i))
		if err := os.WriteFile(path, shard, 0600); err != nil {
			return fmt.Errorf("localcache: write shard %d: %w", i, err)
		}
	}
	return nil
}

// Get reconstructs and decompresses the segment stored under segmentID,
// tolerating up to parityShards missing or unreadable shard files.
func (c *Cache) Get(segmentID string) ([]byte, error) {
	dir := c.segmentDir(segmentID)
	metaBytes, err := os.ReadFile(filepath.Join(dir, "meta"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("localcache: read meta: %w", err)
	}
	var compressedLen int
	if _, err := fmt.Sscanf(string(metaBytes), "%d\n", &compressedLen); err != nil {
		return nil, fmt.Errorf("%w: meta: %v", ErrCorrupt, err)
	}

	shards := make([][]byte, totalShards)
	present := 0
	for i := range shards {
		data, err := os.ReadFile(filepath.Join(dir, shardName(i)))
		if err != nil {
			continue
		}
		shards[i] = data
		present++
	}
	if present < dataShards {
		return nil, fmt.Errorf("%w: only %d of %d shards present", ErrCorrupt, present, dataShards)
	}

	ok, err := c.shardEC.Verify(shards)
	if err != nil || !ok {
		if err := c.shardEC.Reconstruct(shards); err != nil {
			return nil, fmt.Errorf("%w: reconstruct: %v", ErrCorrupt, err)
		}
	}

	var buf bytes.Buffer
	if err := c.shardEC.Join(&buf, shards, compressedLen); err != nil {
		return nil, fmt.Errorf("%w: join: %v", ErrCorrupt, err)
	}

	data, err := c.dec.DecodeAll(buf.Bytes(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	return data, nil
}

// Evict removes every shard stored for segmentID.
func (c *Cache) Evict(segmentID string) error {
	err := os.RemoveAll(c.segmentDir(segmentID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func shardName(i int) string {
	return fmt.Sprintf("shard-%02d", i)
}

// padToShardMultiple pads data so its length divides evenly by
// dataShards, as reedsolomon.Split requires.
func padToShardMultiple(data []byte) []byte {
	rem := len(data) % dataShards
	if rem == 0 {
		return data
	}
	return append(data, make([]byte, dataShards-rem)...)
}
