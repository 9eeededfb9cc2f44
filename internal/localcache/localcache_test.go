package localcache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	want := bytes.Repeat([]byte("segment-bytes"), 1000)
	if err := c.Put("seg-1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Get("seg-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestGet_NotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Get("missing"); err != ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_ToleratesLostParityShards(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	want := bytes.Repeat([]byte("resilient"), 500)
	if err := c.Put("seg-2", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Destroy up to parityShards worth of shards; the segment must still
	// reconstruct.
	for _, i := range []int{dataShards, dataShards + 1} {
		if err := os.Remove(filepath.Join(c.segmentDir("seg-2"), shardName(i))); err != nil {
			t.Fatalf("remove shard %d: %v", i, err)
		}
	}

	got, err := c.Get("seg-2")
	if err != nil {
		t.Fatalf("Get after shard loss: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("reconstructed data does not match original")
	}
}

func TestGet_TooManyMissingShardsFails(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Put("seg-3", []byte("data")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	for i := 0; i < totalShards-1; i++ {
		os.Remove(filepath.Join(c.segmentDir("seg-3"), shardName(i)))
	}

	if _, err := c.Get("seg-3"); err == nil {
		t.Fatal("expected error with only one shard remaining")
	}
}

func TestEvict(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if err := c.Put("seg-4", []byte("data")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Evict("seg-4"); err != nil {
		t.Fatalf("Evict: %v", err)
	}
	if _, err := c.Get("seg-4"); err != ErrNotFound {
		t.Fatalf("err after evict = %v, want ErrNotFound", err)
	}

	// Evicting a never-existing segment is not an error.
	if err := c.Evict("never-existed"); err != nil {
		t.Fatalf("Evict missing: %v", err)
	}
}
