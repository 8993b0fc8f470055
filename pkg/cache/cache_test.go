package cache

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

// pngArtifact is a small artifact with bytes that do not survive text
// encodings unchanged.
var pngArtifact = Artifact{Format: "png", Version: 2, Width: 25, Data: []byte("\x89PNG\r\n\x1a\n\x00\xff")}

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	if err := c.Set(ctx, "key", pngArtifact, time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	a, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || a.Data != nil {
		t.Errorf("Get() = %+v, hit %v; NullCache should always miss", a, hit)
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	c, err := NewFileCache(fs, "/cache")
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	defer c.Close()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Errorf("Get(missing) = hit %v, err %v; want miss", hit, err)
	}

	if err := c.Set(ctx, "png", pngArtifact, TTLArtifact); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	got, hit, err := c.Get(ctx, "png")
	if err != nil || !hit {
		t.Fatalf("Get(png) = hit %v, err %v; want hit", hit, err)
	}
	if got.Format != "png" || got.Version != 2 || got.Width != 25 || !bytes.Equal(got.Data, pngArtifact.Data) {
		t.Errorf("Get(png) = %+v, want %+v", got, pngArtifact)
	}

	if err := c.Delete(ctx, "png"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "png"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "png"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCacheStoresDataOnce(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	c, _ := NewFileCache(fs, "/cache")

	data := make([]byte, 64<<10)
	for i := range data {
		data[i] = byte(i * 7)
	}
	if err := c.Set(ctx, "big", Artifact{Format: "raw", Version: 40, Width: 177, Data: data}, 0); err != nil {
		t.Fatal(err)
	}

	raw, err := afero.ReadFile(fs, c.path("big"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(raw, data) {
		t.Error("entry should end with the artifact bytes verbatim")
	}
	if overhead := len(raw) - len(data); overhead > 256 {
		t.Errorf("entry is %d bytes larger than the artifact, want a short header", overhead)
	}
}

func TestFileCacheOverwrite(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	c, _ := NewFileCache(fs, "/cache")

	_ = c.Set(ctx, "k", Artifact{Format: "raw", Data: []byte("first")}, 0)
	_ = c.Set(ctx, "k", Artifact{Format: "raw", Data: []byte("second")}, 0)
	got, hit, _ := c.Get(ctx, "k")
	if !hit || string(got.Data) != "second" {
		t.Errorf("Get(k) = %q, hit %v; want second", got.Data, hit)
	}

	files := 0
	_ = afero.Walk(fs, "/cache", func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files++
		}
		return nil
	})
	if files != 1 {
		t.Errorf("%d files in cache dir, want 1 with no temporary leftovers", files)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(afero.NewMemMapFs(), "/cache")

	if err := c.Set(ctx, "k", pngArtifact, time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no header line", "{not json"},
		{"bad header", "{not json\nPNG"},
		{"truncated data", `{"format":"png","version":1,"width":21,"size":10}` + "\nPNG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			fs := afero.NewMemMapFs()
			c, _ := NewFileCache(fs, "/cache")

			path := c.path("k")
			_ = fs.MkdirAll(filepath.Dir(path), 0755)
			if err := afero.WriteFile(fs, path, []byte(tt.raw), 0644); err != nil {
				t.Fatal(err)
			}
			if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
				t.Errorf("corrupt entry: hit %v, err %v; want silent miss", hit, err)
			}
			if ok, _ := afero.Exists(fs, path); ok {
				t.Error("corrupt entry should be removed")
			}
		})
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(afero.NewMemMapFs(), "/cache")

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(ctx, k, Artifact{Format: "raw", Data: []byte(k)}, 0); err != nil {
			t.Fatal(err)
		}
	}
	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	if _, hit, _ := c.Get(ctx, "a"); hit {
		t.Error("Get after Clear should miss")
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2)

	src := []byte("one")
	_ = c.Set(ctx, "1", Artifact{Format: "raw", Version: 1, Width: 21, Data: src}, 0)
	src[0] = 'X'
	got, hit, _ := c.Get(ctx, "1")
	if !hit || string(got.Data) != "one" || got.Version != 1 || got.Width != 21 {
		t.Errorf("Get(1) = %+v, %v; want stored copy of %q", got, hit, "one")
	}

	_ = c.Set(ctx, "2", Artifact{Data: []byte("two")}, 0)
	_ = c.Set(ctx, "3", Artifact{Data: []byte("three")}, 0)
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	if _, hit, _ := c.Get(ctx, "1"); hit {
		t.Error("oldest entry should be evicted")
	}

	_ = c.Delete(ctx, "2")
	if _, hit, _ := c.Get(ctx, "2"); hit {
		t.Error("Get after Delete should miss")
	}

	_ = c.Set(ctx, "ttl", Artifact{Data: []byte("x")}, time.Nanosecond)
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "ttl"); hit {
		t.Error("expired entry should miss")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	h2 := Hash([]byte("hello"))
	if h1 != h2 {
		t.Error("Hash should be deterministic")
	}

	h3 := Hash([]byte("world"))
	if h1 == h3 {
		t.Error("Different inputs should produce different hashes")
	}

	// SHA-256 produces 64 hex chars
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	opts := ArtifactKeyOpts{Format: "png", Level: "medium", Scale: 3, Margin: 4}
	ak1 := k.ArtifactKey("hash123", opts)
	if !strings.HasPrefix(ak1, "artifact:") {
		t.Errorf("ArtifactKey unexpected: %s", ak1)
	}
	if ak1 != k.ArtifactKey("hash123", opts) {
		t.Error("ArtifactKey should be deterministic")
	}

	for _, changed := range []ArtifactKeyOpts{
		{Format: "raw", Level: "medium", Scale: 3, Margin: 4},
		{Format: "png", Level: "high", Scale: 3, Margin: 4},
		{Format: "png", Level: "medium", Scale: 4, Margin: 4},
		{Format: "png", Level: "medium", Scale: 3, Margin: 0},
	} {
		if k.ArtifactKey("hash123", changed) == ak1 {
			t.Errorf("ArtifactKeyOpts %+v should produce a different key", changed)
		}
	}
	if k.ArtifactKey("hash456", opts) == ak1 {
		t.Error("Different content hashes should produce different keys")
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "serve:")
	if scoped.Prefix() != "serve:" {
		t.Errorf("Prefix() = %q, want serve:", scoped.Prefix())
	}
	key := scoped.ArtifactKey("h", ArtifactKeyOpts{})
	if !strings.HasPrefix(key, "serve:artifact:") {
		t.Errorf("ScopedKeyer ArtifactKey should be prefixed: %s", key)
	}

	// Should use DefaultKeyer when inner is nil
	if got := NewScopedKeyer(nil, "serve:").ArtifactKey("h", ArtifactKeyOpts{}); got != key {
		t.Errorf("nil inner key = %s, want %s", got, key)
	}
}
