package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// entryExt marks finished cache entries. Writes in progress use a
// temporary name and are renamed into place, so readers never see half an
// entry.
const entryExt = ".qr"

// FileCache keeps one file per artifact under a directory, fanned out into
// 256 subdirectories by key hash. An entry is a single JSON header line
// followed by the artifact bytes, which are stored as is.
type FileCache struct {
	fs  afero.Fs
	dir string
}

// NewFileCache opens the cache rooted at dir on fs, creating dir if needed.
func NewFileCache(fs afero.Fs, dir string) (*FileCache, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{fs: fs, dir: dir}, nil
}

// entryHeader is the first line of an entry file. Size guards against
// truncated files.
type entryHeader struct {
	Format    string    `json:"format"`
	Version   int       `json:"version"`
	Width     int       `json:"width"`
	Size      int       `json:"size"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get loads the artifact stored under key. Expired and unreadable entries
// are removed and reported as misses.
func (c *FileCache) Get(ctx context.Context, key string) (Artifact, bool, error) {
	path := c.path(key)
	raw, err := afero.ReadFile(c.fs, path)
	if os.IsNotExist(err) {
		return Artifact{}, false, nil
	}
	if err != nil {
		return Artifact{}, false, err
	}

	h, data, ok := decodeEntry(raw)
	if !ok || (!h.ExpiresAt.IsZero() && time.Now().After(h.ExpiresAt)) {
		_ = c.fs.Remove(path)
		return Artifact{}, false, nil
	}
	return Artifact{Format: h.Format, Version: h.Version, Width: h.Width, Data: data}, true, nil
}

// Set writes a under key, replacing any previous entry.
func (c *FileCache) Set(ctx context.Context, key string, a Artifact, ttl time.Duration) error {
	h := entryHeader{Format: a.Format, Version: a.Version, Width: a.Width, Size: len(a.Data)}
	if ttl > 0 {
		h.ExpiresAt = time.Now().Add(ttl)
	}
	head, err := json.Marshal(h)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp, err := afero.TempFile(c.fs, filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(append(head, '\n'))
	if err == nil {
		_, err = tmp.Write(a.Data)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = c.fs.Rename(tmp.Name(), path)
	}
	if err != nil {
		_ = c.fs.Remove(tmp.Name())
	}
	return err
}

func decodeEntry(raw []byte) (entryHeader, []byte, bool) {
	var h entryHeader
	i := bytes.IndexByte(raw, '\n')
	if i < 0 || json.Unmarshal(raw[:i], &h) != nil {
		return h, nil, false
	}
	data := raw[i+1:]
	if len(data) != h.Size {
		return h, nil, false
	}
	return h, data, true
}

// Delete removes the entry for key.
func (c *FileCache) Delete(ctx context.Context, key string) error {
	err := c.fs.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Clear removes every entry and returns how many were deleted. Leftover
// temporary files are removed without being counted.
func (c *FileCache) Clear() (int, error) {
	count := 0
	err := afero.Walk(c.fs, c.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if c.fs.Remove(path) == nil && filepath.Ext(path) == entryExt {
			count++
		}
		return nil
	})
	return count, err
}

// Dir returns the cache directory.
func (c *FileCache) Dir() string { return c.dir }

// Close is a no-op; entries are written through.
func (c *FileCache) Close() error { return nil }

// path maps key to dir/ab/cdef...qr using the key's SHA-256.
func (c *FileCache) path(key string) string {
	sum := Hash([]byte(key))
	return filepath.Join(c.dir, sum[:2], sum[2:]+entryExt)
}

var _ Cache = (*FileCache)(nil)
