package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// artifactDigest hashes a content hash together with the output options.
// Fields are NUL-separated, so distinct option sets never share a preimage.
func artifactDigest(contentHash string, opts ArtifactKeyOpts) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%d\x00%d", contentHash, opts.Format, opts.Level, opts.Scale, opts.Margin)
	return hex.EncodeToString(h.Sum(nil))
}
