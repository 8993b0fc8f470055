package cache

// ScopedKeyer prefixes every key of an inner Keyer, so front ends that share
// one backend never read each other's entries. The HTTP server scopes its
// in-memory cache with "serve:".
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer returns a keyer that prepends prefix to inner's keys.
// A nil inner means the DefaultKeyer.
func NewScopedKeyer(inner Keyer, prefix string) *ScopedKeyer {
	if inner == nil {
		inner = DefaultKeyer{}
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// Prefix returns the scope prefix.
func (k *ScopedKeyer) Prefix() string { return k.prefix }

// ArtifactKey returns the inner key with the scope prefix.
func (k *ScopedKeyer) ArtifactKey(contentHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(contentHash, opts)
}
