package cache

// ScopedKeyer wraps a Keyer with a prefix. Servers that share one Redis
// instance between deployments give each its own prefix.
//
//	keyer := cache.NewScopedKeyer(cache.NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ManifestKey generates a prefixed manifest key.
func (k *ScopedKeyer) ManifestKey(requestHash string) string {
	return k.prefix + k.inner.ManifestKey(requestHash)
}

// RenderKey generates a prefixed render key.
func (k *ScopedKeyer) RenderKey(requestHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(requestHash, opts)
}
