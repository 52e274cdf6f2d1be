package core

import (
	"strings"
	"sync"
)

// Scheme identifies how a request path is fetched.
type Scheme string

const (
	SchemeFile  Scheme = "file"
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
)

// SchemeFor classifies a decoded request path per the addressing rules: a
// path beginning "/http:" or "/https:" is a remote URL (leading slash
// stripped); everything else resolves against the local base directory.
func SchemeFor(path string) (Scheme, string) {
	trimmed := strings.TrimPrefix(path, "/")
	switch {
	case strings.HasPrefix(trimmed, "http:"):
		return SchemeHTTP, trimmed
	case strings.HasPrefix(trimmed, "https:"):
		return SchemeHTTPS, trimmed
	}
	return SchemeFile, path
}

// ── Registry ──────────────────────────────────────────────────────────────────

// SourceRegistry is a thread-safe mapping of Scheme to ByteSource.
type SourceRegistry struct {
	mu      sync.RWMutex
	sources map[Scheme]ByteSource
}

// NewSourceRegistry returns an empty SourceRegistry.
func NewSourceRegistry() *SourceRegistry {
	return &SourceRegistry{sources: make(map[Scheme]ByteSource)}
}

func (r *SourceRegistry) Register(s Scheme, src ByteSource) {
	r.mu.Lock()
	r.sources[s] = src
	r.mu.Unlock()
}

func (r *SourceRegistry) For(s Scheme) (ByteSource, bool) {
	r.mu.RLock()
	src, ok := r.sources[s]
	r.mu.RUnlock()
	return src, ok
}
