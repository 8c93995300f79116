package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sugawarayuuta/sonnet"
)

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// hashKey returns "prefix:" followed by the hash of the JSON encoding of
// parts.
func hashKey(prefix string, parts ...any) string {
	data, _ := sonnet.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Keyer builds cache keys.
type Keyer interface {
	// ChirotopeKey names the chirotope of the configuration whose
	// canonical text is points, in the given rank.
	ChirotopeKey(points string, rank int) string
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) ChirotopeKey(points string, rank int) string {
	return hashKey("chirotope", strings.TrimSpace(points), rank)
}

// ScopedKeyer prefixes every key of an inner keyer, so that several
// projects can share one backend.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner, or the default keyer when inner is nil.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) ChirotopeKey(points string, rank int) string {
	return k.prefix + k.inner.ChirotopeKey(points, rank)
}
