package flipgraph

import (
	"encoding/binary"
	"math"
	"slices"

	"github.com/matzehuels/triangs/pkg/pointconfig"
	"github.com/matzehuels/triangs/pkg/symmetry"
	"github.com/matzehuels/triangs/pkg/triang"
)

// record is a stored frontier node with its flip table.
type record struct {
	node  *triang.Node
	table *triang.FlipTable
	fp    fingerprint
}

// layer maps node keys to records.
type layer map[string]*record

// ordered returns the records by increasing node ID.
func (l layer) ordered() []*record {
	out := make([]*record, 0, len(l))
	for _, r := range l {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b *record) int { return a.node.ID - b.node.ID })
	return out
}

// stabilizerCache holds, per stored node key, the indices of the
// non-identity group elements fixing that node.
type stabilizerCache map[string][]int

// fingerprint is a GKZ vector: entry i is the total volume of the simplices
// containing point i.
type fingerprint []int64

func (f fingerprint) key() string {
	buf := make([]byte, 0, 2*len(f))
	for _, v := range f {
		buf = binary.AppendVarint(buf, v)
	}
	return string(buf)
}

// mappedKey returns the key of the fingerprint of g(n) given that f is the
// fingerprint of n.
func (f fingerprint) mappedKey(g symmetry.Symmetry) string {
	out := make(fingerprint, len(f))
	for i, v := range f {
		out[g[i]] = v
	}
	return out.key()
}

// fingerprinter computes GKZ vectors with a per-simplex volume memo. It is
// owned by the controller goroutine.
type fingerprinter struct {
	pc       *pointconfig.PointConfiguration
	volumes  map[triang.Simplex]int64
	overflow bool
}

func newFingerprinter(pc *pointconfig.PointConfiguration) *fingerprinter {
	return &fingerprinter{pc: pc, volumes: make(map[triang.Simplex]int64)}
}

// compute returns the fingerprint of n, or false once any volume or sum has
// left the int64 range. After the first overflow it always returns false.
func (fp *fingerprinter) compute(n *triang.Node) (fingerprint, bool) {
	if fp.overflow {
		return nil, false
	}
	out := make(fingerprint, n.No())
	var pts []int
	for _, s := range n.Simplices() {
		vol, ok := fp.volumes[s]
		if !ok {
			v := fp.pc.Volume(s.Points())
			if !v.IsInt64() {
				fp.overflow = true
				return nil, false
			}
			vol = v.Int64()
			fp.volumes[s] = vol
		}
		pts = s.AppendPoints(pts[:0])
		for _, p := range pts {
			if out[p] > math.MaxInt64-vol {
				fp.overflow = true
				return nil, false
			}
			out[p] += vol
		}
	}
	return out, true
}

// fingerprintSet is a multiset of fingerprint keys of stored nodes.
type fingerprintSet struct {
	counts map[string]int
	retain bool // never forget a fingerprint
}

func newFingerprintSet(retain bool) *fingerprintSet {
	return &fingerprintSet{counts: make(map[string]int), retain: retain}
}

func (s *fingerprintSet) add(k string) { s.counts[k]++ }

func (s *fingerprintSet) remove(k string) {
	if s.retain {
		return
	}
	if s.counts[k] <= 1 {
		delete(s.counts, k)
		return
	}
	s.counts[k]--
}

func (s *fingerprintSet) has(k string) bool {
	_, ok := s.counts[k]
	return ok
}

func (s *fingerprintSet) len() int { return len(s.counts) }
