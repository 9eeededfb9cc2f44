// Package digest computes a content identifier for a resolved segment,
// purely for log correlation and metrics labels. It never gates delivery
// or verifies authenticity: the core's Non-goals explicitly exclude
// content-authenticity enforcement beyond transport-level peer auth, so a
// digest is computed only after a segment has already been resolved.
package digest

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/zeebo/blake3"
)

// blake3Code is the multicodec code for blake3-256, used by multihash to
// tag the digest below.
const blake3Code = 0x1e

func init() {
	multihash.Register(blake3Code, func() multihash.Hasher { return blake3.New() })
}

// Of returns a CIDv1 (raw codec, blake3-256 multihash) for data. Suitable
// only as a short, stable label in logs ("resolved segment bafy...") — not
// as a basis for accept/reject decisions.
func Of(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, blake3Code, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// ShortString returns a short, human-scannable form of a CID for log lines,
// e.g. "bafkrei...a3f9" instead of the full (much longer) string form.
func ShortString(c cid.Cid) string {
	s := c.String()
	if len(s) <= 16 {
		return s
	}
	return s[:8] + "…" + s[len(s)-4:]
}
