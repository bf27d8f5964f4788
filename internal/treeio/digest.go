package treeio

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Digest returns a CIDv1 (raw multicodec + sha2-256 multihash) over data.
// Tree transfers advertise the digest of the packed archive so the
// receiving side can verify the bytes it got.
func Digest(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
