package protocol

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var codecNames = map[uint64]string{
	cid.Raw:         "raw",
	cid.DagProtobuf: "dag-pb",
	cid.DagCBOR:     "dag-cbor",
	cid.DagJSON:     "dag-json",
	cid.Libp2pKey:   "libp2p-key",
}

// DescribeCID returns a short human-readable description of a CID,
// e.g. "CIDv1 raw sha2-256". The second return value is false when
// the string is not a valid CID.
func DescribeCID(s string) (string, bool) {
	c, err := cid.Decode(s)
	if err != nil {
		return "", false
	}

	pref := c.Prefix()

	codec, ok := codecNames[pref.Codec]
	if !ok {
		codec = fmt.Sprintf("codec-0x%x", pref.Codec)
	}

	hash, ok := multihash.Codes[pref.MhType]
	if !ok {
		hash = fmt.Sprintf("hash-0x%x", pref.MhType)
	}

	return fmt.Sprintf("CIDv%d %s %s", pref.Version, codec, hash), true
}

// RawCID computes the CIDv1 (raw codec, sha2-256) of the data, which is
// what the daemon returns for a single small file added with raw leaves.
func RawCID(data []byte) (cid.Cid, error) {
	pref := cid.Prefix{
		Version:  1,
		Codec:    cid.Raw,
		MhType:   multihash.SHA2_256,
		MhLength: -1,
	}

	return pref.Sum(data)
}
