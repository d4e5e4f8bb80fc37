package swarm

import (
	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// toCid derives a CIDv1 identity-multihash from a raw DHT key, letting the
// provider-record machinery (which is keyed by CID, not arbitrary bytes)
// address the same keyspace the PutValue/GetValue record API uses.
func toCid(key []byte) cid.Cid {
	hash, err := mh.Sum(key, mh.IDENTITY, -1)
	if err != nil {
		// IDENTITY hashing never fails for any input length mh.Sum accepts.
		panic(err)
	}
	return cid.NewCidV1(cid.Raw, hash)
}
