package swarm

import (
	"encoding/base64"
	"encoding/hex"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/sha3"

	"kiss/internal/kisserrors"
)

// GenerateIdentity produces a fresh ed25519 keypair, retrying until the hex
// encoding of the SHA3-256 hash of the raw public key starts with
// leadingZeros zero characters, the Go counterpart of
// original_source/src/p2p/peer_id.rs's generate_with_leading_zeros. A
// leadingZeros of 0 returns on the first attempt.
func GenerateIdentity(leadingZeros int) (crypto.PrivKey, peer.ID, error) {
	prefix := make([]byte, leadingZeros)
	for i := range prefix {
		prefix[i] = '0'
	}
	want := string(prefix)

	for {
		priv, pub, err := crypto.GenerateEd25519Key(nil)
		if err != nil {
			return nil, "", kisserrors.Wrap(err, "ed25519 key generation failed")
		}
		raw, err := pub.Raw()
		if err != nil {
			return nil, "", kisserrors.Wrap(err, "public key marshal failed")
		}
		sum := sha3.Sum256(raw)
		if leadingZeros == 0 || hasHexPrefix(sum[:], want) {
			id, err := peer.IDFromPublicKey(pub)
			if err != nil {
				return nil, "", kisserrors.Wrap(err, "peer id derivation failed")
			}
			return priv, id, nil
		}
	}
}

func hasHexPrefix(sum []byte, want string) bool {
	got := hex.EncodeToString(sum)
	if len(want) > len(got) {
		return false
	}
	return got[:len(want)] == want
}

// KeypairToBase64 renders priv as base64-standard-no-padding-encoded
// protobuf bytes, the same representation
// original_source/src/p2p/peer_id.rs persists keypairs as.
func KeypairToBase64(priv crypto.PrivKey) (string, error) {
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return "", kisserrors.Wrap(err, "keypair marshal failed")
	}
	return base64.RawStdEncoding.EncodeToString(raw), nil
}

// KeypairFromBase64 parses a keypair previously produced by KeypairToBase64.
func KeypairFromBase64(encoded string) (crypto.PrivKey, error) {
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, kisserrors.Wrap(kisserrors.ErrKeypairDecode, err.Error())
	}
	priv, err := crypto.UnmarshalPrivateKey(raw)
	if err != nil {
		return nil, kisserrors.Wrap(kisserrors.ErrKeypairParse, err.Error())
	}
	return priv, nil
}
