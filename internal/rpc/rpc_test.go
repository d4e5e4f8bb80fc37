package rpc

import (
	"testing"

	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
)

func TestPeerIDsToStrings(t *testing.T) {
	_, pub, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	id, err := peer.IDFromPublicKey(pub)
	if err != nil {
		t.Fatalf("derive peer id: %v", err)
	}

	got := peerIDsToStrings([]peer.ID{id})
	if len(got) != 1 || got[0] != id.String() {
		t.Fatalf("got %v, want [%s]", got, id.String())
	}
}

func TestRandomSeedIsNonZeroEventually(t *testing.T) {
	// A zero seed is legal but astronomically unlikely across many draws;
	// this guards against randomSeed silently returning a constant.
	var sawNonZero bool
	for i := 0; i < 8; i++ {
		seed, err := randomSeed()
		if err != nil {
			t.Fatalf("randomSeed: %v", err)
		}
		if seed != 0 {
			sawNonZero = true
			break
		}
	}
	if !sawNonZero {
		t.Fatal("randomSeed returned zero across 8 draws")
	}
}
