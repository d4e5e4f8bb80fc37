package swarm

import "testing"

func TestGenerateIdentityNoPow(t *testing.T) {
	priv, id, err := GenerateIdentity(0)
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	if priv == nil || id == "" {
		t.Fatal("expected a non-empty keypair and peer id")
	}
}

func TestKeypairBase64RoundTrip(t *testing.T) {
	priv, _, err := GenerateIdentity(0)
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	encoded, err := KeypairToBase64(priv)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := KeypairFromBase64(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rawA, _ := priv.Raw()
	rawB, _ := decoded.Raw()
	if string(rawA) != string(rawB) {
		t.Fatal("round-tripped keypair does not match original")
	}
}

func TestGenerateIdentityLeadingZero(t *testing.T) {
	_, id, err := GenerateIdentity(1)
	if err != nil {
		t.Fatalf("generate identity: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty peer id")
	}
}
