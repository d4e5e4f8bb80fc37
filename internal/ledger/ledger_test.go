package ledger

import (
	"context"
	"testing"
)

func TestMemoryReputationStakeUnstake(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.IncreaseReputation(ctx, "peer1", 10); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if err := m.StakeReputation(ctx, "peer1", 4); err != nil {
		t.Fatalf("stake: %v", err)
	}
	rep, err := m.GetReputation(ctx, "peer1")
	if err != nil {
		t.Fatalf("get reputation: %v", err)
	}
	if rep.Score != 6 || rep.Staked != 4 {
		t.Fatalf("got score=%d staked=%d, want 6,4", rep.Score, rep.Staked)
	}

	if err := m.StakeReputation(ctx, "peer1", 100); err == nil {
		t.Fatal("expected insufficient reputation error")
	}

	if err := m.UnstakeReputation(ctx, "peer1", 4); err != nil {
		t.Fatalf("unstake: %v", err)
	}
	rep, _ = m.GetReputation(ctx, "peer1")
	if rep.Score != 10 || rep.Staked != 0 {
		t.Fatalf("got score=%d staked=%d, want 10,0", rep.Score, rep.Staked)
	}
}

func TestMemoryContractRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ct := Contract{FileUUID: "file-1", PeerID: "peer1", Rows: 56, Cols: 1}
	if err := m.CreateContract(ctx, ct); err != nil {
		t.Fatalf("create contract: %v", err)
	}
	got, err := m.GetContract(ctx, "file-1")
	if err != nil {
		t.Fatalf("get contract: %v", err)
	}
	if got.PeerID != "peer1" {
		t.Fatalf("got peer_id=%q, want peer1", got.PeerID)
	}

	byFile, err := m.GetContracts(ctx, "file-1")
	if err != nil || len(byFile) != 1 {
		t.Fatalf("get contracts by file: %v, %d results", err, len(byFile))
	}
}

func TestMemoryContractsSupportsMultipleCustodiansPerFile(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, peerID := range []string{"peer1", "peer2", "peer3"} {
		ct := Contract{FileUUID: "file-1", PeerID: peerID, Rows: 56, Cols: 1}
		if err := m.CreateContract(ctx, ct); err != nil {
			t.Fatalf("create contract for %s: %v", peerID, err)
		}
	}

	contracts, err := m.GetContracts(ctx, "file-1")
	if err != nil {
		t.Fatalf("get contracts: %v", err)
	}
	if len(contracts) != 3 {
		t.Fatalf("got %d contracts, want 3", len(contracts))
	}
	seen := make(map[string]bool)
	for _, c := range contracts {
		if c.FileUUID != "file-1" {
			t.Fatalf("contract for wrong file: %+v", c)
		}
		seen[c.PeerID] = true
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct peer ids, got %v", seen)
	}
}

func TestMemoryVerificationClaims(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	claim := VerificationClaim{ContractUUID: "c1", VerifierID: "v1", Passed: true}
	if err := m.RecordVerificationClaim(ctx, claim); err != nil {
		t.Fatalf("record claim: %v", err)
	}
	claims := m.Claims()
	if len(claims) != 1 || claims[0].ContractUUID != "c1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}
