package auditor

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"kiss/internal/kisserrors"
	"kiss/internal/ledger"
	"kiss/internal/swarm"
)

// ClaimsTopic is the gossipsub topic verifiers publish VerificationClaims
// on, per spec §4.5.
const ClaimsTopic = "kiss/verification-claims/1.0.0"

type wireClaim struct {
	ContractUUID string
	VerifierID   string
	Passed       bool
	TimestampUTC int64
	Signature    []byte
}

func toWire(c ledger.VerificationClaim) wireClaim {
	return wireClaim{
		ContractUUID: c.ContractUUID,
		VerifierID:   c.VerifierID,
		Passed:       c.Passed,
		TimestampUTC: c.Timestamp.Unix(),
		Signature:    c.Signature,
	}
}

func fromWire(w wireClaim) ledger.VerificationClaim {
	return ledger.VerificationClaim{
		ContractUUID: w.ContractUUID,
		VerifierID:   w.VerifierID,
		Passed:       w.Passed,
		Timestamp:    time.Unix(w.TimestampUTC, 0).UTC(),
		Signature:    w.Signature,
	}
}

func publishClaim(c *swarm.Coordinator, claim ledger.VerificationClaim) error {
	topic, err := c.PubSub().Join(ClaimsTopic)
	if err != nil {
		return kisserrors.Wrap(err, "join claims topic failed")
	}
	data, err := json.Marshal(toWire(claim))
	if err != nil {
		return kisserrors.Wrap(err, "marshal claim failed")
	}
	return topic.Publish(context.Background(), data)
}

// CheatDetector watches the claims topic for contradictory claims about the
// same contract: one verifier says passed, another says failed. Each claim
// is compared only with the last claim seen for that contract, however old
// it is. That disagreement is the "caught cheating" signal
// spec §4.5 calls for, since an honest custodian should produce identical
// proofs for every verifier.
type CheatDetector struct {
	mu      sync.Mutex
	seen    map[string]ledger.VerificationClaim // contractUUID -> last claim
	onCheat func(contractUUID string, a, b ledger.VerificationClaim)
}

// NewCheatDetector returns a detector that calls onCheat whenever two
// verifiers disagree about the same contract.
func NewCheatDetector(onCheat func(contractUUID string, a, b ledger.VerificationClaim)) *CheatDetector {
	return &CheatDetector{seen: make(map[string]ledger.VerificationClaim), onCheat: onCheat}
}

// Observe records claim and reports disagreement with a previously seen
// claim for the same contract.
func (d *CheatDetector) Observe(claim ledger.VerificationClaim) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.seen[claim.ContractUUID]
	d.seen[claim.ContractUUID] = claim
	if !ok || prev.VerifierID == claim.VerifierID {
		return
	}
	if prev.Passed != claim.Passed {
		d.onCheat(claim.ContractUUID, prev, claim)
	}
}

// Subscribe joins the claims topic and feeds every message to d until ctx
// is canceled.
func (d *CheatDetector) Subscribe(ctx context.Context, c *swarm.Coordinator) error {
	topic, err := c.PubSub().Join(ClaimsTopic)
	if err != nil {
		return kisserrors.Wrap(err, "join claims topic failed")
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return kisserrors.Wrap(err, "subscribe claims topic failed")
	}

	go func() {
		for {
			msg, err := sub.Next(ctx)
			if err != nil {
				return
			}
			var w wireClaim
			if err := json.Unmarshal(msg.Data, &w); err != nil {
				continue
			}
			d.Observe(fromWire(w))
		}
	}()
	return nil
}
