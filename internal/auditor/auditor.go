// Package auditor implements the periodic custody-verification loop: each
// cycle it selects a shard of outstanding contracts, challenges their
// custodians for a fresh proof of retrievability, and credits or debits
// reputation based on the outcome, per spec §4.5.
package auditor

import (
	"context"
	"encoding/binary"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/sirupsen/logrus"

	"kiss/internal/kisserrors"
	"kiss/internal/ledger"
	"kiss/internal/por"
	"kiss/internal/swarm"
)

// NumPeers is the number of equal slabs the [0, 2^128) UUID space is
// partitioned into, per spec §4.5. One slab is audited per cycle; the
// window advances by one slab each time, wrapping after NumPeers+1
// iterations.
const NumPeers = 16

// uuidSpaceSize is 2^128, the cardinality of the UUID space spec §4.5
// partitions into slabs.
var uuidSpaceSize = new(big.Int).Lsh(big.NewInt(1), 128)

// Config controls the auditor's cadence and shard width.
type Config struct {
	Interval time.Duration
	NumPeers int
}

// Auditor drives the periodic audit cycle.
type Auditor struct {
	cfg         Config
	ledger      ledger.Ledger
	coordinator *swarm.Coordinator
	identity    crypto.PrivKey
	selfPeer    peer.ID
	logger      *logrus.Logger

	// iteration counts cycles mod (cfg.NumPeers+1). Position NumPeers is a
	// synthetic reset back to the start of the UUID space: it absorbs the
	// remainder integer division by NumPeers truncates away, so the window
	// doesn't drift off the partition over long runs ("the extra iteration
	// keeps the partition stable over time", spec §4.5).
	iteration int
}

// New builds an Auditor that signs its published claims with identity.
func New(cfg Config, led ledger.Ledger, coord *swarm.Coordinator, identity crypto.PrivKey, self peer.ID, logger *logrus.Logger) *Auditor {
	if cfg.NumPeers <= 0 {
		cfg.NumPeers = NumPeers
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Auditor{cfg: cfg, ledger: led, coordinator: coord, identity: identity, selfPeer: self, logger: logger}
}

// Run ticks every cfg.Interval until ctx is canceled, auditing one shard of
// contracts per tick.
func (a *Auditor) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.cycle(ctx); err != nil {
				a.logger.WithError(err).Warn("audit cycle failed")
			}
			a.iteration = (a.iteration + 1) % (a.cfg.NumPeers + 1)
		}
	}
}

// slabWidth returns the width of one of numPeers equal slabs partitioning
// [0, 2^128).
func slabWidth(numPeers int) *big.Int {
	return new(big.Int).Div(uuidSpaceSize, big.NewInt(int64(numPeers)))
}

// windowStart returns the start of the sliding (start, end) window for the
// given iteration. iteration cycles through numPeers regular slab
// positions plus one synthetic reset position (iteration == numPeers) that
// snaps back to zero.
func windowStart(iteration, numPeers int) *big.Int {
	pos := iteration % (numPeers + 1)
	if pos == numPeers {
		return big.NewInt(0)
	}
	return new(big.Int).Mul(slabWidth(numPeers), big.NewInt(int64(pos)))
}

// inWindow reports whether u128(fileUUID) falls inside [start, end).
func inWindow(fileUUID string, start, end *big.Int) bool {
	id, err := uuid.Parse(fileUUID)
	if err != nil {
		return false
	}
	n := new(big.Int).SetBytes(id[:])
	return n.Cmp(start) >= 0 && n.Cmp(end) < 0
}

func (a *Auditor) cycle(ctx context.Context) error {
	contracts, err := a.ledger.GetAllContracts(ctx)
	if err != nil {
		return kisserrors.Wrap(err, "audit cycle: list contracts")
	}

	width := slabWidth(a.cfg.NumPeers)
	start := windowStart(a.iteration, a.cfg.NumPeers)
	end := new(big.Int).Add(start, width)

	for _, c := range contracts {
		if !inWindow(c.FileUUID, start, end) {
			continue
		}
		a.auditOne(ctx, c)
	}
	return nil
}

func (a *Auditor) auditOne(ctx context.Context, c ledger.Contract) {
	target, err := peer.Decode(c.PeerID)
	if err != nil {
		a.logger.WithError(err).Warnf("contract %s has unparseable peer id %q", c.ContractUUID, c.PeerID)
		return
	}

	seed, err := por.RandomSeed()
	if err != nil {
		a.logger.WithError(err).Warn("failed to draw audit seed")
		return
	}
	rows, cols := int(c.Rows), int(c.Cols)
	challenge := por.NewChallenge(rows, seed)

	msg := swarm.ChallengeMessage{ContractUUID: c.ContractUUID, Rows: rows, Cols: cols, Challenge: challenge}
	resp, err := swarm.SendChallenge(ctx, a.coordinator, target, msg)

	passed := false
	if err == nil && resp.Err == "" {
		secret := por.Secret{Rows: rows, Cols: cols, U: por.DecodeVector(c.SecretM), S: por.DecodeVector(c.SecretN)}
		passed = por.Audit(secret, challenge, resp.Response)
	}

	a.applyOutcome(ctx, c, passed)
	a.publishClaim(ctx, c, passed)
}

func (a *Auditor) applyOutcome(ctx context.Context, c ledger.Contract, passed bool) {
	var err error
	if passed {
		err = a.ledger.IncreaseReputation(ctx, c.PeerID, ledger.AuditReward)
	} else {
		err = a.ledger.DecreaseReputation(ctx, c.PeerID, ledger.AuditPenalty)
	}
	if err != nil {
		a.logger.WithError(err).Warnf("failed to update reputation for peer %s", c.PeerID)
	}
}

func (a *Auditor) publishClaim(ctx context.Context, c ledger.Contract, passed bool) {
	claim := ledger.VerificationClaim{
		ContractUUID: c.ContractUUID,
		VerifierID:   a.selfPeer.String(),
		Passed:       passed,
		Timestamp:    time.Now().UTC(),
	}
	payload := claimSigningPayload(claim)
	sig, err := a.identity.Sign(payload)
	if err != nil {
		a.logger.WithError(err).Warn("failed to sign verification claim")
		return
	}
	claim.Signature = sig

	if err := a.ledger.RecordVerificationClaim(ctx, claim); err != nil {
		a.logger.WithError(err).Warn("failed to record verification claim")
	}

	if a.coordinator != nil && a.coordinator.PubSub() != nil {
		if err := publishClaim(a.coordinator, claim); err != nil {
			a.logger.WithError(err).Warn("failed to publish verification claim")
		}
	}
}

func claimSigningPayload(c ledger.VerificationClaim) []byte {
	buf := make([]byte, 0, len(c.ContractUUID)+len(c.VerifierID)+9)
	buf = append(buf, []byte(c.ContractUUID)...)
	buf = append(buf, []byte(c.VerifierID)...)
	var passed byte
	if c.Passed {
		passed = 1
	}
	buf = append(buf, passed)
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(c.Timestamp.Unix()))
	return append(buf, ts...)
}


