package ledger

import (
	"context"

	"kiss/internal/kisserrors"
)

// AuditReward and AuditPenalty are the reputation deltas the auditor applies
// after each verification round, per spec §4.5.
const (
	AuditReward  = 1
	AuditPenalty = 5
)

func (c *Client) upsertReputationDelta(ctx context.Context, peerID string, scoreDelta, stakedDelta int64) error {
	const upsert = `UPSERT INTO reputation(peer_id, score, staked)
		VALUES (@peer_id,
			COALESCE((SELECT score FROM reputation WHERE peer_id = @peer_id), 0) + @score_delta,
			COALESCE((SELECT staked FROM reputation WHERE peer_id = @peer_id), 0) + @staked_delta)`
	return c.SQLExecute(ctx, upsert, map[string]any{
		"peer_id":      peerID,
		"score_delta":  scoreDelta,
		"staked_delta": stakedDelta,
	})
}

func (c *Client) IncreaseReputation(ctx context.Context, peerID string, delta int64) error {
	return c.upsertReputationDelta(ctx, peerID, delta, 0)
}

func (c *Client) DecreaseReputation(ctx context.Context, peerID string, delta int64) error {
	return c.upsertReputationDelta(ctx, peerID, -delta, 0)
}

func (c *Client) StakeReputation(ctx context.Context, peerID string, amount int64) error {
	rep, err := c.GetReputation(ctx, peerID)
	if err != nil {
		return err
	}
	if rep.Score < amount {
		return kisserrors.ErrInsufficientReputationToStake
	}
	return c.upsertReputationDelta(ctx, peerID, -amount, amount)
}

func (c *Client) UnstakeReputation(ctx context.Context, peerID string, amount int64) error {
	rep, err := c.GetReputation(ctx, peerID)
	if err != nil {
		return err
	}
	if rep.Staked < amount {
		return kisserrors.ErrInsufficientReputationToUnstake
	}
	return c.upsertReputationDelta(ctx, peerID, amount, -amount)
}

func (c *Client) GetReputation(ctx context.Context, peerID string) (Reputation, error) {
	rows, err := c.QueryExecute(ctx, "SELECT peer_id, score, staked FROM reputation WHERE peer_id = @peer_id",
		map[string]any{"peer_id": peerID})
	if err != nil {
		return Reputation{}, err
	}
	if len(rows) == 0 {
		return Reputation{PeerID: peerID}, nil
	}
	row := rows[0]
	if len(row) != 3 {
		return Reputation{}, kisserrors.ErrInvalidSqlRow
	}
	peer, ok1 := row[0].(string)
	score, ok2 := row[1].(int64)
	staked, ok3 := row[2].(int64)
	if !ok1 || !ok2 || !ok3 {
		return Reputation{}, kisserrors.ErrInvalidSqlRow
	}
	return Reputation{PeerID: peer, Score: score, Staked: staked}, nil
}

// RecordVerificationClaim durably stores a published claim so disputes can
// be replayed from the ledger rather than only from pubsub history.
func (c *Client) RecordVerificationClaim(ctx context.Context, claim VerificationClaim) error {
	const insert = `UPSERT INTO verifications(contract_uuid, verifier_id, passed, ts, signature)
		VALUES (@contract_uuid, @verifier_id, @passed, @ts, @signature)`
	return c.SQLExecute(ctx, insert, map[string]any{
		"contract_uuid": claim.ContractUUID,
		"verifier_id":   claim.VerifierID,
		"passed":        claim.Passed,
		"ts":            claim.Timestamp.Unix(),
		"signature":     claim.Signature,
	})
}
