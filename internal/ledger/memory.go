package ledger

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"kiss/internal/kisserrors"
)

// Memory is an in-process Ledger test double, used by the auditor and rpc
// package tests in place of a live ledger service.
type Memory struct {
	mu         sync.Mutex
	contracts  map[string]Contract // by contract uuid; a file has ReplicationFactor of these
	reputation map[string]Reputation
	claims     []VerificationClaim
	kv         map[string][]byte
}

// NewMemory returns an empty in-memory Ledger.
func NewMemory() *Memory {
	return &Memory{
		contracts:  make(map[string]Contract),
		reputation: make(map[string]Reputation),
		kv:         make(map[string][]byte),
	}
}

func (m *Memory) Login(context.Context, string, string) error                { return nil }
func (m *Memory) OpenSession(context.Context, string) (string, error)        { return "session", nil }
func (m *Memory) NewTx(context.Context, string) (string, error)              { return "tx", nil }
func (m *Memory) Commit(context.Context, string, string) error               { return nil }
func (m *Memory) CloseSession(context.Context, string) error                 { return nil }
func (m *Memory) CreateDatabase(context.Context, string) error               { return nil }

func (m *Memory) Set(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[string(key)] = value
	return nil
}

func (m *Memory) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[string(key)]
	if !ok {
		return nil, kisserrors.ErrRecordNotFound
	}
	return v, nil
}

func (m *Memory) SQLExecute(context.Context, string, map[string]any) error { return nil }
func (m *Memory) QueryExecute(context.Context, string, map[string]any) ([][]any, error) {
	return nil, nil
}

func (m *Memory) CreateContract(_ context.Context, c Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ContractUUID == "" {
		c.ContractUUID = uuid.New().String()
	}
	m.contracts[c.ContractUUID] = c
	return nil
}

// GetContract returns one contract on record for fileUUID, mirroring the
// upstream's own query-first-row-of-many shape. When several exist, which
// one is returned is not defined (map iteration order).
func (m *Memory) GetContract(_ context.Context, fileUUID string) (Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contracts {
		if c.FileUUID == fileUUID {
			return c, nil
		}
	}
	return Contract{}, kisserrors.ErrRecordNotFound
}

// GetContracts returns every contract for fileUUID, across all custodians.
func (m *Memory) GetContracts(_ context.Context, fileUUID string) ([]Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Contract
	for _, c := range m.contracts {
		if c.FileUUID == fileUUID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) GetAllContracts(_ context.Context) ([]Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c)
	}
	return out, nil
}

func (m *Memory) IncreaseReputation(_ context.Context, peerID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reputation[peerID]
	r.PeerID = peerID
	r.Score += delta
	m.reputation[peerID] = r
	return nil
}

func (m *Memory) DecreaseReputation(ctx context.Context, peerID string, delta int64) error {
	return m.IncreaseReputation(ctx, peerID, -delta)
}

func (m *Memory) StakeReputation(_ context.Context, peerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reputation[peerID]
	if r.Score < amount {
		return kisserrors.ErrInsufficientReputationToStake
	}
	r.Score -= amount
	r.Staked += amount
	m.reputation[peerID] = r
	return nil
}

func (m *Memory) UnstakeReputation(_ context.Context, peerID string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.reputation[peerID]
	if r.Staked < amount {
		return kisserrors.ErrInsufficientReputationToUnstake
	}
	r.Staked -= amount
	r.Score += amount
	m.reputation[peerID] = r
	return nil
}

func (m *Memory) GetReputation(_ context.Context, peerID string) (Reputation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reputation[peerID]
	if !ok {
		return Reputation{PeerID: peerID}, nil
	}
	return r, nil
}

func (m *Memory) RecordVerificationClaim(_ context.Context, claim VerificationClaim) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claims = append(m.claims, claim)
	return nil
}

// Claims returns every claim recorded so far, for test assertions.
func (m *Memory) Claims() []VerificationClaim {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]VerificationClaim, len(m.claims))
	copy(out, m.claims)
	return out
}
