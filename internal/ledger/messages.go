package ledger

import "time"

// Contract is the persisted custody agreement between a verifier and a
// custodian peer for one file, per spec §3.
type Contract struct {
	ContractUUID string
	PeerID       string // base58
	FileUUID     string
	FileHash     string
	UploadDate   time.Time
	TTLSeconds   int64
	SecretN      []byte // secret_n, the PoR row-summary, opaque blob on the wire
	SecretM      []byte // secret_m, the PoR random column vector
	Rows         int64
	Cols         int64
}

// Reputation is a peer's standing in the network, credited and debited by
// the auditor per spec §4.5.
type Reputation struct {
	PeerID string
	Score  int64
	Staked int64
}

// VerificationClaim is a signed attestation that a verifier published after
// auditing (or failing to audit) a peer's custody of a file, per spec §3.
type VerificationClaim struct {
	ContractUUID string
	VerifierID   string // base58
	Passed       bool
	Timestamp    time.Time
	Signature    []byte
}

type loginRequest struct {
	Username string
	Password string
}

type loginResponse struct {
	Token string
}

type openSessionRequest struct {
	Username string
	Password string
	Database string
}

type openSessionResponse struct {
	SessionID string
}

type newTxRequest struct {
	SessionID string
}

type newTxResponse struct {
	TransactionID string
}

type commitRequest struct {
	SessionID     string
	TransactionID string
}

type closeSessionRequest struct {
	SessionID string
}

type setRequest struct {
	Key   []byte
	Value []byte
}

type getRequest struct {
	Key []byte
}

type getResponse struct {
	Value []byte
}

type sqlExecRequest struct {
	SQL    string
	Params map[string]any
}

type queryExecRequest struct {
	SQL    string
	Params map[string]any
}

type queryExecResponse struct {
	Rows [][]any
}
