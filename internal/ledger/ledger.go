// Package ledger is the typed client for the external transactional
// key/value + SQL store that durably records contracts, reputation and
// verification claims, grounded on original_source/src/ledger/mod.rs's
// ImmuLedger (an immudb client over gRPC).
package ledger

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/google/uuid"

	"kiss/internal/kisserrors"
)

const gobSubtype = "gob"

// maxContractCreateAttempts bounds the retry-on-failure loop in
// CreateContract. Ten is the upstream's own number; spec §9 Open Question
// #3 flags the masked root cause ("blob already replicated before the
// contract lands") and explicitly asks that this NOT be silently fixed.
const maxContractCreateAttempts = 10

// Ledger is the RPC surface the auditor and swarm coordinator use to read
// and write durable state, per spec §4.3.
type Ledger interface {
	Login(ctx context.Context, username, password string) error
	OpenSession(ctx context.Context, database string) (string, error)
	NewTx(ctx context.Context, sessionID string) (string, error)
	Commit(ctx context.Context, sessionID, txID string) error
	CloseSession(ctx context.Context, sessionID string) error

	Set(ctx context.Context, key, value []byte) error
	Get(ctx context.Context, key []byte) ([]byte, error)
	SQLExecute(ctx context.Context, sql string, params map[string]any) error
	QueryExecute(ctx context.Context, sql string, params map[string]any) ([][]any, error)

	CreateDatabase(ctx context.Context, name string) error
	CreateContract(ctx context.Context, c Contract) error
	GetContract(ctx context.Context, fileUUID string) (Contract, error)
	GetContracts(ctx context.Context, fileUUID string) ([]Contract, error)
	GetAllContracts(ctx context.Context) ([]Contract, error)

	IncreaseReputation(ctx context.Context, peerID string, delta int64) error
	DecreaseReputation(ctx context.Context, peerID string, delta int64) error
	StakeReputation(ctx context.Context, peerID string, amount int64) error
	UnstakeReputation(ctx context.Context, peerID string, amount int64) error
	GetReputation(ctx context.Context, peerID string) (Reputation, error)

	RecordVerificationClaim(ctx context.Context, claim VerificationClaim) error
}

// Client implements Ledger over a gRPC connection to the ledger service.
type Client struct {
	conn  *grpc.ClientConn
	token string
}

// Dial connects to the ledger service at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, kisserrors.Wrap(err, "ledger dial failed")
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) authCtx(ctx context.Context) context.Context {
	return ctx // metadata attached per-call in invoke, mirroring the upstream's MetadataMap-per-request style
}

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	ctx = c.authCtx(ctx)
	opts := []grpc.CallOption{grpc.CallContentSubtype(gobSubtype)}
	if err := c.conn.Invoke(ctx, method, req, resp, opts...); err != nil {
		return kisserrors.Wrap(err, "ledger rpc "+method+" failed")
	}
	return nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	var resp loginResponse
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/Login", &loginRequest{Username: username, Password: password}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

func (c *Client) OpenSession(ctx context.Context, database string) (string, error) {
	var resp openSessionResponse
	req := &openSessionRequest{Database: database}
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/OpenSession", req, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

func (c *Client) NewTx(ctx context.Context, sessionID string) (string, error) {
	var resp newTxResponse
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/NewTx", &newTxRequest{SessionID: sessionID}, &resp); err != nil {
		return "", err
	}
	return resp.TransactionID, nil
}

func (c *Client) Commit(ctx context.Context, sessionID, txID string) error {
	return c.invoke(ctx, "/immudb.schema.ImmuService/Commit", &commitRequest{SessionID: sessionID, TransactionID: txID}, &struct{}{})
}

func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.invoke(ctx, "/immudb.schema.ImmuService/CloseSession", &closeSessionRequest{SessionID: sessionID}, &struct{}{})
}

func (c *Client) Set(ctx context.Context, key, value []byte) error {
	return c.invoke(ctx, "/immudb.schema.ImmuService/Set", &setRequest{Key: key, Value: value}, &struct{}{})
}

func (c *Client) Get(ctx context.Context, key []byte) ([]byte, error) {
	var resp getResponse
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/Get", &getRequest{Key: key}, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (c *Client) SQLExecute(ctx context.Context, sql string, params map[string]any) error {
	req := &sqlExecRequest{SQL: sql, Params: params}
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/SQLExec", req, &struct{}{}); err != nil {
		return kisserrors.Wrap(err, "sql execute failed")
	}
	return nil
}

func (c *Client) QueryExecute(ctx context.Context, sql string, params map[string]any) ([][]any, error) {
	var resp queryExecResponse
	req := &queryExecRequest{SQL: sql, Params: params}
	if err := c.invoke(ctx, "/immudb.schema.ImmuService/SQLQuery", req, &resp); err != nil {
		return nil, kisserrors.Wrap(err, "query execute failed")
	}
	if resp.Rows == nil {
		return nil, kisserrors.ErrInvalidSql
	}
	return resp.Rows, nil
}

// CreateDatabase bootstraps the contracts/reputation/verifications schema,
// the Go counterpart of LedgerProvider::create_contract_table.
func (c *Client) CreateDatabase(ctx context.Context, name string) error {
	if err := c.SQLExecute(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", name), nil); err != nil {
		return err
	}
	stmts := []string{
		// Primary key is contract_uuid, not file_uuid: replication creates
		// ReplicationFactor contracts per file, one per custodian, all
		// sharing the same file_uuid (spec §4.4/§4.7).
		`CREATE TABLE IF NOT EXISTS contracts (
			contract_uuid VARCHAR[36],
			peer_id VARCHAR[53],
			file_uuid VARCHAR[36],
			file_hash VARCHAR[1024],
			upload_date INTEGER,
			ttl INTEGER,
			secret_n BLOB,
			secret_m BLOB,
			rows INTEGER,
			cols INTEGER,
			PRIMARY KEY (contract_uuid)
		)`,
		`CREATE TABLE IF NOT EXISTS reputation (
			peer_id VARCHAR[53],
			score INTEGER,
			staked INTEGER,
			PRIMARY KEY (peer_id)
		)`,
		`CREATE TABLE IF NOT EXISTS verifications (
			contract_uuid VARCHAR[36],
			verifier_id VARCHAR[53],
			passed BOOLEAN,
			ts INTEGER,
			signature BLOB,
			PRIMARY KEY (contract_uuid, verifier_id, ts)
		)`,
	}
	for _, stmt := range stmts {
		if err := c.SQLExecute(ctx, stmt, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateContract inserts c via an UPSERT, retrying up to
// maxContractCreateAttempts times on failure. This preserves the upstream's
// documented workaround for a contract write failing after its blob has
// already been replicated (spec §9 Open Question #3) rather than masking it
// with a different fix.
func (c *Client) CreateContract(ctx context.Context, ct Contract) error {
	if ct.ContractUUID == "" {
		ct.ContractUUID = uuid.New().String()
	}
	if ct.UploadDate.IsZero() {
		ct.UploadDate = time.Now().UTC()
	}
	params := map[string]any{
		"contract_uuid": ct.ContractUUID,
		"peer_id":       ct.PeerID,
		"file_uuid":     ct.FileUUID,
		"file_hash":     ct.FileHash,
		"upload_date":   ct.UploadDate.Unix(),
		"ttl":           ct.TTLSeconds,
		"secret_n":      ct.SecretN,
		"secret_m":      ct.SecretM,
		"rows":          ct.Rows,
		"cols":          ct.Cols,
	}
	const upsert = `UPSERT INTO contracts(contract_uuid, peer_id, file_uuid, file_hash, upload_date, ttl, secret_n, secret_m, rows, cols)
		VALUES (@contract_uuid, @peer_id, @file_uuid, @file_hash, @upload_date, @ttl, @secret_n, @secret_m, @rows, @cols)`

	var lastErr error
	for attempt := 0; attempt < maxContractCreateAttempts; attempt++ {
		if lastErr = c.SQLExecute(ctx, upsert, params); lastErr == nil {
			return nil
		}
	}
	return kisserrors.Wrap(lastErr, kisserrors.ErrContractCreationExhausted.Error())
}

func mapRowToContract(row []any) (Contract, error) {
	if len(row) != 10 {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	get := func(i int) any { return row[i] }
	ct := Contract{}
	var ok bool
	if ct.ContractUUID, ok = get(0).(string); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.PeerID, ok = get(1).(string); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.FileUUID, ok = get(2).(string); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.FileHash, ok = get(3).(string); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	uploadSecs, ok := get(4).(int64)
	if !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	ct.UploadDate = time.Unix(uploadSecs, 0).UTC()
	if ct.TTLSeconds, ok = get(5).(int64); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.SecretN, ok = get(6).([]byte); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.SecretM, ok = get(7).([]byte); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.Rows, ok = get(8).(int64); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	if ct.Cols, ok = get(9).(int64); !ok {
		return Contract{}, kisserrors.ErrInvalidSqlRow
	}
	return ct, nil
}

func (c *Client) GetContract(ctx context.Context, fileUUID string) (Contract, error) {
	rows, err := c.QueryExecute(ctx, "SELECT contract_uuid, peer_id, file_uuid, file_hash, upload_date, ttl, secret_n, secret_m, rows, cols FROM contracts WHERE file_uuid = @file_uuid",
		map[string]any{"file_uuid": fileUUID})
	if err != nil {
		return Contract{}, err
	}
	if len(rows) == 0 {
		return Contract{}, kisserrors.ErrRecordNotFound
	}
	return mapRowToContract(rows[0])
}

// GetContracts returns every contract for fileUUID, across all custodians,
// per spec §4.3.
func (c *Client) GetContracts(ctx context.Context, fileUUID string) ([]Contract, error) {
	rows, err := c.QueryExecute(ctx, "SELECT contract_uuid, peer_id, file_uuid, file_hash, upload_date, ttl, secret_n, secret_m, rows, cols FROM contracts WHERE file_uuid = @file_uuid",
		map[string]any{"file_uuid": fileUUID})
	if err != nil {
		return nil, err
	}
	out := make([]Contract, 0, len(rows))
	for _, row := range rows {
		ct, err := mapRowToContract(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

func (c *Client) GetAllContracts(ctx context.Context) ([]Contract, error) {
	rows, err := c.QueryExecute(ctx, "SELECT contract_uuid, peer_id, file_uuid, file_hash, upload_date, ttl, secret_n, secret_m, rows, cols FROM contracts", nil)
	if err != nil {
		return nil, err
	}
	out := make([]Contract, 0, len(rows))
	for _, row := range rows {
		ct, err := mapRowToContract(row)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}
