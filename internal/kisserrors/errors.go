// Package kisserrors defines the sentinel error taxonomy shared by every
// component of the custody network, grouped the way spec §7 groups them:
// storage, swarm, ledger, identity, request/response, config and transport.
package kisserrors

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	ErrLocalStorageFail     = errors.New("kiss: local storage backend failed to initialize")
	ErrStoragePutFailed     = errors.New("kiss: storage put failed")
	ErrStorageGetFailed     = errors.New("kiss: storage get failed")
	ErrStoragePutSerde      = errors.New("kiss: record serialization failed")
	ErrStorageGetSerde      = errors.New("kiss: record deserialization failed")
	ErrStorageStreamConvert = errors.New("kiss: storage stream conversion failed")
	ErrRecordNotFound       = errors.New("kiss: record not found")
	ErrInvalidRecordName    = errors.New("kiss: invalid record name")
)

// Swarm errors.
var (
	ErrSwarmPutRecord         = errors.New("kiss: swarm put_record failed")
	ErrSwarmGetRecord         = errors.New("kiss: swarm get_record failed")
	ErrSwarmGetProviders      = errors.New("kiss: swarm get_providers failed")
	ErrSwarmGetClosestPeers   = errors.New("kiss: swarm get_closest_peers failed")
	ErrSwarmStartProviding    = errors.New("kiss: swarm start_providing failed")
	ErrNoProvidersFound       = errors.New("kiss: no providers found for key")
	ErrInvalidResponseChannel = errors.New("kiss: invalid response channel for query id")
	ErrMissingInstruction     = errors.New("kiss: swarm instruction channel closed")
	ErrRequestInboundFailure  = errors.New("kiss: inbound verification request failed")
	ErrRequestOutboundFailure = errors.New("kiss: outbound verification request failed")
)

// Ledger errors.
var (
	ErrInvalidSqlRow                  = errors.New("kiss: ledger row has unexpected shape")
	ErrInvalidSql                     = errors.New("kiss: ledger query returned no rows")
	ErrMutexIsNotMutable              = errors.New("kiss: ledger client connection unavailable")
	ErrInsufficientReputationToStake  = errors.New("kiss: insufficient reputation to stake")
	ErrInsufficientReputationToUnstake = errors.New("kiss: insufficient staked amount to unstake")
	ErrContractCreationExhausted      = errors.New("kiss: contract creation retries exhausted")
)

// Identity errors.
var (
	ErrKeypairDecode = errors.New("kiss: keypair base64 decode failed")
	ErrKeypairParse  = errors.New("kiss: keypair protobuf decode failed")
)

// Config and transport errors.
var (
	ErrConfig          = errors.New("kiss: configuration error")
	ErrTransport       = errors.New("kiss: ledger transport error")
	ErrUnauthorized    = errors.New("kiss: unauthorized")
	ErrChallengeShape  = errors.New("kiss: challenge or response vector has wrong length")
	ErrRecordExpired   = errors.New("kiss: record has expired")
	ErrQuorumUnreachable = errors.New("kiss: could not reach write quorum")
)

// Wrap adds context to err without discarding it, mirroring the teacher
// repo's utils.Wrap helper. It returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
