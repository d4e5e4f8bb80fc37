package swarm

import (
	"bufio"
	"context"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"

	"kiss/internal/kisserrors"
)

// VerificationProtocolID is the stream protocol ID custody challenges travel
// over, the Go counterpart of original_source's gRPC-based verify RPC
// re-expressed as a direct libp2p stream so the auditor can reach a
// custodian without routing through the ledger-backed RPC façade.
const VerificationProtocolID = protocol.ID("/kiss/verification/1.0.0")

const streamTimeout = 30 * time.Second

// ChallengeMessage is sent by the auditor to request a PoR response.
type ChallengeMessage struct {
	ContractUUID string
	Rows         int
	Cols         int
	Challenge    []uint64
}

// ResponseMessage is the custodian's reply.
type ResponseMessage struct {
	ContractUUID string
	Response     []uint64
	Err          string
}

// ChallengeHandler computes the response to an incoming challenge, backed
// by the custodian's local copy of the file (por.FulfillChallenge).
type ChallengeHandler func(ChallengeMessage) ResponseMessage

// RegisterVerificationHandler installs the stream handler that answers
// incoming PoR challenges.
func RegisterVerificationHandler(c *Coordinator, handle ChallengeHandler) {
	c.host.SetStreamHandler(VerificationProtocolID, func(s network.Stream) {
		defer s.Close()
		_ = s.SetDeadline(time.Now().Add(streamTimeout))

		var msg ChallengeMessage
		dec := cbor.NewDecoder(bufio.NewReader(s))
		if err := dec.Decode(&msg); err != nil {
			s.Reset()
			return
		}

		resp := handle(msg)
		enc := cbor.NewEncoder(s)
		if err := enc.Encode(resp); err != nil {
			s.Reset()
		}
	})
}

// SendChallenge opens a stream to target and exchanges a PoR challenge.
func SendChallenge(ctx context.Context, c *Coordinator, target peer.ID, msg ChallengeMessage) (ResponseMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, streamTimeout)
	defer cancel()

	s, err := c.host.NewStream(ctx, target, VerificationProtocolID)
	if err != nil {
		return ResponseMessage{}, kisserrors.Wrap(err, kisserrors.ErrRequestOutboundFailure.Error())
	}
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(streamTimeout))

	if err := cbor.NewEncoder(s).Encode(msg); err != nil {
		return ResponseMessage{}, kisserrors.Wrap(err, kisserrors.ErrRequestOutboundFailure.Error())
	}

	var resp ResponseMessage
	if err := cbor.NewDecoder(bufio.NewReader(s)).Decode(&resp); err != nil {
		return ResponseMessage{}, kisserrors.Wrap(err, kisserrors.ErrRequestInboundFailure.Error())
	}
	return resp, nil
}
