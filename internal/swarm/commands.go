package swarm

import (
	"github.com/libp2p/go-libp2p/core/peer"
)

// Command is a request routed to the single goroutine that owns the DHT and
// host, the Go counterpart of original_source/src/p2p/swarm.rs's
// SwarmInstruction enum. Every variant below carries its own reply channel
// instead of the upstream's outer/inner double-oneshot, since a Go channel
// can be handed around and closed exactly once without that indirection.
type Command interface {
	isCommand()
}

type putRecordCmd struct {
	key, value []byte
	reply      chan error
}

func (putRecordCmd) isCommand() {}

type putToCmd struct {
	target     peer.ID
	key, value []byte
	reply      chan error
}

func (putToCmd) isCommand() {}

type getRecordCmd struct {
	key   []byte
	reply chan getRecordResult
}

func (getRecordCmd) isCommand() {}

type getRecordResult struct {
	value []byte
	err   error
}

type getProvidersCmd struct {
	key   []byte
	reply chan getProvidersResult
}

func (getProvidersCmd) isCommand() {}

type getProvidersResult struct {
	providers []peer.ID
	err       error
}

type getClosestPeersCmd struct {
	key   []byte
	reply chan getClosestPeersResult
}

func (getClosestPeersCmd) isCommand() {}

type getClosestPeersResult struct {
	peers []peer.ID
	err   error
}

type startProvidingCmd struct {
	key   []byte
	reply chan error
}

func (startProvidingCmd) isCommand() {}
