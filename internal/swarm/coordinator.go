// Package swarm implements the single-owner DHT coordinator: one goroutine
// holds the libp2p host and Kademlia DHT, every other goroutine talks to it
// over a command channel, grounded on
// original_source/src/p2p/{swarm,controller}.rs's actor-plus-oneshot
// design.
package swarm

import (
	"context"
	"fmt"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	"github.com/sirupsen/logrus"

	"kiss/internal/config"
	"kiss/internal/kisserrors"
	"kiss/internal/record"
)

// queryTimeout bounds every DHT operation, matching
// KademliaConfig::set_query_timeout(Duration::from_secs(60)) in
// original_source/src/p2p/swarm.rs.
const queryTimeout = 60 * time.Second

// ReplicationFactor is the number of closest peers the RPC façade replicates
// a stored file to, per spec §4.4: configurable, default 3. Store selects
// the first ReplicationFactor peers GetClosestPeers returns and PutTo's the
// value to each.
const ReplicationFactor = 3

// providerLookupFanout bounds how many provider records FindProvidersAsync
// collects in getProviders. It is a DHT query-width knob, unrelated to
// ReplicationFactor's store-time peer selection.
const providerLookupFanout = 20

// Coordinator owns the libp2p host and DHT. All access to them happens on
// Coordinator.run's goroutine; callers interact exclusively through the
// exported methods, which send a Command and block on its reply channel.
type Coordinator struct {
	host     host.Host
	identity crypto.PrivKey
	dht      *dht.IpfsDHT
	ps       *pubsub.PubSub
	mdns     mdns.Service

	cmds   chan Command
	logger *logrus.Logger
}

// New builds a Coordinator listening per cfg, backed by store for local DHT
// record persistence.
func New(ctx context.Context, cfg config.SwarmConfig, store record.Store, logger *logrus.Logger) (*Coordinator, error) {
	var priv crypto.PrivKey
	var err error
	if cfg.Keypair != "" {
		priv, err = KeypairFromBase64(cfg.Keypair)
	} else {
		priv, _, err = GenerateIdentity(0)
	}
	if err != nil {
		return nil, err
	}

	listenAddr := fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", cfg.Port)
	h, err := libp2p.New(
		libp2p.Identity(priv),
		libp2p.ListenAddrStrings(listenAddr),
		libp2p.DefaultSecurity,
		libp2p.DefaultMuxers,
	)
	if err != nil {
		return nil, kisserrors.Wrap(err, "libp2p host construction failed")
	}

	ds := newRecordDatastore(store)
	kad, err := dht.New(ctx, h, dht.Mode(dht.ModeServer), dht.Datastore(ds))
	if err != nil {
		return nil, kisserrors.Wrap(err, "kademlia dht construction failed")
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, kisserrors.Wrap(err, "pubsub construction failed")
	}

	c := &Coordinator{host: h, identity: priv, dht: kad, ps: ps, cmds: make(chan Command, 64), logger: logger}

	svc := mdns.NewMdnsService(h, "kiss-custody", c)
	if err := svc.Start(); err != nil {
		return nil, kisserrors.Wrap(err, "mdns start failed")
	}
	c.mdns = svc

	for _, addr := range cfg.Bootstrap {
		addrInfo, err := peer.AddrInfoFromString(addr)
		if err != nil {
			logger.WithError(err).Warnf("ignoring malformed bootstrap address %q", addr)
			continue
		}
		if err := h.Connect(ctx, *addrInfo); err != nil {
			logger.WithError(err).Warnf("failed to connect to bootstrap peer %q", addr)
		}
	}

	return c, nil
}

// HandlePeerFound implements mdns.Notifee: newly discovered local peers are
// added to the routing table, the Go counterpart of swarm.rs's
// WireEvent::Mdns(Discovered) handling.
func (c *Coordinator) HandlePeerFound(pi peer.AddrInfo) {
	c.host.Peerstore().AddAddrs(pi.ID, pi.Addrs, time.Hour)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.host.Connect(ctx, pi); err != nil {
		c.logger.WithError(err).Debugf("mdns-discovered peer %s unreachable", pi.ID)
	}
}

// Host returns the underlying libp2p host, for wiring additional protocol
// handlers (see protocol.go).
func (c *Coordinator) Host() host.Host { return c.host }

// Identity returns the node's private key, for components that need to
// sign messages under the same identity the swarm advertises.
func (c *Coordinator) Identity() crypto.PrivKey { return c.identity }

// PubSub returns the gossipsub router, for the auditor's verification-claim
// topic.
func (c *Coordinator) PubSub() *pubsub.PubSub { return c.ps }

// Run processes commands until ctx is canceled. It is meant to be the only
// goroutine that ever touches c.dht directly.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return c.shutdown()
		case cmd, ok := <-c.cmds:
			if !ok {
				return c.shutdown()
			}
			c.dispatch(ctx, cmd)
		}
	}
}

func (c *Coordinator) shutdown() error {
	if c.mdns != nil {
		_ = c.mdns.Close()
	}
	if err := c.dht.Close(); err != nil {
		return err
	}
	return c.host.Close()
}

func (c *Coordinator) dispatch(ctx context.Context, cmd Command) {
	qctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	switch cc := cmd.(type) {
	case putRecordCmd:
		cc.reply <- kisserrors.Wrap(c.dht.PutValue(qctx, string(cc.key), cc.value), kisserrors.ErrSwarmPutRecord.Error())
	case putToCmd:
		cc.reply <- kisserrors.Wrap(c.putTo(qctx, cc.target, cc.key, cc.value), kisserrors.ErrSwarmPutRecord.Error())
	case getRecordCmd:
		val, err := c.dht.GetValue(qctx, string(cc.key))
		cc.reply <- getRecordResult{value: val, err: kisserrors.Wrap(err, kisserrors.ErrSwarmGetRecord.Error())}
	case getProvidersCmd:
		peers, err := c.getProviders(qctx, cc.key)
		cc.reply <- getProvidersResult{providers: peers, err: err}
	case getClosestPeersCmd:
		peers, err := c.dht.GetClosestPeers(qctx, string(cc.key))
		cc.reply <- getClosestPeersResult{peers: peers, err: kisserrors.Wrap(err, kisserrors.ErrSwarmGetClosestPeers.Error())}
	case startProvidingCmd:
		cc.reply <- kisserrors.Wrap(c.dht.Provide(qctx, toCid(cc.key), true), kisserrors.ErrSwarmStartProviding.Error())
	}
}

func (c *Coordinator) putTo(ctx context.Context, target peer.ID, key, value []byte) error {
	// go-libp2p-kad-dht has no direct per-peer PutValue; target is not
	// used, and the value goes out through an ordinary DHT PutValue.
	return c.dht.PutValue(ctx, string(key), value)
}

func (c *Coordinator) getProviders(ctx context.Context, key []byte) ([]peer.ID, error) {
	ch := c.dht.FindProvidersAsync(ctx, toCid(key), providerLookupFanout)
	var out []peer.ID
	for pi := range ch {
		out = append(out, pi.ID)
	}
	if len(out) == 0 {
		return nil, kisserrors.ErrNoProvidersFound
	}
	return out, nil
}

// Put stores value at key across the DHT, blocking until the write quorum
// responds or queryTimeout elapses.
func (c *Coordinator) Put(key, value []byte) error {
	reply := make(chan error, 1)
	c.cmds <- putRecordCmd{key: key, value: value, reply: reply}
	return <-reply
}

// PutTo stores value at key through the DHT's ordinary PutValue, which
// places it on the key's closest peers. The target argument is not used:
// the value is not sent to target directly.
func (c *Coordinator) PutTo(target peer.ID, key, value []byte) error {
	reply := make(chan error, 1)
	c.cmds <- putToCmd{target: target, key: key, value: value, reply: reply}
	return <-reply
}

// Get retrieves the value stored at key.
func (c *Coordinator) Get(key []byte) ([]byte, error) {
	reply := make(chan getRecordResult, 1)
	c.cmds <- getRecordCmd{key: key, reply: reply}
	res := <-reply
	return res.value, res.err
}

// GetProviders returns the peers currently advertising key.
func (c *Coordinator) GetProviders(key []byte) ([]peer.ID, error) {
	reply := make(chan getProvidersResult, 1)
	c.cmds <- getProvidersCmd{key: key, reply: reply}
	res := <-reply
	return res.providers, res.err
}

// GetClosestPeers returns the DHT's closest known peers to key.
func (c *Coordinator) GetClosestPeers(key []byte) ([]peer.ID, error) {
	reply := make(chan getClosestPeersResult, 1)
	c.cmds <- getClosestPeersCmd{key: key, reply: reply}
	res := <-reply
	return res.peers, res.err
}

// StartProviding advertises this node as a provider for key.
func (c *Coordinator) StartProviding(key []byte) error {
	reply := make(chan error, 1)
	c.cmds <- startProvidingCmd{key: key, reply: reply}
	return <-reply
}
