// Package rpc is the internal daemon-control façade: it orchestrates the
// record store, PoR codec, ledger client, and swarm coordinator behind the
// eight operations spec §4.7 names, exposed over gRPC per spec §6.
package rpc

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/libp2p/go-libp2p/core/peer"
	"golang.org/x/crypto/sha3"
	"google.golang.org/grpc"

	"kiss/internal/kisserrors"
	"kiss/internal/ledger"
	"kiss/internal/por"
	"kiss/internal/record"
	"kiss/internal/swarm"
)

// Facade is the behavior the generated server handlers below dispatch to.
type Facade interface {
	Store(ctx context.Context, req StoreRequest) (StoreResponse, error)
	Retrieve(ctx context.Context, req RetrieveRequest) (RetrieveResponse, error)
	VerifyFile(ctx context.Context, req VerifyFileRequest) (VerifyFileResponse, error)
	GetProviders(ctx context.Context, req GetProvidersRequest) (GetProvidersResponse, error)
	GetClosestPeers(ctx context.Context, req GetClosestPeersRequest) (GetClosestPeersResponse, error)
	PutTo(ctx context.Context, req PutToRequest) (PutToResponse, error)
	StartProviding(ctx context.Context, req StartProvidingRequest) (StartProvidingResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error)
}

// Server implements Facade by wiring together the record store, PoR codec,
// ledger client and swarm coordinator, per spec §2's "store" and "audit
// cycle" control flow descriptions.
type Server struct {
	store             record.Store
	ledger            ledger.Ledger
	coordinator       *swarm.Coordinator
	metrics           *Metrics
	replicationFactor int
}

// NewServer builds a Server over the given components. replicationFactor
// overrides swarm.ReplicationFactor's default of 3 (spec §4.4) when
// positive; pass 0 to keep the default.
func NewServer(store record.Store, led ledger.Ledger, coord *swarm.Coordinator, metrics *Metrics, replicationFactor int) *Server {
	if replicationFactor <= 0 {
		replicationFactor = swarm.ReplicationFactor
	}
	return &Server{store: store, ledger: led, coordinator: coord, metrics: metrics, replicationFactor: replicationFactor}
}

// RegisterFacadeServer registers impl against grpcServer using ServiceDesc,
// the hand-written counterpart of a protoc-generated RegisterFooServer
// function.
func RegisterFacadeServer(grpcServer *grpc.Server, impl Facade) {
	grpcServer.RegisterService(&ServiceDesc, impl)
}

// Store resolves the closest peers to req.Key, calls PutTo once for each of
// the first ReplicationFactor of them, and durably records one custody
// contract per selected peer, each with its own freshly derived PoR secret,
// per spec §2's store flow (RPC → get_closest_peers → put_to(replicas) →
// create_contract × replicas) and §4.4/§4.7. PutTo does not address the
// selected peer directly (see swarm.Coordinator.PutTo).
func (s *Server) Store(ctx context.Context, req StoreRequest) (StoreResponse, error) {
	fileUUID := req.Key
	hash := sha3.Sum256(req.Value)
	fileHash := hex.EncodeToString(hash[:])

	peers, err := s.coordinator.GetClosestPeers([]byte(fileUUID))
	if err != nil {
		return StoreResponse{}, err
	}
	if len(peers) > s.replicationFactor {
		peers = peers[:s.replicationFactor]
	}
	if len(peers) == 0 {
		return StoreResponse{}, kisserrors.ErrNoProvidersFound
	}

	for _, target := range peers {
		if err := s.coordinator.PutTo(target, []byte(fileUUID), req.Value); err != nil {
			return StoreResponse{}, err
		}

		seed, err := randomSeed()
		if err != nil {
			return StoreResponse{}, kisserrors.Wrap(err, "seed generation failed")
		}
		secret := por.BuildSecret(req.Value, seed)

		contract := ledger.Contract{
			ContractUUID: uuid.New().String(),
			PeerID:       target.String(),
			FileUUID:     fileUUID,
			FileHash:     fileHash,
			TTLSeconds:   req.TTLSeconds,
			SecretN:      por.EncodeVector(secret.S),
			SecretM:      por.EncodeVector(secret.U),
			Rows:         int64(secret.Rows),
			Cols:         int64(secret.Cols),
		}
		// CreateContract retries internally up to its own attempt limit
		// (spec §4.3/§4.7); the blob is already replicated by the time this
		// runs, the known race spec §9 documents rather than hides.
		if err := s.ledger.CreateContract(ctx, contract); err != nil {
			return StoreResponse{}, err
		}
	}

	if err := s.coordinator.StartProviding([]byte(fileUUID)); err != nil {
		return StoreResponse{}, err
	}

	var expires *time.Time
	if req.TTLSeconds > 0 {
		t := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
		expires = &t
	}
	if err := s.store.Put(ctx, record.Record{Key: fileUUID, Value: req.Value, Publisher: req.Publisher, Expires: expires}); err != nil {
		return StoreResponse{}, err
	}

	if s.metrics != nil {
		s.metrics.RecordStore()
	}
	return StoreResponse{FileUUID: fileUUID}, nil
}

func (s *Server) Retrieve(ctx context.Context, req RetrieveRequest) (RetrieveResponse, error) {
	val, err := s.coordinator.Get([]byte(req.Key))
	if err == nil && val != nil {
		return RetrieveResponse{Value: val}, nil
	}
	r, err := s.store.Get(ctx, req.Key)
	if err != nil {
		return RetrieveResponse{}, err
	}
	return RetrieveResponse{Value: r.Value}, nil
}

// VerifyFile re-audits a file immediately rather than waiting for the
// auditor's scheduled cycle: it fetches every contract on record for the
// file and issues a fresh challenge to each custodian, per spec §4.7/§6.
func (s *Server) VerifyFile(ctx context.Context, req VerifyFileRequest) (VerifyFileResponse, error) {
	contracts, err := s.ledger.GetContracts(ctx, req.FileUUID)
	if err != nil {
		return VerifyFileResponse{}, err
	}

	verifications := make([]PeerVerification, 0, len(contracts))
	for _, contract := range contracts {
		verified := s.verifyContract(ctx, contract)
		verifications = append(verifications, PeerVerification{PeerID: contract.PeerID, Verified: verified})
	}
	return VerifyFileResponse{Verifications: verifications}, nil
}

// verifyContract challenges contract's custodian and records the outcome.
// Failures to reach the custodian count as a failed verification rather
// than aborting the whole VerifyFile call, so one unreachable peer doesn't
// hide the others' results.
func (s *Server) verifyContract(ctx context.Context, contract ledger.Contract) bool {
	target, err := peer.Decode(contract.PeerID)
	if err != nil {
		return false
	}

	seed, err := randomSeed()
	if err != nil {
		return false
	}
	rows, cols := int(contract.Rows), int(contract.Cols)
	challenge := por.NewChallenge(rows, seed)

	resp, err := swarm.SendChallenge(ctx, s.coordinator, target, swarm.ChallengeMessage{
		ContractUUID: contract.ContractUUID, Rows: rows, Cols: cols, Challenge: challenge,
	})
	if err != nil {
		return false
	}

	secret := por.Secret{Rows: rows, Cols: cols, U: por.DecodeVector(contract.SecretM), S: por.DecodeVector(contract.SecretN)}
	passed := por.Audit(secret, challenge, resp.Response)
	if s.metrics != nil {
		s.metrics.RecordVerify(contract.PeerID, passed)
	}
	return passed
}

func (s *Server) GetProviders(ctx context.Context, req GetProvidersRequest) (GetProvidersResponse, error) {
	peers, err := s.coordinator.GetProviders([]byte(req.Key))
	if err != nil {
		return GetProvidersResponse{}, err
	}
	return GetProvidersResponse{PeerIDs: peerIDsToStrings(peers)}, nil
}

func (s *Server) GetClosestPeers(ctx context.Context, req GetClosestPeersRequest) (GetClosestPeersResponse, error) {
	peers, err := s.coordinator.GetClosestPeers([]byte(req.Key))
	if err != nil {
		return GetClosestPeersResponse{}, err
	}
	return GetClosestPeersResponse{PeerIDs: peerIDsToStrings(peers)}, nil
}

func (s *Server) PutTo(ctx context.Context, req PutToRequest) (PutToResponse, error) {
	target, err := peer.Decode(req.PeerID)
	if err != nil {
		return PutToResponse{}, kisserrors.Wrap(err, "unparseable target peer id")
	}
	if err := s.coordinator.PutTo(target, []byte(req.Key), req.Value); err != nil {
		return PutToResponse{}, err
	}
	return PutToResponse{}, nil
}

func (s *Server) StartProviding(ctx context.Context, req StartProvidingRequest) (StartProvidingResponse, error) {
	if err := s.coordinator.StartProviding([]byte(req.Key)); err != nil {
		return StartProvidingResponse{}, err
	}
	return StartProvidingResponse{}, nil
}

// Verify looks up the contract with req.ContractUUID in the ledger and
// reports whether its custodian's reputation score is non-negative. It does
// not read recorded verification claims and does not issue a fresh
// challenge (use VerifyFile for that).
func (s *Server) Verify(ctx context.Context, req VerifyRequest) (VerifyResponse, error) {
	contracts, err := s.ledger.GetAllContracts(ctx)
	if err != nil {
		return VerifyResponse{}, err
	}
	var contract ledger.Contract
	found := false
	for _, c := range contracts {
		if c.ContractUUID == req.ContractUUID {
			contract, found = c, true
			break
		}
	}
	if !found {
		return VerifyResponse{}, kisserrors.ErrRecordNotFound
	}
	rep, err := s.ledger.GetReputation(ctx, contract.PeerID)
	if err != nil {
		return VerifyResponse{}, err
	}
	return VerifyResponse{Passed: rep.Score >= 0}, nil
}

func peerIDsToStrings(ids []peer.ID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func randomSeed() (uint64, error) {
	return por.RandomSeed()
}

// ServiceDesc registers Facade's eight operations as unary gRPC methods
// under the "gob" content subtype (see codec.go), the hand-written
// counterpart of a protoc-generated _grpc.pb.go file.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "kiss.rpc.Facade",
	HandlerType: (*Facade)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Store", Handler: storeHandler},
		{MethodName: "Retrieve", Handler: retrieveHandler},
		{MethodName: "VerifyFile", Handler: verifyFileHandler},
		{MethodName: "GetProviders", Handler: getProvidersHandler},
		{MethodName: "GetClosestPeers", Handler: getClosestPeersHandler},
		{MethodName: "PutTo", Handler: putToHandler},
		{MethodName: "StartProviding", Handler: startProvidingHandler},
		{MethodName: "Verify", Handler: verifyHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "kiss/rpc.proto",
}

func storeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req StoreRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).Store(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/Store"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).Store(ctx, req.(StoreRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func retrieveHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req RetrieveRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).Retrieve(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/Retrieve"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).Retrieve(ctx, req.(RetrieveRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func verifyFileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req VerifyFileRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).VerifyFile(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/VerifyFile"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).VerifyFile(ctx, req.(VerifyFileRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getProvidersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req GetProvidersRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).GetProviders(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/GetProviders"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).GetProviders(ctx, req.(GetProvidersRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func getClosestPeersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req GetClosestPeersRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).GetClosestPeers(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/GetClosestPeers"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).GetClosestPeers(ctx, req.(GetClosestPeersRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func putToHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req PutToRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).PutTo(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/PutTo"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).PutTo(ctx, req.(PutToRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func startProvidingHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req StartProvidingRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).StartProviding(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/StartProviding"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).StartProviding(ctx, req.(StartProvidingRequest))
	}
	return interceptor(ctx, req, info, handler)
}

func verifyHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	var req VerifyRequest
	if err := dec(&req); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(Facade).Verify(ctx, req)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/kiss.rpc.Facade/Verify"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(Facade).Verify(ctx, req.(VerifyRequest))
	}
	return interceptor(ctx, req, info, handler)
}
