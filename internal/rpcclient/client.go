// Package rpcclient is the thin gRPC client for the daemon's Facade
// service, used by cmd/kissctl, grounded on internal/ledger.Client's
// invoke-by-method-name style.
package rpcclient

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"kiss/internal/kisserrors"
	"kiss/internal/rpc"
)

// Client calls a kissd Facade over gRPC using the gob content subtype
// internal/rpc/codec.go registers, without any generated client stub.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a kissd instance's gRPC listener at addr.
func Dial(addr string) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, kisserrors.Wrap(err, "kissd dial failed")
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, resp any) error {
	opts := []grpc.CallOption{grpc.CallContentSubtype("gob")}
	if err := c.conn.Invoke(ctx, method, req, resp, opts...); err != nil {
		return kisserrors.Wrap(err, "facade rpc "+method+" failed")
	}
	return nil
}

func (c *Client) Store(ctx context.Context, req rpc.StoreRequest) (rpc.StoreResponse, error) {
	var resp rpc.StoreResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/Store", &req, &resp)
	return resp, err
}

func (c *Client) Retrieve(ctx context.Context, req rpc.RetrieveRequest) (rpc.RetrieveResponse, error) {
	var resp rpc.RetrieveResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/Retrieve", &req, &resp)
	return resp, err
}

func (c *Client) VerifyFile(ctx context.Context, req rpc.VerifyFileRequest) (rpc.VerifyFileResponse, error) {
	var resp rpc.VerifyFileResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/VerifyFile", &req, &resp)
	return resp, err
}

func (c *Client) GetProviders(ctx context.Context, req rpc.GetProvidersRequest) (rpc.GetProvidersResponse, error) {
	var resp rpc.GetProvidersResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/GetProviders", &req, &resp)
	return resp, err
}

func (c *Client) GetClosestPeers(ctx context.Context, req rpc.GetClosestPeersRequest) (rpc.GetClosestPeersResponse, error) {
	var resp rpc.GetClosestPeersResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/GetClosestPeers", &req, &resp)
	return resp, err
}

func (c *Client) PutTo(ctx context.Context, req rpc.PutToRequest) (rpc.PutToResponse, error) {
	var resp rpc.PutToResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/PutTo", &req, &resp)
	return resp, err
}

func (c *Client) StartProviding(ctx context.Context, req rpc.StartProvidingRequest) (rpc.StartProvidingResponse, error) {
	var resp rpc.StartProvidingResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/StartProviding", &req, &resp)
	return resp, err
}

func (c *Client) Verify(ctx context.Context, req rpc.VerifyRequest) (rpc.VerifyResponse, error) {
	var resp rpc.VerifyResponse
	err := c.invoke(ctx, "/kiss.rpc.Facade/Verify", &req, &resp)
	return resp, err
}
