// Command kissd runs the custody daemon: the swarm coordinator, the
// periodic auditor, the optional malice harness, and the RPC façade, all
// supervised by an errgroup, the Go counterpart of
// original_source/src/main.rs's tokio::try_join!.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"kiss/internal/auditor"
	"kiss/internal/config"
	"kiss/internal/kisslog"
	"kiss/internal/ledger"
	"kiss/internal/malice"
	"kiss/internal/objectstore"
	"kiss/internal/por"
	"kiss/internal/record"
	"kiss/internal/rpc"
	"kiss/internal/swarm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "kissd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger, err := kisslog.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		return err
	}
	if err := kisslog.InitHotPath(cfg.Logging.Level); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := objectstore.NewLocal(cfg.Storage.Path, cfg.Storage.Create)
	if err != nil {
		return err
	}
	store := record.NewObjectStore(backend)

	led, err := ledger.Dial(cfg.Ledger.Address)
	if err != nil {
		return err
	}
	defer led.Close()
	if err := led.Login(ctx, cfg.Ledger.Username, cfg.Ledger.Password); err != nil {
		return err
	}
	if err := led.CreateDatabase(ctx, "kiss"); err != nil {
		return err
	}

	coord, err := swarm.New(ctx, cfg.Swarm, store, logger)
	if err != nil {
		return err
	}
	swarm.RegisterVerificationHandler(coord, challengeHandler(store))

	registry := prometheus.NewRegistry()
	metrics := rpc.NewMetrics(registry)

	facade := rpc.NewServer(store, led, coord, metrics, cfg.Replication.Factor)

	auditCfg := auditor.Config{
		Interval: time.Duration(cfg.Audit.IntervalSeconds) * time.Second,
		NumPeers: cfg.Audit.NumPeers,
	}
	aud := auditor.New(auditCfg, led, coord, coord.Identity(), coord.Host().ID(), logger)

	harness := malice.New(store, malice.Behavior(cfg.MaliciousBehavior), time.Minute, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coord.Run(gctx) })
	g.Go(func() error { return aud.Run(gctx) })
	g.Go(func() error { return harness.Run(gctx) })
	g.Go(func() error { return serveGRPC(gctx, cfg.Grpc.Port, facade) })
	g.Go(func() error { return serveMetrics(gctx, metrics) })

	return g.Wait()
}

func serveGRPC(ctx context.Context, port uint16, facade rpc.Facade) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	srv := grpc.NewServer()
	rpc.RegisterFacadeServer(srv, facade)

	go func() {
		<-ctx.Done()
		srv.GracefulStop()
	}()
	return srv.Serve(lis)
}

func serveMetrics(ctx context.Context, metrics *rpc.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: ":9090", Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// challengeHandler answers incoming PoR challenges using the locally held
// copy of the challenged file.
func challengeHandler(store record.Store) swarm.ChallengeHandler {
	return func(msg swarm.ChallengeMessage) swarm.ResponseMessage {
		r, err := store.Get(context.Background(), msg.ContractUUID)
		if err != nil {
			return swarm.ResponseMessage{ContractUUID: msg.ContractUUID, Err: err.Error()}
		}
		resp := por.FulfillChallenge(r.Value, msg.Rows, msg.Cols, msg.Challenge)
		return swarm.ResponseMessage{ContractUUID: msg.ContractUUID, Response: resp}
	}
}
