// Package server wires the coordination runtime: storage, engine, broadcast,
// the HTTP API, and the gRPC health endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/lockstep-ops/lockstep/internal/platform/config"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/api/httpapi"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/broadcast"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/docgen"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/domain"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/notify"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/planstore"
	"github.com/lockstep-ops/lockstep/internal/services/coordination/simulation"
	coordsqlite "github.com/lockstep-ops/lockstep/internal/services/coordination/storage/sqlite"
)

type serverEnv struct {
	DBPath     string `env:"LOCKSTEP_COORDINATION_DB_PATH"`
	PlanDBPath string `env:"LOCKSTEP_PLAN_DB_PATH"`
	HealthAddr string `env:"LOCKSTEP_HEALTH_ADDR"`
}

func loadServerEnv() (serverEnv, error) {
	var cfg serverEnv
	if err := config.ParseEnv(&cfg); err != nil {
		return serverEnv{}, err
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "coordination.db")
	}
	if strings.TrimSpace(cfg.PlanDBPath) == "" {
		cfg.PlanDBPath = filepath.Join("data", "plans.db")
	}
	return cfg, nil
}

// Server hosts the coordination HTTP API, health endpoint, and storage
// lifecycle.
type Server struct {
	httpListener   net.Listener
	healthListener net.Listener
	httpServer     *http.Server
	grpcServer     *grpc.Server
	health         *health.Server
	store          *coordsqlite.Store
	plans          *planstore.Store
	broker         *broadcast.Broker
	documents      *docgen.Generator
	driver         *simulation.Driver
}

// New creates a configured coordination server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured coordination server for the provided
// address. The gRPC health endpoint listens on LOCKSTEP_HEALTH_ADDR, or an
// ephemeral port when unset.
func NewWithAddr(addr string) (*Server, error) {
	httpListener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	env, err := loadServerEnv()
	if err != nil {
		_ = httpListener.Close()
		return nil, err
	}
	healthAddr := strings.TrimSpace(env.HealthAddr)
	if healthAddr == "" {
		healthAddr = ":0"
	}
	healthListener, err := net.Listen("tcp", healthAddr)
	if err != nil {
		_ = httpListener.Close()
		return nil, fmt.Errorf("listen on %s: %w", healthAddr, err)
	}

	store, err := openCoordinationStore(env.DBPath)
	if err != nil {
		_ = httpListener.Close()
		_ = healthListener.Close()
		return nil, err
	}
	plans, err := openPlanStore(env.PlanDBPath)
	if err != nil {
		_ = httpListener.Close()
		_ = healthListener.Close()
		_ = store.Close()
		return nil, err
	}

	broker := broadcast.New()
	documents := docgen.New(broker)
	engine := domain.NewEngine(store, plans,
		domain.WithBroadcaster(broker),
		domain.WithNotifier(notify.NewLogDispatcher()),
		domain.WithDocumentGenerator(documents),
	)
	driver := simulation.NewDriver(engine)
	handler := httpapi.NewHandler(engine, plans, broker, driver)

	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("lockstep.coordination", grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		httpListener:   httpListener,
		healthListener: healthListener,
		httpServer: &http.Server{
			Handler:           handler.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		},
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
		plans:      plans,
		broker:     broker,
		documents:  documents,
		driver:     driver,
	}, nil
}

// Addr returns the HTTP listener address.
func (s *Server) Addr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// HealthAddr returns the gRPC health listener address.
func (s *Server) HealthAddr() string {
	if s == nil || s.healthListener == nil {
		return ""
	}
	return s.healthListener.Addr().String()
}

// Run creates and serves a coordination server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP and health servers until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("coordination server listening at %v (health %v)", s.httpListener.Addr(), s.healthListener.Addr())
	serveErr := make(chan error, 2)
	go func() {
		err := s.httpServer.Serve(s.httpListener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()
	go func() {
		err := s.grpcServer.Serve(s.healthListener)
		if errors.Is(err, grpc.ErrServerStopped) {
			err = nil
		}
		serveErr <- err
	}()

	select {
	case <-ctx.Done():
		s.shutdown()
		<-serveErr
		<-serveErr
		return nil
	case err := <-serveErr:
		s.shutdown()
		<-serveErr
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}
}

func (s *Server) shutdown() {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.driver != nil {
		s.driver.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.httpServer.Shutdown(shutdownCtx)
	s.grpcServer.GracefulStop()
}

// Close releases coordination server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.driver != nil {
		s.driver.Stop()
	}
	if s.grpcServer != nil {
		s.grpcServer.Stop()
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.httpListener != nil {
		_ = s.httpListener.Close()
	}
	if s.healthListener != nil {
		_ = s.healthListener.Close()
	}
	if s.broker != nil {
		s.broker.Close()
	}
	if s.documents != nil {
		s.documents.Close()
	}
	if s.plans != nil {
		if err := s.plans.Close(); err != nil {
			log.Printf("close plan store: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close coordination store: %v", err)
		}
	}
}

func openCoordinationStore(path string) (*coordsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := coordsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open coordination sqlite store: %w", err)
	}
	return store, nil
}

func openPlanStore(path string) (*planstore.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := planstore.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plan sqlite store: %w", err)
	}
	return store, nil
}
