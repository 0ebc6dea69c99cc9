package adminapi

import (
	"errors"
	"net"
	"sync"

	"google.golang.org/grpc"

	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

// PeerSummary is one row of ListPeers' result (SPEC_FULL.md §5.9).
type PeerSummary struct {
	ID            string
	State         string
	Authenticated bool
	Inbound       bool
	IP            string
}

// PeerDirectory is the node-wide collaborator the admin API queries for
// connected-peer introspection. The owning node's overlay manager
// implements it.
type PeerDirectory interface {
	Sessions() []PeerSummary
}

// Server is the admin gRPC server: ListPeers/FloodStats/ForceClearBelow
// over the peer directory and Flood Memoizer. Adapted from the teacher's
// grpc.Server scaffolding (internal/grpc/server.go): same
// config-validate/listen/serve/graceful-stop lifecycle, generalized from
// the teacher's ledger-service handlers to this core's peer/flood
// introspection.
type Server struct {
	mu sync.RWMutex

	grpcServer *grpc.Server
	directory  PeerDirectory
	flood      *overlay.FloodMemoizer
	config     *ServerConfig

	listener net.Listener
	running  bool
}

// NewServer constructs an admin server. Register any gRPC services that
// should share the listener on GRPCServer() before Start.
func NewServer(cfg *ServerConfig, directory PeerDirectory, flood *overlay.FloodMemoizer) (*Server, error) {
	if cfg == nil {
		cfg = DefaultServerConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []grpc.ServerOption{
		grpc.MaxRecvMsgSize(cfg.MaxRecvMsgSize),
		grpc.MaxSendMsgSize(cfg.MaxSendMsgSize),
	}

	return &Server{
		grpcServer: grpc.NewServer(opts...),
		directory:  directory,
		flood:      flood,
		config:     cfg,
	}, nil
}

// GRPCServer returns the underlying grpc.Server so other services can be
// registered on the same listener.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// Start starts the admin server and blocks until it is stopped or errors.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("adminapi: server already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	return s.grpcServer.Serve(listener)
}

// StartAsync starts the admin server in a goroutine.
func (s *Server) StartAsync(onError func(error)) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("adminapi: server already running")
	}
	listener, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.listener = listener
	s.running = true
	s.mu.Unlock()

	go func() {
		if err := s.grpcServer.Serve(listener); err != nil && onError != nil {
			onError(err)
		}
	}()
	return nil
}

// Stop gracefully stops the admin server.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.grpcServer.GracefulStop()
	s.running = false
}

// Address returns the address the server is listening on, or "" if not running.
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// IsRunning reports whether the server is currently serving.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}
