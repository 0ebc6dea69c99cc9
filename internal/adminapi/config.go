// Package adminapi is the admin introspection service (spec.md/SPEC_FULL.md
// §5.9): peer-list, flood-table, and clearBelow operations for operators,
// implemented as Go methods on Server next to a gRPC server lifecycle. No
// gRPC service is registered on that server, so the operations are not
// reachable over the wire. It never participates in consensus
// or replication. Adapted from the teacher's internal/grpc package
// (ServerConfig/Server scaffolding), replacing its XRPL ledger-service
// handlers with this core's overlay/flood introspection.
package adminapi

import (
	"fmt"
	"net"
)

// ServerConfig holds configuration for the admin gRPC server.
type ServerConfig struct {
	// Address is the address to listen on (e.g., "127.0.0.1:50061").
	Address string

	// MaxRecvMsgSize is the maximum message size in bytes the server can receive.
	MaxRecvMsgSize int

	// MaxSendMsgSize is the maximum message size in bytes the server can send.
	MaxSendMsgSize int
}

// DefaultServerConfig returns a ServerConfig with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        "127.0.0.1:50061",
		MaxRecvMsgSize: 4 * 1024 * 1024,
		MaxSendMsgSize: 4 * 1024 * 1024,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	host, port, err := net.SplitHostPort(c.Address)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if c.MaxRecvMsgSize <= 0 {
		return fmt.Errorf("max_recv_msg_size must be positive")
	}
	if c.MaxSendMsgSize <= 0 {
		return fmt.Errorf("max_send_msg_size must be positive")
	}
	return nil
}
