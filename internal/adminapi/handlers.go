package adminapi

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ListPeersRequest is the (currently empty) request for ListPeers.
type ListPeersRequest struct{}

// ListPeersResponse carries one summary per connected session.
type ListPeersResponse struct {
	Peers []PeerSummary
}

// ListPeers returns a summary of every session the peer directory knows
// about (SPEC_FULL.md §5.9).
func (s *Server) ListPeers(ctx context.Context, req *ListPeersRequest) (*ListPeersResponse, error) {
	s.mu.RLock()
	directory := s.directory
	s.mu.RUnlock()

	if directory == nil {
		return nil, status.Error(codes.Unavailable, "adminapi: peer directory not configured")
	}
	return &ListPeersResponse{Peers: directory.Sessions()}, nil
}

// FloodStatsRequest is the (currently empty) request for FloodStats.
type FloodStatsRequest struct{}

// FloodStatsResponse reports the Flood Memoizer's current size and age.
type FloodStatsResponse struct {
	Records      int
	OldestLedger uint32
	HasRecords   bool
}

// FloodStats reports the Flood Memoizer's record count and the oldest live
// ledger index among them (SPEC_FULL.md §5.9).
func (s *Server) FloodStats(ctx context.Context, req *FloodStatsRequest) (*FloodStatsResponse, error) {
	if s.flood == nil {
		return nil, status.Error(codes.Unavailable, "adminapi: flood memoizer not configured")
	}
	records, oldest, has := s.flood.Stats()
	return &FloodStatsResponse{Records: records, OldestLedger: oldest, HasRecords: has}, nil
}

// ForceClearBelowRequest names the ledger threshold to sweep below.
type ForceClearBelowRequest struct {
	Ledger uint32
}

// ForceClearBelowResponse is empty; success is the absence of an error.
type ForceClearBelowResponse struct{}

// ForceClearBelow administratively triggers the Flood Memoizer's
// clearBelow, for operational testing (SPEC_FULL.md §5.9).
func (s *Server) ForceClearBelow(ctx context.Context, req *ForceClearBelowRequest) (*ForceClearBelowResponse, error) {
	if s.flood == nil {
		return nil, status.Error(codes.Unavailable, "adminapi: flood memoizer not configured")
	}
	s.flood.ClearBelow(req.Ledger)
	return &ForceClearBelowResponse{}, nil
}
