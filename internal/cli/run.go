package cli

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/stellarcore-go/ledger-overlay/internal/adminapi"
	"github.com/stellarcore-go/ledger-overlay/internal/config"
	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
	"github.com/stellarcore-go/ledger-overlay/internal/ledger"
	"github.com/stellarcore-go/ledger-overlay/internal/noderuntime"
	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb/postgres"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb/sqlite"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/peerstore"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the node (Account Ledger Store + Peer Overlay)",
	RunE:  runNode,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.RunE = runNode
}

// directoryAdapter bridges overlay.Manager.Sessions (overlay.PeerSummary)
// to adminapi.PeerDirectory (adminapi.PeerSummary) — the two packages
// define structurally identical but distinct named types, so Go requires
// an explicit conversion at the seam between them.
type directoryAdapter struct {
	manager *overlay.Manager
}

func (d directoryAdapter) Sessions() []adminapi.PeerSummary {
	sessions := d.manager.Sessions()
	out := make([]adminapi.PeerSummary, len(sessions))
	for i, s := range sessions {
		out[i] = adminapi.PeerSummary{
			ID:            s.ID,
			State:         s.State,
			Authenticated: s.Authenticated,
			Inbound:       s.Inbound,
			IP:            s.IP,
		}
	}
	return out
}

func runNode(cmd *cobra.Command, args []string) error {
	logger := obslog.New()

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("run: load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	registry := prometheus.NewRegistry()

	dbCfg := &accountdb.Config{
		Driver:           cfg.Database.Driver,
		ConnectionString: cfg.Database.DSN,
		Database:         cfg.Database.DSN,
		SSLMode:          "prefer",
		MaxOpenConns:     25,
		MaxIdleConns:     5,
		DefaultTimeout:   30_000_000_000, // 30s, in ns as an int64 literal to avoid importing time just for this
	}

	var db accountdb.Database
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgres.Open(ctx, dbCfg, registry)
	default:
		db, err = sqlite.Open(ctx, dbCfg, registry)
	}
	if err != nil {
		return fmt.Errorf("run: open account database: %w", err)
	}
	defer db.Close()

	store := ledger.NewStore(db, ledger.NewEntryCache(ledger.DefaultCacheSize), logger)
	lm := noderuntime.NewStandaloneLedgerManager()
	sink := noderuntime.NewImmediateDeltaSink(lm)

	keyPair, err := cryptoutil.LoadOrCreateSeedFile(cfg.Overlay.NodeSeedPath)
	if err != nil {
		return fmt.Errorf("run: load node identity: %w", err)
	}

	if err := ensureSelfAccount(ctx, store, lm, sink, keyPair.Public); err != nil {
		return fmt.Errorf("run: provision node account: %w", err)
	}

	peerStore, err := peerstore.Open(cfg.Overlay.PeerStorePath)
	if err != nil {
		return fmt.Errorf("run: open peer store: %w", err)
	}
	defer peerStore.Close()

	networkID := cryptoutil.SHA256([]byte(cfg.Overlay.NetworkPassphrase))
	handshakeCfg := overlay.HandshakeConfig{
		KeyPair:        keyPair,
		NetworkID:      networkID,
		LedgerVersion:  1,
		OverlayVersion: 1,
		VersionStr:     rootCmd.Version,
		ListeningPort:  listenPort(cfg.Overlay.ListenAddr),
	}

	flood := overlay.NewFloodMemoizer()
	manager := overlay.NewManager(handshakeCfg, noderuntime.NullHerder{}, peerStore, flood, lm, logger)

	logger.Info("account ledger store ready", "driver", cfg.Database.Driver, "ledger", lm.CurrentLedgerIndex())

	var adminServer *adminapi.Server
	if cfg.Admin.Enabled {
		adminCfg := adminapi.DefaultServerConfig()
		adminCfg.Address = cfg.Admin.ListenAddr
		adminServer, err = adminapi.NewServer(adminCfg, directoryAdapter{manager: manager}, flood)
		if err != nil {
			return fmt.Errorf("run: construct admin server: %w", err)
		}
		if err := adminServer.StartAsync(func(err error) {
			logger.Error("admin server stopped", "error", err)
		}); err != nil {
			return fmt.Errorf("run: start admin server: %w", err)
		}
		logger.Info("admin api listening", "addr", adminServer.Address())
		defer adminServer.Stop()
	}

	for _, addr := range cfg.Overlay.KnownPeers {
		addr := addr
		go func() {
			if err := manager.Connect(ctx, addr); err != nil {
				logger.Warn("initial connect failed", "peer", addr, "error", err)
			}
		}()
	}

	logger.Info("overlay listening", "addr", cfg.Overlay.ListenAddr)
	err = manager.ListenAndServe(ctx, cfg.Overlay.ListenAddr)
	if ctx.Err() != nil {
		logger.Info("shutting down")
		return nil
	}
	return err
}

// ensureSelfAccount loads this node's own account entry (keyed by its
// handshake identity) and, if it has never been persisted, creates it
// funded at exactly its minimum reserve — the node's identity is a signer,
// not a funded participant, so it needs no balance above reserve.
func ensureSelfAccount(
	ctx context.Context,
	store *ledger.Store,
	lm *noderuntime.StandaloneLedgerManager,
	sink *noderuntime.ImmediateDeltaSink,
	publicKey [32]byte,
) error {
	frame, err := store.Load(ctx, publicKey)
	if err != nil {
		return err
	}
	if !frame.IsNew() {
		return nil
	}

	entry := frame.Entry()
	entry.Balance = entry.GetMinimumBalance(lm)
	frame.SetEntry(entry)
	return store.StoreAdd(ctx, frame, sink)
}

// listenPort extracts the numeric port from a "host:port" listen address
// for the HELLO message's ListeningPort field; 0 (invalid per spec.md
// §4.6.2) if addr doesn't carry a parseable port.
func listenPort(addr string) int32 {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return 0
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return 0
	}
	return int32(port)
}
