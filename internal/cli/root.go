// Package cli is the stellarcored command surface, mirroring the
// teacher's internal/cli package layout (root.go + one file per
// subcommand) built on github.com/spf13/cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
	debug      bool
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "stellarcored",
	Short: "stellarcored - Account Ledger Store and Peer Overlay node",
	Long: `stellarcored runs the Account Ledger Store (durable account/signer
persistence) and Peer Overlay (handshake, flood gossip, message dispatch)
subsystems of a Stellar-lineage consensus node. Consensus, block production,
and historical archival are out of scope; this binary exercises the storage
and networking core standalone.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (TOML)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}
