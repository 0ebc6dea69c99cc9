// Command stellarcored runs the Account Ledger Store and Peer Overlay node.
package main

import "github.com/stellarcore-go/ledger-overlay/internal/cli"

func main() {
	cli.Execute()
}
