// Chalkboard
//
// Realtime classroom relay and sync tooling: a WebSocket hub that fans
// events out between teacher and student clients, retains the latest
// teacher broadcast per activity for late joiners, plus maintenance
// commands for the on-device lock store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "chalkboard",
	Short: "Chalkboard - classroom realtime relay",
	Long: `Chalkboard relays classroom events between teacher and student clients
and retains the latest teacher broadcast per activity for late joiners.

  chalkboard serve                 Start the relay server
  chalkboard clear-locks --all     Drop every group lock on this device
  chalkboard clear-locks --group 3 Drop one stuck group lock`,
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
