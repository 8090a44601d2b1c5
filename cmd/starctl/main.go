// Command starctl is the operator CLI for a running star's admin
// surface: listing adjacent peers, locating particles, triggering a
// wrangle round, and granting access.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var adminAddr string

func main() {
	root := &cobra.Command{
		Use:   "starctl",
		Short: "Operate a Starlane star over its admin surface",
		Long: `starctl talks to a running star's loopback admin surface.

Point it at a star with --addr (or STARLANE_ADMIN_ADDR), then:

  $ starctl nodes               # list directly adjacent stars
  $ starctl locate space:app:x  # resolve a particle's current location
  $ starctl wrangle             # trigger an immediate discovery round
  $ starctl grant ...           # grant a privilege on a point`,
	}
	root.PersistentFlags().StringVar(&adminAddr, "addr", "http://127.0.0.1:7891", "admin surface address (or STARLANE_ADMIN_ADDR)")

	root.AddCommand(newNodesCmd())
	root.AddCommand(newLocateCmd())
	root.AddCommand(newWrangleCmd())
	root.AddCommand(newGrantCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveAddr() string {
	if env := os.Getenv("STARLANE_ADMIN_ADDR"); env != "" && adminAddr == "http://127.0.0.1:7891" {
		return env
	}
	return adminAddr
}
