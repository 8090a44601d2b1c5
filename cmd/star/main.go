// Command star runs one mesh node: it loads a star's configuration,
// opens its registry, listens for and dials lanes to its configured
// peers, and serves a loopback admin surface for starctl.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "star",
		Short: "Run a Starlane mesh node",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a star.yaml config file")
	root.AddCommand(newServeCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
