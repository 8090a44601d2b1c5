package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/spf13/cobra"
)

var nodesJSON bool

func newNodesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the stars directly adjacent to this one",
		RunE: func(cmd *cobra.Command, args []string) error {
			var nodes []adminapi.NodeSummary
			if err := adminapi.GetJSON(cmd.Context(), resolveAddr()+"/nodes", &nodes); err != nil {
				return err
			}
			if nodesJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(nodes)
			}
			printNodesTable(nodes)
			return nil
		},
	}
	cmd.Flags().BoolVar(&nodesJSON, "json", false, "print as JSON instead of a table")
	return cmd
}

func printNodesTable(nodes []adminapi.NodeSummary) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLANE\tFORWARDER")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%v\n", n.Key, n.LaneID, n.Forwarder)
	}
	tw.Flush()
}
