package main

import (
	"fmt"

	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/spf13/cobra"
)

var wrangleKind string

func newWrangleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wrangle",
		Short: "Trigger an immediate peer discovery round",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ack adminapi.Ack
			req := adminapi.WrangleRequest{Kind: wrangleKind}
			if err := adminapi.PostJSON(cmd.Context(), resolveAddr()+"/wrangle", req, &ack); err != nil {
				return err
			}
			fmt.Println("wrangle triggered")
			return nil
		},
	}
	cmd.Flags().StringVar(&wrangleKind, "kind", "", "kind to name in the request; the star does not consult it and runs a round for every kind it is configured to wrangle")
	return cmd
}
