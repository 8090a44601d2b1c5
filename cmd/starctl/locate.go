package main

import (
	"fmt"

	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/spf13/cobra"
)

func newLocateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "locate <point>",
		Short: "Resolve a particle's current star and host location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp adminapi.LocateResponse
			req := adminapi.LocateRequest{Point: args[0]}
			if err := adminapi.PostJSON(cmd.Context(), resolveAddr()+"/locate", req, &resp); err != nil {
				return err
			}
			fmt.Printf("star: %s\nhost: %s\n", resp.Star, resp.Host)
			return nil
		},
	}
}
