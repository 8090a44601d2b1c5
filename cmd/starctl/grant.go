package main

import (
	"fmt"

	"github.com/dreamware/starlane/internal/adminapi"
	"github.com/spf13/cobra"
)

var (
	grantOn        string
	grantTo        string
	grantPrivilege string
	grantBy        string
)

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant",
		Short: "Grant a privilege on a point selector to a principal",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ack adminapi.Ack
			req := adminapi.GrantRequest{
				On:        grantOn,
				To:        grantTo,
				Privilege: grantPrivilege,
				By:        grantBy,
			}
			if err := adminapi.PostJSON(cmd.Context(), resolveAddr()+"/grant", req, &ack); err != nil {
				return err
			}
			fmt.Println("grant recorded")
			return nil
		},
	}
	cmd.Flags().StringVar(&grantOn, "on", "", "point selector the privilege applies to (required)")
	cmd.Flags().StringVar(&grantTo, "to", "", "point selector of the principal receiving the privilege (required)")
	cmd.Flags().StringVar(&grantPrivilege, "privilege", "", "privilege string, e.g. \"*\" or \"bind\" (required)")
	cmd.Flags().StringVar(&grantBy, "by", "", "point of the particle asserting the grant (required)")
	cmd.MarkFlagRequired("on")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("privilege")
	cmd.MarkFlagRequired("by")
	return cmd
}
