package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
)

func newRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Revoke one of your sessions",
		Long: `Revokes one of your own sessions, for example a login on another machine.
Revoking the current session logs this profile out on its next request.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cmdutil.RequireSession(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			resp, err := session.Auth().RevokeSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke session: %s", cmdutil.Describe(err))
			}
			cmdutil.Success(cmd, "%s", resp.Message)
			return nil
		},
	}
}
