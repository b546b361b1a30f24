package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
)

func newLogoutCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Log out from BioMind Nexus",
		Long: `Invalidates the current session on the server and removes the stored
credentials. The local credentials are removed even when the server cannot be
reached. Use --all to invalidate every session of your account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cmdutil.Provider(cmd).Session()
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			logout := session.Logout
			if all {
				logout = session.LogoutEverywhere
			}
			if err := logout(ctx); err != nil {
				return fmt.Errorf("failed to remove local credentials: %w", err)
			}

			if all {
				cmdutil.Success(cmd, "Logged out of all sessions")
			} else {
				cmdutil.Success(cmd, "Logged out successfully")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Invalidate every session of your account")
	return cmd
}
