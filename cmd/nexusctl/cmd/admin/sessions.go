package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
)

func newSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage active sessions across all users",
	}
	cmd.AddCommand(newSessionsListCmd(), newSessionsRevokeCmd())
	return cmd
}

func newSessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			list, err := admin.ListActiveSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %s", cmdutil.Describe(err))
			}

			w := cmdutil.Table(cmd, "SESSION ID\tUSER\tISSUED\tEXPIRES\tLAST SEEN\tIP ADDRESS")
			for _, s := range list.Sessions {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.SessionID, s.UserEmail, s.IssuedAt, s.ExpiresAt, s.LastSeen, cmdutil.Dash(s.IPAddress))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d active sessions\n", list.Total)
			return nil
		},
	}
}

func newSessionsRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <session-id>",
		Short: "Revoke any user's session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			resp, err := admin.RevokeSession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke session: %s", cmdutil.Describe(err))
			}
			cmdutil.Success(cmd, "%s", resp.Message)
			return nil
		},
	}
}
