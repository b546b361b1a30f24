package auth

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
)

func newSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List your active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cmdutil.RequireSession(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			list, err := session.Auth().ListSessions(ctx)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %s", cmdutil.Describe(err))
			}
			if len(list.Sessions) == 0 {
				cmdutil.Info(cmd, "No active sessions")
				return nil
			}

			w := cmdutil.Table(cmd, "SESSION ID\tISSUED\tLAST SEEN\tIP ADDRESS\tCURRENT")
			for _, s := range list.Sessions {
				current := ""
				if s.IsCurrent {
					current = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					s.SessionID, s.IssuedAt, s.LastSeen, cmdutil.Dash(s.IPAddress), current)
			}
			return w.Flush()
		},
	}
}
