package admin

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func newAuditCmd() *cobra.Command {
	var query sdk.AuditLogQuery

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Browse the audit log",
		Example: `  nexusctl admin audit
  nexusctl admin audit --event-type auth.login.failure --page 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := query.Encode(); err != nil {
				return err
			}
			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			page, err := admin.AuditLogs(ctx, query)
			if err != nil {
				return fmt.Errorf("failed to load audit logs: %s", cmdutil.Describe(err))
			}

			w := cmdutil.Table(cmd, "TIME\tEVENT\tUSER\tACTION\tREQUEST ID")
			for _, entry := range page.Logs {
				user := entry.UserEmail
				if user == "" {
					user = entry.UserID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					entry.Timestamp, entry.EventType, cmdutil.Dash(user), entry.Action, cmdutil.Dash(entry.RequestID))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nPage %d, %d of %d entries\n", page.Page, len(page.Logs), page.Total)
			return nil
		},
	}

	cmd.Flags().IntVar(&query.Page, "page", 1, "Page number")
	cmd.Flags().IntVar(&query.PageSize, "page-size", 50, "Entries per page (10-100)")
	cmd.Flags().StringVar(&query.EventType, "event-type", "", "Only show events of this type")
	cmd.Flags().StringVar(&query.UserID, "user-id", "", "Only show events for this user")
	return cmd
}
