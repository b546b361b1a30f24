// Package admin implements the administration commands. Every command
// requires a login routed to the admin view.
package admin

import (
	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// NewAdminCmd is the parent command for admin operations.
func NewAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer users, sessions and audit logs",
	}
	cmd.AddCommand(newAuditCmd(), newUsersCmd(), newSessionsCmd())
	return cmd
}

// adminClient returns the admin client once the login is verified as admin.
func adminClient(cmd *cobra.Command) (*sdk.AdminClient, error) {
	if _, err := cmdutil.RequireAdmin(cmd); err != nil {
		return nil, err
	}
	return cmdutil.Provider(cmd).Admin()
}
