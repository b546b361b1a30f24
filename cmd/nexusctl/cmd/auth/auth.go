package auth

import (
	"github.com/spf13/cobra"
)

// NewAuthCmd is the parent command for auth operations
func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage authentication",
		Long:  `Commands for logging in and out, inspecting the current login and managing your sessions.`,
	}
	cmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newSessionsCmd(),
		newRevokeCmd(),
		newExportCmd(),
	)
	return cmd
}
