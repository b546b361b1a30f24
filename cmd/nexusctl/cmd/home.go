package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

type menuEntry struct {
	command     string
	description string
}

var researcherMenu = []menuEntry{
	{"query submit <text>", "Submit a drug repurposing query"},
	{"query examples", "Show example queries"},
	{"query entity-types", "List supported biomedical entity types"},
	{"report audit [query-id]", "Show the audit trail of a query"},
	{"report graph [query-id]", "Show the reasoning graph of a query"},
	{"report citations [query-id]", "List the literature behind a query"},
	{"report pdf [query-id]", "Download the PDF report of a query"},
	{"auth sessions", "List your active sessions"},
	{"auth logout", "Log out"},
}

var adminMenu = append([]menuEntry{
	{"admin audit", "Browse the audit log"},
	{"admin users list", "List users"},
	{"admin users create --email <email>", "Create a user account"},
	{"admin users update <user-id>", "Change a user's role or status"},
	{"admin users revoke-sessions <user-id>", "Revoke all sessions of a user"},
	{"admin sessions list", "List all active sessions"},
	{"admin sessions revoke <session-id>", "Revoke any session"},
}, researcherMenu...)

func newHomeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "home",
		Short: "Show the commands available for the current login",
		Long: `Resolves the stored login and shows the commands for your role. Without a
valid login, or when your profile cannot be loaded, this shows how to log in.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := cmdutil.Provider(cmd).InitializedSession(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			var menu []menuEntry
			switch session.View() {
			case sdk.AdminView:
				cmdutil.Section(out, "BioMind Nexus - Administration")
				menu = adminMenu
			case sdk.ResearcherView:
				cmdutil.Section(out, "BioMind Nexus - Research")
				menu = researcherMenu
			default:
				if cause := session.LastError(); cause != nil {
					cmdutil.Warning(cmd, "Could not restore your session: %s", cmdutil.Describe(cause))
				}
				cmdutil.Section(out, "BioMind Nexus")
				fmt.Fprintln(out, "You are not logged in. Run 'nexusctl auth login' to get started.")
				return nil
			}

			user := session.User()
			fmt.Fprintf(out, "Signed in as %s (%s)\n\n", user.Email, user.Role())
			w := cmdutil.Table(cmd, "COMMAND\tDESCRIPTION")
			for _, entry := range menu {
				fmt.Fprintf(w, "nexusctl %s\t%s\n", entry.command, entry.description)
			}
			return w.Flush()
		},
	}
}
