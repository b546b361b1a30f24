package auth

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display authentication status",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := cmdutil.Provider(cmd)
			tokens, err := provider.Tokens()
			if err != nil {
				return err
			}
			cred, err := tokens.Read()
			if err != nil {
				return err
			}
			if cred == nil {
				return cmdutil.ErrLoginRequired
			}

			session, err := provider.InitializedSession(cmd.Context())
			if err != nil {
				return err
			}
			if !session.IsAuthenticated() {
				if cause := session.LastError(); cause != nil {
					return fmt.Errorf("stored session could not be verified: %s", cmdutil.Describe(cause))
				}
				return cmdutil.ErrLoginRequired
			}

			out := cmd.OutOrStdout()
			user := session.User()
			cmdutil.Section(out, "Authentication Status")
			w := cmdutil.Table(cmd, "FIELD\tVALUE")
			fmt.Fprintf(w, "User\t%s\n", user.Email)
			fmt.Fprintf(w, "User ID\t%s\n", user.ID)
			fmt.Fprintf(w, "Role\t%s\n", user.Role())
			fmt.Fprintf(w, "View\t%s\n", session.View())
			fmt.Fprintf(w, "Session ID\t%s\n", cred.SessionID)
			fmt.Fprintf(w, "Expires\t%s (in %s)\n", cred.ExpiresAt.Local().Format(time.RFC1123), time.Until(cred.ExpiresAt).Round(time.Second))
			fmt.Fprintf(w, "Server\t%s\n", cmdutil.ServerURL(cmd))

			if claims, err := sdk.InspectToken(cred.AccessToken); err == nil {
				if claims.IssuedAt != nil {
					fmt.Fprintf(w, "Token issued\t%s\n", claims.IssuedAt.Local().Format(time.RFC1123))
				}
				if claims.ID != "" {
					fmt.Fprintf(w, "Token ID\t%s\n", claims.ID)
				}
			}
			return w.Flush()
		},
	}
}
