package auth

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/config"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func newLoginCmd() *cobra.Command {
	var (
		email         string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to BioMind Nexus",
		Long: `Authenticates with email and password and stores the returned access token
and session id under ~/.nexus/<profile>/credentials.json.

The password is prompted for interactively. In scripts, pipe it on stdin:

  echo "$PASSWORD" | nexusctl auth login --email me@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustFromContext(cmd.Context())

			if email == "" {
				if cfg.NonInteractive {
					return fmt.Errorf("--email is required in non-interactive mode")
				}
				var err error
				email, err = pterm.DefaultInteractiveTextInput.Show("Email")
				if err != nil {
					return fmt.Errorf("failed to read email: %w", err)
				}
			}

			var password string
			switch {
			case passwordStdin:
				var err error
				password, err = cmdutil.ReadPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
			case cfg.NonInteractive:
				return fmt.Errorf("--password-stdin is required in non-interactive mode")
			default:
				var err error
				password, err = pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
			}

			session, err := cfg.ClientProvider.Session()
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			user, err := session.Login(ctx, email, password)
			switch {
			case err == nil:
			case errors.Is(err, sdk.ErrInvalidCredentials):
				return fmt.Errorf("login failed: %w", err)
			case errors.Is(err, sdk.ErrNetwork):
				return fmt.Errorf("could not reach %s: %w", cfg.ServerURL, err)
			case errors.Is(err, sdk.ErrProfileResolutionFailed):
				return fmt.Errorf("logged in, but loading your profile failed; run 'nexusctl home' to retry: %w", err)
			default:
				return fmt.Errorf("login failed: %s", cmdutil.Describe(err))
			}

			cmdutil.Success(cmd, "Logged in as %s (%s)", user.Email, user.Role())
			cmdutil.Info(cmd, "Run 'nexusctl home' to see the commands available to you")
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email address")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	return cmd
}
