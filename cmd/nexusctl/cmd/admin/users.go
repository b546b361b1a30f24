package admin

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/config"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users",
	}
	cmd.AddCommand(newUsersListCmd(), newUsersCreateCmd(), newUsersUpdateCmd(), newUsersRevokeSessionsCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			list, err := admin.ListUsers(ctx)
			if err != nil {
				return fmt.Errorf("failed to list users: %s", cmdutil.Describe(err))
			}

			w := cmdutil.Table(cmd, "ID\tEMAIL\tROLE\tACTIVE\tCREATED\tLAST LOGIN")
			for _, u := range list.Users {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%s\t%s\n",
					u.ID, u.Email, u.Role(), u.IsActive, u.CreatedAt, u.LastLogin)
			}
			return w.Flush()
		},
	}
}

func newUsersCreateCmd() *cobra.Command {
	var (
		user          sdk.NewUser
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user account",
		Long: `Creates an active account. Passwords need at least 8 characters with an
uppercase letter, a lowercase letter and a digit.`,
		Example: `  nexusctl admin users create --email new@example.com --role reviewer
  echo "$PASSWORD" | nexusctl admin users create --email new@example.com --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.MustFromContext(cmd.Context())

			switch {
			case passwordStdin:
				password, err := cmdutil.ReadPassword(cmd.InOrStdin())
				if err != nil {
					return err
				}
				user.Password = password
			case cfg.NonInteractive:
				return fmt.Errorf("--password-stdin is required in non-interactive mode")
			default:
				password, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password for " + user.Email)
				if err != nil {
					return fmt.Errorf("failed to read password: %w", err)
				}
				user.Password = password
			}
			if err := user.Validate(); err != nil {
				return err
			}

			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			created, err := admin.CreateUser(ctx, user)
			if err != nil {
				return fmt.Errorf("failed to create user: %s", cmdutil.Describe(err))
			}
			cmdutil.Success(cmd, "Created %s (%s) with id %s", created.Email, created.Role(), created.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&user.Email, "email", "", "Email address of the new account")
	cmd.Flags().StringVar(&user.Role, "role", "researcher", "Role: researcher, reviewer, admin or auditor")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUsersUpdateCmd() *cobra.Command {
	var (
		role     string
		active   bool
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Change a user's role or status",
		Example: `  nexusctl admin users update 3f2c... --role reviewer
  nexusctl admin users update 3f2c... --inactive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update sdk.UserUpdate
			if cmd.Flags().Changed("role") {
				update.Role = &role
			}
			switch {
			case active:
				update.IsActive = &active
			case inactive:
				status := false
				update.IsActive = &status
			}
			if update.Role == nil && update.IsActive == nil {
				return fmt.Errorf("nothing to update: pass --role, --active or --inactive")
			}

			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			resp, err := admin.UpdateUser(ctx, args[0], update)
			if err != nil {
				return fmt.Errorf("failed to update user: %s", cmdutil.Describe(err))
			}
			cmdutil.Success(cmd, "%s", resp.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "New role: researcher, reviewer, admin or auditor")
	cmd.Flags().BoolVar(&active, "active", false, "Activate the account")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "Deactivate the account")
	cmd.MarkFlagsMutuallyExclusive("active", "inactive")
	return cmd
}

func newUsersRevokeSessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke-sessions <user-id>",
		Short: "Revoke every session of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := adminClient(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := cmdutil.Context(cmd)
			defer cancel()

			resp, err := admin.RevokeUserSessions(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to revoke sessions: %s", cmdutil.Describe(err))
			}
			cmdutil.Success(cmd, "%s", resp.Message)
			return nil
		},
	}
}
