package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/admin"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/auth"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/query"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/report"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/client"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/config"
)

// NewRootCmd builds the nexusctl command tree.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nexusctl",
		Short: "BioMind Nexus CLI - drug repurposing research client",
		Long: `nexusctl is the command-line client for BioMind Nexus. Use it to log in,
submit drug repurposing queries, inspect reports and, for administrators,
manage users, sessions and audit logs.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.NonInteractive || cfg.Debug {
				pterm.DisableStyling()
			}

			cfg.ClientProvider = client.NewProvider(client.Options{
				ServerURL:     cfg.ServerURL,
				CredentialDir: cfg.CredentialDir(),
				Timeout:       cfg.Timeout,
				Logger:        client.NewLogger(cmd.ErrOrStderr(), cfg.Debug),
			})
			cmd.SetContext(config.InjectConfig(cmd.Context(), cfg))
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("server", config.DefaultServerURL, "BioMind Nexus API URL (env: NEXUS_SERVER_URL)")
	flags.String("profile", config.DefaultProfile, "Credential profile under ~/.nexus (env: NEXUS_PROFILE)")
	flags.Duration("timeout", config.DefaultTimeout, "Per-request timeout (env: NEXUS_TIMEOUT)")
	flags.Bool("non-interactive", false, "Disable interactive prompts (env: NEXUS_NON_INTERACTIVE)")
	flags.Bool("debug", false, "Enable debug logging (env: NEXUS_DEBUG)")

	rootCmd.AddCommand(
		auth.NewAuthCmd(),
		newHomeCmd(),
		query.NewQueryCmd(),
		report.NewReportCmd(),
		admin.NewAdminCmd(),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
