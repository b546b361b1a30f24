package auth

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/cmd/cmdutil"
)

const (
	envAccessToken = "NEXUS_ACCESS_TOKEN"
	envSessionID   = "NEXUS_SESSION_ID"
)

func newExportCmd() *cobra.Command {
	var shellFormat string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the stored credentials as environment variables",
		Long: `Prints shell commands that set NEXUS_ACCESS_TOKEN and NEXUS_SESSION_ID from
the stored login, for scripts that call the API directly.

Supported shells:
  - posix (bash, zsh, sh) - default
  - fish
  - powershell

Usage:
  # POSIX shells (bash/zsh/sh)
  eval $(nexusctl auth export)

  # Fish shell
  eval (nexusctl auth export --shell fish)

  # PowerShell
  nexusctl auth export --shell powershell | Invoke-Expression`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := cmdutil.Provider(cmd).Tokens()
			if err != nil {
				return err
			}
			cred, err := tokens.Read()
			if err != nil {
				return fmt.Errorf("failed to load credentials: %w", err)
			}
			if cred == nil {
				return cmdutil.ErrLoginRequired
			}

			format := strings.ToLower(shellFormat)
			if format == "" {
				format = detectShell()
			}

			out := cmd.OutOrStdout()
			switch format {
			case "posix", "bash", "zsh", "sh":
				hint(cmd, "eval $(nexusctl auth export)")
				fmt.Fprintf(out, "export %s=%s\n", envAccessToken, quotePosix(cred.AccessToken))
				fmt.Fprintf(out, "export %s=%s\n", envSessionID, quotePosix(cred.SessionID))
			case "fish":
				hint(cmd, "eval (nexusctl auth export --shell fish)")
				fmt.Fprintf(out, "set -x %s %s\n", envAccessToken, quoteFish(cred.AccessToken))
				fmt.Fprintf(out, "set -x %s %s\n", envSessionID, quoteFish(cred.SessionID))
			case "powershell", "pwsh", "ps1":
				hint(cmd, "nexusctl auth export --shell powershell | Invoke-Expression")
				fmt.Fprintf(out, "$env:%s=%s\n", envAccessToken, quotePowerShell(cred.AccessToken))
				fmt.Fprintf(out, "$env:%s=%s\n", envSessionID, quotePowerShell(cred.SessionID))
			default:
				return fmt.Errorf("unsupported shell format: %s (supported: posix, fish, powershell)", shellFormat)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&shellFormat, "shell", "", "Shell format: posix, fish, powershell (auto-detected if not specified)")
	return cmd
}

// quotePosix single-quotes v. An embedded quote closes the string, adds an
// escaped quote and reopens it.
func quotePosix(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// fish honours only \\ and \' inside single quotes.
func quoteFish(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return "'" + strings.ReplaceAll(v, "'", `\'`) + "'"
}

// PowerShell also treats typographic single quotes as delimiters.
var powerShellQuotes = strings.NewReplacer("'", "''", "\u2018", "\u2018\u2018", "\u2019", "\u2019\u2019", "\u201a", "\u201a\u201a", "\u201b", "\u201b\u201b")

func quotePowerShell(v string) string {
	return "'" + powerShellQuotes.Replace(v) + "'"
}

// detectShell maps $SHELL to an export format, defaulting to posix.
func detectShell() string {
	switch filepath.Base(os.Getenv("SHELL")) {
	case "fish":
		return "fish"
	case "pwsh", "powershell":
		return "powershell"
	default:
		return "posix"
	}
}

// hint prints usage instructions on stderr when stdout is a terminal, so
// that eval only ever sees the export lines.
func hint(cmd *cobra.Command, usage string) {
	if !isTerminal(cmd.OutOrStdout()) {
		return
	}
	errOut := cmd.ErrOrStderr()
	fmt.Fprintln(errOut, "# Run this command to configure your environment:")
	fmt.Fprintf(errOut, "#   %s\n\n", usage)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
