// Package cmdutil holds helpers shared by nexusctl subcommands.
package cmdutil

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/client"
	"github.com/Ayushhgit/biomind-nexus/cmd/nexusctl/internal/config"
	"github.com/Ayushhgit/biomind-nexus/pkg/sdk"
)

// ErrLoginRequired is returned by commands that need a resolved user.
var ErrLoginRequired = errors.New("not logged in; run 'nexusctl auth login'")

// ErrAdminRequired is returned by admin commands for non-admin users.
var ErrAdminRequired = errors.New("admin access required")

// Provider returns the client provider injected by the root command.
func Provider(cmd *cobra.Command) *client.Provider {
	return config.MustFromContext(cmd.Context()).ClientProvider
}

// Context bounds the command context by the configured request timeout.
func Context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return Provider(cmd).WithTimeout(cmd.Context())
}

// RequireSession resolves the stored credential and fails unless a user is
// authenticated.
func RequireSession(cmd *cobra.Command) (*sdk.Session, error) {
	session, err := Provider(cmd).InitializedSession(cmd.Context())
	if err != nil {
		return nil, err
	}
	if !session.IsAuthenticated() {
		if cause := session.LastError(); errors.Is(cause, sdk.ErrNetwork) {
			return nil, fmt.Errorf("could not reach the server to verify your session: %w", cause)
		}
		return nil, ErrLoginRequired
	}
	return session, nil
}

// RequireAdmin behaves like RequireSession and additionally requires the
// user to be routed to the admin view.
func RequireAdmin(cmd *cobra.Command) (*sdk.Session, error) {
	session, err := RequireSession(cmd)
	if err != nil {
		return nil, err
	}
	if session.View() != sdk.AdminView {
		return nil, fmt.Errorf("%w: signed in as %s", ErrAdminRequired, session.User().Role())
	}
	return session, nil
}

// Table returns a tabwriter on the command's stdout with the given header.
func Table(cmd *cobra.Command, header string) *tabwriter.Writer {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, header)
	return w
}

// Success prints a success line on the command's stdout.
func Success(cmd *cobra.Command, format string, args ...any) {
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln(format, args...)
}

// Info prints an informational line on the command's stdout.
func Info(cmd *cobra.Command, format string, args ...any) {
	pterm.Info.WithWriter(cmd.OutOrStdout()).Printfln(format, args...)
}

// Warning prints a warning on the command's stderr.
func Warning(cmd *cobra.Command, format string, args ...any) {
	pterm.Warning.WithWriter(cmd.ErrOrStderr()).Printfln(format, args...)
}

// Section prints a section heading.
func Section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", pterm.Bold.Sprint(title))
}

// Describe renders err for users, preferring the server's message.
func Describe(err error) string {
	var reqErr *sdk.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Sprintf("%s (HTTP %d)", reqErr.Message, reqErr.StatusCode)
	}
	return err.Error()
}

// Dash substitutes "-" for empty strings in tables.
func Dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// ServerURL returns the configured API base URL.
func ServerURL(cmd *cobra.Command) string {
	return config.MustFromContext(cmd.Context()).ServerURL
}

// ProfileDir returns the directory holding the active profile's state.
func ProfileDir(cmd *cobra.Command) string {
	return config.MustFromContext(cmd.Context()).CredentialDir()
}

// ReadPassword reads a single line from r, as passed with --password-stdin.
func ReadPassword(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password from stdin: %w", err)
		}
		return "", fmt.Errorf("no password provided on stdin")
	}
	password := strings.TrimRight(scanner.Text(), "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password provided on stdin")
	}
	return password, nil
}
