package cli

import (
	"bufio"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/focusflow/internal/auth"
	"github.com/Makepad-fr/focusflow/internal/ui"
)

// ---------------------------------------------------
// Auth subcommands (token sent to the sample source)
// ---------------------------------------------------

func (a *app) authCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the token sent with sample requests",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: focusflow auth <login|logout|status|whoami>")
		},
	}
	cmd.AddCommand(
		&cobra.Command{Use: "login", Short: "Store a token", Args: noArgs, RunE: a.authLogin},
		&cobra.Command{Use: "logout", Short: "Delete the stored token", Args: noArgs, RunE: a.authLogout},
		&cobra.Command{Use: "status", Short: "Show where the token comes from", Args: noArgs, RunE: a.authStatus},
		&cobra.Command{Use: "whoami", Short: "Decode the token payload locally", Args: noArgs, RunE: a.authWhoAmI},
	)
	return cmd
}

func (a *app) authLogin(cmd *cobra.Command, args []string) error {
	fmt.Fprint(a.out, "Paste your token: ")
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.out)
		return fmt.Errorf("read token: %w", err)
	}
	c, err := a.keyring.Save(line)
	if errors.Is(err, auth.ErrEmptyToken) {
		return usageError{msg: "login: empty token"}
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	if c.ExpiresAt != nil {
		ui.OK(a.out, "logged in until "+c.ExpiresAt.UTC().Format(time.RFC3339))
		return nil
	}
	ui.OK(a.out, "logged in")
	return nil
}

func (a *app) authLogout(cmd *cobra.Command, args []string) error {
	c, _ := a.keyring.Current()
	if c != nil && c.Source == auth.SourceEnv {
		ui.OK(a.out, "token is provided by "+auth.EnvToken+" env var (nothing to delete)")
		return nil
	}
	removed, err := a.keyring.Delete()
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if !removed {
		ui.Hint(a.out, "not logged in")
		return nil
	}
	ui.OK(a.out, "logged out")
	return nil
}

func (a *app) authStatus(cmd *cobra.Command, args []string) error {
	c, err := a.keyring.Current()
	if err != nil {
		return err
	}
	if c == nil {
		ui.Hint(a.out, "not logged in")
		fmt.Fprintln(a.out, "Run: focusflow auth login")
		return nil
	}
	fmt.Fprintf(a.out, "source: %s\n", c.Source)
	if c.Source == auth.SourceFile {
		fmt.Fprintf(a.out, "file: %s\n", a.keyring.Path())
	}
	switch {
	case c.ExpiresAt == nil:
		fmt.Fprintln(a.out, "expires: (unknown)")
	case c.Expired(time.Now()):
		fmt.Fprintf(a.out, "expires: %s (expired, not sent)\n", c.ExpiresAt.UTC().Format(time.RFC3339))
	default:
		fmt.Fprintf(a.out, "expires: %s\n", c.ExpiresAt.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(a.out, "env override: %s\n", auth.EnvToken)
	return nil
}

// whoami decodes a JWT locally (unsigned); opaque tokens print basic info.
func (a *app) authWhoAmI(cmd *cobra.Command, args []string) error {
	c, _ := a.keyring.Current()
	if c == nil {
		return usagef("not logged in. Run: focusflow auth login")
	}
	if p, ok := c.Claims(); ok {
		fmt.Fprintln(a.out, "JWT payload:")
		fmt.Fprintln(a.out, p)
		return nil
	}
	fmt.Fprintln(a.out, "Opaque token (cannot introspect locally).")
	fmt.Fprintln(a.out, "source:", c.Source)
	return nil
}
