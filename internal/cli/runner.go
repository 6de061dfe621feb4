// Package cli is the focusflow command tree.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/focusflow/internal/auth"
	"github.com/Makepad-fr/focusflow/internal/config"
	"github.com/Makepad-fr/focusflow/internal/logging"
	"github.com/Makepad-fr/focusflow/internal/recordstore"
	"github.com/Makepad-fr/focusflow/internal/roast"
	"github.com/Makepad-fr/focusflow/internal/sample"
	"github.com/Makepad-fr/focusflow/internal/store"
	"github.com/Makepad-fr/focusflow/internal/tui"
	"github.com/Makepad-fr/focusflow/internal/ui"
)

// Exit codes: 0 ok, 1 error, 2 usage.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks errors that should exit with ExitUsage.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

func usagef(format string, a ...any) error { return usageError{msg: fmt.Sprintf(format, a...)} }

// flags bound to the root command.
type globalFlags struct {
	configPath string
	dataDir    string
	backend    string
	variant    string
	theme      string
	verbose    bool
}

// app is the per-invocation state shared by subcommands.
type app struct {
	flags globalFlags

	in       io.Reader
	out, err io.Writer

	cfg       *config.Config
	cfgPath   string
	keyring   *auth.Keyring
	log       *zap.Logger
	records   *recordstore.Store
	closeSlot func() error
}

// Run executes args and returns the process exit code.
func Run(args []string) int {
	return Execute(args, os.Stdin, os.Stdout, os.Stderr)
}

// Execute is Run with explicit streams.
func Execute(args []string, in io.Reader, out, errOut io.Writer) int {
	a := &app{in: in, out: out, err: errOut}
	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	a.teardown()
	if err == nil {
		return ExitOK
	}
	ui.Fail(errOut, err.Error())
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintln(errOut)
		fmt.Fprint(errOut, root.UsageString())
		return ExitUsage
	}
	return ExitError
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "focusflow",
		Short: "focusflow - a small to-do list and roast journal",
		Long: `focusflow keeps a short list of records (to-dos, or roasts in the roast
variant) in a local storage slot. Every change is written back immediately.

Run without arguments to open the interactive list.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		Args:              noArgs,
		RunE:              a.runInteractive,
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/focusflow/config.yaml)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "directory holding the storage slot (default: working directory)")
	pf.StringVar(&a.flags.backend, "backend", "", "storage backend: json, sqlite or memory")
	pf.StringVar(&a.flags.variant, "variant", "", "todo or roast")
	pf.StringVar(&a.flags.theme, "theme", "", "classic, neon or mono")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "ui",
			Short: "Open the interactive list",
			Args:  noArgs,
			RunE:  a.runInteractive,
		},
		a.listCommand(),
		a.addCommand(),
		a.doneCommand(),
		a.removeCommand(),
		a.clearCommand(),
		a.sampleCommand(),
		a.roastCommand(),
		a.authCommand(),
	)
	return root
}

// setup loads config, builds the logger and opens the record store.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.flags.configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := a.applyFlags(cmd, cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.cfgPath = path
	a.keyring = auth.NewKeyring(filepath.Dir(path))
	ui.SetTheme(cfg.Theme)

	if !needsStore(cmd) {
		a.log = zap.NewNop()
		return nil
	}

	logPath := ""
	if interactive(cmd) {
		logPath = filepath.Join(cfg.DataDir, logging.FileName)
	}
	a.log, err = logging.New(cfg.LogLevel, logPath, a.flags.verbose)
	if err != nil {
		return err
	}

	slot, closeSlot, err := store.Open(cfg.Backend, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.closeSlot = closeSlot
	a.records = recordstore.New(slot, cfg.StorageKey(), recordstore.WithLogger(a.log))
	a.log.Debug("store ready",
		zap.String("backend", cfg.Backend),
		zap.String("key", cfg.StorageKey()),
		zap.Int("records", a.records.Len()))
	return nil
}

func (a *app) applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	f := cmd.Flags()
	if f.Changed("data-dir") {
		cfg.DataDir = a.flags.dataDir
	}
	if f.Changed("backend") {
		cfg.Backend = a.flags.backend
	}
	if f.Changed("variant") {
		cfg.Variant = a.flags.variant
	}
	if f.Changed("theme") {
		cfg.Theme = a.flags.theme
	}
	if err := cfg.Validate(); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

func (a *app) teardown() {
	if a.log != nil {
		_ = a.log.Sync()
	}
	if a.closeSlot != nil {
		if err := a.closeSlot(); err != nil {
			ui.Fail(a.err, "close storage: "+err.Error())
		}
	}
}

// needsStore is false for commands that never touch records.
func needsStore(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "auth" || c.Name() == "config" {
			return false
		}
	}
	return true
}

func interactive(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "ui"
}

func (a *app) runInteractive(cmd *cobra.Command, args []string) error {
	opts := tui.Options{
		Store: a.records,
		Roast: a.cfg.Variant == config.VariantRoast,
		Log:   a.log,
		Ctx:   cmd.Context(),
	}
	if opts.Roast {
		opts.Roaster = a.roaster()
	} else {
		opts.Sample = a.sampleSource()
	}
	if err := tui.Run(opts); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}

func (a *app) sampleSource() *sample.HTTPSource {
	src := sample.NewHTTPSource(a.cfg.SampleURL, a.log)
	src.Client.Timeout = a.cfg.SampleTimeout
	src.Token = a.keyring.Bearer
	return src
}

func (a *app) roaster() *roast.Generator {
	src := a.sampleSource()
	return &roast.Generator{
		Prober: roast.HTTPProbe{URL: a.cfg.ProbeURL, Client: src.Client},
		Delay:  a.cfg.RoastDelay,
		Log:    a.log,
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments", cmd.CommandPath())
	}
	return nil
}

func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

func minArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
