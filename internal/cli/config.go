package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/focusflow/internal/ui"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or write the config file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usagef("usage: focusflow config <init|path>")
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the current settings to the config file",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := os.Stat(a.cfgPath)
			switch {
			case err == nil && !force:
				return fmt.Errorf("%s already exists (use --force to overwrite)", a.cfgPath)
			case err != nil && !errors.Is(err, os.ErrNotExist):
				return fmt.Errorf("stat config: %w", err)
			}
			if err := a.cfg.Save(a.cfgPath); err != nil {
				return err
			}
			ui.OK(a.out, "wrote "+a.cfgPath)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	cmd.AddCommand(
		initCmd,
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  noArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				fmt.Fprintln(a.out, a.cfgPath)
				return nil
			},
		},
	)
	return cmd
}
