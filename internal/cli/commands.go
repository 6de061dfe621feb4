package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Makepad-fr/focusflow/internal/config"
	"github.com/Makepad-fr/focusflow/internal/model"
	"github.com/Makepad-fr/focusflow/internal/recordstore"
	"github.com/Makepad-fr/focusflow/internal/roast"
	"github.com/Makepad-fr/focusflow/internal/sample"
	"github.com/Makepad-fr/focusflow/internal/ui"
)

const clearPrompt = "Clear all local records? This cannot be undone. [y/N] "

// -------------- record subcommands ----------------

func (a *app) listCommand() *cobra.Command {
	var hideDone, group bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List records",
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(a.out, a.renderList(hideDone, group))
			return nil
		},
	}
	cmd.Flags().BoolVar(&hideDone, "hide-done", false, "hide completed records")
	cmd.Flags().BoolVar(&group, "group", false, "group output by pending/done")
	return cmd
}

func (a *app) addCommand() *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a record (title can be multiple words)",
		Args:  minArgs(1, "focusflow add <title...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.records.Add(strings.Join(args, " "), notes)
			if errors.Is(err, recordstore.ErrEmptyTitle) {
				return usagef("add: empty title")
			}
			if err != nil {
				return err
			}
			ui.OK(a.out, "added "+shortID(rec.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&notes, "notes", "n", "", "optional notes")
	return cmd
}

func (a *app) doneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <index|id>",
		Short: "Toggle done for a record (1-based index or id prefix)",
		Args:  exactArgs(1, "focusflow done <index|id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			rec, _, err = a.records.Toggle(rec.ID)
			if err != nil {
				return err
			}
			state := "pending"
			if rec.Done {
				state = "done"
			}
			ui.OK(a.out, fmt.Sprintf("toggled %q: %s", ui.Truncate(rec.Title, 40), state))
			return nil
		},
	}
}

func (a *app) removeCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <index|id>",
		Aliases: []string{"remove"},
		Short:   "Remove a record (1-based index or id prefix)",
		Args:    exactArgs(1, "focusflow rm <index|id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.resolve(args[0])
			if err != nil {
				return err
			}
			if _, err := a.records.Remove(rec.ID); err != nil {
				return err
			}
			ui.OK(a.out, "removed")
			return nil
		},
	}
}

func (a *app) clearCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every record (asks first)",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.records.Len() == 0 {
				ui.Hint(a.out, "nothing to clear")
				return nil
			}
			confirm := a.confirmOnStdin
			if yes {
				confirm = func() bool { return true }
			}
			cleared, err := a.records.ClearAll(confirm)
			if err != nil {
				return err
			}
			if !cleared {
				ui.Hint(a.out, "clear cancelled")
				return nil
			}
			ui.OK(a.out, "cleared")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// confirmOnStdin asks on a.out and reads one answer line from a.in.
func (a *app) confirmOnStdin() bool {
	fmt.Fprint(a.out, clearPrompt)
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(a.out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) sampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Import sample records from the remote sample source",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Variant == config.VariantRoast {
				return usagef("sample is not available in the roast variant; use `focusflow roast <name>`")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, a.cfg.SampleTimeout)
			defer cancel()

			ui.Hint(a.out, "requesting sample records...")
			task := sample.Start(ctx, a.sampleSource())
			drafts, err := task.Wait()
			if err != nil {
				a.log.Warn("sample import failed", zap.Error(err))
				return fmt.Errorf("sample request failed, try again later: %w", err)
			}
			imported, err := a.records.ImportBatch(drafts)
			if err != nil {
				return err
			}
			ui.OK(a.out, fmt.Sprintf("imported %d sample records", len(imported)))
			return nil
		},
	}
}

func (a *app) roastCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "roast <name...>",
		Short: "Generate a roast and log it (roast variant)",
		Args:  minArgs(1, "focusflow roast <name...>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Variant != config.VariantRoast {
				return usagef("roast needs the roast variant (--variant roast)")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			res, err := a.roaster().Generate(ctx, strings.Join(args, " "))
			if errors.Is(err, roast.ErrEmptySubject) {
				return usagef("roast: empty name")
			}
			if err != nil {
				return err
			}
			rec, err := a.records.Add(res.Draft.Title, res.Draft.Notes)
			if err != nil {
				return err
			}
			ui.Hint(a.out, res.Status)
			ui.OK(a.out, rec.Title)
			return nil
		},
	}
}

func (a *app) resolve(ref string) (model.Record, error) {
	rec, err := a.records.Resolve(ref)
	if errors.Is(err, recordstore.ErrNotFound) || errors.Is(err, recordstore.ErrAmbiguous) {
		ui.Hint(a.err, "Hint: run `focusflow ls` to see valid indexes")
		return model.Record{}, usageError{msg: err.Error()}
	}
	return rec, err
}

// -------------- rendering helpers --------------

func (a *app) renderList(hideDone, group bool) string {
	all := a.records.Records()
	c := recordstore.CountsOf(all)
	t := ui.Current()

	heading := "Todos"
	if a.cfg.Variant == config.VariantRoast {
		heading = "Roasts"
	}
	lines := []string{
		ui.Header(heading, c.Total, c.Done, c.Active),
		t.Muted.Render(ui.ProgressBar(c.Done, c.Total, 28)),
		"",
	}

	// Index numbers always refer to the full list so `done N` stays valid
	// while completed records are hidden.
	pos := make(map[string]int, len(all))
	for i, r := range all {
		pos[r.ID] = i + 1
	}
	visible := recordstore.Visible(all, hideDone)
	if group {
		pending, done := recordstore.Split(visible)
		lines = append(lines, t.Accent.Render("Pending"))
		lines = append(lines, recordLines(pending, pos, "(none)")...)
		if !hideDone {
			lines = append(lines, "", t.Accent.Render("Done"))
			lines = append(lines, recordLines(done, pos, "(none)")...)
		}
	} else {
		lines = append(lines, recordLines(visible, pos, ui.EmptyMessage(hideDone))...)
	}

	lines = append(lines, "", t.Muted.Render("Tip: add with `focusflow add \"Buy milk\"`"))
	return ui.Panel(lines)
}

func recordLines(list []model.Record, pos map[string]int, empty string) []string {
	if len(list) == 0 {
		return []string{ui.Current().Muted.Render(empty)}
	}
	out := make([]string, 0, 2*len(list))
	for _, r := range list {
		out = append(out, ui.RecordLine(pos[r.ID], r), ui.NotesLine(r))
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
