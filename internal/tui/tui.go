// Package tui is the interactive terminal front end. Every mutation goes
// through the record store, which persists and then signals the model to
// re-render.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/Makepad-fr/focusflow/internal/model"
	"github.com/Makepad-fr/focusflow/internal/recordstore"
	"github.com/Makepad-fr/focusflow/internal/roast"
	"github.com/Makepad-fr/focusflow/internal/sample"
	"github.com/Makepad-fr/focusflow/internal/ui"
)

// Status texts shown under the list.
const (
	StatusSyncing     = "syncing sample records..."
	StatusSyncFailed  = "sample request failed, try again later"
	StatusRoasting    = "roasting..."
	StatusNothing     = "nothing to clear"
	StatusCleared     = "cleared all records"
	StatusClearCancel = "clear cancelled"
)

// Options wires the model to its collaborators.
type Options struct {
	Store   *recordstore.Store
	Roast   bool // roast variant: "s" generates a roast instead of importing
	Sample  sample.Source
	Roaster *roast.Generator
	Log     *zap.Logger
	Ctx     context.Context
}

type mode int

const (
	modeBrowse mode = iota
	modeAdding
	modeConfirmClear
	modeRoastSubject
)

type keyMap struct {
	Add, Toggle, Delete, Clear, Sample, Hide, Quit key.Binding
}

func newKeyMap(roastVariant bool) keyMap {
	sampleHelp := "load sample"
	if roastVariant {
		sampleHelp = "roast"
	}
	return keyMap{
		Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Toggle: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Clear:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all")),
		Sample: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", sampleHelp)),
		Hide:   key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "hide done")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Clear, k.Sample, k.Hide}
}

// listItem adapts a record to bubbles/list.Item.
type listItem struct{ rec model.Record }

func (i listItem) Title() string       { return i.rec.Title }
func (i listItem) Description() string { return ui.NotesText(i.rec.Notes) }
func (i listItem) FilterValue() string { return i.rec.Title }

// itemDelegate renders two lines per record: title row and notes row.
type itemDelegate struct{}

func (d itemDelegate) Height() int                         { return 2 }
func (d itemDelegate) Spacing() int                        { return 0 }
func (d itemDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = ui.Current().Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+ui.RecordLine(index+1, it.rec))
	fmt.Fprint(w, "  "+ui.NotesLine(it.rec))
}

// sampleDoneMsg carries a finished sample task back to Update.
type sampleDoneMsg struct {
	drafts []model.Draft
	err    error
}

type roastDoneMsg struct {
	res roast.Result
	err error
}

// recordsChangedMsg tells Update the store was mutated.
type recordsChangedMsg struct{}

// Model is the bubbletea model.
type Model struct {
	opts Options
	keys keyMap
	log  *zap.Logger

	list     list.Model
	hideDone bool
	mode     mode

	title, notes textinput.Model
	subject      textinput.Model
	formErr      string

	status      string
	syncing     bool
	task        *sample.Task
	roastCancel context.CancelFunc

	// changes holds at most one pending store signal; done ends the listener.
	changes     chan struct{}
	done        chan struct{}
	unsubscribe func()

	width, height int
}

func New(opts Options) Model {
	if opts.Ctx == nil {
		opts.Ctx = context.Background()
	}
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	keys := newKeyMap(opts.Roast)

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("record", "records")
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	m := Model{
		opts:    opts,
		keys:    keys,
		log:     log,
		list:    l,
		title:   newInput("Title...", 200),
		notes:   newInput("Notes (optional)...", 500),
		subject: newInput("Who gets roasted?", 100),
		width:   80,
		height:  24,
		changes: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	changes := m.changes
	m.unsubscribe = opts.Store.Subscribe(func([]model.Record) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	m.refresh()
	return m
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return ti
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(opts Options) error {
	m := New(opts)
	final, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	if fm, ok := final.(Model); ok {
		fm.stopWork()
	}
	m.Close()
	return err
}

// Close detaches the model from the store.
func (m Model) Close() {
	m.unsubscribe()
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

func (m Model) Init() tea.Cmd { return m.waitForChange() }

func (m Model) waitForChange() tea.Cmd {
	changes, done := m.changes, m.done
	return func() tea.Msg {
		select {
		case <-changes:
			return recordsChangedMsg{}
		case <-done:
			return nil
		}
	}
}

// stopWork cancels any in-flight sample or roast.
func (m Model) stopWork() {
	if m.task != nil {
		m.task.Cancel()
	}
	if m.roastCancel != nil {
		m.roastCancel()
	}
}

// Status is the current status-line text.
func (m Model) Status() string { return m.status }

// HideDone reports whether completed records are filtered out.
func (m Model) HideDone() bool { return m.hideDone }

// Syncing reports whether a sample or roast request is in flight.
func (m Model) Syncing() bool { return m.syncing }

// VisibleIDs lists the ids currently shown, in order.
func (m Model) VisibleIDs() []string {
	var ids []string
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok {
			ids = append(ids, li.rec.ID)
		}
	}
	return ids
}

// refresh rebuilds the derived view from the store.
func (m *Model) refresh() {
	all := m.opts.Store.Records()
	visible := recordstore.Visible(all, m.hideDone)
	items := make([]list.Item, 0, len(visible))
	for _, r := range visible {
		items = append(items, listItem{rec: r})
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}

	c := recordstore.CountsOf(all)
	heading := "Todos"
	if m.opts.Roast {
		heading = "Roasts"
	}
	m.list.Title = ui.Header(heading, c.Total, c.Done, c.Active)
}

func (m Model) selected() (model.Record, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Record{}, false
	}
	return it.rec, true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil
	case sampleDoneMsg:
		return m.onSampleDone(msg), nil
	case roastDoneMsg:
		return m.onRoastDone(msg), nil
	case recordsChangedMsg:
		m.refresh()
		return m, m.waitForChange()
	}

	switch m.mode {
	case modeAdding:
		return m.updateAdding(msg)
	case modeConfirmClear:
		return m.updateConfirm(msg)
	case modeRoastSubject:
		return m.updateRoastSubject(msg)
	}

	if km, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch {
		case key.Matches(km, m.keys.Quit):
			m.stopWork()
			return m, tea.Quit
		case key.Matches(km, m.keys.Toggle):
			return m.toggleSelected(), nil
		case key.Matches(km, m.keys.Delete):
			return m.deleteSelected(), nil
		case key.Matches(km, m.keys.Add):
			m.mode = modeAdding
			m.formErr = ""
			m.title.SetValue("")
			m.notes.SetValue("")
			m.notes.Blur()
			return m, m.title.Focus()
		case key.Matches(km, m.keys.Clear):
			if m.opts.Store.Len() == 0 {
				m.status = StatusNothing
				return m, nil
			}
			m.mode = modeConfirmClear
			return m, nil
		case key.Matches(km, m.keys.Sample):
			return m.startSample()
		case key.Matches(km, m.keys.Hide):
			m.hideDone = !m.hideDone
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) toggleSelected() Model {
	rec, ok := m.selected()
	if !ok {
		return m
	}
	if _, _, err := m.opts.Store.Toggle(rec.ID); err != nil {
		m.status = "save failed: " + err.Error()
	}
	return m
}

func (m Model) deleteSelected() Model {
	rec, ok := m.selected()
	if !ok {
		return m
	}
	if _, err := m.opts.Store.Remove(rec.ID); err != nil {
		m.status = "save failed: " + err.Error()
	} else {
		m.status = "deleted " + ui.Truncate(rec.Title, 40)
	}
	return m
}

func (m Model) updateAdding(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.mode = modeBrowse
			m.title.Blur()
			m.notes.Blur()
			return m, nil
		case "tab", "shift+tab":
			if m.title.Focused() {
				m.title.Blur()
				return m, m.notes.Focus()
			}
			m.notes.Blur()
			return m, m.title.Focus()
		case "enter":
			rec, err := m.opts.Store.Add(m.title.Value(), m.notes.Value())
			if errors.Is(err, recordstore.ErrEmptyTitle) {
				m.formErr = "Title cannot be empty"
				m.notes.Blur()
				return m, m.title.Focus()
			}
			if err != nil {
				m.status = "save failed: " + err.Error()
			} else {
				m.status = "added " + ui.Truncate(rec.Title, 40)
			}
			m.mode = modeBrowse
			m.formErr = ""
			m.title.Blur()
			m.notes.Blur()
			m.list.Select(0)
			return m, nil
		}
	}
	var cmd tea.Cmd
	if m.title.Focused() {
		m.title, cmd = m.title.Update(msg)
	} else {
		m.notes, cmd = m.notes.Update(msg)
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	answer := strings.ToLower(km.String())
	switch answer {
	case "y", "n", "esc", "enter":
	default:
		return m, nil
	}
	m.mode = modeBrowse
	cleared, err := m.opts.Store.ClearAll(func() bool { return answer == "y" })
	switch {
	case err != nil:
		m.status = "save failed: " + err.Error()
	case cleared:
		m.status = StatusCleared
	default:
		m.status = StatusClearCancel
	}
	return m, nil
}

func (m Model) updateRoastSubject(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok {
		switch km.String() {
		case "esc":
			m.mode = modeBrowse
			m.subject.Blur()
			return m, nil
		case "enter":
			subject := strings.TrimSpace(m.subject.Value())
			if subject == "" {
				m.formErr = "Name cannot be empty"
				return m, nil
			}
			m.mode = modeBrowse
			m.formErr = ""
			m.subject.Blur()
			m.syncing = true
			m.status = StatusRoasting
			ctx, cancel := context.WithCancel(m.opts.Ctx)
			m.roastCancel = cancel
			return m, roastCmd(ctx, m.opts.Roaster, subject)
		}
	}
	var cmd tea.Cmd
	m.subject, cmd = m.subject.Update(msg)
	return m, cmd
}

// startSample kicks off the async action behind "s". While one is in
// flight the key is ignored.
func (m Model) startSample() (tea.Model, tea.Cmd) {
	if m.syncing {
		return m, nil
	}
	if m.opts.Roast {
		if m.opts.Roaster == nil {
			return m, nil
		}
		m.mode = modeRoastSubject
		m.formErr = ""
		m.subject.SetValue("")
		return m, m.subject.Focus()
	}
	if m.opts.Sample == nil {
		return m, nil
	}
	m.syncing = true
	m.status = StatusSyncing
	m.task = sample.Start(m.opts.Ctx, m.opts.Sample)
	return m, waitSample(m.task)
}

func waitSample(t *sample.Task) tea.Cmd {
	return func() tea.Msg {
		drafts, err := t.Wait()
		return sampleDoneMsg{drafts: drafts, err: err}
	}
}

func roastCmd(ctx context.Context, g *roast.Generator, subject string) tea.Cmd {
	return func() tea.Msg {
		res, err := g.Generate(ctx, subject)
		return roastDoneMsg{res: res, err: err}
	}
}

func (m Model) onSampleDone(msg sampleDoneMsg) Model {
	m.syncing = false
	m.task = nil
	if msg.err != nil {
		m.log.Warn("sample import failed", zap.Error(msg.err))
		m.status = StatusSyncFailed
		return m
	}
	imported, err := m.opts.Store.ImportBatch(msg.drafts)
	if err != nil {
		m.status = "save failed: " + err.Error()
	} else {
		m.status = fmt.Sprintf("imported %d sample records", len(imported))
	}
	m.list.Select(0)
	return m
}

func (m Model) onRoastDone(msg roastDoneMsg) Model {
	m.syncing = false
	if m.roastCancel != nil {
		m.roastCancel()
		m.roastCancel = nil
	}
	if msg.err != nil {
		m.status = "roast cancelled"
		return m
	}
	if _, err := m.opts.Store.Add(msg.res.Draft.Title, msg.res.Draft.Notes); err != nil {
		m.status = "save failed: " + err.Error()
	} else {
		m.status = msg.res.Status
	}
	m.list.Select(0)
	return m
}

func (m *Model) resize() {
	h := m.height - 4
	if m.mode != modeBrowse {
		h -= 4
	}
	if h < 3 {
		h = 3
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	m.list.SetSize(w, h)
}

func (m Model) View() string {
	m.resize()
	t := ui.Current()

	var b strings.Builder
	if len(m.list.Items()) == 0 && m.list.FilterState() == list.Unfiltered {
		b.WriteString(m.list.Title + "\n\n")
		b.WriteString(t.Muted.Render(ui.EmptyMessage(m.hideDone)))
	} else {
		b.WriteString(m.list.View())
	}

	if m.hideDone {
		b.WriteString("\n" + t.Muted.Render("(hiding completed)"))
	}

	switch m.mode {
	case modeAdding:
		head := "Add new record"
		if m.formErr != "" {
			head += "  " + t.Error.Render(m.formErr)
		}
		form := head + "\n" + m.title.View() + "\n" + m.notes.View() +
			"\n" + t.Help.Render("tab switch field · enter save · esc cancel")
		b.WriteString("\n" + t.Box().Render(form))
	case modeConfirmClear:
		b.WriteString("\n" + t.Box().Render(t.Error.Render("Clear all local records? This cannot be undone. (y/n)")))
	case modeRoastSubject:
		head := "Roast someone"
		if m.formErr != "" {
			head += "  " + t.Error.Render(m.formErr)
		}
		b.WriteString("\n" + t.Box().Render(head+"\n"+m.subject.View()))
	}

	if m.status != "" {
		b.WriteString("\n" + t.Accent.Render(m.status))
	}
	return t.Box().Render(b.String())
}
