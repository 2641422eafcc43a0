package ui

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/five82/synq/internal/logtail"
	"github.com/five82/synq/internal/prefs"
	"github.com/five82/synq/internal/registry"
	"github.com/five82/synq/internal/remote"
	"github.com/five82/synq/internal/store"
	"github.com/five82/synq/internal/synq"
)

// inputMode tracks which prompt, if any, owns the keyboard.
type inputMode int

const (
	modeList inputMode = iota
	modeAdd
	modeEdit
	modeFilter
)

const logTailLines = 200

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *synq.Store[remote.Todo]
	Registry  *registry.Registry
	Logger    *zap.Logger
	Prefs     prefs.Prefs
	PrefsPath string
	LogPath   string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *synq.Store[remote.Todo]
	registry  *registry.Registry
	log       *zap.Logger
	prefsPath string
	logPath   string

	// UI state
	keys   keyMap
	help   help.Model
	theme  Theme
	prefs  prefs.Prefs
	width  int
	height int
	ready  bool

	// Data state
	items       []remote.Todo
	visible     []remote.Todo
	status      synq.Status
	filter      store.Predicate[remote.Todo]
	lastUpdated time.Time

	// Widgets
	table   table.Model
	input   textinput.Model
	spinner spinner.Model
	mode    inputMode
	editID  string

	// Logs pane
	showLogs bool
	logs     []logtail.Entry

	notice string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		store:     opts.Store,
		registry:  opts.Registry,
		log:       logger,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		theme:     GetTheme(opts.Prefs.Theme),
		prefs:     opts.Prefs,
		table: table.New(
			table.WithColumns(columns(80)),
			table.WithFocused(true),
			table.WithHeight(10),
		),
		input:   textinput.New(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	m.prefs.Theme = m.theme.Name
	m.input.CharLimit = 200

	if expression := strings.TrimSpace(opts.Prefs.Filter); expression != "" {
		pred, err := store.CompileFilter[remote.Todo](expression)
		if err != nil {
			m.notice = "saved filter ignored: " + err.Error()
			m.prefs.Filter = ""
		} else {
			m.filter = pred
		}
	}
	if m.store != nil {
		m.items = m.store.Snapshot().Items()
		m.status = m.store.Status()
	}
	m.applyStyles()
	m.refreshRows()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case snapshotMsg:
		m.items = msg.items
		m.lastUpdated = time.Now()
		m.refreshRows()
		return m, nil

	case statusMsg:
		m.status = synq.Status(msg)
		if m.status == synq.StatusError {
			m.notice = "sync failed, press l for details"
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case logsMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
		}
		m.logs = msg.entries
		return m, nil

	case prefsSavedMsg:
		if msg.err != nil {
			m.log.Warn("save prefs failed", zap.Error(msg.err))
			m.notice = "could not save preferences"
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode != modeList {
		return m.handleInputKey(msg)
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.prefs.Theme = m.theme.Name
		m.applyStyles()
		return m, m.savePrefs()

	case key.Matches(msg, m.keys.Add):
		return m, m.startInput(modeAdd, "", "What needs doing?")

	case key.Matches(msg, m.keys.Edit):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.editID = todo.ID
		return m, m.startInput(modeEdit, todo.Title, "Title")

	case key.Matches(msg, m.keys.Filter):
		return m, m.startInput(modeFilter, m.prefs.Filter, `e.g. !completed && priority > 1`)

	case key.Matches(msg, m.keys.Toggle):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) {
			m.store.Update(ctx, store.Transform(toggleCompleted), todo.ID)
		})

	case key.Matches(msg, m.keys.Bump):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) {
			m.store.Update(ctx, store.Merge(remote.Todo{Priority: todo.Priority + 1}), todo.ID)
		})

	case key.Matches(msg, m.keys.Delete):
		todo, ok := m.selected()
		if !ok {
			return m, nil
		}
		return m, m.run(func(ctx context.Context) {
			m.store.Remove(ctx, store.ID[remote.Todo](todo.ID))
		})

	case key.Matches(msg, m.keys.DeleteDone):
		return m, m.run(func(ctx context.Context) {
			m.store.Remove(ctx, store.Where[remote.Todo](func(t remote.Todo) bool { return t.Completed }))
		})

	case key.Matches(msg, m.keys.HideCompleted):
		m.prefs.HideCompleted = !m.prefs.HideCompleted
		m.refreshRows()
		return m, m.savePrefs()

	case key.Matches(msg, m.keys.Refresh):
		return m, m.run(func(ctx context.Context) {
			m.store.Fetch(ctx)
		})

	case key.Matches(msg, m.keys.ClearAll):
		if m.registry == nil {
			return m, nil
		}
		reg := m.registry
		return m, func() tea.Msg {
			reg.ClearAll()
			return nil
		}

	case key.Matches(msg, m.keys.ViewLogs):
		m.showLogs = !m.showLogs
		m.resize()
		if m.showLogs {
			return m, loadLogs(m.logPath)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.endInput()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case modeAdd:
			m.endInput()
			if value == "" {
				return m, nil
			}
			idempotencyKey := uuid.NewString()
			return m, m.run(func(ctx context.Context) {
				m.store.AddWith(ctx, remote.Todo{Title: value}, idempotencyKey)
			})

		case modeEdit:
			id := m.editID
			m.endInput()
			if value == "" {
				return m, nil
			}
			return m, m.run(func(ctx context.Context) {
				m.store.Update(ctx, store.Patch[remote.Todo](map[string]any{"title": value}), id)
			})

		case modeFilter:
			if err := m.setFilter(value); err != nil {
				m.notice = err.Error()
				return m, nil
			}
			m.endInput()
			return m, m.savePrefs()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) startInput(mode inputMode, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.notice = ""
	m.input.Reset()
	m.input.SetValue(value)
	m.input.Placeholder = placeholder
	m.table.Blur()
	return m.input.Focus()
}

func (m *Model) endInput() {
	m.mode = modeList
	m.editID = ""
	m.input.Blur()
	m.input.Reset()
	m.table.Focus()
}

// setFilter compiles expression and applies it. An empty expression clears
// the filter.
func (m *Model) setFilter(expression string) error {
	if expression == "" {
		m.filter = nil
		m.prefs.Filter = ""
		m.refreshRows()
		return nil
	}
	pred, err := store.CompileFilter[remote.Todo](expression)
	if err != nil {
		return err
	}
	m.filter = pred
	m.prefs.Filter = expression
	m.refreshRows()
	return nil
}

// refreshRows rebuilds the table from the current items. Selection is kept
// on the same todo when it is still visible.
func (m *Model) refreshRows() {
	var selectedID string
	if todo, ok := m.selected(); ok {
		selectedID = todo.ID
	}

	visible := make([]remote.Todo, 0, len(m.items))
	for _, todo := range m.items {
		if m.prefs.HideCompleted && todo.Completed {
			continue
		}
		if m.filter != nil && !m.filter(todo) {
			continue
		}
		visible = append(visible, todo)
	}
	m.visible = visible

	rows := make([]table.Row, len(visible))
	for i, todo := range visible {
		rows[i] = todoRow(todo)
	}
	m.table.SetRows(rows)

	if len(visible) == 0 {
		m.table.SetCursor(0)
		return
	}
	if selectedID != "" {
		for i, todo := range visible {
			if todo.ID == selectedID {
				m.table.SetCursor(i)
				return
			}
		}
	}
	if cursor := m.table.Cursor(); cursor < 0 || cursor >= len(visible) {
		m.table.SetCursor(min(max(cursor, 0), len(visible)-1))
	}
}

func (m Model) selected() (remote.Todo, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visible) {
		return remote.Todo{}, false
	}
	return m.visible[idx], true
}

func (m *Model) resize() {
	if m.width <= 0 {
		return
	}
	m.table.SetColumns(columns(m.width - 4))
	m.table.SetWidth(m.width - 2)

	// header, borders, input line, footer
	height := m.height - 6
	if m.showLogs {
		height /= 2
	}
	m.table.SetHeight(max(height, 3))
	m.help.Width = m.width
	m.input.Width = max(m.width-12, 10)
}

func (m *Model) applyStyles() {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(m.theme.Border)).
		BorderBottom(true).
		Foreground(lipgloss.Color(m.theme.Accent)).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(lipgloss.Color(m.theme.Text))
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color(m.theme.SelectionText)).
		Background(lipgloss.Color(m.theme.SelectionBg)).
		Bold(false)
	m.table.SetStyles(styles)
	m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Info))
}

func (m Model) savePrefs() tea.Cmd {
	path, p := m.prefsPath, m.prefs
	return func() tea.Msg {
		return prefsSavedMsg{err: prefs.Save(path, p)}
	}
}

// run executes a blocking store operation off the update loop. Results come
// back through the store subscriptions.
func (m Model) run(op func(ctx context.Context)) tea.Cmd {
	if m.store == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		op(ctx)
		return nil
	}
}

func toggleCompleted(current *remote.Todo) remote.Todo {
	if current == nil {
		return remote.Todo{}
	}
	next := *current
	next.Completed = !next.Completed
	return next
}

func columns(width int) []table.Column {
	const (
		doneWidth = 3
		prioWidth = 4
		idWidth   = 14
	)
	title := max(width-doneWidth-prioWidth-idWidth-8, 10)
	return []table.Column{
		{Title: "", Width: doneWidth},
		{Title: "Title", Width: title},
		{Title: "Pri", Width: prioWidth},
		{Title: "ID", Width: idWidth},
	}
}

func todoRow(todo remote.Todo) table.Row {
	done := "[ ]"
	if todo.Completed {
		done = "[x]"
	}
	prio := ""
	if todo.Priority != 0 {
		prio = strconv.Itoa(todo.Priority)
	}
	id := todo.ID
	if todo.IsProvisional() {
		id = "saving…"
	}
	return table.Row{done, todo.Title, prio, truncate(id, 14)}
}

// Messages

type snapshotMsg struct {
	items []remote.Todo
}

type statusMsg synq.Status

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

type prefsSavedMsg struct {
	err error
}

// Commands

func loadLogs(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Read(path, logTailLines)
		return logsMsg{entries: entries, err: err}
	}
}
