package setup

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/tui/components"
	wizcomp "vectorportal/internal/adapter/tui/components/wizard"
	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/usecase/wizard"
)

const (
	nameField        = "__name"
	descriptionField = "__description"
)

// Model is the root Bubble Tea model of the wizard. All state lives in the
// wizard session; the model only mirrors it into widgets.
type Model struct {
	ctx     context.Context
	runner  *wizard.Runner
	logger  *slog.Logger
	session wizard.Session
	pending []wizard.Effect

	steps   wizcomp.StepIndicatorModel
	list    list.Model
	listKey string
	fields  []wizcomp.FormFieldModel
	formKey string
	focus   int
	tester  wizcomp.TestStatusModel
	spinner spinner.Model
	md      *glamour.TermRenderer

	gateway string
	width   int
	height  int
}

// Option configures a Model.
type Option func(*Model)

// WithGatewayLabel shows the gateway address in the status bar.
func WithGatewayLabel(url string) Option {
	return func(m *Model) { m.gateway = url }
}

// New creates the wizard model for flow. The provider catalog is requested
// as soon as the program starts.
func New(ctx context.Context, flow wizard.Flow, runner *wizard.Runner, logger *slog.Logger, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(theme.ColorInfo)

	m := Model{
		ctx:     ctx,
		runner:  runner,
		logger:  logger,
		steps:   wizcomp.NewStepIndicator(flow.StepNames()),
		tester:  wizcomp.NewTestStatus(),
		spinner: s,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.session, m.pending = wizard.Transition(wizard.NewSession(flow), wizard.Opened{})
	m.sync()
	return m
}

// Session returns the wizard session (call after the program exits).
func (m Model) Session() wizard.Session { return m.session }

// Init starts the spinner and the initial catalog load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, effectCmds(m.ctx, m.runner, m.pending))
}

// dispatch applies ev to the session and returns the commands for the
// effects it produced.
func (m Model) dispatch(ev wizard.Event) (Model, tea.Cmd) {
	var effects []wizard.Effect
	m.session, effects = wizard.Transition(m.session, ev)
	m.sync()
	return m, effectCmds(m.ctx, m.runner, effects)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.steps.SetWidth(m.width - 4)
		m.list.SetSize(m.listWidth(), m.listHeight())
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(theme.Clamp(m.width-4, 40, theme.MaxContentWidth)),
		); err == nil {
			m.md = r
		}
		return m, nil

	case effectDoneMsg:
		if msg.event == nil {
			return m, nil
		}
		var cmd tea.Cmd
		m, cmd = m.dispatch(msg.event)
		return m.finish(cmd)

	case spinner.TickMsg:
		var cmd, tcmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.tester, tcmd = m.tester.Update(msg)
		return m, tea.Batch(cmd, tcmd)

	case wizcomp.FieldChangedMsg:
		return m.dispatch(fieldEvent(msg))

	case wizcomp.FieldSubmitMsg:
		if m.focus < len(m.fields)-1 {
			return m.moveFocus(1)
		}
		return m.proceed()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// finish quits once the session reached a terminal state.
func (m Model) finish(cmd tea.Cmd) (tea.Model, tea.Cmd) {
	if m.session.Cancelled {
		return m, tea.Quit
	}
	return m, cmd
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		m, _ = m.dispatch(wizard.Cancelled{})
		return m, tea.Quit
	}

	if m.session.Done {
		return m, tea.Quit
	}
	filtering := m.onListStep() && m.list.FilterState() == list.Filtering

	switch key.String() {
	case "esc":
		if filtering {
			break
		}
		if m.session.Step > 1 {
			return m.dispatch(wizard.Advance{Target: m.session.Step - 1})
		}
		m, _ = m.dispatch(wizard.Cancelled{})
		return m, tea.Quit
	case "ctrl+r":
		return m.dispatch(wizard.RetryLoad{})
	case "ctrl+t":
		if !m.onListStep() {
			return m.dispatch(wizard.TestRequested{})
		}
	case "ctrl+s":
		if !m.onListStep() {
			return m.proceed()
		}
	}

	switch m.session.StepKind() {
	case wizard.StepSelectProvider, wizard.StepSelectAuthType:
		if key.Type == tea.KeyEnter && !filtering {
			return m.choose()
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(key)
		return m, cmd

	case wizard.StepConfigure:
		switch key.String() {
		case "tab", "down":
			return m.moveFocus(1)
		case "shift+tab", "up":
			return m.moveFocus(-1)
		}
		if len(m.fields) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.fields[m.focus], cmd = m.fields[m.focus].Update(key)
		return m, cmd

	case wizard.StepReview:
		if key.Type == tea.KeyEnter {
			return m.proceed()
		}
	}
	return m, nil
}

func (m Model) onListStep() bool {
	k := m.session.StepKind()
	return k == wizard.StepSelectProvider || k == wizard.StepSelectAuthType
}

// choose applies the highlighted list item and moves to the next step.
func (m Model) choose() (tea.Model, tea.Cmd) {
	item, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return m, nil
	}
	var first tea.Cmd
	if m.session.StepKind() == wizard.StepSelectProvider {
		m, first = m.dispatch(wizard.ProviderSelected{ProviderType: item.id})
		if m.session.ProviderType() != item.id {
			return m, first
		}
	} else {
		m, first = m.dispatch(wizard.AuthTypeSelected{Value: item.id})
		if m.session.AuthTypeValue() != item.id {
			return m, first
		}
	}
	m, next := m.dispatch(wizard.Advance{Target: m.session.Step + 1})
	return m, tea.Batch(first, next)
}

// proceed leaves the configure step: vector stores go to review, the last
// step submits.
func (m Model) proceed() (tea.Model, tea.Cmd) {
	if m.session.Step < wizard.StepCount {
		return m.dispatch(wizard.Advance{Target: m.session.Step + 1})
	}
	return m.dispatch(wizard.SubmitRequested{})
}

func (m Model) moveFocus(delta int) (tea.Model, tea.Cmd) {
	if len(m.fields) == 0 {
		return m, nil
	}
	m.fields[m.focus].Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	return m, m.fields[m.focus].Focus()
}

func fieldEvent(msg wizcomp.FieldChangedMsg) wizard.Event {
	switch msg.Name {
	case nameField:
		v, _ := msg.Value.(string)
		return wizard.NameChanged{Value: v}
	case descriptionField:
		v, _ := msg.Value.(string)
		return wizard.DescriptionChanged{Value: v}
	case credentialField:
		raw, _ := msg.Value.(string)
		id, _ := strconv.ParseInt(raw, 10, 64)
		return wizard.CredentialSelected{ID: id}
	}
	if s, ok := msg.Value.(string); ok && s == "" {
		return wizard.ValueChanged{Name: msg.Name, Value: nil}
	}
	return wizard.ValueChanged{Name: msg.Name, Value: msg.Value}
}

// sync mirrors the session into the widgets. Lists and forms are rebuilt
// only when their content changes so cursor positions survive.
func (m *Model) sync() {
	s := m.session
	m.steps.SetCurrent(s.Step)
	m.tester.Sync(s.Testing, s.TestResult)

	switch s.StepKind() {
	case wizard.StepSelectProvider:
		key := fmt.Sprintf("providers/%d/%d", s.Generation, len(s.Categories))
		if key != m.listKey {
			m.listKey = key
			m.list = newList(providerItems(s.Categories), m.listWidth(), m.listHeight())
			selectIndex(&m.list, s.ProviderType())
		}
	case wizard.StepSelectAuthType:
		key := fmt.Sprintf("auth/%d/%d/%t", s.Generation, len(s.AuthTypes), s.AuthTypesLoading)
		if key != m.listKey {
			m.listKey = key
			m.list = newList(authTypeItems(s.AuthTypes), m.listWidth(), m.listHeight())
			selectIndex(&m.list, s.AuthTypeValue())
		}
	case wizard.StepConfigure:
		m.listKey = ""
		m.syncForm()
	}
}

func (m *Model) syncForm() {
	s := m.session
	visible := wizard.VisibleFields(s.Schema.Fields, s.Values)
	names := make([]string, 0, len(visible))
	for _, f := range visible {
		names = append(names, f.Name)
	}
	key := fmt.Sprintf("%d/%s/%d/%s", s.Generation, s.Schema.Status, len(s.Credentials), strings.Join(names, ","))
	if key == m.formKey {
		return
	}
	m.formKey = key

	focused := ""
	if m.focus < len(m.fields) {
		focused = m.fields[m.focus].Name
	}

	label := "Credential Name"
	if s.Flow == wizard.FlowVectorStore {
		label = "Display Name"
	}
	name := wizcomp.NewTextField(nameField, label, "")
	name.Required = true
	name.SetValue(s.DisplayName)
	desc := wizcomp.NewTextField(descriptionField, "Description", "Optional")
	desc.SetValue(s.Description)
	fields := []wizcomp.FormFieldModel{name, desc}

	if s.Flow == wizard.FlowVectorStore && s.Credentials != nil {
		cred := wizcomp.NewSchemaField(credentialSpec(s))
		if c, ok := s.SelectedCredential(); ok {
			cred.SetValue(strconv.FormatInt(c.ID, 10))
		}
		fields = append(fields, cred)
	}
	if s.Schema.Ready() {
		for _, spec := range visible {
			f := wizcomp.NewSchemaField(spec)
			f.SetValue(s.Values[spec.Name])
			fields = append(fields, f)
		}
	}

	m.fields = fields
	m.focus = max(slices.IndexFunc(fields, func(f wizcomp.FormFieldModel) bool { return f.Name == focused }), 0)
	m.fields[m.focus].Focus()
}

func (m Model) listWidth() int {
	return max(m.width-4, 20)
}

func (m Model) listHeight() int {
	return max(m.height-14, 5)
}

// View renders the wizard.
func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing" + theme.SymbolEllipsis
	}

	title := theme.WizardTitle.Render("New " + m.session.Flow.Subject())
	var content string
	switch {
	case m.session.Done:
		content = m.viewDone()
	case m.session.StepKind() == wizard.StepSelectProvider:
		content = m.viewList("Choose a provider:", m.session.ProvidersLoading, "Loading providers")
	case m.session.StepKind() == wizard.StepSelectAuthType:
		content = m.viewList("Choose how to authenticate:", m.session.AuthTypesLoading, "Loading authentication types")
	case m.session.StepKind() == wizard.StepConfigure:
		content = m.viewConfigure()
	case m.session.StepKind() == wizard.StepReview:
		content = m.viewReview()
	}

	parts := []string{title, m.steps.View(), "", content}
	if n := m.viewNotice(); n != "" {
		parts = append(parts, "", n)
	}
	parts = append(parts, "", m.footer())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewList(heading string, loading bool, loadingText string) string {
	if loading && len(m.list.Items()) == 0 {
		return m.spinner.View() + " " + loadingText + theme.SymbolEllipsis
	}
	return lipgloss.JoinVertical(lipgloss.Left, theme.Bold.Render(heading), "", m.list.View())
}

func (m Model) viewConfigure() string {
	s := m.session
	switch s.Schema.Status {
	case wizard.SchemaLoading:
		return m.spinner.View() + " Loading configuration" + theme.SymbolEllipsis
	case wizard.SchemaLoadFailed:
		return theme.TextError.Render(theme.SymbolError+" "+s.Schema.Message) +
			"\n" + theme.TextMuted.Render("  Press Ctrl+R to retry or Esc to go back")
	case wizard.SchemaComingSoon:
		return theme.TextWarning.Render(theme.SymbolWarning+" "+s.Schema.Message) +
			"\n" + theme.TextMuted.Render("  Press Esc to pick another provider")
	}

	parts := make([]string, 0, len(m.fields)+2)
	for _, f := range m.fields {
		parts = append(parts, f.View())
	}
	if s.Flow == wizard.FlowVectorStore {
		switch {
		case s.CredentialsLoading:
			parts = append(parts, m.spinner.View()+" Loading credentials"+theme.SymbolEllipsis)
		case s.Credentials != nil && len(s.Credentials) == 0:
			parts = append(parts, theme.TextWarning.Render(theme.SymbolWarning+" No compatible credentials. Create one with 'portal credential' first."))
		}
	}
	if t := m.tester.View(); t != "" {
		parts = append(parts, "", t)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewReview() string {
	doc := wizard.ReviewMarkdown(m.session)
	out := doc
	if m.md != nil {
		if rendered, err := m.md.Render(doc); err == nil {
			out = rendered
		}
	}
	parts := []string{out}
	if t := m.tester.View(); t != "" {
		parts = append(parts, t)
	}
	if m.session.Submitting {
		parts = append(parts, m.spinner.View()+" Saving"+theme.SymbolEllipsis)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) viewDone() string {
	s := m.session
	if s.Cancelled {
		return theme.TextMuted.Render("Cancelled.")
	}
	msg := s.Notice
	if msg == "" {
		msg = "Created"
	}
	lines := []string{theme.TextSuccess.Render(theme.SymbolSuccess + " " + msg)}
	if s.CreatedID != "" {
		lines = append(lines, fmt.Sprintf("  ID: %s", theme.TextInfo.Render(s.CreatedID)))
	}
	lines = append(lines, "", theme.TextMuted.Render("Press any key to exit"))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) viewNotice() string {
	s := m.session
	switch {
	case s.Done:
		return ""
	case s.SubmitError != "":
		return theme.TextError.Render(theme.SymbolError + " " + s.SubmitError)
	case s.Submitting && s.StepKind() == wizard.StepConfigure:
		return m.spinner.View() + " Saving" + theme.SymbolEllipsis
	case s.Notice != "":
		return theme.TextWarning.Render(theme.SymbolWarning + " " + s.Notice)
	}
	return ""
}

func (m Model) footer() string {
	var hints []components.KeyHint
	switch {
	case m.session.Done:
		hints = []components.KeyHint{{Key: "any key", Desc: "Exit"}}
	case m.onListStep():
		hints = []components.KeyHint{{Key: "Enter", Desc: "Select"}, {Key: "Esc", Desc: "Back"}, {Key: "Ctrl+R", Desc: "Retry"}}
	case m.session.StepKind() == wizard.StepConfigure:
		next := "Next"
		if m.session.Step == wizard.StepCount {
			next = "Save"
		}
		hints = []components.KeyHint{{Key: "Tab", Desc: "Field"}, {Key: "Ctrl+T", Desc: "Test"}, {Key: "Ctrl+S", Desc: next}, {Key: "Esc", Desc: "Back"}}
	default:
		hints = []components.KeyHint{{Key: "Enter", Desc: "Create"}, {Key: "Ctrl+T", Desc: "Test"}, {Key: "Esc", Desc: "Back"}}
	}
	hints = append(hints, components.KeyHint{Key: "Ctrl+C", Desc: "Quit"})

	sb := components.NewStatusBar()
	sb.Hints = hints
	sb.Gateway = m.gateway
	if m.session.Loading() {
		sb.Extra = "Loading" + theme.SymbolEllipsis
	}
	sb.SetWidth(m.width)
	return sb.View()
}

// Run drives the wizard in the terminal until it finishes or is cancelled
// and returns the final session.
func Run(ctx context.Context, flow wizard.Flow, runner *wizard.Runner, logger *slog.Logger, opts ...Option) (wizard.Session, error) {
	p := tea.NewProgram(New(ctx, flow, runner, logger, opts...), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return wizard.Session{}, fmt.Errorf("wizard terminal: %w", err)
	}
	m := final.(Model)
	logger.Info("wizard finished", "flow", flow.String(), "done", m.session.Done, "cancelled", m.session.Cancelled, "id", m.session.CreatedID)
	return m.session, nil
}
