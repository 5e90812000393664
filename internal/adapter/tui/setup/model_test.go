package setup

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	wizcomp "vectorportal/internal/adapter/tui/components/wizard"
	"vectorportal/internal/domain"
	"vectorportal/internal/usecase/wizard"
)

type fakeGateway struct {
	mu      sync.Mutex
	created []domain.CredentialPayload
	calls   []string
}

func (g *fakeGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *fakeGateway) CredentialProviders(context.Context) ([]domain.ProviderCategory, error) {
	return []domain.ProviderCategory{{
		Name: "Cloud Providers",
		Providers: []domain.ProviderDescriptor{
			{ProviderType: "aws", DisplayName: "AWS", Availability: domain.AvailabilityAvailable},
			{ProviderType: "custom", DisplayName: "Custom", Availability: domain.AvailabilityComingSoon},
		},
	}}, nil
}

func (g *fakeGateway) AuthTypes(context.Context, string) ([]domain.AuthType, error) {
	return []domain.AuthType{{Value: "basic", Label: "Access Key & Secret"}}, nil
}

func (g *fakeGateway) CredentialSchema(context.Context, string, string) (domain.Schema, error) {
	return domain.Schema{Fields: []domain.FieldSpec{
		{Name: "access_key_id", Label: "Access Key", Kind: domain.TextKind{}, Required: true},
		{Name: "secret_access_key", Label: "Secret", Kind: domain.PasswordKind{}, Required: true},
	}}, nil
}

func (g *fakeGateway) TestCredential(context.Context, string, string, domain.Values) (domain.TestResult, error) {
	return domain.TestResult{Success: true, Message: "Connected"}, nil
}

func (g *fakeGateway) CreateCredential(_ context.Context, p domain.CredentialPayload) (domain.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.created = append(g.created, p)
	return domain.CreateResult{Success: true, Message: "Credential created successfully", ID: "7"}, nil
}

func (g *fakeGateway) VectorStoreCategories(context.Context) ([]domain.ProviderCategory, error) {
	return []domain.ProviderCategory{{
		Name: "Managed Cloud",
		Providers: []domain.ProviderDescriptor{
			{ProviderType: "pinecone", DisplayName: "Pinecone", Availability: domain.AvailabilityComingSoon},
		},
	}}, nil
}

func (g *fakeGateway) VectorStoreSchema(context.Context, string) (domain.Schema, error) {
	g.record("schema")
	return domain.Schema{ComingSoon: true, Message: "Pinecone is coming soon"}, nil
}

func (g *fakeGateway) CredentialsFor(context.Context, string) ([]domain.CredentialSummary, error) {
	g.record("credentials")
	return nil, nil
}

func (g *fakeGateway) TestConnection(context.Context, string, domain.Values) (domain.TestResult, error) {
	return domain.TestResult{Success: true, Message: "Connected"}, nil
}

func (g *fakeGateway) CreateVectorStore(context.Context, domain.VectorStorePayload) (domain.CreateResult, error) {
	return domain.CreateResult{Success: true, ID: "01J"}, nil
}

// pump runs cmd and feeds the wizard messages it produces back into the
// model until none remain. Timer-driven commands such as spinner ticks and
// cursor blinks are dropped.
func pump(t *testing.T, m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	t.Helper()
	var other []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c)
		if !ok || msg == nil {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case effectDoneMsg, wizcomp.FieldChangedMsg, wizcomp.FieldSubmitMsg:
			next, nc := m.Update(msg)
			m = next.(Model)
			queue = append(queue, nc)
		default:
			if seq, ok := sequence(msg); ok {
				queue = append(seq, queue...)
				continue
			}
			other = append(other, msg)
		}
	}
	return m, other
}

// sequence unpacks the message produced by tea.Sequence, whose type is
// unexported.
func sequence(msg tea.Msg) ([]tea.Cmd, bool) {
	v := reflect.ValueOf(msg)
	if v.Kind() != reflect.Slice || v.Type().Elem() != reflect.TypeFor[tea.Cmd]() {
		return nil, false
	}
	cmds := make([]tea.Cmd, v.Len())
	for i := range cmds {
		cmds[i] = v.Index(i).Interface().(tea.Cmd)
	}
	return cmds, true
}

func runCmd(c tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- c() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(50 * time.Millisecond):
		return nil, false
	}
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	next, cmd := m.Update(msg)
	return pump(t, next.(Model), cmd)
}

func key(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typed(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func hasQuit(msgs []tea.Msg) bool {
	for _, m := range msgs {
		if _, ok := m.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func start(t *testing.T, flow wizard.Flow, gw *fakeGateway) Model {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	m := New(context.Background(), flow, wizard.NewRunner(gw, logger), logger, WithGatewayLabel("http://gw"))
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = pump(t, m, m.Init())
	if len(m.Session().Categories) == 0 {
		t.Fatal("providers were not loaded")
	}
	return m
}

func TestCredentialWizardEndToEnd(t *testing.T) {
	gw := &fakeGateway{}
	m := start(t, wizard.FlowCredential, gw)
	if !strings.Contains(m.View(), "AWS") {
		t.Fatalf("provider list not rendered:\n%s", m.View())
	}

	m, _ = send(t, m, key(tea.KeyEnter))
	if m.Session().Step != 2 || len(m.Session().AuthTypes) != 1 {
		t.Fatalf("step = %d, auth types = %v", m.Session().Step, m.Session().AuthTypes)
	}

	m, _ = send(t, m, key(tea.KeyEnter))
	if m.Session().Step != 3 || !m.Session().Schema.Ready() {
		t.Fatalf("step = %d, schema = %s", m.Session().Step, m.Session().Schema.Status)
	}
	if !strings.Contains(m.View(), "Access Key") {
		t.Fatalf("schema fields not rendered:\n%s", m.View())
	}

	m, _ = send(t, m, typed("prod"))
	m, _ = send(t, m, key(tea.KeyTab))
	m, _ = send(t, m, key(tea.KeyTab))
	m, _ = send(t, m, typed("AKIA"))
	m, _ = send(t, m, key(tea.KeyTab))
	m, _ = send(t, m, typed("s3cret"))

	s := m.Session()
	if s.DisplayName != "prod" || s.Values["access_key_id"] != "AKIA" || s.Values["secret_access_key"] != "s3cret" {
		t.Fatalf("session = name %q values %v", s.DisplayName, s.Values)
	}
	if strings.Contains(m.View(), "s3cret") {
		t.Error("secret rendered in clear text")
	}

	m, _ = send(t, m, key(tea.KeyCtrlT))
	if r := m.Session().TestResult; r == nil || !r.Success {
		t.Fatalf("test result = %+v", r)
	}

	m, _ = send(t, m, key(tea.KeyCtrlS))
	if !m.Session().Done || m.Session().CreatedID != "7" {
		t.Fatalf("done = %v, id = %q, notice = %q", m.Session().Done, m.Session().CreatedID, m.Session().Notice)
	}
	if len(gw.created) != 1 || gw.created[0].Name != "prod" {
		t.Fatalf("created = %+v", gw.created)
	}
	if !strings.Contains(m.View(), "Credential created successfully") {
		t.Errorf("done view:\n%s", m.View())
	}

	_, msgs := send(t, m, typed("q"))
	if !hasQuit(msgs) {
		t.Error("any key after completion should quit")
	}
}

func TestSubmitBlockedUntilValid(t *testing.T) {
	m := start(t, wizard.FlowCredential, &fakeGateway{})
	m, _ = send(t, m, key(tea.KeyEnter))
	m, _ = send(t, m, key(tea.KeyEnter))

	m, _ = send(t, m, key(tea.KeyCtrlS))
	if m.Session().Done || m.Session().Submitting {
		t.Fatal("incomplete form was submitted")
	}
	if m.Session().Notice == "" || !strings.Contains(m.View(), m.Session().Notice) {
		t.Errorf("notice not shown: %q", m.Session().Notice)
	}
}

func TestEscGoesBackThenCancels(t *testing.T) {
	m := start(t, wizard.FlowCredential, &fakeGateway{})
	m, _ = send(t, m, key(tea.KeyEnter))
	if m.Session().Step != 2 {
		t.Fatalf("step = %d", m.Session().Step)
	}

	m, _ = send(t, m, key(tea.KeyEsc))
	if m.Session().Step != 1 {
		t.Fatalf("step after esc = %d", m.Session().Step)
	}

	m, msgs := send(t, m, key(tea.KeyEsc))
	if !m.Session().Cancelled || !hasQuit(msgs) {
		t.Errorf("cancelled = %v, quit = %v", m.Session().Cancelled, hasQuit(msgs))
	}
}

func TestComingSoonProviderStaysOnFirstStep(t *testing.T) {
	m := start(t, wizard.FlowVectorStore, &fakeGateway{})
	m, _ = send(t, m, key(tea.KeyEnter))

	if m.Session().Step != 1 {
		t.Fatalf("step = %d, want 1", m.Session().Step)
	}
	if !strings.Contains(m.View(), "coming soon") {
		t.Errorf("coming soon notice missing:\n%s", m.View())
	}
}

func TestCtrlCCancels(t *testing.T) {
	m := start(t, wizard.FlowVectorStore, &fakeGateway{})
	m, msgs := send(t, m, key(tea.KeyCtrlC))
	if !m.Session().Cancelled || !hasQuit(msgs) {
		t.Error("ctrl+c should cancel and quit")
	}
}

func TestEffectCmdsIssueSchemaBeforeCredentials(t *testing.T) {
	gw := &fakeGateway{}
	runner := wizard.NewRunner(gw, slog.New(slog.DiscardHandler))
	cmd := effectCmds(context.Background(), runner, []wizard.Effect{
		wizard.LoadSchemaEffect{Flow: wizard.FlowVectorStore, Generation: 1, ProviderType: "pinecone"},
		wizard.LoadCredentialsEffect{Generation: 1, ProviderType: "pinecone"},
	})
	if cmd == nil {
		t.Fatal("expected a command")
	}
	cmds, ok := sequence(cmd())
	if !ok || len(cmds) != 2 {
		t.Fatalf("expected a sequence of two commands, got %T", cmd())
	}
	if len(gw.calls) != 0 {
		t.Fatalf("no request may start before the sequence runs, got %v", gw.calls)
	}

	first := cmds[0]().(effectDoneMsg)
	if _, ok := first.event.(wizard.SchemaLoaded); !ok {
		t.Errorf("first event = %T, want SchemaLoaded", first.event)
	}
	if got := strings.Join(gw.calls, ","); got != "schema" {
		t.Errorf("calls after first command = %q", got)
	}
	second := cmds[1]().(effectDoneMsg)
	if _, ok := second.event.(wizard.CredentialsLoaded); !ok {
		t.Errorf("second event = %T, want CredentialsLoaded", second.event)
	}
	if got := strings.Join(gw.calls, ","); got != "schema,credentials" {
		t.Errorf("calls = %q", got)
	}
}
