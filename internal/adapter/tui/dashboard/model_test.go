package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
)

type staticStatus struct {
	st  gatewayapi.StatusResponse
	err error
}

func (s staticStatus) Status(context.Context) (gatewayapi.StatusResponse, error) {
	return s.st, s.err
}

func newModel(t *testing.T, src StatusSource) *DashboardModel {
	t.Helper()
	m := NewDashboardModel(context.Background(), DashboardDeps{Status: src, Gateway: "http://gw"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestInitPollsStatus(t *testing.T) {
	src := staticStatus{st: gatewayapi.StatusResponse{Version: "1.2.3", Credentials: 4, VectorStores: 2, SecretsEncrypted: true}}
	m := newModel(t, src)

	msg := m.Init()()
	if _, ok := msg.(StatusMsg); !ok {
		t.Fatalf("Init produced %T, want StatusMsg", msg)
	}
	_, cmd := m.Update(msg)
	if cmd == nil {
		t.Error("status result should schedule the next poll")
	}

	view := m.View()
	for _, want := range []string{"v1.2.3", "4 credentials, 2 vector stores", "secrets encrypted", "http://gw"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestUnreachableGateway(t *testing.T) {
	m := newModel(t, staticStatus{err: domain.ErrLoadFailed})
	m.Update(m.Init()())
	if !strings.Contains(m.View(), "unreachable") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestEventsAreCounted(t *testing.T) {
	m := newModel(t, nil)
	if m.Init() != nil {
		t.Error("Init without a status source should do nothing")
	}

	events := []domain.Event{
		domain.NewEvent(domain.EventCredentialCreated, "r1", map[string]any{"credential_name": "prod-aws"}),
		domain.NewEvent(domain.EventConnectionTested, "r2", map[string]any{"success": true}),
		domain.NewEvent(domain.EventConnectionTested, "r3", map[string]any{"success": false, "message": "denied"}),
		domain.NewEvent(domain.EventVectorStoreCreated, "r4", map[string]any{"display_name": "docs"}),
	}
	for _, e := range events {
		m.Update(EventMsg{Event: e})
	}

	o := m.Overview()
	if o.Credentials != 1 || o.VectorStores != 1 || o.TestsPassed != 1 || o.TestsFailed != 1 {
		t.Errorf("overview = %+v", o)
	}
	view := m.View()
	if !strings.Contains(view, "prod-aws") || !strings.Contains(view, "4 events") {
		t.Errorf("view:\n%s", view)
	}
}

func TestStreamClosed(t *testing.T) {
	m := newModel(t, nil)
	m.Update(StreamClosedMsg{Err: errors.New("boom")})
	if !strings.Contains(m.View(), "stream lost") {
		t.Errorf("view:\n%s", m.View())
	}

	m = newModel(t, nil)
	m.Update(StreamClosedMsg{})
	if !strings.Contains(m.View(), "stream closed") {
		t.Errorf("view:\n%s", m.View())
	}
}

func TestQuitKeys(t *testing.T) {
	m := newModel(t, nil)
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := m.Update(k)
		if cmd == nil {
			t.Fatalf("%s: no command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s should quit", k)
		}
	}
}
