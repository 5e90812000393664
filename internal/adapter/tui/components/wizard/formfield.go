package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
)

// FieldChangedMsg is sent when the user edits a field.
type FieldChangedMsg struct {
	Name  string
	Value any
}

// FieldSubmitMsg is sent when Enter is pressed on a single-line field.
type FieldSubmitMsg struct {
	Name string
}

// FormFieldModel renders one input of the configure step. Text, password
// and number fields use a textinput, textarea fields a textarea, select
// fields cycle through their options and checkbox fields toggle.
type FormFieldModel struct {
	Name        string
	Label       string
	Description string
	Required    bool
	ErrMsg      string

	kind     domain.FieldKind
	input    textinput.Model
	area     textarea.Model
	selected int
	checked  bool
	focused  bool
}

// NewTextField creates a free-text field that is not part of the schema,
// such as the entity name.
func NewTextField(name, label, placeholder string) FormFieldModel {
	return NewSchemaField(domain.FieldSpec{
		Name:        name,
		Label:       label,
		Kind:        domain.TextKind{},
		Placeholder: placeholder,
	})
}

// NewSchemaField creates the input for a schema field.
func NewSchemaField(spec domain.FieldSpec) FormFieldModel {
	m := FormFieldModel{
		Name:        spec.Name,
		Label:       spec.Label,
		Description: spec.Description,
		Required:    spec.Required,
		kind:        spec.Kind,
	}
	if m.Label == "" {
		m.Label = spec.Name
	}

	switch k := spec.Kind.(type) {
	case domain.TextareaKind:
		ta := textarea.New()
		ta.Placeholder = spec.Placeholder
		ta.SetWidth(50)
		ta.SetHeight(3)
		ta.ShowLineNumbers = false
		m.area = ta
	case domain.SelectKind:
		m.selected = -1
		if d, ok := spec.Default.(string); ok {
			m.selected = optionIndex(k, d)
		}
	case domain.CheckboxKind:
		m.checked, _ = spec.Default.(bool)
	default:
		ti := textinput.New()
		ti.Placeholder = spec.Placeholder
		ti.Width = 50
		ti.PromptStyle = theme.InputPrompt
		ti.PlaceholderStyle = theme.InputPlaceholder
		if _, ok := k.(domain.PasswordKind); ok {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.input = ti
	}
	return m
}

func optionIndex(k domain.SelectKind, v string) int {
	for i, o := range k.Options {
		if o.Value == v {
			return i
		}
	}
	return -1
}

// Focus gives the field keyboard focus.
func (m *FormFieldModel) Focus() tea.Cmd {
	m.focused = true
	switch m.kind.(type) {
	case domain.TextareaKind:
		return m.area.Focus()
	case domain.SelectKind, domain.CheckboxKind:
		return nil
	default:
		return m.input.Focus()
	}
}

// Blur removes keyboard focus.
func (m *FormFieldModel) Blur() {
	m.focused = false
	m.input.Blur()
	m.area.Blur()
}

// Focused reports whether the field has focus.
func (m FormFieldModel) Focused() bool { return m.focused }

// SetError displays a validation error message.
func (m *FormFieldModel) SetError(msg string) { m.ErrMsg = msg }

// ClearError clears the validation error.
func (m *FormFieldModel) ClearError() { m.ErrMsg = "" }

// SetValue loads a value from the session without emitting a change.
func (m *FormFieldModel) SetValue(v any) {
	switch k := m.kind.(type) {
	case domain.TextareaKind:
		m.area.SetValue(toString(v))
	case domain.SelectKind:
		m.selected = optionIndex(k, toString(v))
	case domain.CheckboxKind:
		m.checked, _ = v.(bool)
	default:
		m.input.SetValue(toString(v))
	}
}

// Value returns the current raw value: a string, or a bool for checkboxes.
// An unselected select returns nil.
func (m FormFieldModel) Value() any {
	switch k := m.kind.(type) {
	case domain.TextareaKind:
		return m.area.Value()
	case domain.SelectKind:
		if m.selected < 0 || m.selected >= len(k.Options) {
			return nil
		}
		return k.Options[m.selected].Value
	case domain.CheckboxKind:
		return m.checked
	default:
		return m.input.Value()
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Update handles input events for a focused field.
func (m FormFieldModel) Update(msg tea.Msg) (FormFieldModel, tea.Cmd) {
	if !m.focused {
		return m, nil
	}
	key, isKey := msg.(tea.KeyMsg)

	switch k := m.kind.(type) {
	case domain.SelectKind:
		if !isKey || len(k.Options) == 0 {
			return m, nil
		}
		switch key.String() {
		case "left", "h":
			m.selected = (max(m.selected, 0) - 1 + len(k.Options)) % len(k.Options)
			return m, m.changed()
		case "right", "l", " ":
			m.selected = (m.selected + 1) % len(k.Options)
			return m, m.changed()
		case "enter":
			return m, m.submitted()
		}
		return m, nil

	case domain.CheckboxKind:
		if !isKey {
			return m, nil
		}
		switch key.String() {
		case " ", "x":
			m.checked = !m.checked
			return m, m.changed()
		case "enter":
			return m, m.submitted()
		}
		return m, nil

	case domain.TextareaKind:
		before := m.area.Value()
		var cmd tea.Cmd
		m.area, cmd = m.area.Update(msg)
		if m.area.Value() != before {
			return m, tea.Batch(cmd, m.changed())
		}
		return m, cmd

	default:
		if isKey && key.Type == tea.KeyEnter {
			return m, m.submitted()
		}
		before := m.input.Value()
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.input.Value() != before {
			return m, tea.Batch(cmd, m.changed())
		}
		return m, cmd
	}
}

func (m FormFieldModel) changed() tea.Cmd {
	name, value := m.Name, m.Value()
	return func() tea.Msg { return FieldChangedMsg{Name: name, Value: value} }
}

func (m FormFieldModel) submitted() tea.Cmd {
	name := m.Name
	return func() tea.Msg { return FieldSubmitMsg{Name: name} }
}

// View renders the form field.
func (m FormFieldModel) View() string {
	labelStyle := theme.FieldLabel
	cursor := "  "
	if m.focused {
		labelStyle = theme.FieldLabelFocused
		cursor = theme.TextInfo.Render(theme.SymbolCursor) + " "
	}
	label := cursor + labelStyle.Render(m.Label)
	if m.Required {
		label += theme.RequiredMark.Render(" *")
	}

	parts := []string{label}
	if m.Description != "" && m.focused {
		parts = append(parts, "  "+theme.TextMuted.Render(m.Description))
	}
	parts = append(parts, "  "+m.inputView())

	if m.ErrMsg != "" {
		parts = append(parts, "  "+theme.TextError.Render(theme.SymbolError+" "+m.ErrMsg))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m FormFieldModel) inputView() string {
	switch k := m.kind.(type) {
	case domain.TextareaKind:
		return m.area.View()
	case domain.SelectKind:
		if len(k.Options) == 0 {
			return theme.TextMuted.Render("(no options)")
		}
		opts := make([]string, len(k.Options))
		for i, o := range k.Options {
			if i == m.selected {
				opts[i] = theme.FieldLabelFocused.Render("[" + o.Label + "]")
				continue
			}
			opts[i] = theme.TextMuted.Render(" " + o.Label + " ")
		}
		hint := ""
		if m.focused {
			hint = theme.Dim.Render("  left/right to choose")
		}
		return strings.Join(opts, " ") + hint
	case domain.CheckboxKind:
		box := theme.SymbolUnchecked
		if m.checked {
			box = theme.SymbolChecked
		}
		if m.focused {
			return box + theme.Dim.Render("  space to toggle")
		}
		return box
	default:
		return m.input.View()
	}
}
