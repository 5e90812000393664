package setup

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/lipgloss"

	"vectorportal/internal/adapter/tui/theme"
	"vectorportal/internal/domain"
	"vectorportal/internal/usecase/wizard"
)

// listItem implements list.Item for the bubbles list component.
type listItem struct {
	title string
	badge string
	desc  string
	id    string
}

func (i listItem) Title() string {
	if i.badge == "" {
		return i.title
	}
	return i.title + " " + theme.Badge.Render(i.badge)
}
func (i listItem) Description() string { return i.desc }
func (i listItem) FilterValue() string { return i.title }

func providerItems(categories []domain.ProviderCategory) []list.Item {
	var items []list.Item
	for _, c := range categories {
		for _, p := range c.Providers {
			var badge string
			if p.Availability != domain.AvailabilityAvailable {
				badge = p.Availability.String()
			}
			desc := c.Name
			if p.Description != "" {
				desc += " · " + p.Description
			}
			items = append(items, listItem{title: p.DisplayName, badge: badge, desc: desc, id: p.ProviderType})
		}
	}
	return items
}

func authTypeItems(types []domain.AuthType) []list.Item {
	items := make([]list.Item, 0, len(types))
	for _, a := range types {
		items = append(items, listItem{title: a.Label, desc: a.Description, id: a.Value})
	}
	return items
}

func newList(items []list.Item, width, height int) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(len(items) > 8)
	l.SetShowHelp(true)
	l.Styles.Title = lipgloss.NewStyle()
	return l
}

// selectIndex moves the cursor to the item with id, if present.
func selectIndex(l *list.Model, id string) {
	for i, it := range l.Items() {
		if li, ok := it.(listItem); ok && li.id == id {
			l.Select(i)
			return
		}
	}
}

// credentialField is the pseudo-field that picks the credential of a
// vector store. Option values are credential ids.
const credentialField = "__credential"

func credentialSpec(s wizard.Session) domain.FieldSpec {
	opts := make([]domain.SelectOption, 0, len(s.Credentials))
	for _, c := range s.Credentials {
		label := c.Name
		if c.AuthType != "" {
			label = fmt.Sprintf("%s (%s)", c.Name, c.AuthType)
		}
		opts = append(opts, domain.SelectOption{Value: strconv.FormatInt(c.ID, 10), Label: label})
	}
	return domain.FieldSpec{
		Name:        credentialField,
		Label:       "Credential",
		Kind:        domain.SelectKind{Options: opts},
		Required:    true,
		Description: "Credential used to connect to the vector store",
	}
}
