package wizard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"vectorportal/internal/domain"
)

// Mask replaces every password value in review output. It is fixed length
// so the summary does not reveal how long the secret is.
const Mask = "********"

// SummaryRow is one line of the review.
type SummaryRow struct {
	Name   string
	Label  string
	Value  string
	Masked bool
}

// MaskConfig returns a copy of values with every password-kind entry
// replaced by Mask. Keys without a field in the schema are copied as is.
func MaskConfig(fields []domain.FieldSpec, values domain.Values) domain.Values {
	out := values.Clone()
	for _, f := range fields {
		if _, ok := out[f.Name]; ok && f.IsSecret() {
			out[f.Name] = Mask
		}
	}
	return out
}

// Summarize renders the visible, non-empty values in schema order with
// secrets masked, select values shown by label and checkboxes as Yes/No.
func Summarize(fields []domain.FieldSpec, values domain.Values) []SummaryRow {
	rows := make([]SummaryRow, 0, len(values))
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		seen[f.Name] = true
		if !IsVisible(f, values) || !values.Has(f.Name) {
			continue
		}
		rows = append(rows, summarizeField(f, values[f.Name]))
	}

	var extra []string
	for k := range values {
		if !seen[k] && values.Has(k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		rows = append(rows, SummaryRow{Name: k, Label: k, Value: formatScalar(values[k])})
	}
	return rows
}

func summarizeField(f domain.FieldSpec, v any) SummaryRow {
	row := SummaryRow{Name: f.Name, Label: fieldLabel(f)}
	switch k := f.Kind.(type) {
	case domain.PasswordKind:
		row.Value = Mask
		row.Masked = true
	case domain.CheckboxKind:
		if b, ok := v.(bool); ok && b {
			row.Value = "Yes"
		} else {
			row.Value = "No"
		}
	case domain.SelectKind:
		row.Value = k.Label(formatScalar(v))
	case domain.TextKind, domain.NumberKind, domain.TextareaKind:
		row.Value = formatScalar(v)
	default:
		row.Value = Mask
		row.Masked = true
	}
	return row
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// ReviewMarkdown renders the session review as a markdown document for the
// terminal renderer and the headless apply output.
func ReviewMarkdown(s Session) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Review %s\n\n", s.Flow.Subject())
	sb.WriteString("| Setting | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Name | %s |\n", escapeCell(s.DisplayName))
	if s.SelectedProvider != nil {
		fmt.Fprintf(&sb, "| Provider | %s |\n", escapeCell(s.SelectedProvider.DisplayName))
	}
	if s.SelectedAuthType != nil {
		fmt.Fprintf(&sb, "| Authentication | %s |\n", escapeCell(s.SelectedAuthType.Label))
	}
	if c, ok := s.SelectedCredential(); ok {
		fmt.Fprintf(&sb, "| Credential | %s (%s) |\n", escapeCell(c.Name), escapeCell(c.AuthType))
	}
	if s.Description != "" {
		fmt.Fprintf(&sb, "| Description | %s |\n", escapeCell(s.Description))
	}
	for _, row := range Summarize(s.Schema.Fields, s.Values) {
		fmt.Fprintf(&sb, "| %s | `%s` |\n", escapeCell(row.Label), escapeCell(row.Value))
	}
	if s.TestResult != nil {
		status := "passed"
		if !s.TestResult.Success {
			status = "failed"
		}
		fmt.Fprintf(&sb, "\nConnection test %s: %s\n", status, s.TestResult.Message)
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
