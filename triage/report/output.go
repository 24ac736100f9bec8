package report

import (
	"fmt"
	"strings"
)

type OutputKind string

const (
	OutputText OutputKind = "text"
	OutputMenu OutputKind = "menu"
)

// A single item to be delivered to a conversation: either plain text, or a structured
// menu of options (optionally preceded by text).
type Output struct {
	Kind OutputKind `json:"kind"`
	Text string     `json:"text,omitempty"`
	Menu *Menu      `json:"menu,omitempty"`
}

func Text(msg string) Output {
	return Output{Kind: OutputText, Text: msg}
}

func Textf(format string, args ...any) Output {
	return Output{Kind: OutputText, Text: fmt.Sprintf(format, args...)}
}

func Prompt(intro string, m *Menu) Output {
	return Output{Kind: OutputMenu, Text: intro, Menu: m}
}

// Plain-text rendering, for transports without rich formatting.
func (o Output) String() string {
	if o.Kind != OutputMenu || o.Menu == nil {
		return o.Text
	}
	var sb strings.Builder
	if o.Text != "" {
		sb.WriteString(o.Text)
		sb.WriteString("\n")
	}
	sb.WriteString(o.Menu.String())
	return sb.String()
}

type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Menu struct {
	Title   string   `json:"title"`
	Options []Option `json:"options"`
	Footer  string   `json:"footer,omitempty"`
}

// Lookup matches a user reply against the menu keys ("2", "(2)").
func (m *Menu) Lookup(reply string) (Option, bool) {
	reply = strings.Trim(normalize(reply), "()")
	for _, opt := range m.Options {
		if opt.Key == reply {
			return opt, true
		}
	}
	return Option{}, false
}

func (m *Menu) String() string {
	var sb strings.Builder
	sb.WriteString("**" + m.Title + "**\n")
	for _, opt := range m.Options {
		fmt.Fprintf(&sb, "(%s) %s\n", opt.Key, opt.Label)
	}
	if m.Footer != "" {
		sb.WriteString(m.Footer)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// builds a menu with options numbered from 1, and the usual "Ex: ..." footer
func numberedMenu(title string, labels ...string) *Menu {
	m := &Menu{Title: title}
	for i, l := range labels {
		m.Options = append(m.Options, Option{Key: fmt.Sprint(i + 1), Label: l})
	}
	if len(labels) > 0 {
		m.Footer = fmt.Sprintf("Ex: To select '%s', type `1`.", labels[0])
	}
	return m
}
