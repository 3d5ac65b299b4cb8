package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/sandrolain/gognl"
	"github.com/sandrolain/gognl/pkg/astyaml"
	"github.com/sandrolain/gognl/pkg/evaluator"
	"github.com/sandrolain/gognl/pkg/types"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

// nodeKinds are offered by tab completion.
var nodeKinds = []types.NodeKind{
	types.KindConst, types.KindAdd, types.KindSubtract, types.KindMultiply, types.KindDivide,
	types.KindRemainder, types.KindBitAnd, types.KindBitOr, types.KindXor, types.KindShiftLeft,
	types.KindShiftRight, types.KindUnsignedShiftRight, types.KindNegate, types.KindBitNegate,
	types.KindNot, types.KindAnd, types.KindOr, types.KindEq, types.KindNotEq, types.KindLess,
	types.KindLessEq, types.KindGreater, types.KindGreaterEq, types.KindIn, types.KindNotIn,
	types.KindInstanceOf, types.KindTest, types.KindSequence, types.KindAssign, types.KindChain,
	types.KindProperty, types.KindMethod, types.KindStaticField, types.KindStaticMethod,
	types.KindCtor, types.KindList, types.KindMap, types.KindKeyValue, types.KindVarRef,
	types.KindRootRef, types.KindThisRef, types.KindSelect, types.KindSelectFirst,
	types.KindSelectLast, types.KindProject, types.KindEval, types.KindLambda,
}

type historyEntry struct {
	input  string
	output string
	isErr  bool
}

type inspectModel struct {
	textInput   textinput.Model
	trace       viewport.Model
	sess        *session
	vars        map[string]any
	words       []string // completion candidates
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	width       int
	height      int
	showHelp    bool
	showVars    bool
	showTrace   bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Enter    key.Binding
	CtrlC    key.Binding
	CtrlD    key.Binding
	CtrlL    key.Binding
	Tab      key.Binding
	CtrlV    key.Binding
	CtrlH    key.Binding
	CtrlT    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous tree"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next tree"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "evaluate"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlV: key.NewBinding(
		key.WithKeys("ctrl+v"),
		key.WithHelp("ctrl+v", "toggle vars"),
	),
	CtrlH: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
	CtrlT: key.NewBinding(
		key.WithKeys("ctrl+t"),
		key.WithHelp("ctrl+t", "toggle trace"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "scroll trace up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdown", "scroll trace down"),
	),
}

func newInspectModel(s *session) inspectModel {
	ti := textinput.New()
	ti.Placeholder = "type a YAML tree, e.g. {property: name}"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = "gognl> "

	words := make([]string, 0, len(nodeKinds))
	for _, k := range nodeKinds {
		words = append(words, string(k))
	}
	words = append(words, "class", "args", "indexed", "array")
	for _, c := range s.cfg.classes() {
		words = append(words, c.Name)
		words = append(words, c.FuncNames()...)
	}
	slices.Sort(words)

	return inspectModel{
		textInput:  ti,
		trace:      viewport.New(60, 10),
		sess:       s,
		vars:       maps.Clone(s.cfg.Vars),
		words:      slices.Compact(words),
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
}

func (m inspectModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.trace.Width = msg.Width - 4
		m.trace.Height = max(msg.Height/3, 5)
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlV):
			m.showVars = !m.showVars
			return m, nil

		case key.Matches(msg, keys.CtrlH):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.CtrlT):
			m.showTrace = !m.showTrace
			return m, nil

		case key.Matches(msg, keys.PageUp), key.Matches(msg, keys.PageDown):
			m.trace, cmd = m.trace.Update(msg)
			return m, cmd

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			output, isErr := m.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m inspectModel) handleCommand(input string) (inspectModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":vars", ":v":
		m.showVars = !m.showVars
	case ":trace", ":t":
		m.showTrace = !m.showTrace
	case ":set", ":s":
		m.history = append(m.history, m.setVar(input, parts))
	case ":data", ":d":
		m.history = append(m.history, m.loadData(input, parts))
	case ":reset", ":r":
		m.vars = maps.Clone(m.sess.cfg.Vars)
		m.trace.SetContent("")
		m.history = append(m.history, historyEntry{
			input:  input,
			output: "Variables reset",
		})
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

// setVar handles ":set name value", the value being YAML.
func (m *inspectModel) setVar(input string, parts []string) historyEntry {
	if len(parts) < 3 {
		return historyEntry{input: input, output: "usage: :set name value", isErr: true}
	}
	var v any
	if err := yaml.Unmarshal([]byte(strings.Join(parts[2:], " ")), &v); err != nil {
		return historyEntry{input: input, output: err.Error(), isErr: true}
	}
	if m.vars == nil {
		m.vars = make(map[string]any)
	}
	m.vars[parts[1]] = v
	return historyEntry{input: input, output: "#" + parts[1] + " = " + formatValue(v)}
}

// loadData handles ":data file".
func (m *inspectModel) loadData(input string, parts []string) historyEntry {
	if len(parts) != 2 {
		return historyEntry{input: input, output: "usage: :data file", isErr: true}
	}
	data, err := readData(parts[1])
	if err != nil {
		return historyEntry{input: input, output: err.Error(), isErr: true}
	}
	m.sess.data = data
	return historyEntry{input: input, output: "Loaded " + parts[1]}
}

func (m inspectModel) handleAutocomplete() inspectModel {
	input := m.textInput.Value()
	if input == "" {
		return m
	}

	// Complete the identifier under the cursor, which ends the input.
	start := strings.LastIndexFunc(input, func(r rune) bool {
		return !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
	}) + 1
	lastWord := input[start:]
	if lastWord == "" {
		return m
	}

	var completions []string
	for _, w := range m.words {
		if strings.HasPrefix(w, lastWord) {
			completions = append(completions, w)
		}
	}
	for name := range m.vars {
		if strings.HasPrefix(name, lastWord) {
			completions = append(completions, name)
		}
	}

	if len(completions) == 1 {
		m.textInput.SetValue(input[:start] + completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			output: "Completions: " + strings.Join(completions, ", "),
		})
	}

	return m
}

// evaluate decodes input and evaluates it against the session data. Variables
// the tree assigns stay bound for later trees; the result is bound to #_.
func (m *inspectModel) evaluate(input string) (string, bool) {
	node, err := astyaml.Parse(input)
	if err != nil {
		return err.Error(), true
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.sess.timeout())
	defer cancel()

	ectx := m.sess.ev.NewContext(ctx)
	ectx.SetTracing(true)
	for name, v := range m.vars {
		ectx.Set(name, v)
	}
	result, err := evaluator.Evaluate(node, ectx, m.sess.data)
	if last := ectx.LastEvaluation(); last != nil {
		m.trace.SetContent(last.Format())
		m.trace.GotoTop()
	}
	if err != nil {
		return err.Error(), true
	}

	m.vars = ectx.Vars()
	m.vars["_"] = result
	return node.String() + "  →  " + formatValue(result), false
}

func formatValue(v any) string {
	if v == nil {
		return "null"
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

func (m inspectModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("gognl inspector")
	version := mutedStyle.Render(gognl.Version())
	b.WriteString(header + " " + version + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	reservedLines := 8 // header, input, help hint, etc.
	if m.showHelp {
		reservedLines += 13
	}
	if m.showVars {
		reservedLines += len(m.vars) + 3
	}
	if m.showTrace {
		reservedLines += m.trace.Height + 2
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = max(len(m.history)-availableHeight, 0)
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isErr {
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		} else {
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showTrace {
		b.WriteString(borderStyle.Render(m.trace.View()))
		b.WriteString("\n")
	}

	if m.showVars {
		b.WriteString(renderVarsPanel(m.vars))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+t") + helpDescStyle.Render(" trace  ") +
		helpKeyStyle.Render("ctrl+v") + helpDescStyle.Render(" vars  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderVarsPanel(vars map[string]any) string {
	if len(vars) == 0 {
		return borderStyle.Render(mutedStyle.Render("No variables bound"))
	}

	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Variables"))
	varNameStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for _, name := range names {
		line := fmt.Sprintf("  %s = %s", varNameStyle.Render("#"+name), formatValue(vars[name]))
		lines = append(lines, line)
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate tree history"},
		{"Tab", "Autocomplete kinds, classes and functions"},
		{"Enter", "Evaluate a YAML tree"},
		{"PgUp/PgDn", "Scroll the trace"},
		{":help", "Toggle this help"},
		{":trace", "Toggle the evaluation trace"},
		{":vars", "Toggle variables panel"},
		{":set n v", "Bind #n to the YAML value v"},
		{":data f", "Load a YAML or JSON data file"},
		{":clear", "Clear history"},
		{":reset", "Reset variables"},
		{":quit", "Exit"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-10s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func inspectCommand(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var sf sessionFlags
	sf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	s, err := sf.open()
	if err != nil {
		return err
	}
	m := newInspectModel(s)
	for _, v := range sf.vars {
		if m.vars == nil {
			m.vars = make(map[string]any)
		}
		m.vars[v.name] = v.value
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
