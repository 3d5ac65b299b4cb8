package main

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandrolain/gognl/pkg/evaluator"
)

func newTestModel(t *testing.T, data any) inspectModel {
	t.Helper()
	cfg := Config{}
	s := &session{cfg: cfg, ev: evaluator.New(cfg.options()...), data: data}
	return newInspectModel(s)
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newTestModel(t, nil)
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	im, ok := model.(inspectModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}
	if !im.quitting {
		t.Fatalf("quitting flag not set")
	}
	if im.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateToggleCommands(t *testing.T) {
	m := newTestModel(t, nil)
	for _, input := range []string{":help", ":trace", ":vars"} {
		m.textInput.SetValue(input)
		model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if cmd != nil {
			t.Fatalf("%s: expected no command", input)
		}
		m = model.(inspectModel)
	}
	if !m.showHelp || !m.showTrace || !m.showVars {
		t.Fatalf("toggles = help %v, trace %v, vars %v", m.showHelp, m.showTrace, m.showVars)
	}
}

func TestEvaluateRecordsResultAndTrace(t *testing.T) {
	m := newTestModel(t, map[string]any{"name": "Ann"})

	output, isErr := m.evaluate("{chain: [{property: name}, {method: toUpperCase}]}")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if !strings.HasSuffix(output, `"ANN"`) {
		t.Fatalf("unexpected output: %q", output)
	}
	if m.vars["_"] != "ANN" {
		t.Fatalf("#_ = %v", m.vars["_"])
	}
	if m.trace.TotalLineCount() == 0 {
		t.Fatalf("trace is empty")
	}
}

func TestEvaluateAssignmentStoresVariable(t *testing.T) {
	m := newTestModel(t, nil)

	if output, isErr := m.evaluate("{assign: [{var: score}, 42]}"); isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if m.vars["score"] != 42 {
		t.Fatalf("score = %#v", m.vars["score"])
	}

	output, isErr := m.evaluate("{add: [{var: score}, 1]}")
	if isErr || !strings.HasSuffix(output, "43") {
		t.Fatalf("later tree does not see #score: %q", output)
	}
}

func TestEvaluateReportsErrors(t *testing.T) {
	m := newTestModel(t, nil)
	if output, isErr := m.evaluate("{add: [1]}"); !isErr || !strings.Contains(output, "S0601") {
		t.Fatalf("malformed tree: %q", output)
	}
	if output, isErr := m.evaluate("{divide: [1, 0]}"); !isErr || !strings.Contains(output, "T0403") {
		t.Fatalf("division by zero: %q", output)
	}
}

func TestSetCommandBindsYAMLValue(t *testing.T) {
	m := newTestModel(t, nil)
	m.textInput.SetValue(":set limits [1, 2]")

	model, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = model.(inspectModel)
	limits, ok := m.vars["limits"].([]any)
	if !ok || len(limits) != 2 {
		t.Fatalf("limits = %#v", m.vars["limits"])
	}
}

func TestAutocompleteSingleMatch(t *testing.T) {
	m := newTestModel(t, nil)
	m.textInput.SetValue("{staticM")

	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "{staticMethod" {
		t.Fatalf("completed to %q", got)
	}
}

func TestAutocompleteListsCandidates(t *testing.T) {
	m := newTestModel(t, nil)
	m.textInput.SetValue("{select")

	m = m.handleAutocomplete()
	if len(m.history) != 1 || !strings.Contains(m.history[0].output, "selectFirst") {
		t.Fatalf("history = %+v", m.history)
	}
}
