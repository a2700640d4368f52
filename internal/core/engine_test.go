package core

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lin-Jiong-HDU/slashcmd/internal/ai"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/storage"
	"github.com/Lin-Jiong-HDU/slashcmd/internal/terminal"
)

type fakeTerm struct {
	mu  sync.Mutex
	out bytes.Buffer
}

func (f *fakeTerm) EnterRawMode() error { return nil }
func (f *fakeTerm) ExitRawMode() error { return nil }
func (f *fakeTerm) Size() (int, int, error) { return 80, 24, nil }
func (f *fakeTerm) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.out.Write(p)
}

func pressed(keys ...terminal.Key) terminal.KeySource {
	return func() (<-chan terminal.Key, func(), error) {
		ch := make(chan terminal.Key, len(keys)+1)
		for _, k := range keys {
			ch <- k
		}
		return ch, func() {}, nil
	}
}

type fakeSource struct {
	command     ai.CommandResult
	commandErr  error
	explanation string
	explainErr  error
}

func (f *fakeSource) Stream(ctx context.Context, query string) (<-chan ai.Result[ai.CommandResult], <-chan ai.Result[string]) {
	cmdCh := make(chan ai.Result[ai.CommandResult], 1)
	cmdCh <- ai.Result[ai.CommandResult]{Value: f.command, Err: f.commandErr}
	expCh := make(chan ai.Result[string], 1)
	expCh <- ai.Result[string]{Value: f.explanation, Err: f.explainErr}
	return cmdCh, expCh
}

func (f *fakeSource) ExplainAsync(ctx context.Context, command string, style ai.Style) <-chan ai.Result[string] {
	ch := make(chan ai.Result[string], 1)
	ch <- ai.Result[string]{Value: f.explanation, Err: f.explainErr}
	return ch
}

func (f *fakeSource) ResolveCommand(ctx context.Context, query string) (ai.CommandResult, error) {
	return f.command, f.commandErr
}

func (f *fakeSource) ResolveExplanation(ctx context.Context, command string, style ai.Style) (ai.Explanation, error) {
	if f.explainErr != nil {
		return ai.Explanation{}, f.explainErr
	}
	return ai.ParseExplanation(f.explanation), nil
}

type countingRunner struct {
	mu       sync.Mutex
	commands []string
	code     int
}

func (r *countingRunner) Run(ctx context.Context, command string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command)
	return r.code, nil
}

func (r *countingRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

type memoryRecorder struct {
	entries []storage.Entry
	codes   map[string]int
}

func (m *memoryRecorder) Save(e *storage.Entry) error {
	e.ID = "id-" + e.Command
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memoryRecorder) SetExitCode(id string, code int) error {
	if m.codes == nil {
		m.codes = make(map[string]int)
	}
	m.codes[id] = code
	return nil
}

func newTestSession(keys terminal.KeySource, clip func(string) error) *terminal.Session {
	opts := terminal.Options{
		Reserved:       5,
		PollInterval:   time.Millisecond,
		ResolveTimeout: time.Second,
		Style:          ai.StyleHuman,
	}
	if clip == nil {
		clip = func(string) error { return nil }
	}
	return terminal.NewSession(&fakeTerm{}, opts, terminal.WithKeys(keys), terminal.WithClipboard(clip))
}

func TestRunInteractive_SafeAutoExecutes(t *testing.T) {
	src := &fakeSource{command: ai.CommandResult{Command: "ls -la", Safe: true}}
	runner := &countingRunner{code: 0}
	rec := &memoryRecorder{}
	engine := NewEngine(src, runner, WithHistory(rec), WithSourceName("daemon"))

	code, err := engine.RunInteractive(context.Background(), Request{Query: "list files"}, newTestSession(pressed(), nil))
	if err != nil {
		t.Fatalf("RunInteractive failed: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if got := runner.calls(); len(got) != 1 || got[0] != "ls -la" {
		t.Errorf("runner calls = %v, want [ls -la]", got)
	}

	if len(rec.entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Outcome != storage.OutcomeExecuted || e.Source != "daemon" || e.Query != "list files" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if _, ok := rec.codes[e.ID]; !ok {
		t.Error("exit code was not recorded")
	}
}

// lockCheckingRunner opens the history file while the command runs.
type lockCheckingRunner struct {
	path    string
	openErr error
}

func (r *lockCheckingRunner) Run(ctx context.Context, command string) (int, error) {
	h, err := storage.OpenHistory(r.path, storage.HistoryOptions{})
	if err == nil {
		h.Close()
	}
	r.openErr = err
	return 0, nil
}

func TestRunInteractive_HistoryUnlockedWhileCommandRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	src := &fakeSource{command: ai.CommandResult{Command: "sleep 1", Safe: true}}
	runner := &lockCheckingRunner{path: path}
	engine := NewEngine(src, runner, WithHistory(storage.NewHistoryFile(path, storage.HistoryOptions{})))

	if _, err := engine.RunInteractive(context.Background(), Request{Query: "wait"}, newTestSession(pressed(), nil)); err != nil {
		t.Fatalf("RunInteractive failed: %v", err)
	}
	if runner.openErr != nil {
		t.Fatalf("history was locked during the command: %v", runner.openErr)
	}

	h, err := storage.OpenHistory(path, storage.HistoryOptions{})
	if err != nil {
		t.Fatalf("OpenHistory failed: %v", err)
	}
	defer h.Close()
	entries, _ := h.List(0)
	if len(entries) != 1 || entries[0].Outcome != storage.OutcomeExecuted {
		t.Errorf("unexpected history: %+v", entries)
	}
}

func TestRunInteractive_ConfirmedCommandPropagatesExitCode(t *testing.T) {
	src := &fakeSource{
		command:     ai.CommandResult{Command: "make build", Safe: false},
		explanation: "[CAUTION] Builds the project.",
	}
	runner := &countingRunner{code: 2}
	engine := NewEngine(src, runner)

	code, err := engine.RunInteractive(context.Background(), Request{Query: "build"}, newTestSession(pressed(terminal.KeyEnter), nil))
	if err != nil {
		t.Fatalf("RunInteractive failed: %v", err)
	}
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
	if len(runner.calls()) != 1 {
		t.Errorf("expected runner to be called once, got %d", len(runner.calls()))
	}
}

func TestRunInteractive_DangerNeverRuns(t *testing.T) {
	src := &fakeSource{
		command:     ai.CommandResult{Command: "rm -rf /tmp/x", Safe: false},
		explanation: "[DANGER] Deletes the directory.",
	}
	runner := &countingRunner{}
	rec := &memoryRecorder{}
	var copied []string
	clip := func(s string) error {
		copied = append(copied, s)
		return nil
	}
	engine := NewEngine(src, runner, WithHistory(rec))

	code, err := engine.RunInteractive(context.Background(), Request{Query: "delete x"}, newTestSession(pressed(terminal.KeyEnter), clip))
	if err != nil {
		t.Fatalf("RunInteractive failed: %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if got := runner.calls(); len(got) != 0 {
		t.Fatalf("dangerous command was run: %v", got)
	}
	if len(copied) != 1 || copied[0] != "rm -rf /tmp/x" {
		t.Errorf("clipboard = %v", copied)
	}
	if len(rec.entries) != 1 || rec.entries[0].Outcome != storage.OutcomeCopied {
		t.Errorf("unexpected history: %+v", rec.entries)
	}
}

func TestRunInteractive_Cancel(t *testing.T) {
	src := &fakeSource{
		command:     ai.CommandResult{Command: "make build", Safe: false},
		explanation: "[CAUTION] Builds the project.",
	}
	runner := &countingRunner{}
	rec := &memoryRecorder{}
	engine := NewEngine(src, runner, WithHistory(rec))

	code, err := engine.RunInteractive(context.Background(), Request{Query: "build"}, newTestSession(pressed(terminal.KeyCtrlC), nil))
	if err != nil {
		t.Fatalf("RunInteractive failed: %v", err)
	}
	if code != ExitCancelled {
		t.Errorf("exit code = %d, want %d", code, ExitCancelled)
	}
	if len(runner.calls()) != 0 {
		t.Error("cancelled command was run")
	}
	if len(rec.entries) != 1 || rec.entries[0].Outcome != storage.OutcomeCancelled {
		t.Errorf("unexpected history: %+v", rec.entries)
	}
}

func TestRunInteractive_ResolveError(t *testing.T) {
	src := &fakeSource{commandErr: errors.New("backend down")}
	runner := &countingRunner{}
	engine := NewEngine(src, runner)

	code, err := engine.RunInteractive(context.Background(), Request{Query: "x"}, newTestSession(pressed(), nil))
	if err == nil || !strings.Contains(err.Error(), "backend down") {
		t.Fatalf("expected backend error, got %v", err)
	}
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestRunPlain_PrintsCommandOnly(t *testing.T) {
	src := &fakeSource{command: ai.CommandResult{Command: "df -h", Safe: true}}
	rec := &memoryRecorder{}
	engine := NewEngine(src, &countingRunner{}, WithHistory(rec))

	var stdout, stderr bytes.Buffer
	if err := engine.RunPlain(context.Background(), Request{Query: "disk"}, PlainOptions{}, &stdout, &stderr); err != nil {
		t.Fatalf("RunPlain failed: %v", err)
	}
	if stdout.String() != "df -h\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if len(rec.entries) != 1 || rec.entries[0].Outcome != storage.OutcomePrinted {
		t.Errorf("unexpected history: %+v", rec.entries)
	}
}

func TestRunPlain_WithExplanation(t *testing.T) {
	src := &fakeSource{
		command:     ai.CommandResult{Command: "df -h", Safe: true},
		explanation: "[SAFE] Shows disk usage.",
	}
	engine := NewEngine(src, &countingRunner{})

	var stdout, stderr bytes.Buffer
	err := engine.RunPlain(context.Background(), Request{Query: "disk", Style: ai.StyleHuman}, PlainOptions{Explain: true}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("RunPlain failed: %v", err)
	}
	want := "df -h\n\n[SAFE] Shows disk usage.\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if stderr.Len() != 0 {
		t.Errorf("unexpected stderr: %q", stderr.String())
	}
}

func TestRunPlain_ExplanationFailureIsNotFatal(t *testing.T) {
	src := &fakeSource{
		command:    ai.CommandResult{Command: "df -h", Safe: true},
		explainErr: ai.ErrNoExplainer,
	}
	engine := NewEngine(src, &countingRunner{})

	var stdout, stderr bytes.Buffer
	err := engine.RunPlain(context.Background(), Request{Query: "disk"}, PlainOptions{Explain: true}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("RunPlain failed: %v", err)
	}
	if stdout.String() != "df -h\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "explanation unavailable") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunPlain_ResolveError(t *testing.T) {
	src := &fakeSource{commandErr: ai.ErrEmptyCommand}
	engine := NewEngine(src, &countingRunner{})

	var stdout, stderr bytes.Buffer
	err := engine.RunPlain(context.Background(), Request{Query: "x"}, PlainOptions{}, &stdout, &stderr)
	if !errors.Is(err, ai.ErrEmptyCommand) {
		t.Fatalf("expected ErrEmptyCommand, got %v", err)
	}
	if stdout.Len() != 0 {
		t.Errorf("stdout = %q, want empty", stdout.String())
	}
}
