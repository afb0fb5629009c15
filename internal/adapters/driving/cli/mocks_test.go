package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/fedreg/internal/core/domain"
	"github.com/custodia-labs/fedreg/internal/core/ports/driving"
)

// mockPipeline implements driving.Pipeline for testing.
type mockPipeline struct {
	mu         sync.Mutex
	summary    *domain.RunSummary
	report     *domain.IngestReport
	err        error
	runs       []domain.RunRequest
	ingestDays [][]time.Time
}

func (m *mockPipeline) Run(_ context.Context, req domain.RunRequest) (*domain.RunSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, req)
	s := m.summary
	if s == nil {
		s = &domain.RunSummary{RunID: "run-1"}
	}
	return s, m.err
}

func (m *mockPipeline) Ingest(_ context.Context, days []time.Time) (*domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestDays = append(m.ingestDays, days)
	r := m.report
	if r == nil {
		r = &domain.IngestReport{}
	}
	return r, m.err
}

func (m *mockPipeline) runCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runs)
}

// mockAgent implements driving.Agent for testing.
type mockAgent struct {
	answers   []string
	err       error
	questions []string
	histories [][]domain.Turn
}

func (m *mockAgent) HandleTurn(_ context.Context, history []domain.Turn, msg string) (*domain.TurnResult, error) {
	m.questions = append(m.questions, msg)
	m.histories = append(m.histories, history)
	if m.err != nil {
		return nil, m.err
	}
	answer := "answer"
	if len(m.answers) > 0 {
		answer = m.answers[0]
		m.answers = m.answers[1:]
	}
	out := append(append([]domain.Turn{}, history...),
		domain.Turn{Role: domain.RoleUser, Content: msg},
		domain.Turn{Role: domain.RoleAssistant, Content: answer},
	)
	return &domain.TurnResult{
		Answer:          answer,
		History:         out,
		ToolInvocations: 1,
		States:          []domain.AgentState{domain.StateAwaitingLLMDecision, domain.StateDone},
	}, nil
}

// mockSearch implements driving.SearchTool and driving.DocumentLookup.
type mockSearch struct {
	raw      json.RawMessage
	parseErr error
	result   *domain.SearchResult
}

var (
	_ driving.SearchTool     = (*mockSearch)(nil)
	_ driving.DocumentLookup = (*mockSearch)(nil)
)

func (m *mockSearch) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: domain.SearchToolName}
}

func (m *mockSearch) Parse(raw json.RawMessage) (domain.SearchArgs, error) {
	m.raw = raw
	if m.parseErr != nil {
		return domain.SearchArgs{}, m.parseErr
	}
	var in struct {
		Keywords []string `json:"keywords"`
		Limit    int      `json:"limit"`
	}
	_ = json.Unmarshal(raw, &in)
	return domain.SearchArgs{Keywords: in.Keywords, Limit: in.Limit}, nil
}

func (m *mockSearch) Normalise(args domain.SearchArgs) (domain.SearchArgs, error) {
	return args, nil
}

func (m *mockSearch) Search(context.Context, domain.SearchArgs) (*domain.SearchResult, error) {
	if m.result == nil {
		return &domain.SearchResult{NoMatch: true}, nil
	}
	return m.result, nil
}

func (m *mockSearch) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockSearch) Count(context.Context) (int, error) {
	return 0, nil
}

// setupTest isolates the command tree: HOME and config point at a temp
// dir, all services are reset, and every flag returns to its default.
func setupTest(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range []string{
		"GOOGLE_API_KEY", "OPENAI_API_KEY", "FEDREG_LLM_API_KEY",
		"DB_HOST", "FEDREG_STORE_DSN", "FEDREG_STORE_DRIVER",
	} {
		t.Setenv(name, "")
	}

	reset := func() {
		pipelineService = nil
		agentService = nil
		searchTool = nil
		documentLookup = nil
		metricsRecorder = nil
		llmModelName = ""
		appConfig = nil
		documentStore = nil
		closeResources()
		resetFlags(rootCmd)
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}
	reset()
	t.Cleanup(reset)
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	// Cobra hands the root context only to commands whose context is nil.
	cmd.SetContext(nil) //nolint:staticcheck // nil restores context inheritance
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// execute runs the root command with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}
