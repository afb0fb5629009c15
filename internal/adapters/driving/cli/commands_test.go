package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fedreg/internal/config"
	"github.com/custodia-labs/fedreg/internal/core/domain"
)

func TestRootCmd_RegistersCommands(t *testing.T) {
	want := []string{"run", "ingest", "search", "ask", "chat", "schedule", "mcp", "config", "version"}
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, names[name], "missing command %q", name)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "json-logs"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestVersionCmd(t *testing.T) {
	setupTest(t)

	out, err := execute(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "fedreg version dev\n", out)
}

func TestConfigInitCmd(t *testing.T) {
	setupTest(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote configuration to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[pipeline]")

	_, err = execute(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	_, err = execute(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)
}

func TestConfigPathCmd(t *testing.T) {
	setupTest(t)

	out, err := execute(t, "config", "path")

	require.NoError(t, err)
	want, err := config.DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, want+"\n", out)
}

func TestScheduleCmd_InvalidCron(t *testing.T) {
	setupTest(t)
	pipelineService = &mockPipeline{}

	_, err := execute(t, "schedule", "--cron", "not a cron")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestScheduleCmd_RunNowThenStop(t *testing.T) {
	setupTest(t)
	p := &mockPipeline{}
	pipelineService = p

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetArgs([]string{"schedule", "--cron", "@daily", "--now", "--window", "2"})
	rootCmd.SetOut(new(nopWriter))

	err := rootCmd.ExecuteContext(ctx)

	require.NoError(t, err)
	require.Equal(t, 1, p.runCount())
	assert.Equal(t, 2, p.runs[0].WindowDays)
}

func TestScheduleCmd_ReceivesContextAfterEarlierCommands(t *testing.T) {
	setupTest(t)
	pipelineService = &mockPipeline{}

	_, err := execute(t, "version")
	require.NoError(t, err)
	_, err = execute(t, "schedule", "--cron", "not a cron")
	require.Error(t, err)
	require.NotNil(t, scheduleCmd.Context())

	setupTest(t)
	p := &mockPipeline{}
	pipelineService = p

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rootCmd.SetArgs([]string{"schedule", "--cron", "@daily", "--now"})
	rootCmd.SetOut(new(nopWriter))

	done := make(chan error, 1)
	go func() { done <- rootCmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, 1, p.runCount())
	case <-time.After(5 * time.Second):
		t.Fatal("schedule did not observe the cancelled context")
	}
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPPorts_AgentOptional(t *testing.T) {
	setupTest(t)
	tool := &mockSearch{}
	searchTool = tool
	documentLookup = tool

	ports, err := mcpPorts(context.Background())

	require.NoError(t, err)
	assert.NoError(t, ports.Validate())
	assert.Nil(t, ports.Agent)
	assert.NotNil(t, ports.Documents)
}

func TestMCPPorts_WithAgent(t *testing.T) {
	setupTest(t)
	tool := &mockSearch{}
	searchTool = tool
	documentLookup = tool
	agentService = &mockAgent{}

	ports, err := mcpPorts(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, ports.Agent)
}

func TestStoreDSN(t *testing.T) {
	assert.Equal(t, "", storeDSN(config.StoreConfig{Driver: config.DriverSQLite}))
	assert.Equal(t, "u:p@tcp(h:1)/d", storeDSN(config.StoreConfig{Driver: config.DriverMySQL, DSN: "u:p@tcp(h:1)/d"}))

	built := storeDSN(config.StoreConfig{
		Driver: config.DriverMySQL, Host: "db", Port: 3307, User: "fed", Password: "pw", Name: "fr",
	})
	assert.Contains(t, built, "fed:pw@tcp(db:3307)/fr")
}

type nopWriter struct{}

func (*nopWriter) Write(p []byte) (int, error) { return len(p), nil }
