package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maloquacious/tickmate/internal/config"
)

// runCLI executes the root command against dataDir and returns stdout.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-level", "error"}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dataDir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dataDir, args...)
	require.NoError(t, err, "tickmate %s", strings.Join(args, " "))
	return out
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCmd()
	for _, path := range [][]string{
		{"db", "create"}, {"db", "upgrade"}, {"db", "verify"}, {"db", "export"},
		{"db", "import"}, {"db", "list"}, {"db", "stage"},
		{"track", "add"}, {"track", "list"}, {"track", "show"}, {"track", "rm"},
		{"group", "add"}, {"group", "list"}, {"group", "rm"},
		{"link"}, {"unlink"}, {"tick"}, {"version"},
	} {
		t.Run(strings.Join(path, "_"), func(t *testing.T) {
			sub, _, err := cmd.Find(path)
			require.NoError(t, err)
			assert.Equal(t, path[len(path)-1], sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"config", "data-dir", "external-dir", "log-level"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestConfigFileIsRead(t *testing.T) {
	dir := t.TempDir()
	external := filepath.Join(dir, "elsewhere")
	cfg := &config.Config{DataDir: filepath.Join(dir, "data"), ExternalDir: external, LogLevel: "warn"}
	cfgPath := filepath.Join(dir, "tickmate.yaml")
	require.NoError(t, cfg.SaveToFile(cfgPath))

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--config", cfgPath, "db", "list"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "no snapshots in "+external+"\n", out.String())
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, ExternalDir: filepath.Join(dir, "from-file"), LogLevel: "info"}
	require.NoError(t, cfg.SaveToFile(filepath.Join(dir, config.DefaultConfigFile)))

	flagDir := filepath.Join(dir, "from-flag")
	out := mustRun(t, dir, "--external-dir", flagDir, "db", "list")
	assert.Equal(t, "no snapshots in "+flagDir+"\n", out)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "--log-level", "loud", "db", "list")
	assert.ErrorContains(t, err, "unknown log level")
}

func TestVersionCommand(t *testing.T) {
	out := mustRun(t, t.TempDir(), "version")
	assert.Contains(t, out, "tickmate ")
	assert.Contains(t, out, "schema   14 (reads 10 and newer)")
}

func TestParseID(t *testing.T) {
	id, err := parseID("track", "12")
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)

	for _, bad := range []string{"", "x", "0", "-3"} {
		_, err := parseID("track", bad)
		assert.Error(t, err, bad)
	}
}

func TestDataDirLayout(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "db", "create")

	_, err := os.Stat(filepath.Join(dir, "databases", "tickmate.db"))
	assert.NoError(t, err)
}
