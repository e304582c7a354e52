package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"care-ledger/internal/platform/config"
)

func writeConfig(t *testing.T, remoteDriver string) string {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.Driver = config.StorageFile
	cfg.Storage.Path = filepath.Join(dir, "data")
	cfg.Remote.Driver = remoteDriver

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Save(cfg, path))
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := New()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestLogListDelete(t *testing.T) {
	cfg := writeConfig(t, config.RemoteNone)

	out, err := execute(t, cfg, "log", "feed", "--actor", "ana", "--meta", `{"amount_ml": 90}`, "--json")
	require.NoError(t, err)
	logged := decode[eventView](t, out)
	assert.Equal(t, "FEED", string(logged.Type))
	assert.Equal(t, "ana", logged.ActorID)
	assert.False(t, logged.IsSynced)
	assert.JSONEq(t, `{"amount_ml": 90}`, string(logged.Metadata))

	// Otro proceso lee lo que quedó en disco.
	out, err = execute(t, cfg, "list", "--json")
	require.NoError(t, err)
	listed := decode[[]eventView](t, out)
	require.Len(t, listed, 1)
	assert.Equal(t, logged.ID, listed[0].ID)

	out, err = execute(t, cfg, "list")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"ID", "TYPE", "WHEN", "SYNCED", "METADATA"}, strings.Fields(lines[0]))
	row := strings.Fields(lines[1])
	assert.Equal(t, logged.ID, row[0])
	assert.Equal(t, "FEED", row[1])
	assert.Contains(t, lines[1], " no ")

	out, err = execute(t, cfg, "delete", logged.ID, "missing-id")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted "+logged.ID)
	assert.Contains(t, out, "not found missing-id")

	out, err = execute(t, cfg, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestLog_Rejects(t *testing.T) {
	cfg := writeConfig(t, config.RemoteNone)

	_, err := execute(t, cfg, "log", "bath")
	assert.ErrorContains(t, err, "unknown event type")

	_, err = execute(t, cfg, "log", "feed", "--meta", `{"kind": "wet"}`)
	assert.Error(t, err)

	_, err = execute(t, cfg, "log", "sleep", "--at", "yesterday")
	assert.ErrorContains(t, err, "RFC3339")

	out, err := execute(t, cfg, "list", "--json")
	require.NoError(t, err)
	assert.Empty(t, decode[[]eventView](t, out))
}

func TestList_FiltersByType(t *testing.T) {
	cfg := writeConfig(t, config.RemoteNone)

	_, err := execute(t, cfg, "log", "feed", "--meta", `{"amount_ml": 60}`)
	require.NoError(t, err)
	_, err = execute(t, cfg, "log", "diaper", "--meta", `{"kind": "wet"}`)
	require.NoError(t, err)

	out, err := execute(t, cfg, "list", "--type", "diaper", "--json")
	require.NoError(t, err)
	listed := decode[[]eventView](t, out)
	require.Len(t, listed, 1)
	assert.Equal(t, "DIAPER", string(listed[0].Type))

	_, err = execute(t, cfg, "list", "--type", "bath")
	assert.Error(t, err)
}

func TestPredict(t *testing.T) {
	cfg := writeConfig(t, config.RemoteNone)

	out, err := execute(t, cfg, "predict", "--json")
	require.NoError(t, err)
	empty := decode[forecastView](t, out)
	assert.Zero(t, empty.Pressure)
	assert.Equal(t, "CALM", string(empty.Zone))
	assert.Nil(t, empty.NextWindow)

	_, err = execute(t, cfg, "log", "sleep", "--at", "2025-12-22T10:00:00Z", "--meta", `{"duration_minutes": 45}`)
	require.NoError(t, err)

	out, err = execute(t, cfg, "predict", "--at", "2025-12-22T11:24:00Z", "--awake-window", "120", "--json")
	require.NoError(t, err)
	f := decode[forecastView](t, out)
	assert.Equal(t, 0.7, f.Pressure)
	assert.Equal(t, "BUILDING", string(f.Zone))
	require.NotNil(t, f.NextWindow)
	assert.Equal(t, "2025-12-22T12:00:00Z", f.NextWindow.UTC().Format("2006-01-02T15:04:05Z07:00"))

	for _, w := range []string{"0", "NaN", "+Inf", "1e300", "1441"} {
		_, err = execute(t, cfg, "predict", "--awake-window", w)
		assert.Error(t, err, "--awake-window %s", w)
	}
}

func TestSync(t *testing.T) {
	cfg := writeConfig(t, config.RemoteMemory)

	for _, meta := range []string{`{"amount_ml": 60}`, `{"amount_ml": 80}`} {
		_, err := execute(t, cfg, "log", "feed", "--meta", meta)
		require.NoError(t, err)
	}

	out, err := execute(t, cfg, "sync", "--json")
	require.NoError(t, err)
	res := decode[map[string]int](t, out)
	assert.Equal(t, 2, res["synced"])
	assert.Equal(t, 0, res["failed"])

	out, err = execute(t, cfg, "list", "--unsynced", "--json")
	require.NoError(t, err)
	assert.Empty(t, decode[[]eventView](t, out))
}

func TestSync_NoRemote(t *testing.T) {
	cfg := writeConfig(t, config.RemoteNone)

	_, err := execute(t, cfg, "sync")
	assert.ErrorIs(t, err, ErrNoRemote)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, path, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "awake_window_minutes = 120")
}
