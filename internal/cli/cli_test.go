package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyConfigDefaultsFillsUnsetFlagsOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trireme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 9\nsplit: 20\nuser: scylla\n"), 0o644))

	root := BuildCLI()
	cmd, _, err := root.Find([]string{"count-rows"})
	require.NoError(t, err)
	cmd.InheritedFlags() // merge root's persistent flags into cmd.Flags() before Set
	require.NoError(t, cmd.Flags().Set("workers", "4")) // explicit: must win over config
	require.NoError(t, cmd.Flags().Set("config", path))

	f := &flags{configFile: path, workers: 4, split: 18, user: "cassandra"}
	require.NoError(t, applyConfigDefaults(cmd, f))

	assert.Equal(t, 4, f.workers) // explicit flag wins
	assert.Equal(t, 20, f.split)  // config fills unset flag
	assert.Equal(t, "scylla", f.user)
}

func TestApplyConfigDefaultsAppliesWorkerMaxStartupDelay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trireme.yaml")
	require.NoError(t, os.WriteFile(path, []byte("worker_max_startup_delay_seconds: 16\n"), 0o644))

	root := BuildCLI()
	cmd, _, err := root.Find([]string{"count-rows"})
	require.NoError(t, err)
	cmd.InheritedFlags() // merge root's persistent flags into cmd.Flags() before Set
	require.NoError(t, cmd.Flags().Set("config", path))

	f := &flags{configFile: path, workers: 20}
	require.NoError(t, applyConfigDefaults(cmd, f))
	assert.Equal(t, 16*time.Second, f.workerMaxStartupDelay)

	settings, _ := startupSettings("host", "ks", "tb", "key", f)
	assert.Equal(t, 16*time.Second, settings.WorkerMaxStartupDelay)
}

func TestApplyConfigDefaultsNoopWithoutConfigFile(t *testing.T) {
	f := &flags{workers: 1}
	root := BuildCLI()
	cmd, _, err := root.Find([]string{"count-rows"})
	require.NoError(t, err)
	require.NoError(t, applyConfigDefaults(cmd, f))
	assert.Equal(t, 1, f.workers)
}

func TestBuildCLIRegistersAllActionSubcommands(t *testing.T) {
	root := BuildCLI()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "count-rows")
	assert.Contains(t, names, "print-rows")
	assert.Contains(t, names, "delete-rows")
	assert.Contains(t, names, "update-rows")
	assert.Contains(t, names, "find-nulls")
	assert.Contains(t, names, "find-wide-partitions")
}
