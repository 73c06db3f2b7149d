package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFileConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pathsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/pathsync
cache: 2048
l1_rpc_url: https://l1.example/rpc
l1_core_contract: "0xabc"
l1_start_block: 100
sequencer_url: https://sequencer.example
poll_interval: 5
metrics_addr: ":9090"
verbosity: 4
`), 0600))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/pathsync", cfg.DataDir)
	require.Equal(t, 2048, cfg.Cache)
	require.Equal(t, "https://l1.example/rpc", cfg.L1RPCURL)
	require.Equal(t, "0xabc", cfg.L1CoreContract)
	require.Equal(t, 100, cfg.L1StartBlock)
	require.Equal(t, "https://sequencer.example", cfg.SequencerURL)
	require.Equal(t, 5, cfg.PollInterval)
	require.Equal(t, ":9090", cfg.MetricsAddr)
	require.Equal(t, 4, cfg.Verbosity)
}

func TestLoadFileConfigEmptyPath(t *testing.T) {
	cfg, err := loadFileConfig("")
	require.NoError(t, err)
	require.Equal(t, &fileConfig{}, cfg)
}
