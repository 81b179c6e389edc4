package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFileOrFlags(t *testing.T) {
	cfg, err := Load(nil, "")
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Site)
	require.Equal(t, "text", cfg.LogFormat)
	require.Equal(t, 1000, cfg.MaxQueueDepth)
}

func TestLoadYAMLFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "site: acme\nlog_format: json\nmax_queue_depth: 50\n")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	require.Equal(t, "acme", cfg.Site)
	require.Equal(t, "json", cfg.LogFormat)
	require.Equal(t, 50, cfg.MaxQueueDepth)
	require.Equal(t, "", cfg.Author, "unset fields keep the zero value, not a stray default")
}

func TestLoadFlagsOverrideYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "site: acme\n")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("site", "", "")
	require.NoError(t, fs.Set("site", "flag-wins"))

	cfg, err := Load(fs, path)
	require.NoError(t, err)
	require.Equal(t, "flag-wins", cfg.Site)
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
