package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("specs-dir", "", "")
	fs.String("registry", "", "")
	fs.String("flow", "", "")
	fs.String("journal", "", "")
	fs.String("metrics-file", "", "")
	fs.String("es-url", "", "")
	fs.String("format", "text", "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := Load("", testFlags())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "specs"), cfg.SpecsDir)
	assert.Equal(t, filepath.Join(cwd, "sql-registry", "oracle.json"), cfg.Registry)
	assert.Equal(t, filepath.Join(cwd, "flows", "oracle_cdc_flow.json"), cfg.Flow)
	assert.Empty(t, cfg.Journal)
	assert.Empty(t, cfg.MetricsFile)
	assert.Empty(t, cfg.File)
}

func TestLoadFileResolvesAgainstItsDirectory(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "cdcflow.yaml"), []byte(`
specs_dir: tables
journal: .cdcflow/journal.db
sink:
  url: http://es:9200
  username: elastic
`), 0o644))
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(project, "cdcflow.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(project, "tables"), cfg.SpecsDir)
	assert.Equal(t, filepath.Join(project, "sql-registry", "oracle.json"), cfg.Registry)
	assert.Equal(t, filepath.Join(project, ".cdcflow", "journal.db"), cfg.Journal)
	assert.Equal(t, "http://es:9200", cfg.Sink.URL)
	assert.Equal(t, "elastic", cfg.Sink.Username)
	assert.Equal(t, filepath.Join(project, "cdcflow.yaml"), cfg.File)
}

func TestLoadFindsFileInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("cdcflow.yml", []byte("flow: custom/flow.json\n"), 0o644))
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cwd, "custom", "flow.json"), cfg.Flow)
}

func TestFlagsOverrideFile(t *testing.T) {
	project := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(project, "cdcflow.yaml"), []byte("specs_dir: tables\nregistry: reg.json\n"), 0o644))
	work := t.TempDir()
	t.Chdir(work)
	cwd, err := os.Getwd()
	require.NoError(t, err)

	flags := testFlags()
	require.NoError(t, flags.Parse([]string{"--specs-dir", "local-specs", "--es-url", "http://localhost:9200", "--format", "json"}))

	cfg, err := Load(filepath.Join(project, "cdcflow.yaml"), flags)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(cwd, "local-specs"), cfg.SpecsDir)
	assert.Equal(t, filepath.Join(project, "reg.json"), cfg.Registry)
	assert.Equal(t, "http://localhost:9200", cfg.Sink.URL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cdcflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte("specs_dir: [\n"), 0o644))
	_, err := Load(path, nil)
	assert.Error(t, err)
}
