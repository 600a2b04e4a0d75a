package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MyTableSpec is the reference spec used across package tests.
const MyTableSpec = `table:
  name: MY_TABLE
  schema: APP
  primary_key: ID
  cdc_key: UPDATED_AT
range:
  options: [5m, 15m, 60m]
elasticsearch:
  index: my_table
  id_field: ID
`

// OrdersSpec is a second table used for multi-spec compiles.
const OrdersSpec = `table:
  name: ORDERS
  schema: SALES
  primary_key: ORDER_ID
  cdc_key: MODIFIED_AT
  columns: [ORDER_ID, STATUS, MODIFIED_AT]
range:
  options: [60m, 10m]
  default: 60m
elasticsearch:
  index: orders
  id_field: ORDER_ID
`

// Tree is a project layout in a temporary directory:
//
//	specs/<table_lower>.<ext>
//	sql-registry/oracle.json
//	flows/oracle_cdc_flow.json
//
// Artifact files are not created until written.
type Tree struct {
	Root         string
	SpecsDir     string
	RegistryPath string
	FlowPath     string
}

// NewTree creates an empty layout with a specs directory.
func NewTree(t testing.TB) *Tree {
	t.Helper()
	root := t.TempDir()
	tr := &Tree{
		Root:         root,
		SpecsDir:     filepath.Join(root, "specs"),
		RegistryPath: filepath.Join(root, "sql-registry", "oracle.json"),
		FlowPath:     filepath.Join(root, "flows", "oracle_cdc_flow.json"),
	}
	require.NoError(t, os.MkdirAll(tr.SpecsDir, 0o755))
	return tr
}

// WriteSpec writes specs/<name> and returns its path.
func (tr *Tree) WriteSpec(t testing.TB, name, content string) string {
	t.Helper()
	return writeFile(t, filepath.Join(tr.SpecsDir, name), []byte(content))
}

// WriteRegistry writes the registry file.
func (tr *Tree) WriteRegistry(t testing.TB, data []byte) {
	t.Helper()
	writeFile(t, tr.RegistryPath, data)
}

// WriteFlow writes the flow file.
func (tr *Tree) WriteFlow(t testing.TB, data []byte) {
	t.Helper()
	writeFile(t, tr.FlowPath, data)
}

// ReadRegistry returns the registry file content.
func (tr *Tree) ReadRegistry(t testing.TB) []byte {
	t.Helper()
	return ReadFile(t, tr.RegistryPath)
}

// ReadFlow returns the flow file content.
func (tr *Tree) ReadFlow(t testing.TB) []byte {
	t.Helper()
	return ReadFile(t, tr.FlowPath)
}

// ReadFile reads path, failing the test on error.
func ReadFile(t testing.TB, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

// WriteFileAt writes content to an arbitrary path, creating parents.
func WriteFileAt(t testing.TB, path, content string) {
	t.Helper()
	writeFile(t, path, []byte(content))
}

func writeFile(t testing.TB, path string, data []byte) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
