package cli

import (
	"bytes"
	"testing"

	"github.com/roach88/cdcflow/internal/testutil"
)

// result is the captured outcome of one CLI invocation.
type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, args ...string) result {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// treeArgs points the artifact flags at tr, then appends args.
func treeArgs(tr *testutil.Tree, args ...string) []string {
	return append(args,
		"--specs-dir", tr.SpecsDir,
		"--registry", tr.RegistryPath,
		"--flow", tr.FlowPath,
	)
}
