package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdcflow/internal/sink"
	"github.com/roach88/cdcflow/internal/sink/sinktest"
	"github.com/roach88/cdcflow/internal/testutil"
)

func TestSinkSmokePasses(t *testing.T) {
	srv := sinktest.NewServer(t)
	tr := testutil.NewTree(t)
	path := tr.WriteSpec(t, "my_table.yaml", testutil.MyTableSpec)

	res := execute(t, "sink-smoke", path, "--es-url", srv.URL)
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "✓ Upsert contract holds on my_table")
	assert.Contains(t, res.stdout, "single-document")
	assert.Contains(t, res.stdout, "last-write-wins")
	assert.Contains(t, res.stdout, "range-window")
	assert.Equal(t, 1, srv.Documents("my_table"))
}

func TestSinkSmokeContractFailure(t *testing.T) {
	srv := sinktest.NewServer(t)
	srv.AppendOnly = true
	tr := testutil.NewTree(t)
	path := tr.WriteSpec(t, "my_table.yaml", testutil.MyTableSpec)

	res := execute(t, "sink-smoke", path, "--es-url", srv.URL, "--format", "json")
	require.Error(t, res.err)
	assert.Equal(t, ExitViolation, GetExitCode(res.err))

	var resp struct {
		Error struct {
			Code    string       `json:"code"`
			Details []sink.Check `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &resp))
	assert.Equal(t, ErrCodeContract, resp.Error.Code)
	require.NotEmpty(t, resp.Error.Details)
	assert.Equal(t, "single-document", resp.Error.Details[0].Name)
}

func TestSinkSmokeWithoutURL(t *testing.T) {
	tr := testutil.NewTree(t)
	path := tr.WriteSpec(t, "my_table.yaml", testutil.MyTableSpec)

	res := execute(t, "sink-smoke", path)
	require.Error(t, res.err)
	assert.Equal(t, ExitFailure, GetExitCode(res.err))
	assert.Contains(t, res.stdout, "no Elasticsearch URL configured")
}
