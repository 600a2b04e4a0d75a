package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdcflow/internal/verify"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E501", "flow structural drift", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E501", resp.Error.Code)
	assert.Equal(t, "flow structural drift", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"path": "specs/my_table.yaml", "field": "elasticsearch.id_field"}
	err := formatter.Error("E203", "spec invalid", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("All invariants hold")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All invariants hold")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E401", "registry conflict", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E401]")
	assert.Contains(t, buf.String(), "registry conflict")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"rule": "I1", "path": "specs/my_table.yaml", "field": "elasticsearch.id_field"}
	err := formatter.Error("E203", "spec invalid", details)
	require.NoError(t, err)
	assert.Equal(t, "Error [E203]: spec invalid\n"+
		"Details:\n"+
		"  field: elasticsearch.id_field\n"+
		"  path: specs/my_table.yaml\n"+
		"  rule: I1\n", buf.String())
}

func TestOutputFormatter_TextErrorListDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	details := []verify.Violation{{Invariant: verify.InvariantLookup, Subject: "oracle.cdc.my_table.5m", Message: "missing from sql-lookup-service"}}
	require.NoError(t, formatter.Error("E701", "invariant violation", details))
	assert.Contains(t, buf.String(), "  - [I5 lookup] oracle.cdc.my_table.5m: missing from sql-lookup-service\n")
	assert.NotContains(t, buf.String(), "{I5")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Compiling %s", "my_table.yaml")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Compiling my_table.yaml")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	formatter.Table(table.Row{"Invariant", "Subject"}, []table.Row{{"upsert", "put-elasticsearch-record"}})
	assert.Contains(t, buf.String(), "INVARIANT")
	assert.Contains(t, buf.String(), "put-elasticsearch-record")

	buf.Reset()
	formatter.Table(table.Row{"Invariant"}, nil)
	assert.Empty(t, buf.String())
}

func TestOutputFormatter_JSONDoesNotEscapeHTML(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]string{"sql": "WHERE K >= ${range_from} AND K < ${range_to}"}))
	assert.Contains(t, buf.String(), "K < ${range_to}")
}
