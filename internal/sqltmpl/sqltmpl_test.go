package sqltmpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cdcflow/internal/spec"
	"github.com/roach88/cdcflow/internal/testutil"
)

func myTable() *spec.Spec {
	return &spec.Spec{
		Table: spec.Table{
			Name:       "my_table",
			Schema:     "app",
			PrimaryKey: "ID",
			CDCKey:     "UPDATED_AT",
		},
		Range: spec.RangeOptions{Options: []spec.Range{"5m", "15m", "60m"}},
	}
}

func TestRenderGolden(t *testing.T) {
	g := testutil.Golden(t)

	sql, err := Render(myTable(), "5m")
	require.NoError(t, err)
	g.Assert(t, "my_table_star", []byte(sql))

	projected := myTable()
	projected.Table.Columns = []string{"ID", "VALUE", "updated_at"}
	sql, err = Render(projected, "5m")
	require.NoError(t, err)
	g.Assert(t, "my_table_columns", []byte(sql))
}

func TestRenderIsDeterministic(t *testing.T) {
	a, err := Render(myTable(), "15m")
	require.NoError(t, err)
	b, err := Render(myTable(), "15m")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRenderQuotesReservedWords(t *testing.T) {
	s := myTable()
	s.Table.Name = "order"
	s.Table.CDCKey = "date"
	s.Table.Columns = []string{"ID", "DATE", "level"}

	sql, err := Render(s, "5m")
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT ID, "DATE", "LEVEL" FROM APP."ORDER" WHERE "DATE" >= ${range_from} AND "DATE" < ${range_to} ORDER BY "DATE"`,
		sql)
}

func TestBuildFragmentsInOrder(t *testing.T) {
	q := Build(myTable(), "5m")
	var clauses []Clause
	for _, f := range q.Fragments {
		clauses = append(clauses, f.Clause)
	}
	assert.Equal(t, []Clause{ClauseSelect, ClauseFrom, ClauseWhere, ClauseAnd, ClauseOrderBy}, clauses)
}

func TestRenderErrorMessage(t *testing.T) {
	err := &RenderError{Table: "MY_TABLE", Range: "5m", Problems: []string{"a", "b"}}
	assert.Equal(t, "render MY_TABLE 5m: a; b", err.Error())
}

func TestTokenizeMatchesBuild(t *testing.T) {
	s := myTable()
	s.Table.Columns = []string{"ID", "DATE"}
	q := Build(s, "5m")
	assert.Equal(t, q.Tokens(), Tokenize(q.String()))
}

func TestLint(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		problems int
	}{
		{"canonical", "SELECT * FROM APP.T WHERE K >= ${range_from} AND K < ${range_to} ORDER BY K", 0},
		{"whitespace and case", "select *\n  from app.t\n where k >= ${range_from}\n   and k <  ${range_to}\n order   by k", 0},
		{"quoted watermark", `SELECT * FROM T WHERE "K" >= ${range_from} AND "K" < ${range_to} ORDER BY "K"`, 0},
		{"missing order by", "SELECT * FROM T WHERE K >= ${range_from} AND K < ${range_to}", 1},
		{"wrong order key", "SELECT * FROM T WHERE K >= ${range_from} AND K < ${range_to} ORDER BY ID", 1},
		{"trailing order column", "SELECT * FROM T WHERE K >= ${range_from} AND K < ${range_to} ORDER BY K, ID", 1},
		{"order direction", "SELECT * FROM T WHERE K >= ${range_from} AND K < ${range_to} ORDER BY K DESC", 1},
		{"two order by", "SELECT * FROM (SELECT * FROM T ORDER BY K) WHERE K >= ${range_from} AND K < ${range_to} ORDER BY K", 1},
		{"missing range_to", "SELECT * FROM T WHERE K >= ${range_from} ORDER BY K", 1},
		{"duplicate range_from", "SELECT * FROM T WHERE K >= ${range_from} AND K >= ${range_from} AND K < ${range_to} ORDER BY K", 1},
		{"foreign placeholder", "SELECT * FROM T WHERE K >= ${range_from} AND K < ${range_to} AND X = ${other} ORDER BY K", 1},
		{"placeholder in literal", "SELECT '${range_from}' FROM T WHERE K < ${range_to} ORDER BY K", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			problems := Lint(Tokenize(tt.sql), "K")
			assert.Len(t, problems, tt.problems, "problems: %v", problems)
		})
	}
}

func TestHasOrderBy(t *testing.T) {
	assert.True(t, HasOrderBy(Tokenize("SELECT * FROM T ORDER BY updated_at"), "UPDATED_AT"))
	assert.False(t, HasOrderBy(Tokenize("SELECT * FROM T ORDER BY ID"), "UPDATED_AT"))
	assert.False(t, HasOrderBy(Tokenize("SELECT * FROM T"), "UPDATED_AT"))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, "UPDATED_AT", QuoteIdentifier("updated_at"))
	assert.Equal(t, `"DATE"`, QuoteIdentifier("date"))
	assert.Equal(t, `"USER"`, QuoteIdentifier("User"))
	assert.True(t, IsReservedWord("select"))
	assert.False(t, IsReservedWord("MY_TABLE"))
}
