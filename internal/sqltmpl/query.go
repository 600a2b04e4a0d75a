package sqltmpl

import (
	"fmt"
	"strings"

	"github.com/roach88/cdcflow/internal/spec"
)

// Clause names a query fragment.
type Clause string

const (
	ClauseSelect  Clause = "select"
	ClauseFrom    Clause = "from"
	ClauseWhere   Clause = "where"
	ClauseAnd     Clause = "and"
	ClauseOrderBy Clause = "order-by"
)

// Fragment is one clause of a query.
type Fragment struct {
	Clause Clause
	Tokens []Token
}

// Query is an ordered list of clause fragments.
type Query struct {
	Fragments []Fragment
}

// Tokens flattens the fragments in order.
func (q Query) Tokens() []Token {
	var out []Token
	for _, f := range q.Fragments {
		out = append(out, f.Tokens...)
	}
	return out
}

// String serializes the query. It is the only path from tokens to SQL text.
func (q Query) String() string {
	return Join(q.Tokens())
}

// Join renders tokens separated by single spaces, with no space before a comma.
func Join(tokens []Token) string {
	var b strings.Builder
	for i, t := range tokens {
		if i > 0 && t.Kind != KindComma {
			b.WriteByte(' ')
		}
		b.WriteString(t.Text)
	}
	return b.String()
}

// Build assembles the window query for s and r.
// It does not lint the result; use Render for that.
func Build(s *spec.Spec, r spec.Range) Query {
	watermark := ident(s.Table.CDCKey)

	sel := []Token{keyword("SELECT")}
	if len(s.Table.Columns) == 0 {
		sel = append(sel, Token{Kind: KindStar, Text: "*"})
	} else {
		for i, col := range s.Table.Columns {
			if i > 0 {
				sel = append(sel, Token{Kind: KindComma, Text: ","})
			}
			sel = append(sel, ident(col))
		}
	}

	return Query{Fragments: []Fragment{
		{Clause: ClauseSelect, Tokens: sel},
		{Clause: ClauseFrom, Tokens: []Token{
			keyword("FROM"),
			{Kind: KindIdent, Text: QuoteIdentifier(s.Table.Schema) + "." + QuoteIdentifier(s.Table.Name)},
		}},
		{Clause: ClauseWhere, Tokens: []Token{
			keyword("WHERE"), watermark, operator(">="), PlaceholderToken(RangeFrom),
		}},
		{Clause: ClauseAnd, Tokens: []Token{
			keyword("AND"), watermark, operator("<"), PlaceholderToken(RangeTo),
		}},
		{Clause: ClauseOrderBy, Tokens: []Token{
			keyword("ORDER"), keyword("BY"), watermark,
		}},
	}}
}

// Render builds and lints the query for (s, r).
func Render(s *spec.Spec, r spec.Range) (string, error) {
	q := Build(s, r)
	if problems := Lint(q.Tokens(), s.Table.CDCKey); len(problems) > 0 {
		return "", &RenderError{Table: s.TableUpper(), Range: r, Problems: problems}
	}
	return q.String(), nil
}

// RenderError reports a rendered query that breaks the CDC rules.
// It indicates a bug in the template, not bad input.
type RenderError struct {
	Table    string
	Range    spec.Range
	Problems []string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s %s: %s", e.Table, e.Range, strings.Join(e.Problems, "; "))
}

func keyword(kw string) Token {
	return Token{Kind: KindKeyword, Text: kw}
}

func ident(name string) Token {
	return Token{Kind: KindIdent, Text: QuoteIdentifier(name)}
}

func operator(op string) Token {
	return Token{Kind: KindOperator, Text: op}
}
