package sqltmpl

import (
	"strings"
)

// Kind classifies a SQL token.
type Kind int

const (
	KindKeyword Kind = iota
	KindIdent
	KindPlaceholder
	KindOperator
	KindStar
	KindComma
	KindLiteral
	KindOther
)

// Token is one lexical unit of a query.
// Text is the rendered form: identifiers carry their quotes, placeholders
// their ${...} wrapper.
type Token struct {
	Kind Kind
	Text string
}

// Placeholder names bound by the dataflow at runtime.
const (
	RangeFrom = "range_from"
	RangeTo   = "range_to"
)

// clauseKeywords are recognized as keywords when unquoted.
var clauseKeywords = map[string]bool{
	"SELECT": true, "FROM": true, "WHERE": true, "AND": true, "OR": true,
	"ORDER": true, "BY": true, "GROUP": true, "HAVING": true, "ASC": true,
	"DESC": true, "NULLS": true, "FIRST": true, "LAST": true, "NOT": true,
}

// PlaceholderToken renders ${name}.
func PlaceholderToken(name string) Token {
	return Token{Kind: KindPlaceholder, Text: "${" + name + "}"}
}

// PlaceholderName returns the name inside a placeholder token.
func (t Token) PlaceholderName() string {
	return strings.TrimSuffix(strings.TrimPrefix(t.Text, "${"), "}")
}

// IsKeyword reports whether t is the unquoted keyword kw (case-insensitive).
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == KindKeyword && strings.EqualFold(t.Text, kw)
}

// IdentEqual compares an identifier token with a bare name, ignoring the
// quotes added for reserved words and letter case.
func (t Token) IdentEqual(name string) bool {
	return t.Kind == KindIdent && strings.EqualFold(strings.Trim(t.Text, `"`), name)
}

// Tokenize splits SQL text into tokens. It is whitespace tolerant and
// recognizes just enough of the syntax to evaluate the Lint predicates.
func Tokenize(sql string) []Token {
	var tokens []Token
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '$' && i+1 < len(sql) && sql[i+1] == '{':
			end := strings.IndexByte(sql[i:], '}')
			if end < 0 {
				tokens = append(tokens, Token{Kind: KindOther, Text: sql[i:]})
				return tokens
			}
			tokens = append(tokens, Token{Kind: KindPlaceholder, Text: sql[i : i+end+1]})
			i += end + 1
		case c == '\'':
			j := i + 1
			for j < len(sql) {
				if sql[j] == '\'' {
					if j+1 < len(sql) && sql[j+1] == '\'' {
						j += 2
						continue
					}
					break
				}
				j++
			}
			j = min(j+1, len(sql))
			tokens = append(tokens, Token{Kind: KindLiteral, Text: sql[i:j]})
			i = j
		case c == '"' || isIdentStart(c):
			j := scanQualifiedIdent(sql, i)
			text := sql[i:j]
			kind := KindIdent
			if c != '"' && !strings.Contains(text, ".") && clauseKeywords[strings.ToUpper(text)] {
				kind = KindKeyword
			}
			tokens = append(tokens, Token{Kind: kind, Text: text})
			i = j
		case c >= '0' && c <= '9':
			j := i
			for j < len(sql) && (sql[j] >= '0' && sql[j] <= '9' || sql[j] == '.') {
				j++
			}
			tokens = append(tokens, Token{Kind: KindLiteral, Text: sql[i:j]})
			i = j
		case c == '*':
			tokens = append(tokens, Token{Kind: KindStar, Text: "*"})
			i++
		case c == ',':
			tokens = append(tokens, Token{Kind: KindComma, Text: ","})
			i++
		case c == '>' || c == '<' || c == '=' || c == '!':
			j := i + 1
			if j < len(sql) && (sql[j] == '=' || (c == '<' && sql[j] == '>')) {
				j++
			}
			tokens = append(tokens, Token{Kind: KindOperator, Text: sql[i:j]})
			i = j
		default:
			tokens = append(tokens, Token{Kind: KindOther, Text: sql[i : i+1]})
			i++
		}
	}
	return tokens
}

func isIdentStart(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c >= '0' && c <= '9' || c == '$' || c == '#'
}

// scanQualifiedIdent returns the end of a possibly quoted, possibly dotted
// identifier starting at i.
func scanQualifiedIdent(sql string, i int) int {
	for {
		if i < len(sql) && sql[i] == '"' {
			end := strings.IndexByte(sql[i+1:], '"')
			if end < 0 {
				return len(sql)
			}
			i += end + 2
		} else {
			for i < len(sql) && isIdentPart(sql[i]) {
				i++
			}
		}
		if i+1 < len(sql) && sql[i] == '.' && (sql[i+1] == '"' || isIdentStart(sql[i+1])) {
			i++
			continue
		}
		return i
	}
}
