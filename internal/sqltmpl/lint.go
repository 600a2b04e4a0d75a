package sqltmpl

import "fmt"

// Lint checks the CDC rules over a token stream and returns one message per
// problem. An empty result means:
//   - ${range_from} and ${range_to} each appear exactly once
//   - no other placeholder appears
//   - there is exactly one ORDER BY and its only key is watermark
func Lint(tokens []Token, watermark string) []string {
	var problems []string

	counts := map[string]int{}
	for _, t := range tokens {
		if t.Kind == KindPlaceholder {
			counts[t.PlaceholderName()]++
		}
	}
	for _, name := range []string{RangeFrom, RangeTo} {
		if n := counts[name]; n != 1 {
			problems = append(problems, fmt.Sprintf("placeholder ${%s} appears %d times, want 1", name, n))
		}
		delete(counts, name)
	}
	for _, t := range tokens {
		if t.Kind == KindPlaceholder && counts[t.PlaceholderName()] > 0 {
			problems = append(problems, fmt.Sprintf("unexpected placeholder %s", t.Text))
			delete(counts, t.PlaceholderName())
		}
	}

	orders := orderByPositions(tokens)
	switch len(orders) {
	case 0:
		problems = append(problems, fmt.Sprintf("missing ORDER BY %s", watermark))
	case 1:
		keys := tokens[orders[0]+2:]
		if len(keys) != 1 || !keys[0].IdentEqual(watermark) {
			problems = append(problems, fmt.Sprintf("ORDER BY must list only %s, got %q", watermark, Join(keys)))
		}
	default:
		problems = append(problems, fmt.Sprintf("ORDER BY appears %d times, want 1", len(orders)))
	}
	return problems
}

// HasOrderBy reports whether the stream orders by exactly the watermark.
func HasOrderBy(tokens []Token, watermark string) bool {
	orders := orderByPositions(tokens)
	if len(orders) != 1 {
		return false
	}
	keys := tokens[orders[0]+2:]
	return len(keys) == 1 && keys[0].IdentEqual(watermark)
}

// orderByPositions returns the index of every ORDER keyword followed by BY.
func orderByPositions(tokens []Token) []int {
	var out []int
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i].IsKeyword("ORDER") && tokens[i+1].IsKeyword("BY") {
			out = append(out, i)
		}
	}
	return out
}
