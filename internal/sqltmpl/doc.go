// Package sqltmpl renders the parameterized CDC window query for a table.
//
// A query is built as an ordered list of clause fragments, each a sequence of
// typed tokens:
//
//	SELECT <columns or *>
//	FROM <SCHEMA>.<TABLE>
//	WHERE <cdc_key> >= ${range_from}
//	AND <cdc_key> < ${range_to}
//	ORDER BY <cdc_key>
//
// All fragments go through one serializer (Render). The CDC rules are pure
// predicates over tokens (Lint): exactly one ORDER BY whose only key is the
// watermark, and exactly one ${range_from} and one ${range_to}. Tokenize turns
// SQL text read back from disk into the same token form, so generated and
// persisted SQL are checked by the same predicates.
//
// Rendering is a pure function of (spec, range): no timestamps, no
// environment data.
package sqltmpl
