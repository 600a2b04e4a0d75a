// Package spec loads and validates per-table CDC specifications.
//
// A specification is a YAML, JSON or CUE document named <table_lower>.<ext>:
//
//	table:
//	  name: MY_TABLE
//	  schema: APP
//	  primary_key: ID
//	  cdc_key: UPDATED_AT
//	  columns: [ID, VALUE, UPDATED_AT]   # optional projection
//	range:
//	  options: ["5m", "15m", "60m"]
//	  default: "15m"                     # optional pinned binding
//	elasticsearch:
//	  index: my_table
//	  id_field: ID
//
// Loading runs a single validation pass. Shape and closedness are checked by
// the embedded CUE schema (schema.cue); field rules and the I1 id-field
// invariant are checked on the decoded record. Later pipeline stages only see
// the typed Spec and never the raw document.
package spec
