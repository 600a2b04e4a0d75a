// Package flow projects the SQL Registry into the dataflow document consumed
// by the external processor engine.
//
// The document is parsed into a canonical value tree, transformed on a copy,
// and re-serialized with the canonical serializer, so unchanged inputs yield
// unchanged bytes. The projector touches three regions:
//
//   - controllerServices: the sql-lookup-service properties mirror the
//     registry; the DBCP, Elasticsearch client, reader and writer services
//     must exist and are never mutated.
//   - processors: the fixed six-node chain. The init processor's sql_id is
//     bound to a registry key, the query processor's Maximum-value Columns
//     is the watermark, and the sink's Index Operation is upsert.
//   - connections: the five edges of the chain.
//
// Everything else in the document is preserved verbatim. Repairable drift
// is fixed and reported as a Repair; anything else aborts with DriftError.
package flow
