// Package verify cross-checks specs, the SQL Registry and the flow document
// and reports every violated invariant.
//
// Checks run in a fixed order so the first violation is the most
// fundamental one:
//
//  1. every spec loads and validates (I1, SPEC)
//  2. registry coverage and orphans (I2)
//  3. per-entry SQL rules (I3), sql_id segments and watermark (I4)
//  4. lookup service mirrors the registry, binding resolves (I5)
//  5. processor, connection and service topology (I8)
//  6. query watermark and sink upsert properties (I6, I7)
//
// The verifier never writes. It takes the artifacts as bytes so the compiler
// can check a dry-run result before anything reaches disk.
package verify
