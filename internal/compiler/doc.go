// Package compiler runs the end-to-end pipeline: load specs, render the
// registry, project it into the flow, persist both, then verify what landed
// on disk.
//
// Nothing is written unless every step before the write succeeds, so a spec
// error, registry conflict or structural drift leaves the artifacts exactly
// as they were.
package compiler
