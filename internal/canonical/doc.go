// Package canonical provides the deterministic JSON value model shared by the
// registry and flow artifacts.
//
// Both artifacts are re-emitted in full on every compile, so their bytes must
// be a pure function of their content:
//   - Object keys are emitted in sorted order (UTF-16 code units, which equals
//     byte order for ASCII keys)
//   - Array order is preserved exactly
//   - Numbers keep their literal text; nothing is re-formatted through float64
//   - No HTML escaping; strings are NFC normalized
//   - Two-space indentation, LF line endings, one trailing newline
//
// Parse rejects duplicate object keys and trailing data so that every document
// has exactly one canonical rendering. Parse followed by Marshal is a fixed
// point for any document Marshal produced.
package canonical
