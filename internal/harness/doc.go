// Package harness runs graph scenarios written in YAML.
//
// A scenario declares schemas (inline or in CUE files), seeds nodes and
// edges into a fresh in-memory database, then checks assertions against it:
//
//   - query: a match, written as nested YAML, selects exactly the expected
//     handles, in order unless unordered is set, or fails with an error code
//   - connections: an element has exactly the listed connections
//   - count: a schema holds the given number of elements
//
// Every write and query is recorded in the result trace, which
// RunWithGolden compares against testdata/golden/<name>.golden.
package harness
