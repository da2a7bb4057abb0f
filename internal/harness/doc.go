// Package harness runs query conformance cases.
//
// A case names one query, written either in the textual syntax or in the JSON
// DSL, and the outcome expected from it.
//
// # Case Format
//
// Cases are YAML files with the following structure:
//
//	name: price_filter
//	description: "Filter, page and compile"
//	sql: "select * from items where price > 100 limit 10"
//	expect:
//	  dump: "SELECT * FROM items WHERE price > 100 LIMIT 10"
//	  namespace: items
//	  sql: 'SELECT "items".* FROM "items" WHERE ...'
//
// Exactly one of sql or dsl is set. When expect.error is set the query must
// fail to parse or validate with an error containing that text, and the other
// expectations are ignored.
//
// # Checks
//
// Every case that parses is validated, encoded to the wire format, decoded
// back and re-encoded. The decoded query must equal the parsed one and the
// two encodings must be byte-identical. Dump, namespace and compiled SQL are
// then compared against the expectations that are present.
//
// # Golden Files
//
// RunWithGolden snapshots the dump and the hex wire bytes under
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
