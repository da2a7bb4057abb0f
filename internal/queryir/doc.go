// Package queryir provides the query intermediate representation (IR)
// shared by the textual parser, the JSON DSL, the binary wire codec and the
// SQL backend.
//
// ARCHITECTURE:
//
//	[SQL text] ─┐                  ┌─> [wire bytes] ─> engine
//	[JSON DSL] ─┼─> [Query IR] ────┼─> [SQLite SQL]
//	[wire]     ─┘                  └─> Dump (logs, golden tests)
//
// A Query is a root Selection plus at most one level of children. Children
// are JoinQuery values which have no children of their own, so the
// one-level nesting invariant is carried by the types:
//
//	Query{Selection, DebugLevel, Describe, JoinQueries, MergeQueries}
//	JoinQuery{Selection, Type, JoinEntries}
//
// FILTERS:
//
// Filters are a flat, ordered list of QueryEntry values. Each entry carries
// its own combinator (OpAnd, OpOr, OpNot) relative to the entries before
// it. BuildFilter folds the list into a sealed Predicate tree; WhereString
// renders it in written order.
//
// LIFECYCLE:
//
// A Query is built once and then treated as read-only. Mutators exist for
// construction; Clone makes a deep copy (children included) for callers that
// need to modify a shared query. Validate reports every violated invariant.
package queryir
