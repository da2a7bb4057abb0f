// Package ir provides the typed scalar values shared by every query
// representation in qir.
//
// This package contains value types and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps values the foundational layer with no circular dependencies.
//
// Key design constraints:
//   - IRValue is a closed set: IRInt, IRFloat, IRString, IRBool, IRArray
//   - IRArray holds scalars only (one level of composition)
//   - Canonical JSON (MarshalCanonical) is the only input to content hashes
package ir
