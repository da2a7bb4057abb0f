package harness

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/qir/internal/ir"
)

// Snapshot is the golden-file view of a case result.
type Snapshot struct {
	Name string
	Dump string
	Wire []byte
}

// toCanonicalMap converts a Snapshot for canonical JSON serialization.
func (s *Snapshot) toCanonicalMap() map[string]any {
	return map[string]any{
		"name": s.Name,
		"dump": s.Dump,
		"wire": hex.EncodeToString(s.Wire),
	}
}

// SnapshotJSON returns the canonical JSON golden content for a result.
func SnapshotJSON(name string, result *Result) ([]byte, error) {
	snapshot := Snapshot{Name: name, Dump: result.Dump, Wire: result.Wire}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a case and compares its dump and wire bytes against
// testdata/golden/{case.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns an error if the case cannot run or did not pass. Golden mismatches
// fail t through goldie.
func RunWithGolden(t *testing.T, c *Case) error {
	t.Helper()

	result, err := Run(c)
	if err != nil {
		return err
	}
	if !result.Pass {
		return fmt.Errorf("case %s failed at %s: %v", c.Name, result.Stage, result.Errors)
	}
	return AssertGolden(t, c.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the case.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
