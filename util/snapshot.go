package util

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var updateSnapshots = flag.Bool("update-snapshots", false, "update testdata snapshots")

type SnapMarshaller interface {
	MarshalSnap() (string, string, error)
}

// Lines snapshots as plain text, one entry per line.
type Lines []string

func (ls Lines) MarshalSnap() (string, string, error) {
	return strings.Join(ls, "\n") + "\n", ".txt", nil
}

// Snapshot compares v against testdata/<test name>.{json,txt}; run with -update-snapshots to rewrite it.
func Snapshot[V any](t *testing.T, v V) {
	t.Helper()
	p, actual, ext := filepath.Join("testdata", strings.ReplaceAll(t.Name(), "/", "_")), "", ".json"
	if m, ok := any(v).(SnapMarshaller); ok {
		s, e, err := m.MarshalSnap()
		if err != nil {
			t.Fatalf("failed to marshal snapshot: %s (%v)", err, v)
		}
		actual, ext = s, e
	} else {
		bs, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			t.Fatalf("failed to marshal snapshot: %s (%v)", err, v)
		}
		actual = string(bs)
	}
	if *updateSnapshots {
		if err := os.MkdirAll("testdata", 0755); err != nil {
			t.Fatalf("failed to create testdata: %s", err)
		} else if err := os.WriteFile(p+ext, []byte(actual), 0644); err != nil {
			t.Fatalf("failed to write snapshot: %s", err)
		}
		return
	}
	bs, err := os.ReadFile(p + ext)
	if err != nil {
		t.Fatalf("failed to read snapshot (run with -update-snapshots to create it): %s", err)
	} else if expected := string(bs); actual != expected {
		t.Fatalf("snapshot does not match\ngot:\n\t%q\n\nexpected:\n\t%q", actual, expected)
	}
}
