package testsupport

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-model-cache/gateway"
)

// LoadFixture loads test data from a fixture file.
// The path is relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}

	return data
}

// LoadFixtureJSON loads JSON test data from a fixture file and unmarshals it.
// The path is relative to the test package directory.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	data := LoadFixture(t, path)
	if err := json.Unmarshal(data, dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// LoadRows reads a JSON array of objects as gateway rows. Whole numbers
// decode as int64 and other numbers as float64, matching what SQL drivers
// return for integer and real columns.
func LoadRows(t testing.TB, path string) []gateway.Row {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader(LoadFixture(t, path)))
	dec.UseNumber()

	var raw []map[string]any
	if err := dec.Decode(&raw); err != nil {
		t.Fatalf("failed to decode rows from %s: %v", path, err)
	}

	rows := make([]gateway.Row, 0, len(raw))
	for _, r := range raw {
		row := make(gateway.Row, len(r))
		for k, v := range r {
			row[k] = normalizeNumber(v)
		}
		rows = append(rows, row)
	}
	return rows
}

func normalizeNumber(v any) any {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// SeedRows loads the rows at path into table of gw.
func SeedRows(t testing.TB, gw *gateway.MemoryGateway, table, identityColumn, path string) []gateway.Row {
	t.Helper()

	rows := LoadRows(t, path)
	gw.Seed(table, identityColumn, rows...)
	return rows
}

// FixturePath constructs a path to a fixture file relative to the testdata directory.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}
