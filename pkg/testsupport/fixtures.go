package testsupport

import (
	"encoding/json"
	"os"
	"testing"
)

// LoadFixture reads a fixture file, failing the test on any error. The path
// is relative to the test package directory, typically under testdata/.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON reads a JSON fixture file into dest.
func LoadFixtureJSON(t *testing.T, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("decoding fixture %s: %v", path, err)
	}
}
