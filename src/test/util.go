package test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

// SkipIfShort skips a test if testing in short mode
func SkipIfShort(t *testing.T) {
	if testing.Short() {
		// t.Skip() kills the goroutine
		t.Skip("Skipping " + t.Name() + " since it's not a unit test.")
	}
}

// TempFile returns a path inside a fresh temporary directory that is removed
// when the test finishes.
func TempFile(t *testing.T, name string) string {
	dir, err := ioutil.TempDir("", "feebuckets-test-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return filepath.Join(dir, name)
}
