package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteSchemaDir writes YAML descriptor files into a fresh temp dir and returns it
func WriteSchemaDir(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}

	return dir
}

// RunConcurrent starts n workers at once and returns the error each one produced,
// indexed by worker id. A panicking worker fails the test.
func RunConcurrent(t *testing.T, n int, fn func(workerID int) error) []error {
	t.Helper()

	errs := make([]error, n)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("worker %d panicked: %v", i, r)
				}
			}()

			<-start
			errs[i] = fn(i)
		}()
	}

	close(start)
	wg.Wait()

	return errs
}
