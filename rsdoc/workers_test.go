package rsdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arjunmahishi/rsdoc/types"
)

// TestRunWorkers tests the generic worker pool for concurrency correctness.
// Run with -race flag to detect race conditions: go test -race
func TestRunWorkers(t *testing.T) {
	tests := []struct {
		name      string
		fileCount int
		jobs      int
	}{
		{"single_file_single_worker", 1, 1},
		{"multiple_files_single_worker", 5, 1},
		{"multiple_files_multiple_workers", 10, 4},
		{"more_workers_than_files", 3, 10},
		{"many_files_high_concurrency", 50, 16},
		{"zero_jobs_defaults_to_one", 5, 0},
		{"empty_files", 0, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			expected := generateTestFiles(t, tmpDir, tc.fileCount)

			language := Get("rust")
			require.NotNil(t, language)

			sc := newScanner(scannerConfig{
				root:     tmpDir,
				language: language,
				maxBytes: defaultMaxBytes,
			})
			files, err := sc.collect()
			require.NoError(t, err)
			require.Len(t, files, tc.fileCount)

			results := runWorkers(context.Background(), files, tc.jobs, extractFunctionName(t, language))
			require.Len(t, results, tc.fileCount, "should have one result per file")

			// collect sorts by path and results keep file order.
			require.Equal(t, expected, results)
		})
	}
}

// generateTestFiles creates N Rust files, each with a unique function.
// Returns the expected function names in path order.
func generateTestFiles(t *testing.T, dir string, count int) []string {
	t.Helper()

	expected := []string{}
	for i := range count {
		funcName := fmt.Sprintf("func_%03d", i)
		fileName := fmt.Sprintf("file_%03d.rs", i)

		content := fmt.Sprintf("pub fn %s() {}\n", funcName)
		err := os.WriteFile(filepath.Join(dir, fileName), []byte(content), 0o644)
		require.NoError(t, err)

		expected = append(expected, funcName)
	}
	return expected
}

func extractFunctionName(t *testing.T, language Language) func(context.Context, types.FileJob) string {
	return func(ctx context.Context, job types.FileJob) string {
		src, err := readSource(job.AbsPath)
		if err != nil {
			t.Error(err)
			return ""
		}
		tree, err := Parse(ctx, language, src)
		if err != nil {
			t.Error(err)
			return ""
		}
		items := Extract(tree)
		if len(items) != 1 {
			t.Errorf("%s: got %d items", job.DisplayPath, len(items))
			return ""
		}
		return items[0].Name
	}
}

func TestScannerIgnoresBuildOutput(t *testing.T) {
	root := t.TempDir()
	for _, p := range []string{"src/lib.rs", "src/util/mod.rs", "target/debug/build/gen.rs", "README.md", ".git/hooks/x.rs"} {
		abs := filepath.Join(root, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte("fn f() {}\n"), 0o644))
	}
	big := filepath.Join(root, "src", "big.rs")
	require.NoError(t, os.WriteFile(big, make([]byte, 64), 0o644))

	sc := newScanner(scannerConfig{root: root, language: Get("rust"), maxBytes: 32})
	files, err := sc.collect()
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.DisplayPath)
	}
	require.Equal(t, []string{"src/lib.rs", "src/util/mod.rs"}, paths)

	_, err = sc.collectSingle(filepath.Join(root, "src"))
	require.Error(t, err)
	_, err = sc.collectSingle(filepath.Join(root, "missing.rs"))
	require.Error(t, err)
}
