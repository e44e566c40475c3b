package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// DefaultCleanOutput is the default output file of Cleanup.
const DefaultCleanOutput = "output-clean.csv"

// ErrOutputExists is returned by CleanupFile when the output file exists
// and overwriting was not requested.
var ErrOutputExists = errors.New("output file exists and force not set")

// rowPattern matches rows that start with a name followed by an http(s) URL.
var rowPattern = regexp.MustCompile(`^.+?\|https?://.+?`)

// CleanupStats counts the lines seen by Cleanup.
type CleanupStats struct {
	Kept    int
	Dropped int
}

// Cleanup copies the valid rows of a CSV file from r to w, trimmed.
// Blank lines, error messages and any other line that does not look like
// "name|url..." are dropped.
func Cleanup(r io.Reader, w io.Writer) (CleanupStats, error) {
	var stats CleanupStats

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	out := bufio.NewWriter(w)

	for scanner.Scan() {
		line := scanner.Text()
		if !rowPattern.MatchString(line) {
			stats.Dropped++
			continue
		}
		if _, err := out.WriteString(strings.TrimSpace(line) + "\n"); err != nil {
			return stats, err
		}
		stats.Kept++
	}
	if err := scanner.Err(); err != nil {
		return stats, err
	}
	return stats, out.Flush()
}

// CleanupFile runs Cleanup from input to output. An existing output file
// is only overwritten when force is set. The rows are written to a
// temporary file next to output and renamed over it, so input and output
// may be the same file.
func CleanupFile(input, output string, force bool) (CleanupStats, error) {
	in, err := os.Open(input) //nolint:gosec // user-provided input path is intentional
	if err != nil {
		return CleanupStats{}, fmt.Errorf("failed to open input file: %w", err)
	}
	defer in.Close()

	if !force {
		if _, err := os.Stat(output); err == nil {
			return CleanupStats{}, fmt.Errorf("%w: %s", ErrOutputExists, output)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), ".clean-*")
	if err != nil {
		return CleanupStats{}, fmt.Errorf("failed to create output file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	stats, err := Cleanup(in, tmp)
	if err != nil {
		_ = tmp.Close()
		return stats, err
	}
	if err := tmp.Close(); err != nil {
		return stats, fmt.Errorf("failed to write output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		return stats, fmt.Errorf("failed to replace output file: %w", err)
	}
	return stats, nil
}
