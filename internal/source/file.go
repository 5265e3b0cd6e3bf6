package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// FileSource reads candidate words from a UTF-8 text file, one word per line.
// Blank lines and lines starting with "#" are skipped. A line may carry a
// description after the word; only the first field is used. Duplicates are
// dropped, first occurrence wins.
type FileSource struct {
	path string
}

// NewFileSource creates a file-backed source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// ListAnswers reads and parses the file on every call so edits take effect on
// the next refresh without a restart.
func (f *FileSource) ListAnswers(ctx context.Context) ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, f.path, err)
	}
	defer file.Close()

	var (
		out  []string
		seen = make(map[string]bool)
	)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		word := strings.Fields(line)[0]
		if seen[word] {
			continue
		}
		seen[word] = true
		out = append(out, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrUnavailable, f.path, err)
	}
	return out, nil
}
