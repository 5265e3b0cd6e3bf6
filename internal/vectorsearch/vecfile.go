package vectorsearch

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ParseVecFile streams a fastText-style .vec file, calling fn for each parsed
// (word, vector) pair. A leading "vocab_size dim" header line is validated
// against dim and skipped; malformed lines are silently dropped, matching the
// tolerant behavior expected of large crawled vector dumps.
func ParseVecFile(path string, dim int, fn func(word string, vector []float32) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open vec file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			fields := strings.Fields(line)
			if len(fields) == 2 {
				if _, err1 := strconv.Atoi(fields[0]); err1 == nil {
					headerDim, err2 := strconv.Atoi(fields[1])
					if err2 == nil {
						if headerDim != dim {
							return fmt.Errorf("vec header dimension %d does not match expected %d", headerDim, dim)
						}
						continue
					}
				}
			}
		}
		word, vec, ok := parseVecLine(line, dim)
		if !ok {
			continue
		}
		if err := fn(word, vec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read vec file: %w", err)
	}
	return nil
}

func parseVecLine(line string, dim int) (string, []float32, bool) {
	fields := strings.Fields(line)
	if len(fields) < dim+1 {
		return "", nil, false
	}
	word := fields[0]
	vec := make([]float32, dim)
	for i := 0; i < dim; i++ {
		v, err := strconv.ParseFloat(fields[i+1], 32)
		if err != nil {
			return "", nil, false
		}
		vec[i] = float32(v)
	}
	return word, vec, true
}
