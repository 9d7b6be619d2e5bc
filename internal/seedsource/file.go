package seedsource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

const fileSourceID = "file"

// FileSource reads a newline-delimited phrase list from the local filesystem.
type FileSource struct {
	path string
}

// NewFileSource creates a new FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// GetSourceID returns the unique identifier for this source
func (s *FileSource) GetSourceID() string {
	return fileSourceID
}

// FetchPhrases reads the phrase list, skipping blank lines and lines
// starting with '#'.
func (s *FileSource) FetchPhrases(ctx context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()

	var phrases []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	return phrases, nil
}
