// Package dataset reads evaluation samples from JSONL files: one sample
// per line, blank lines skipped.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// maxLineSize caps a single JSONL line at 4 MiB; long novel passages fit
// comfortably under it.
const maxLineSize = 4 * 1024 * 1024

// ReadFile loads samples from a JSONL file.
func ReadFile(path string) ([]*models.Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer f.Close()

	samples, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return samples, nil
}

// Read parses JSONL samples from r. Every sample needs an id and Japanese
// source text; violations report the 1-based line number.
func Read(r io.Reader) ([]*models.Sample, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var samples []*models.Sample
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var sample models.Sample
		if err := json.Unmarshal([]byte(text), &sample); err != nil {
			return nil, fmt.Errorf("line %d: invalid sample: %w", line, err)
		}
		if sample.ID == "" {
			return nil, fmt.Errorf("line %d: sample has no id", line)
		}
		if sample.JA.Text == "" {
			return nil, fmt.Errorf("line %d: sample %q has no ja.text", line, sample.ID)
		}
		samples = append(samples, &sample)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return samples, nil
}
