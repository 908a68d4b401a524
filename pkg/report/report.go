// Package report post-processes run JSONL files: per-(run, condition)
// aggregates and failed-record extraction.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// DefaultFailureThreshold is the overall score below which a record counts
// as a failure for extraction.
const DefaultFailureThreshold = 0.9

// maxLineSize matches the dataset reader's line cap.
const maxLineSize = 4 * 1024 * 1024

// Row is one aggregate over every record sharing (runId, condition).
type Row struct {
	RunID          string  `json:"runId"`
	Condition      string  `json:"condition"`
	Samples        int     `json:"samples"`
	AvgOverall     float64 `json:"avgOverall"`
	MinOverall     float64 `json:"minOverall"`
	MaxOverall     float64 `json:"maxOverall"`
	FailureRate    float64 `json:"failureRate"`
	CriticalIssues int     `json:"criticalIssues"`
}

// Expand resolves the run-file globs (doublestar patterns) into a sorted,
// de-duplicated file list.
func Expand(globs []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range globs {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	return files, nil
}

// Aggregate reads every record behind the globs and reduces them to one
// row per (runId, condition), ordered by runId then condition.
func Aggregate(globs []string) ([]Row, error) {
	files, err := Expand(globs)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		samples   int
		sum       float64
		min       float64
		max       float64
		failed    int
		criticals int
	}
	buckets := make(map[string]*bucket)

	for _, file := range files {
		err := eachRecord(file, func(record *models.RunRecord) error {
			key := record.RunID + "\x00" + string(record.Condition)
			b, ok := buckets[key]
			if !ok {
				b = &bucket{min: record.Scores.Overall, max: record.Scores.Overall}
				buckets[key] = b
			}
			overall := record.Scores.Overall
			b.samples++
			b.sum += overall
			if overall < b.min {
				b.min = overall
			}
			if overall > b.max {
				b.max = overall
			}
			if record.Status != models.RunStatusOK {
				b.failed++
			}
			for _, issue := range record.Issues {
				if issue.Severity == models.SeverityCritical {
					b.criticals++
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(buckets))
	for key, b := range buckets {
		runID, condition, _ := strings.Cut(key, "\x00")
		rows = append(rows, Row{
			RunID:          runID,
			Condition:      condition,
			Samples:        b.samples,
			AvgOverall:     b.sum / float64(b.samples),
			MinOverall:     b.min,
			MaxOverall:     b.max,
			FailureRate:    float64(b.failed) / float64(b.samples),
			CriticalIssues: b.criticals,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].RunID != rows[j].RunID {
			return rows[i].RunID < rows[j].RunID
		}
		return rows[i].Condition < rows[j].Condition
	})
	return rows, nil
}

// WriteJSON writes the rows as an indented JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// WriteCSV writes the rows with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"runId", "condition", "samples", "avgOverall", "minOverall", "maxOverall", "failureRate", "criticalIssues"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.RunID,
			row.Condition,
			strconv.Itoa(row.Samples),
			formatScore(row.AvgOverall),
			formatScore(row.MinOverall),
			formatScore(row.MaxOverall),
			formatScore(row.FailureRate),
			strconv.Itoa(row.CriticalIssues),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// ExtractFailures copies the records needing attention — status
// needs_review, or overall score under the threshold — to w as JSONL,
// preserving input order per file with files in sorted glob order. Returns
// the number of extracted records.
func ExtractFailures(globs []string, threshold float64, w io.Writer) (int, error) {
	files, err := Expand(globs)
	if err != nil {
		return 0, err
	}

	extracted := 0
	for _, file := range files {
		err := eachRecord(file, func(record *models.RunRecord) error {
			if record.Status != models.RunStatusNeedsReview && record.Scores.Overall >= threshold {
				return nil
			}
			line, err := json.Marshal(record)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return err
			}
			extracted++
			return nil
		})
		if err != nil {
			return extracted, err
		}
	}
	return extracted, nil
}

// eachRecord streams one file's JSONL records.
func eachRecord(path string, fn func(*models.RunRecord) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open run file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record models.RunRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return fmt.Errorf("%s: line %d: invalid run record: %w", path, line, err)
		}
		if err := fn(&record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read run file %s: %w", path, err)
	}
	return nil
}
