package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Dumper writes each component's resolved prompt to
// <dir>/<runId>/<component>.txt, once per run. A Dumper with an empty dir
// is a no-op.
type Dumper struct {
	dir   string
	runID string

	mu      sync.Mutex
	written map[string]bool
}

// NewDumper creates a dumper for one run.
func NewDumper(dir, runID string) *Dumper {
	return &Dumper{dir: dir, runID: runID, written: make(map[string]bool)}
}

// Dump writes the resolved prompt for a component. Repeat calls for the
// same component are ignored; write failures are returned so the caller
// can log them, but a failed dump never blocks the run.
func (d *Dumper) Dump(component string, resolved Resolved) error {
	if d == nil || d.dir == "" {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.written[component] {
		return nil
	}

	runDir := filepath.Join(d.dir, d.runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return fmt.Errorf("create prompt dump dir: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# component: %s\n# source: %s\n", component, resolved.Source)
	if resolved.ArtifactID != "" {
		fmt.Fprintf(&b, "# artifact: %s\n", resolved.ArtifactID)
	}
	if resolved.System != "" {
		b.WriteString("\n## system\n")
		b.WriteString(resolved.System)
		b.WriteString("\n")
	}
	b.WriteString("\n## template\n")
	b.WriteString(resolved.Template)
	b.WriteString("\n")

	path := filepath.Join(runDir, component+".txt")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write prompt dump: %w", err)
	}
	d.written[component] = true
	return nil
}
