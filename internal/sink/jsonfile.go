package sink

import (
	"bufio"
	"context"
	"encoding/json/jsontext"
	"encoding/json/v2"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/alkoparser/catalog-ingest/internal/domain"
)

const jsonIndent = "    "

// JSONFile streams products into a single JSON array, four-space indented.
// Output goes to path+".tmp" and is renamed into place on Close, so readers
// never observe a half-written array.
type JSONFile struct {
	path    string
	tmpPath string

	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	count  int
	closed bool
}

// NewJSONFile creates the temporary output file and writes the array opener.
func NewJSONFile(path string) (*JSONFile, error) {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("["); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("write output header: %w", err)
	}

	return &JSONFile{path: path, tmpPath: tmpPath, f: f, w: w}, nil
}

// Write appends p as the next array element.
func (j *JSONFile) Write(_ context.Context, p *domain.Product) error {
	body, err := json.Marshal(p,
		json.Deterministic(true),
		jsontext.WithIndent(jsonIndent),
		jsontext.WithIndentPrefix(jsonIndent),
	)
	if err != nil {
		return fmt.Errorf("encode product %s: %w", p.ID, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return errors.New("json sink: write after close")
	}

	sep := ",\n"
	if j.count == 0 {
		sep = "\n"
	}
	if _, err := j.w.WriteString(sep + jsonIndent); err != nil {
		return fmt.Errorf("write product %s: %w", p.ID, err)
	}
	if _, err := j.w.Write(body); err != nil {
		return fmt.Errorf("write product %s: %w", p.ID, err)
	}
	j.count++
	return nil
}

// Count returns products written so far.
func (j *JSONFile) Count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.count
}

// Path returns the final output path.
func (j *JSONFile) Path() string {
	return j.path
}

// Close terminates the array and atomically moves the file into place.
// Closing twice is a no-op.
func (j *JSONFile) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true
	defer os.Remove(j.tmpPath) // Clean up on failure

	tail := "]\n"
	if j.count > 0 {
		tail = "\n]\n"
	}
	if _, err := j.w.WriteString(tail); err != nil {
		_ = j.f.Close()
		return fmt.Errorf("write output footer: %w", err)
	}
	if err := j.w.Flush(); err != nil {
		_ = j.f.Close()
		return fmt.Errorf("flush output: %w", err)
	}
	if err := j.f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Rename(j.tmpPath, j.path); err != nil {
		return fmt.Errorf("rename output: %w", err)
	}
	return nil
}
