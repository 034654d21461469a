// Package iolog implements the I/O Logger (spec.md §4.9): a structured
// JSON-lines record of every optimizer component call, grounded on
// original_source/src/logger/logger.rs. Two independent log shapes are
// produced: a "chained" log accumulated in memory and flushed on demand
// (dump_chained_log_to_file), and a per-call log stamped with a fresh UUID
// and appended immediately (log_io_params). Appends use O_APPEND so a
// process killed mid-write leaves the file with a complete trailing line or
// none at all, never a half-written record — the same crash-safety
// guarantee internal/auth/filestore.go gets from temp-file-plus-rename,
// adapted here to an append-only log instead of a rewritten snapshot.
package iolog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChainedEntry is one record in the in-memory chained log: the inputs and
// outputs of a component call plus execution metadata.
type ChainedEntry struct {
	Inputs  map[string]any `json:"inputs"`
	Outputs any            `json:"outputs"`
	Meta    EntryMeta      `json:"meta"`
}

type EntryMeta struct {
	MethodName string  `json:"method_name"`
	ExecSec    float64 `json:"exec_sec"`
	Timestamp  string  `json:"timestamp"`
}

// CallRecord is one record in a per-call JSONL log, stamped with a UUID so
// a later evaluation pass (RunOverLogs) can correlate input/output pairs.
type CallRecord struct {
	ID      string         `json:"id"`
	Inputs  map[string]any `json:"inputs"`
	Outputs any            `json:"outputs"`
	Meta    EntryMeta      `json:"meta"`
}

// EvalRecord is what RunOverLogs appends for each CallRecord it replays.
type EvalRecord struct {
	ID         string    `json:"id"`
	EvalResult any       `json:"eval_result"`
	Meta       struct {
		Timestamp string `json:"timestamp"`
	} `json:"meta"`
}

// Logger accumulates a chained log in memory and writes JSONL files under
// BasePath. The zero value is not usable; construct with New.
type Logger struct {
	basePath string

	mu      sync.Mutex
	chained []ChainedEntry

	// now and newID are swapped out in tests for determinism.
	now   func() time.Time
	newID func() string
}

// New creates BasePath (if non-empty) and returns a Logger rooted there.
func New(basePath string) (*Logger, error) {
	if basePath != "" {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return nil, fmt.Errorf("iolog: create base path: %w", err)
		}
	}
	return &Logger{
		basePath: basePath,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}, nil
}

// Reset points the logger at a new base path and clears the chained log,
// mirroring reset_eval_glue's reuse of one Logger across evaluation runs.
func (l *Logger) Reset(basePath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if basePath != "" {
		if err := os.MkdirAll(basePath, 0o755); err != nil {
			return fmt.Errorf("iolog: create base path: %w", err)
		}
	}
	l.basePath = basePath
	l.chained = nil
	return nil
}

// AppendDict appends a caller-built entry to the chained log verbatim.
func (l *Logger) AppendDict(entry ChainedEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.chained = append(l.chained, entry)
}

// AppendTimed runs method, timing it, and appends the result to the
// chained log under methodName before returning it to the caller.
func AppendTimed[T any](l *Logger, methodName string, inputs map[string]any, method func() (T, error)) (T, error) {
	start := time.Now()
	result, err := method()
	if err != nil {
		var zero T
		return zero, err
	}
	duration := time.Since(start)

	l.mu.Lock()
	l.chained = append(l.chained, ChainedEntry{
		Inputs:  inputs,
		Outputs: result,
		Meta: EntryMeta{
			MethodName: methodName,
			ExecSec:    duration.Seconds(),
			Timestamp:  l.now().UTC().Format(time.RFC3339),
		},
	})
	l.mu.Unlock()

	return result, nil
}

// DumpChained appends every buffered chained entry to
// <BasePath>/<fileName>.jsonl and clears the buffer.
func (l *Logger) DumpChained(fileName string) error {
	l.mu.Lock()
	entries := l.chained
	l.chained = nil
	l.mu.Unlock()

	if len(entries) == 0 {
		return nil
	}

	path := filepath.Join(l.basePath, fileName+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("iolog: open %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, entry := range entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("iolog: marshal chained entry: %w", err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			return fmt.Errorf("iolog: write %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("iolog: flush %s: %w", path, err)
	}
	return f.Sync()
}

// LogIO runs method, times it, stamps the result with a fresh UUID, and
// appends a single CallRecord line to <BasePath>/<fileName>.jsonl.
func LogIO[T any](l *Logger, methodName string, inputs map[string]any, method func() (T, error), fileName string) (T, error) {
	start := time.Now()
	result, err := method()
	duration := time.Since(start)
	if err != nil {
		var zero T
		return zero, err
	}

	record := CallRecord{
		ID:      l.newID(),
		Inputs:  inputs,
		Outputs: result,
		Meta: EntryMeta{
			MethodName: methodName,
			ExecSec:    duration.Seconds(),
			Timestamp:  l.now().UTC().Format(time.RFC3339),
		},
	}

	path := filepath.Join(l.basePath, fileName+".jsonl")
	if err := appendJSONLine(path, record); err != nil {
		return result, err
	}
	return result, nil
}

func appendJSONLine(path string, v any) error {
	line, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("iolog: marshal record: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("iolog: open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("iolog: write %s: %w", path, err)
	}
	return f.Sync()
}

// RunOverLogs streams each CallRecord line in filePath, passes its ID,
// Inputs, Outputs and Meta to evalMethod, and appends the resulting
// EvalRecord to <BasePath>/<methodName>_<base name of filePath>.
func (l *Logger) RunOverLogs(methodName, filePath string, evalMethod func(id string, inputs map[string]any, outputs any, meta EntryMeta) any) error {
	in, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("iolog: open %s: %w", filePath, err)
	}
	defer in.Close()

	outPath := filepath.Join(l.basePath, methodName+"_"+filepath.Base(filePath))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record CallRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("iolog: parse record in %s: %w", filePath, err)
		}

		result := evalMethod(record.ID, record.Inputs, record.Outputs, record.Meta)
		evalRecord := EvalRecord{ID: record.ID, EvalResult: result}
		evalRecord.Meta.Timestamp = l.now().UTC().Format(time.RFC3339)

		if err := appendJSONLine(outPath, evalRecord); err != nil {
			return err
		}
	}
	return scanner.Err()
}
