// Package wal implements a minimal JSON-lines write-ahead log.
// Each record is one JSON document followed by a newline; a write is
// fsynced before it is acknowledged, so an acknowledged record survives
// a process crash and can be replayed on the next start.
package wal

import (
	"encoding/json"
	"errors"
	"io"
	"os"
	"sync"
)

// WAL is an append-only log file. Writes are serialized; a record is
// either fully on disk or not acknowledged.
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// Open opens or creates the log file at path.
func Open(path string) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Write appends one record and forces it to disk.
func (w *WAL) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := json.NewEncoder(w.file).Encode(v); err != nil {
		return err
	}
	return w.file.Sync()
}

// ReadAll replays every record from the start of the file, invoking the
// callback with the raw JSON of each. Records are streamed, not loaded
// into memory at once.
func (w *WAL) ReadAll(callback func(raw []byte) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	for {
		var raw json.RawMessage
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := callback(raw); err != nil {
			return err
		}
	}
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
