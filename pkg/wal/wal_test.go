package wal

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

type record struct {
	Op string `json:"op"`
	N  int    `json:"n"`
}

func TestWAL_WriteAndReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := w.Write(record{Op: "append", N: i}); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	var got []record
	err = w.ReadAll(func(raw []byte) error {
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return err
		}
		got = append(got, rec)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d records, want 3", len(got))
	}
	for i, rec := range got {
		if rec.N != i {
			t.Errorf("record %d = %+v, want N=%d", i, rec, i)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func TestWAL_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := w.Write(record{Op: "append", N: 1}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	w, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer w.Close()

	// New writes append after the existing records
	if err := w.Write(record{Op: "append", N: 2}); err != nil {
		t.Fatalf("Write after reopen failed: %v", err)
	}

	count := 0
	err = w.ReadAll(func(raw []byte) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if count != 2 {
		t.Errorf("read %d records after reopen, want 2", count)
	}
}

func TestWAL_ReadAllEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wal")

	w, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer w.Close()

	err = w.ReadAll(func(raw []byte) error {
		t.Error("callback invoked for empty log")
		return nil
	})
	if err != nil {
		t.Errorf("ReadAll on empty log failed: %v", err)
	}
}
