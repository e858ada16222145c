package record

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"xhscrawler/pkg/logger"
)

func TestRecordManager(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")

	t.Run("AddAndReload", func(t *testing.T) {
		mgr, err := NewManager(dir, logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if mgr.Has("n1") {
			t.Fatal("Expected empty record")
		}

		if err := mgr.Add("n1", nil); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}
		if err := mgr.Add("n2", map[string]any{"作品标题": "雪"}); err != nil {
			t.Fatalf("Failed to add: %v", err)
		}

		reloaded, err := NewManager(dir, logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to reload manager: %v", err)
		}
		if !reloaded.Has("n1") || !reloaded.Has("n2") {
			t.Errorf("Expected both notes after reload, got %v", reloaded.IDs())
		}
		e, ok := reloaded.Get("n2")
		if !ok || e.Data["作品标题"] != "雪" {
			t.Errorf("Expected recorded data, got %+v", e)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		mgr, err := NewManager(dir, logger.NewNopLogger())
		if err != nil {
			t.Fatalf("Failed to create manager: %v", err)
		}
		if err := mgr.Delete("n1"); err != nil {
			t.Fatalf("Failed to delete: %v", err)
		}
		if err := mgr.Delete("missing"); err != nil {
			t.Errorf("Deleting an unknown id should be a no-op: %v", err)
		}
		if ids := mgr.IDs(); len(ids) != 1 || ids[0] != "n2" {
			t.Errorf("Expected [n2], got %v", ids)
		}
	})

	t.Run("NoTemporaryFileLeft", func(t *testing.T) {
		if _, err := os.Stat(filepath.Join(dir, FileName+".tmp")); !os.IsNotExist(err) {
			t.Errorf("Temporary file should not exist")
		}
	})
}

func TestRecordTimestamps(t *testing.T) {
	mgr, err := NewManager(t.TempDir(), logger.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	mgr.now = func() time.Time { return fixed }

	if err := mgr.Add("n1", nil); err != nil {
		t.Fatalf("Failed to add: %v", err)
	}
	e, _ := mgr.Get("n1")
	if !e.DownloadedAt.Equal(fixed) {
		t.Errorf("Expected %v, got %v", fixed, e.DownloadedAt)
	}
}

func TestCorruptRecord(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewManager(dir, logger.NewNopLogger()); err == nil {
		t.Error("Expected a decode error for a corrupt record")
	}
}
