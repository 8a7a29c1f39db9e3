package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/f1-visualizer/backend/internal/models"
)

func createTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return store
}

func TestNewLocalStore(t *testing.T) {
	t.Run("creates artifact directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "artifacts")

		_, err := NewLocalStore(dir)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Expected artifact directory to be created")
		}
	})
}

func TestLocalStore_Save(t *testing.T) {
	t.Run("saves artifact from reader", func(t *testing.T) {
		store := createTestStore(t)

		content := "Time,Distance,Speed\n0,0,280\n"
		info, err := store.Save("ver_monaco_q.csv", models.ArtifactCSV, strings.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to save artifact: %v", err)
		}

		if info.ID == "" {
			t.Error("Expected ID to be set")
		}
		if info.Name != "ver_monaco_q.csv" {
			t.Errorf("Expected name 'ver_monaco_q.csv', got %v", info.Name)
		}
		if info.Size != int64(len(content)) {
			t.Errorf("Expected size %d, got %d", len(content), info.Size)
		}
		if info.Kind != models.ArtifactCSV {
			t.Errorf("Expected kind csv, got %v", info.Kind)
		}
	})

	t.Run("creates physical file", func(t *testing.T) {
		store := createTestStore(t)

		content := "png bytes"
		info, err := store.Save("trace.png", models.ArtifactPlot, strings.NewReader(content))
		if err != nil {
			t.Fatalf("Failed to save artifact: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(store.dir, info.ID))
		if err != nil {
			t.Fatalf("Failed to read saved artifact: %v", err)
		}
		if string(data) != content {
			t.Errorf("Expected content '%s', got '%s'", content, string(data))
		}
	})
}

func TestLocalStore_SaveBytes(t *testing.T) {
	store := createTestStore(t)

	data := []byte{0x89, 'P', 'N', 'G'}
	info, err := store.SaveBytes("trace.png", models.ArtifactPlot, data)
	if err != nil {
		t.Fatalf("Failed to save bytes: %v", err)
	}
	if info.Size != int64(len(data)) {
		t.Errorf("Expected size %d, got %d", len(data), info.Size)
	}

	saved, err := os.ReadFile(filepath.Join(store.dir, info.ID))
	if err != nil {
		t.Fatalf("Failed to read saved artifact: %v", err)
	}
	if !bytes.Equal(saved, data) {
		t.Error("Saved data doesn't match original")
	}
}

func TestLocalStore_Get(t *testing.T) {
	t.Run("gets existing artifact", func(t *testing.T) {
		store := createTestStore(t)

		info, err := store.Save("trace.png", models.ArtifactPlot, strings.NewReader("content"))
		if err != nil {
			t.Fatalf("Failed to save artifact: %v", err)
		}

		retrieved, err := store.Get(info.ID)
		if err != nil {
			t.Fatalf("Failed to get artifact: %v", err)
		}
		if retrieved.ID != info.ID || retrieved.Name != info.Name {
			t.Errorf("Retrieved metadata differs: %+v vs %+v", retrieved, info)
		}
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		store := createTestStore(t)

		_, err := store.Get("non-existent-id")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestLocalStore_List(t *testing.T) {
	t.Run("sorts newest first and limits", func(t *testing.T) {
		store := createTestStore(t)

		ids := make([]string, 5)
		for i := 0; i < 5; i++ {
			info, err := store.Save("plot.png", models.ArtifactPlot, strings.NewReader("content"))
			if err != nil {
				t.Fatalf("Failed to save artifact: %v", err)
			}
			ids[i] = info.ID
			time.Sleep(5 * time.Millisecond)
		}

		files, err := store.List(3)
		if err != nil {
			t.Fatalf("Failed to list artifacts: %v", err)
		}
		if len(files) != 3 {
			t.Fatalf("Expected 3 artifacts, got %d", len(files))
		}
		if files[0].ID != ids[4] {
			t.Error("Expected newest artifact first")
		}
	})

	t.Run("zero limit returns all", func(t *testing.T) {
		store := createTestStore(t)
		for i := 0; i < 4; i++ {
			if _, err := store.Save("x.csv", models.ArtifactCSV, strings.NewReader("c")); err != nil {
				t.Fatalf("Failed to save artifact: %v", err)
			}
		}
		files, err := store.List(0)
		if err != nil {
			t.Fatalf("Failed to list artifacts: %v", err)
		}
		if len(files) != 4 {
			t.Errorf("Expected 4 artifacts, got %d", len(files))
		}
	})
}

func TestLocalStore_Delete(t *testing.T) {
	t.Run("deletes existing artifact", func(t *testing.T) {
		store := createTestStore(t)

		info, err := store.Save("trace.png", models.ArtifactPlot, strings.NewReader("content"))
		if err != nil {
			t.Fatalf("Failed to save artifact: %v", err)
		}

		if err := store.Delete(info.ID); err != nil {
			t.Fatalf("Failed to delete artifact: %v", err)
		}

		if _, err := store.Get(info.ID); err == nil {
			t.Error("Expected error when getting deleted artifact")
		}
		if _, err := os.Stat(filepath.Join(store.dir, info.ID)); !os.IsNotExist(err) {
			t.Error("Physical file should be deleted")
		}
	})

	t.Run("returns ErrNotFound for unknown id", func(t *testing.T) {
		store := createTestStore(t)
		if err := store.Delete("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestLocalStore_Rename(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("old.png", models.ArtifactPlot, strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	updated, err := store.Rename(info.ID, "new.png")
	if err != nil {
		t.Fatalf("Failed to rename artifact: %v", err)
	}
	if updated.Name != "new.png" {
		t.Errorf("Expected name 'new.png', got %v", updated.Name)
	}

	if _, err := store.Rename("nope", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_GetFilePath(t *testing.T) {
	store := createTestStore(t)

	info, err := store.Save("trace.png", models.ArtifactPlot, strings.NewReader("content"))
	if err != nil {
		t.Fatalf("Failed to save artifact: %v", err)
	}

	path, err := store.GetFilePath(info.ID)
	if err != nil {
		t.Fatalf("Failed to get artifact path: %v", err)
	}
	if path != filepath.Join(store.dir, info.ID) {
		t.Errorf("Unexpected path %s", path)
	}

	if _, err := store.GetFilePath("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_ConcurrentSaves(t *testing.T) {
	store := createTestStore(t)

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := store.Save("plot.png", models.ArtifactPlot, strings.NewReader("content"))
			if err != nil {
				t.Errorf("Failed to save artifact: %v", err)
			}
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}

	files, err := store.List(20)
	if err != nil {
		t.Fatalf("Failed to list artifacts: %v", err)
	}
	if len(files) != 10 {
		t.Errorf("Expected 10 artifacts, got %d", len(files))
	}
}

// failingReader simulates a read error mid-save.
type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestLocalStore_SaveReadError(t *testing.T) {
	store := createTestStore(t)

	if _, err := store.Save("bad.png", models.ArtifactPlot, failingReader{}); err == nil {
		t.Error("Expected error when reader fails")
	}
}
