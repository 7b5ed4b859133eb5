package zipwriter_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stupid-simple/tsbundle/fileutils"
	"github.com/stupid-simple/tsbundle/ziparchiver/zipwriter"
)

func writeEntry(t *testing.T, zipFile *zipwriter.ZipFile, name, content string) {
	t.Helper()

	writer, err := zipFile.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		t.Fatalf("Failed to create zip entry: %v", err)
	}
	if _, err = writer.Write([]byte(content)); err != nil {
		t.Fatalf("Failed to write content: %v", err)
	}
}

func TestAtomicZipFile_Commit(t *testing.T) {
	tempDir := t.TempDir()
	zipPath := filepath.Join(tempDir, "test.zip")
	zipFile := zipwriter.NewAtomicZipFile(zipPath, 0640)

	if zipFile.Path() != zipPath {
		t.Errorf("Expected path %s, got %s", zipPath, zipFile.Path())
	}

	writeEntry(t, zipFile, "test.txt", "test content")

	if fileutils.Exists(zipPath) {
		t.Errorf("Zip file must not exist before commit")
	}

	if err := zipFile.Commit(); err != nil {
		t.Fatalf("Failed to commit zip file: %v", err)
	}
	if err := zipFile.Close(); err != nil {
		t.Fatalf("Close after commit failed: %v", err)
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		t.Fatalf("Zip file was not created at %s: %v", zipPath, err)
	}
	if info.Mode().Perm() != 0640 {
		t.Errorf("Expected mode 0640, got %v", info.Mode().Perm())
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open committed zip: %v", err)
	}
	defer r.Close()
	if len(r.File) != 1 || r.File[0].Name != "test.txt" {
		t.Errorf("Unexpected zip content: %v", r.File)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the archive in %s, found %d entries", tempDir, len(entries))
	}
}

func TestAtomicZipFile_ReplaceWithCopy(t *testing.T) {
	tempDir := t.TempDir()
	zipPath := filepath.Join(tempDir, "test.zip")

	first := zipwriter.NewAtomicZipFile(zipPath, 0600)
	writeEntry(t, first, "a.txt", "a")
	if err := first.Commit(); err != nil {
		t.Fatal(err)
	}

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	second := zipwriter.NewAtomicZipFile(zipPath, 0600)
	for _, f := range r.File {
		if err := second.Copy(f); err != nil {
			t.Fatalf("Failed to copy entry: %v", err)
		}
	}
	writeEntry(t, second, "b.txt", "b")
	if err := second.Commit(); err != nil {
		t.Fatal(err)
	}

	r2, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	defer r2.Close()
	if len(r2.File) != 2 || r2.File[0].Name != "a.txt" || r2.File[1].Name != "b.txt" {
		t.Errorf("Unexpected zip content: %v", r2.File)
	}
}

func TestAtomicZipFile_CloseDiscards(t *testing.T) {
	tempDir := t.TempDir()
	zipPath := filepath.Join(tempDir, "test.zip")
	if err := os.WriteFile(zipPath, []byte("previous"), 0600); err != nil {
		t.Fatal(err)
	}

	zipFile := zipwriter.NewAtomicZipFile(zipPath, 0600)
	writeEntry(t, zipFile, "test.txt", "test content")
	if err := zipFile.Close(); err != nil {
		t.Fatalf("Failed to discard zip file: %v", err)
	}

	content, err := os.ReadFile(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != "previous" {
		t.Errorf("Existing file was modified")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("Temporary file was not removed")
	}
}

func TestAtomicZipFile_CloseWithoutInit(t *testing.T) {
	zipFile := zipwriter.NewAtomicZipFile(filepath.Join(t.TempDir(), "nonexistent.zip"), 0600)

	if err := zipFile.Close(); err != nil {
		t.Errorf("Expected no error when closing unopened file, got: %v", err)
	}
	if err := zipFile.Commit(); err == nil {
		t.Error("Expected error when committing an empty archive")
	}
}

func TestRemoveStaleTemps(t *testing.T) {
	tempDir := t.TempDir()
	zipPath := filepath.Join(tempDir, "test.zip")

	// A writer that died before Commit.
	crashed := zipwriter.NewAtomicZipFile(zipPath, 0640)
	writeEntry(t, crashed, "a.txt", "partial")

	others := []string{"test.zip", ".other.zip.tmp-123", ".test.zip.lock"}
	for _, name := range others {
		if err := os.WriteFile(filepath.Join(tempDir, name), nil, 0600); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := zipwriter.RemoveStaleTemps(zipPath)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed temporary file, got %d", removed)
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != len(others) {
		t.Errorf("expected only %v to be left, got %d entries", others, len(entries))
	}
	for _, name := range others {
		if !fileutils.Exists(filepath.Join(tempDir, name)) {
			t.Errorf("%s must be kept", name)
		}
	}
}

func TestRemoveStaleTemps_MissingDir(t *testing.T) {
	_, err := zipwriter.RemoveStaleTemps(filepath.Join(t.TempDir(), "missing", "test.zip"))
	if err == nil {
		t.Error("expected error")
	}
}
