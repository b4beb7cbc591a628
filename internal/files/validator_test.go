package files

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateFilesAcceptsZeroByteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.bin")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	infos, err := ValidateFiles([]string{path})
	if err != nil {
		t.Fatalf("ValidateFiles: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("got %d infos, want 1", len(infos))
	}
	if infos[0].Size != 0 {
		t.Errorf("Size = %d, want 0", infos[0].Size)
	}
	if !infos[0].IsReadable {
		t.Error("zero-byte file should be marked readable")
	}
}

func TestValidateFilesRejectsMissingFile(t *testing.T) {
	if _, err := ValidateFiles([]string{filepath.Join(t.TempDir(), "nope.bin")}); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestValidateFilesRejectsDirectory(t *testing.T) {
	if _, err := ValidateFiles([]string{t.TempDir()}); err == nil {
		t.Fatal("expected error for directory")
	}
}
