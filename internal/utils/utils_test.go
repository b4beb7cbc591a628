package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFormatSize(t *testing.T) {
	cases := map[int64]string{
		500:                 "500 B",
		2048:                "2.00 KB",
		5 * 1024 * 1024:     "5.00 MB",
		3 * 1024 * 1024 * 1024: "3.00 GB",
	}
	for in, want := range cases {
		if got := FormatSize(in); got != want {
			t.Errorf("FormatSize(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatTimeDuration(t *testing.T) {
	if got := FormatTimeDuration(45 * time.Second); got != "45s" {
		t.Errorf("got %q", got)
	}
	if got := FormatTimeDuration(90 * time.Second); got != "1m 30s" {
		t.Errorf("got %q", got)
	}
	if got := FormatTimeDuration(time.Hour + 2*time.Minute); got != "1h 2m 0s" {
		t.Errorf("got %q", got)
	}
}

func TestGetUniqueFilename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")

	if got := GetUniqueFilename(path); got != path {
		t.Fatalf("non-existent file should be returned as-is: got %q", got)
	}

	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(dir, "report (1).txt")
	if got := GetUniqueFilename(path); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
