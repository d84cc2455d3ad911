package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantError bool
	}{
		{
			name:      "empty path",
			input:     "",
			wantError: true,
		},
		{
			name:      "relative path",
			input:     "./test",
			wantError: false,
		},
		{
			name:      "absolute path",
			input:     "/tmp/test",
			wantError: false,
		},
		{
			name:      "home path",
			input:     "~/test",
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ResolvePath(tt.input)
			if (err != nil) != tt.wantError {
				t.Errorf("ResolvePath(%q) error = %v, wantError %v", tt.input, err, tt.wantError)
			}
			if !tt.wantError && !filepath.IsAbs(result) {
				t.Errorf("ResolvePath(%q) = %q, want absolute path", tt.input, result)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")

	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir(%q) error = %v", dir, err)
	}
	if !DirExists(dir) {
		t.Fatalf("EnsureDir(%q) did not create the directory", dir)
	}

	// second call is a no-op
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir(%q) second call error = %v", dir, err)
	}
}

func TestFileAndDirExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !DirExists(dir) {
		t.Errorf("DirExists(%q) = false, want true", dir)
	}
	if DirExists(file) {
		t.Errorf("DirExists(%q) = true, want false", file)
	}
	if !FileExists(file) {
		t.Errorf("FileExists(%q) = false, want true", file)
	}
	if FileExists(dir) {
		t.Errorf("FileExists(%q) = true, want false", dir)
	}
	if FileExists(filepath.Join(dir, "missing")) {
		t.Error("FileExists on missing path = true, want false")
	}
}
