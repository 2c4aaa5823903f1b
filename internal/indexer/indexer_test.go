package indexer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestList_MissingDir(t *testing.T) {
	files := List(filepath.Join(t.TempDir(), "does-not-exist"))
	if len(files) != 0 {
		t.Fatalf("expected empty list, got %d entries", len(files))
	}
}

func TestList_OrderAndMetadata(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "bbbb")
	writeFile(t, dir, "a.txt", "aa")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, dir, "sub/nested.txt", "ignored") // not listed: scan is non-recursive

	files := List(dir)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].Name != "a.txt" || files[1].Name != "b.txt" {
		t.Errorf("order = %s, %s; want a.txt, b.txt", files[0].Name, files[1].Name)
	}
	if files[0].Size != 2 || files[1].Size != 4 {
		t.Errorf("sizes = %d, %d; want 2, 4", files[0].Size, files[1].Size)
	}
	for _, f := range files {
		if f.MTime <= 0 {
			t.Errorf("%s: mtime = %d", f.Name, f.MTime)
		}
		if len(f.Checksum) != 16 {
			t.Errorf("%s: checksum %q, want 16 hex chars", f.Name, f.Checksum)
		}
		if f.Extension != ".txt" || f.Type != "text" {
			t.Errorf("%s: ext/type = %q/%q", f.Name, f.Extension, f.Type)
		}
	}
}

func TestList_KnownChecksum(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "hello.txt", "hello world")

	files := List(dir)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	// First 16 hex chars of SHA-256("hello world").
	if files[0].Checksum != "b94d27b9934d3e08" {
		t.Errorf("checksum = %q, want b94d27b9934d3e08", files[0].Checksum)
	}
}

func TestTypeForExtension(t *testing.T) {
	cases := map[string]string{
		".md":   "text",
		".jpeg": "image",
		".mkv":  "video",
		".flac": "audio",
		".pptx": "document",
		".rs":   "code",
		".zip":  "other",
		"":      "other",
	}
	for ext, want := range cases {
		if got := TypeForExtension(ext); got != want {
			t.Errorf("TypeForExtension(%q) = %q, want %q", ext, got, want)
		}
	}
}

func TestList_UppercaseExtensionLowered(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "PHOTO.JPG", "x")

	files := List(dir)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Extension != ".jpg" || files[0].Type != "image" {
		t.Errorf("ext/type = %q/%q, want .jpg/image", files[0].Extension, files[0].Type)
	}
}
