package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteAtomicReplacesContent(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "out.vtt")

	if err := WriteAtomic(target, []byte("WEBVTT\n\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteAtomic(target, []byte("WEBVTT\n\nsecond")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "WEBVTT\n\nsecond" {
		t.Fatalf("unexpected content %q", got)
	}
	entries, _ := os.ReadDir(filepath.Dir(target))
	if len(entries) != 1 {
		t.Fatalf("temp files left behind: %v", entries)
	}
}

func TestReplaceExt(t *testing.T) {
	cases := map[[2]string]string{
		{"/a/b/episode.mp3", "vtt"}:  "/a/b/episode.vtt",
		{"/a/b/episode.mp3", ".srt"}: "/a/b/episode.srt",
		{"noext", "vtt"}:             "noext.vtt",
		{"/a/b.c/file.tar.gz", "x"}:  "/a/b.c/file.tar.x",
	}
	for in, want := range cases {
		if got := ReplaceExt(in[0], in[1]); got != want {
			t.Errorf("ReplaceExt(%q, %q) = %q, want %q", in[0], in[1], got, want)
		}
	}
}
