package util

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name           string
		in             string
		prefix, suffix string
		want           string
	}{
		{"plain", "clip.mp4", "", "", "clip.mp4"},
		{"accents folded", "Café Noël.mp3", "", "", "Cafe Noel.mp3"},
		{"unsafe replaced", "a/b:c.mp4", "", "", "a---b---c.mp4"},
		{"prefix and suffix", "song.wav", "003", "trim", "003_song_trim.wav"},
		{"repeated dots", "take..two...mov", "", "", "take.two.mov"},
		{"whitelist kept", "my_clip-01 final.mkv", "", "", "my_clip-01 final.mkv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SafeFilename(tt.in, tt.prefix, tt.suffix); got != tt.want {
				t.Errorf("SafeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSafeFilenameCapsStem(t *testing.T) {
	got := SafeFilename(strings.Repeat("x", 200)+".mp4", "p", "")
	if got != "p_"+strings.Repeat("x", 75)+".mp4" {
		t.Errorf("stem not capped: %q", got)
	}
}

func TestNaturalSort(t *testing.T) {
	names := []string{"clip10.mp4", "clip2.mp4", "clip1.mp4", "a.mp4", "clip02b.mp4"}
	SortNatural(names)
	want := []string{"a.mp4", "clip1.mp4", "clip2.mp4", "clip02b.mp4", "clip10.mp4"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("SortNatural = %v, want %v", names, want)
	}

	if !NaturalLess("seg9", "seg10") || NaturalLess("seg10", "seg9") {
		t.Error("numeric runs should compare by value")
	}
	if NaturalLess("x", "x") {
		t.Error("equal strings are not less")
	}
}

func TestReplaceExtension(t *testing.T) {
	tests := []struct{ path, ext, want string }{
		{"/a/b/song.mp3", "wav", "/a/b/song.wav"},
		{"song.mp3", ".m4a", "song.m4a"},
		{"noext", "mp4", "noext.mp4"},
	}
	for _, tt := range tests {
		if got := ReplaceExtension(tt.path, tt.ext); got != tt.want {
			t.Errorf("ReplaceExtension(%q, %q) = %q, want %q", tt.path, tt.ext, got, tt.want)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")

	if err := WriteFileAtomic(path, []byte("one"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0644); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Fatalf("got %q, %v", data, err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestIsVideoAndAudioFile(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "a.MP4")
	audio := filepath.Join(dir, "b.wav")
	for _, p := range []string{video, audio} {
		if err := os.WriteFile(p, nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	if !IsVideoFile(video) || IsVideoFile(audio) {
		t.Error("IsVideoFile misclassified")
	}
	if !IsAudioFile(audio) || IsAudioFile(video) {
		t.Error("IsAudioFile misclassified")
	}
	if IsVideoFile(dir) || IsVideoFile(filepath.Join(dir, "missing.mp4")) {
		t.Error("directories and missing files are not video files")
	}
}
