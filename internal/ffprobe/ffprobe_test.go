package ffprobe

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/mvkit/mvkit/internal/errors"
	"github.com/mvkit/mvkit/internal/ffmpeg"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/runner"
)

type fakeRunner struct {
	stdout string
	err    error
	cmds   []runner.Command
}

func (f *fakeRunner) Capture(_ context.Context, cmd runner.Command, _ runner.Options) (string, runner.Result, error) {
	f.cmds = append(f.cmds, cmd)
	return f.stdout, runner.Result{Operation: cmd.Operation()}, f.err
}

func newProber(r Runner, logs *bytes.Buffer) *Prober {
	logger := logging.New(logging.Config{Level: logging.LevelDebug, Output: logs, Enabled: true})
	return New(ffmpeg.NewBuilder(), r, logger)
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name         string
		stdout       string
		want         float64
		wantFallback bool
	}{
		{"plain", "12.480000\n", 12.48, false},
		{"padded", "  3.5  \n", 3.5, false},
		{"not a number", "N/A\n", 0, true},
		{"empty", "", 0, true},
		{"diagnostic text", "foo.txt: Invalid data found when processing input\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			r := &fakeRunner{stdout: tt.stdout}
			got, err := newProber(r, &logs).Duration(context.Background(), "/clips/a.mp4", false)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.Value != tt.want || got.Fallback != tt.wantFallback {
				t.Errorf("Duration() = %+v, want value %v fallback %v", got, tt.want, tt.wantFallback)
			}
			if tt.wantFallback && !strings.Contains(logs.String(), "level=WARN") {
				t.Error("fallback should be logged")
			}
			if len(r.cmds) != 1 || r.cmds[0].Operation() != runner.OpProbeDuration {
				t.Errorf("unexpected commands: %v", r.cmds)
			}
		})
	}
}

func TestDurationStrict(t *testing.T) {
	p := newProber(&fakeRunner{stdout: "garbage"}, &bytes.Buffer{})

	_, err := p.Duration(context.Background(), "/clips/notes.txt", true)
	if !errors.IsMediaRead(err) {
		t.Fatalf("expected MediaReadError, got %v", err)
	}
	if !strings.Contains(err.Error(), "notes.txt") {
		t.Errorf("error should name the file: %v", err)
	}

	ok, err := newProber(&fakeRunner{stdout: "7.0\n"}, &bytes.Buffer{}).Duration(context.Background(), "a.mp4", true)
	if err != nil || ok.Value != 7 {
		t.Errorf("strict success: %+v %v", ok, err)
	}
}

func TestDurationCancelled(t *testing.T) {
	p := newProber(&fakeRunner{err: errors.NewCancelledError()}, &bytes.Buffer{})
	if _, err := p.Duration(context.Background(), "a.mp4", false); !errors.IsCancelled(err) {
		t.Errorf("cancellation should propagate, got %v", err)
	}
}

func TestBitrateNeverFails(t *testing.T) {
	tests := []struct {
		name   string
		runner *fakeRunner
		want   Result
	}{
		{"value", &fakeRunner{stdout: "1411200\n"}, Result{Value: 1411200}},
		{"na", &fakeRunner{stdout: "N/A"}, Result{Fallback: true}},
		{"runner error", &fakeRunner{err: errors.NewCommandStartError("ffprobe", os.ErrNotExist)}, Result{Fallback: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := newProber(tt.runner, &bytes.Buffer{}).Bitrate(context.Background(), "a.mp3")
			if got != tt.want {
				t.Errorf("Bitrate() = %+v, want %+v", got, tt.want)
			}
		})
	}

	// Empty path fails while building; still a fallback.
	if got := newProber(&fakeRunner{}, &bytes.Buffer{}).Bitrate(context.Background(), ""); !got.Fallback {
		t.Errorf("expected fallback, got %+v", got)
	}
}

func TestStreamsReturnsRawText(t *testing.T) {
	raw := "[STREAM]\nindex=1\ncodec_type=audio\n[/STREAM]\n"
	r := &fakeRunner{stdout: raw}
	got, err := newProber(r, &bytes.Buffer{}).Streams(context.Background(), "a.mp4", "a")
	if err != nil {
		t.Fatal(err)
	}
	if got != raw {
		t.Errorf("Streams() = %q", got)
	}
	if argv := strings.Join(r.cmds[0].Argv(), " "); !strings.Contains(argv, "-select_streams a") {
		t.Errorf("stream type not selected: %s", argv)
	}

	failing := &fakeRunner{err: errors.NewCommandFailedError("ffprobe", 1, "No such file")}
	if _, err := newProber(failing, &bytes.Buffer{}).Streams(context.Background(), "a.mp4", ""); !errors.IsExecution(err) {
		t.Errorf("expected execution failure, got %v", err)
	}
}

// writeFakeProbe installs a shell script standing in for ffprobe.
func writeFakeProbe(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDurationWithEngine(t *testing.T) {
	probe := writeFakeProbe(t, `echo "42.5"; echo "warning on stderr" >&2`)
	engine := runner.NewEngine(runner.WithLogger(logging.Discard()))
	p := New(ffmpeg.NewBuilder(ffmpeg.WithPrograms("", probe)), engine, logging.Discard())

	got, err := p.Duration(context.Background(), "/clips/a.mp4", true)
	if err != nil {
		t.Fatal(err)
	}
	if got.Value != 42.5 || got.Fallback {
		t.Errorf("Duration() = %+v", got)
	}
}

func TestDurationOnUnreadableFileWithEngine(t *testing.T) {
	probe := writeFakeProbe(t, `echo "$9: Invalid data found when processing input" >&2; exit 1`)
	engine := runner.NewEngine(runner.WithLogger(logging.Discard()))
	p := New(ffmpeg.NewBuilder(ffmpeg.WithPrograms("", probe)), engine, logging.Discard())

	got, err := p.Duration(context.Background(), "/clips/readme.txt", false)
	if err != nil || got.Value != 0 || !got.Fallback {
		t.Errorf("lenient: %+v %v", got, err)
	}

	_, err = p.Duration(context.Background(), "/clips/readme.txt", true)
	if !errors.IsMediaRead(err) || !strings.Contains(err.Error(), "readme.txt") {
		t.Errorf("strict: %v", err)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.5", 1.5, false},
		{"1.5\n2.5\n", 1.5, false},
		{"\n\n3\n", 3, false},
		{"", 0, true},
		{"N/A", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseNumber(%q) = %v, %v", tt.in, got, err)
		}
	}
}
