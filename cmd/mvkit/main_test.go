package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fakeFFprobe = `#!/bin/sh
case "$*" in
  *-show_streams*)
    printf '[STREAM]\nindex=0\ncodec_type=video\ncodec_name=h264\nwidth=1920\nheight=1080\npix_fmt=yuv420p\n[/STREAM]\n'
    printf '[STREAM]\nindex=1\ncodec_type=audio\ncodec_name=aac\nchannels=2\nsample_rate=48000\n[/STREAM]\n';;
  *format=duration*) echo 42.25;;
  *) echo N/A;;
esac
`

const fakeFFmpeg = `#!/bin/sh
for arg; do
  last=$arg
done
printf 'media' > "$last"
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommandWithWriters(&stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func fakeProbe(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	require.NoError(t, os.WriteFile(path, []byte(fakeFFprobe), 0755))
	return path
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, appName+" "+appVersion+"\n", out)
}

func TestColorspaceFlagDescribesPixelFormat(t *testing.T) {
	out, _, err := execute(t, "segment", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "pixel format to yuv420p")
	assert.NotContains(t, out, "BT.709")
}

func TestSegmentDryRun(t *testing.T) {
	out, _, err := execute(t, "segment", "clip.mp4", "seg_1.mpg",
		"--start", "00:00:01.5", "--length", "4",
		"--width", "1280", "--height", "720", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "-ss 1.5")
	assert.Contains(t, out, "-t 4.0")
	assert.Contains(t, out, "-f mpeg")
	assert.Contains(t, out, "pad=1280:720")
}

func TestSegmentRequiresLength(t *testing.T) {
	_, _, err := execute(t, "segment", "clip.mp4", "seg_1.mpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length")
}

func TestSegmentRejectsHalfDimensions(t *testing.T) {
	_, _, err := execute(t, "segment", "clip.mp4", "seg_1.mpg", "--length", "2", "--width", "640", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "width and height")
}

func TestConcatArgumentValidation(t *testing.T) {
	_, _, err := execute(t, "concat", "out.mp4", "--list", "segs.txt", "a.mpg")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not both")

	_, _, err = execute(t, "concat", "out.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no segments")

	_, _, err = execute(t, "concat", "out.mp4", "--list", "segs.txt", "--width", "640", "--height", "360", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "re-encoding")
}

func TestMuxDryRunInWSLMode(t *testing.T) {
	t.Setenv("MVKIT_ENV_MODE", "")
	out, _, err := execute(t, "--mode", "wsl", "mux", "/mnt/c/v.mp4", "/mnt/c/a.wav", "/mnt/c/out.mp4", "--channel", "audio", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "ffmpeg.exe")
	assert.Contains(t, out, "c:/v.mp4")
	assert.Contains(t, out, "c:/out.mp4")
}

func TestInvalidModeIsRejected(t *testing.T) {
	_, _, err := execute(t, "--mode", "docker", "extract-audio", "a.mp4", "a.wav", "--dry-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docker")
}

func TestProbeStreamsTable(t *testing.T) {
	probe := fakeProbe(t)
	out, _, err := execute(t, "--ffprobe", probe, "probe", "streams", "movie.mkv")
	require.NoError(t, err)
	assert.Contains(t, out, "1920x1080 yuv420p")
	assert.Contains(t, out, "2 ch 48000 Hz")
	assert.Contains(t, out, "h264")
}

func TestProbeDurationJSON(t *testing.T) {
	probe := fakeProbe(t)
	out, _, err := execute(t, "--json", "--ffprobe", probe, "probe", "duration", "--strict", "movie.mkv")
	require.NoError(t, err)

	var v probeValue
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 42.25, v.Value)
	assert.Equal(t, "duration", v.Field)
	assert.False(t, v.Fallback)
}

func TestProbeBitrateFallback(t *testing.T) {
	probe := fakeProbe(t)
	out, _, err := execute(t, "--ffprobe", probe, "probe", "bitrate", "movie.mkv")
	require.NoError(t, err)
	assert.Equal(t, "0 (fallback)\n", out)
}

func TestCheckReportsMissingTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	out, _, err := execute(t, "--ffmpeg", "sh", "--ffprobe", "mvkit-no-such-probe", "check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 required tool(s) missing")
	assert.Contains(t, out, "Mode: native")
	assert.Contains(t, out, "missing")
	assert.Contains(t, out, "mvkit-no-such-probe")
}

func TestLogDirWritesRunLog(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "--log-dir", dir, "extract-audio", "a.mp4", "a.wav", "--dry-run")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestVerifyReportsFailedChecks(t *testing.T) {
	probe := fakeProbe(t)
	out, _, err := execute(t, "--ffprobe", probe, "verify", "movie.mkv",
		"--video", "--audio", "--width", "1280", "--height", "720", "--duration", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dimensions: got 1920x1080, expected 1280x720")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "Audio stream")
}

func TestVerifyPasses(t *testing.T) {
	probe := fakeProbe(t)
	out, _, err := execute(t, "--ffprobe", probe, "verify", "movie.mkv", "--sdr", "--audio-codec", "aac")
	require.NoError(t, err)
	assert.Contains(t, out, "SDR preserved")
	assert.NotContains(t, out, "FAIL")
}

func TestExtractAudioDefaultOutput(t *testing.T) {
	out, _, err := execute(t, "extract-audio", "clips/Café Intro.mp4", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "Cafe Intro_audio.wav")
}

func TestRunJobWritesEvents(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	dir := t.TempDir()
	ffmpeg := filepath.Join(dir, "ffmpeg")
	require.NoError(t, os.WriteFile(ffmpeg, []byte(fakeFFmpeg), 0755))
	manifest := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
name: audio
steps:
  - op: extract_audio
    input: in.mp4
    output: in.wav
  - op: convert_audio
    input: in.wav
    output: in.mp3
`), 0644))
	events := filepath.Join(dir, "events.ndjson")

	_, _, err := execute(t, "--ffmpeg", ffmpeg, "--events", events, "run", manifest)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "in.mp3"))

	data, err := os.ReadFile(events)
	require.NoError(t, err)
	var types []string
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		types = append(types, ev["type"].(string))
	}
	assert.Equal(t, "hardware", types[0])
	assert.Contains(t, types, "step_complete")
	assert.Equal(t, "job_complete", types[len(types)-1])
}

func TestRunMissingManifest(t *testing.T) {
	_, _, err := execute(t, "run", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
