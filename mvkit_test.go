package mvkit

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvkit/mvkit/internal/config"
	"github.com/mvkit/mvkit/internal/hostenv"
	"github.com/mvkit/mvkit/internal/logging"
	"github.com/mvkit/mvkit/internal/runner"
)

const fakeFFmpeg = `#!/bin/sh
for arg; do
  case "$arg" in
    *FAIL*) echo "simulated failure" >&2; exit 1;;
  esac
  last=$arg
done
printf 'media' > "$last"
`

const fakeFFprobe = `#!/bin/sh
case "$*" in
  *-show_streams*)
    printf '[STREAM]\nindex=0\ncodec_type=video\nwidth=1920\nheight=1080\n[/STREAM]\n';;
  *format=duration*) echo 12.5;;
  *) echo N/A;;
esac
`

func fakeTools(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	bin := t.TempDir()
	ffmpegPath := filepath.Join(bin, "ffmpeg")
	ffprobePath := filepath.Join(bin, "ffprobe")
	require.NoError(t, os.WriteFile(ffmpegPath, []byte(fakeFFmpeg), 0755))
	require.NoError(t, os.WriteFile(ffprobePath, []byte(fakeFFprobe), 0755))
	return ffmpegPath, ffprobePath
}

func newKit(t *testing.T, opts ...Option) *Toolkit {
	t.Helper()
	base := []Option{WithLogger(logging.Discard()), WithRetryAttempts(0)}
	kit, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return kit
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(WithMode("docker"))
	require.Error(t, err)
	assert.True(t, IsConfig(err))
	assert.True(t, stderrors.Is(err, config.ErrInvalidMode))

	_, err = New(WithRetryAttempts(-1))
	assert.True(t, stderrors.Is(err, config.ErrInvalidRetries))
}

func TestBuildAppliesConfiguredHardware(t *testing.T) {
	kit := newKit(t, WithHardware(true))
	cmd, err := kit.Build(context.Background(), MediaSpec{
		Kind:    KindSegment,
		Sources: []string{"a.mp4"},
		Output:  "seg.mpg",
		Length:  5,
		Visual:  VisualOptions{Deinterlace: true},
	})
	require.NoError(t, err)
	line := cmd.String()
	assert.Contains(t, line, "h264_cuvid")
	assert.Contains(t, line, "h264_nvenc")
	assert.Contains(t, line, "yadif_cuda")

	cmd, err = kit.Build(context.Background(), MediaSpec{
		Kind:    KindSegment,
		Sources: []string{"a.mp4"},
		Output:  "seg.mpg",
		Length:  5,
		Codec:   Codec{Override: "-c:v libx265 -crf 22"},
	})
	require.NoError(t, err)
	assert.NotContains(t, cmd.String(), "h264_cuvid")
	assert.Contains(t, cmd.String(), "-c:v libx265 -crf 22")
}

func TestWSLModeTranslatesCommands(t *testing.T) {
	var calls int
	helper := hostenv.HelperFunc(func(ctx context.Context, flag, path string) (string, error) {
		calls++
		return `\\wsl$\Ubuntu` + strings.ReplaceAll(path, "/", `\`), nil
	})
	kit := newKit(t, WithMode(config.ModeWSL), WithPathHelper(helper))

	cmd, err := kit.Build(context.Background(), MediaSpec{
		Kind:    KindExtractAudio,
		Sources: []string{"/mnt/c/clips/a.mp4"},
		Output:  "/home/me/a.wav",
	})
	require.NoError(t, err)

	argv := cmd.Argv()
	assert.Equal(t, "ffmpeg.exe", argv[0])
	assert.Contains(t, argv, "c:/clips/a.mp4")
	assert.Contains(t, argv, `\\wsl$\Ubuntu\home\me\a.wav`)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "/home/me/a.wav", cmd.Output())

	assert.Equal(t, "ffprobe.exe -i x", kit.TranslateCommand("ffprobe -i x"))

	p, err := kit.TranslatePath(context.Background(), "/mnt/d/media")
	require.NoError(t, err)
	assert.Equal(t, "d:/media", p)

	back, err := kit.TranslateToHost(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/d/media", back)
}

func TestOperationsRunTools(t *testing.T) {
	ffmpegPath, ffprobePath := fakeTools(t)
	kit := newKit(t, WithPrograms(ffmpegPath, ffprobePath), WithTimeout(10*time.Second))
	ctx := context.Background()
	dir := t.TempDir()

	res, err := kit.ExtractAudio(ctx, filepath.Join(dir, "in.mp4"), filepath.Join(dir, "in.wav"))
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.FileExists(t, filepath.Join(dir, "in.wav"))

	_, err = kit.EncodeSegment(ctx, SegmentSpec{
		Start:  0,
		Length: 2,
		Input:  filepath.Join(dir, "in.mp4"),
		Output: filepath.Join(dir, "seg_1.mpg"),
		Visual: VisualOptions{Width: 640, Height: 360, Watermark: SplitWatermark("hello<EOL>world")},
	})
	require.NoError(t, err)

	_, err = kit.ConcatFiles(ctx, []string{filepath.Join(dir, "seg_1.mpg")}, filepath.Join(dir, "out.mp4"), false, VisualOptions{})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out.mp4"))
	lists, _ := filepath.Glob(filepath.Join(dir, "concat_*"))
	assert.Empty(t, lists)

	_, err = kit.Mux(ctx, MuxSpec{
		Video:   filepath.Join(dir, "out.mp4"),
		Audio:   filepath.Join(dir, "in.wav"),
		Channel: "mix",
		Output:  filepath.Join(dir, "final.mp4"),
	})
	require.NoError(t, err)

	d, err := kit.ProbeDuration(ctx, filepath.Join(dir, "final.mp4"), true)
	require.NoError(t, err)
	assert.Equal(t, 12.5, d.Value)

	br := kit.ProbeBitrate(ctx, filepath.Join(dir, "final.mp4"))
	assert.True(t, br.Fallback)
	assert.Zero(t, br.Value)

	raw, streams, err := kit.ProbeStreams(ctx, filepath.Join(dir, "final.mp4"), "v")
	require.NoError(t, err)
	assert.Contains(t, raw, "codec_type=video")
	require.Len(t, streams, 1)
	assert.Equal(t, 1920, streams[0].Width)
}

func TestOperationFailureIsExecutionError(t *testing.T) {
	ffmpegPath, ffprobePath := fakeTools(t)
	kit := newKit(t, WithPrograms(ffmpegPath, ffprobePath), WithRetryAttempts(1))

	res, err := kit.ConvertAudio(context.Background(), "FAIL.wav", filepath.Join(t.TempDir(), "out.mp3"), "")
	require.Error(t, err)
	assert.True(t, IsExecution(err))
	assert.Equal(t, 2, res.Attempts)
	assert.Contains(t, err.Error(), "simulated failure")
}

func TestRunJob(t *testing.T) {
	ffmpegPath, ffprobePath := fakeTools(t)
	kit := newKit(t, WithPrograms(ffmpegPath, ffprobePath))

	dir := t.TempDir()
	manifest := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(manifest, []byte(`
name: trailer
workers: 2
steps:
  - op: segment
    input: a.mp4
    output: segs/seg_1.mpg
    length: 5
  - op: segment
    input: a.mp4
    output: segs/seg_2.mpg
    start: 5
    length: 5
  - op: concat
    input_dir: segs
    output: trailer.mp4
  - op: probe_duration
    input: trailer.mp4
    strict: true
`), 0644))

	summary, err := kit.RunJob(context.Background(), manifest)
	require.NoError(t, err)
	assert.Equal(t, "trailer", summary.Name)
	assert.Equal(t, 4, summary.Succeeded)
	assert.FileExists(t, filepath.Join(dir, "trailer.mp4"))
	assert.Equal(t, "duration=12.5", summary.Results[3].Value)
}

func TestRunAndCheck(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	kit := newKit(t)
	cmd, err := kit.Build(context.Background(), MediaSpec{Kind: KindProbeDuration, Sources: []string{"x.mp4"}})
	require.NoError(t, err)
	assert.Equal(t, "ffprobe", cmd.Program())

	exit7 := runner.NewCommand(runner.OpConvertAudio, "sh", "-c", "exit 7")
	res, err := kit.Run(context.Background(), exit7, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.Equal(t, 7, kit.RunAndCheck(context.Background(), exit7))
}

func TestSubSecondTimeoutBoundsRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	kit := newKit(t, WithTimeout(300*time.Millisecond))
	cfg := kit.Config()
	assert.Equal(t, 300*time.Millisecond, cfg.Timeout())

	start := time.Now()
	res, err := kit.Run(context.Background(), runner.NewCommand(runner.OpConvertAudio, "sleep", "2"), RunOptions{})
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	assert.Less(t, time.Since(start), 1500*time.Millisecond)
}

func TestCheckTools(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	kit := newKit(t, WithPrograms("sh", "mvkit-no-such-probe"))
	statuses := kit.CheckTools()
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Available)
	assert.False(t, statuses[1].Available)
	assert.Contains(t, statuses[1].Detail, "not found")
}

func TestValidateOutput(t *testing.T) {
	ffmpegPath, ffprobePath := fakeTools(t)
	kit := newKit(t, WithPrograms(ffmpegPath, ffprobePath))

	duration := 12.0
	result, err := kit.Validate(context.Background(), "clip.mp4", ValidationOptions{
		RequireVideo:       true,
		ExpectedDimensions: &[2]int{1920, 1080},
		ExpectedDuration:   &duration,
	})
	require.NoError(t, err)
	assert.True(t, result.IsValid(), "failures: %v", result.Failures())

	result, err = kit.Validate(context.Background(), "clip.mp4", ValidationOptions{RequireAudio: true})
	require.NoError(t, err)
	assert.True(t, IsValidation(result.Err()))
}
