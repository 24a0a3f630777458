package runner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "plain args",
			cmd:  NewCommand(OpProbeDuration, "ffprobe", "-v", "error", "a.mp4"),
			want: "ffprobe -v error a.mp4",
		},
		{
			name: "path with spaces",
			cmd:  NewCommand(OpExtractAudio, "ffmpeg", "-i", "/music/My Song.mp3"),
			want: `ffmpeg -i "/music/My Song.mp3"`,
		},
		{
			name: "filter with quotes and escapes",
			cmd:  NewCommand(OpSegmentEncode, "ffmpeg", "-vf", `[in]drawtext=text='hi'\,x[out]`),
			want: `ffmpeg -vf "[in]drawtext=text='hi'\\,x[out]"`,
		},
		{
			name: "empty arg",
			cmd:  NewCommand(OpConcatenate, "ffmpeg", ""),
			want: `ffmpeg ""`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cmd.String())
		})
	}
}

func TestCommandIsImmutable(t *testing.T) {
	cmd := NewCommand(OpConcatenate, "ffmpeg", "-i", "list.txt")
	argv := cmd.Argv()
	argv[0] = "rm"
	args := cmd.Args()
	args[0] = "-rf"

	assert.Equal(t, "ffmpeg", cmd.Program())
	assert.Equal(t, []string{"-i", "list.txt"}, cmd.Args())

	withOut := cmd.WithOutput("/work/out.mp4")
	assert.Empty(t, cmd.Output())
	assert.Equal(t, "/work/out.mp4", withOut.Output())
}

func TestTailBuffer(t *testing.T) {
	b := newTailBuffer(8)
	_, _ = b.Write([]byte("abcd"))
	_, _ = b.Write([]byte("efgh"))
	assert.Equal(t, "abcdefgh", b.String())
	assert.False(t, b.Truncated())

	_, _ = b.Write([]byte("ij"))
	assert.Equal(t, "cdefghij", b.String())
	assert.True(t, b.Truncated())

	_, _ = b.Write([]byte("0123456789"))
	assert.Equal(t, "23456789", b.String())
}

func TestCheckBinaries(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "Go", Command: "go-binary-that-does-not-exist-mvkit"},
		{Name: "Empty", Command: " "},
	})
	require.Len(t, results, 2)
	assert.False(t, results[0].Available)
	assert.NotEmpty(t, results[0].Detail)
	assert.Equal(t, "command not configured", results[1].Detail)
}
