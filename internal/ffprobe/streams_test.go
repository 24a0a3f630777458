package ffprobe

import "testing"

const sampleDump = `[STREAM]
index=0
codec_name=hevc
profile=Main 10
codec_type=video
width=3840
height=2160
pix_fmt=yuv420p10le
color_space=bt2020nc
color_transfer=smpte2084
color_primaries=bt2020
duration=120.500000
bit_rate=N/A
DISPOSITION:default=1
TAG:language=und
[/STREAM]
[STREAM]
index=1
codec_name=aac
codec_type=audio
sample_rate=48000
channels=2
bit_rate=128000
TAG:language=eng
[/STREAM]
stray=line
`

func TestParseStreams(t *testing.T) {
	streams := ParseStreams(sampleDump)
	if len(streams) != 2 {
		t.Fatalf("len(streams) = %d, want 2", len(streams))
	}

	video := streams[0]
	if video.CodecType != "video" || video.CodecName != "hevc" || video.Profile != "Main 10" {
		t.Errorf("video identity: %+v", video)
	}
	if video.Width != 3840 || video.Height != 2160 {
		t.Errorf("video size %dx%d", video.Width, video.Height)
	}
	if video.Duration != 120.5 || video.BitRate != 0 {
		t.Errorf("video duration=%v bitrate=%v", video.Duration, video.BitRate)
	}
	if !video.IsHDR() {
		t.Error("PQ/BT.2020 stream should be HDR")
	}
	if video.Fields["DISPOSITION:default"] != "1" || video.Tag("language") != "und" {
		t.Errorf("fields: %v", video.Fields)
	}

	audio := streams[1]
	if audio.Index != 1 || audio.Channels != 2 || audio.SampleRate != 48000 || audio.BitRate != 128000 {
		t.Errorf("audio: %+v", audio)
	}
	if audio.IsHDR() {
		t.Error("audio is not HDR")
	}
	if audio.Tag("language") != "eng" {
		t.Errorf("tag = %q", audio.Tag("language"))
	}
}

func TestParseStreamsEdgeCases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"empty", "", 0},
		{"unterminated", "[STREAM]\nindex=0\n", 0},
		{"crlf", "[STREAM]\r\nindex=0\r\ncodec_type=video\r\n[/STREAM]\r\n", 1},
		{"garbage only", "Invalid data found when processing input", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseStreams(tt.raw); len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDetectHDR(t *testing.T) {
	tests := []struct {
		primaries, transfer, matrix string
		want                        bool
	}{
		{"bt709", "bt709", "bt709", false},
		{"bt2020", "bt709", "bt709", true},
		{"bt709", "smpte2084", "bt709", true},
		{"bt709", "arib-std-b67", "bt709", true},
		{"", "", "bt2020nc", true},
		{"", "", "", false},
	}
	for _, tt := range tests {
		if got := detectHDR(tt.primaries, tt.transfer, tt.matrix); got != tt.want {
			t.Errorf("detectHDR(%q, %q, %q) = %v, want %v", tt.primaries, tt.transfer, tt.matrix, got, tt.want)
		}
	}
}
