package ffmpeg

import (
	"reflect"
	"strings"
	"testing"
)

func TestArgsBuilder(t *testing.T) {
	tests := []struct {
		name  string
		build func() []string
		want  []string
	}{
		{
			name: "quiet prelude",
			build: func() []string {
				return newArgs().quiet().build()
			},
			want: []string{"-y", "-hide_banner", "-loglevel", "error"},
		},
		{
			name: "flags and raw args",
			build: func() []string {
				return newArgs("-i", "in").flag("-f", "mpeg").add("out").build()
			},
			want: []string{"-i", "in", "-f", "mpeg", "out"},
		},
		{
			name: "conditional args",
			build: func() []string {
				return newArgs().addIf(false, "-vf", "x").addIf(true, "-shortest").build()
			},
			want: []string{"-shortest"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.build(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCodecSelection(t *testing.T) {
	tests := []struct {
		name     string
		codec    Codec
		encoder  string
		decoder  string
		hardware bool
	}{
		{
			name:    "software default",
			codec:   Codec{},
			encoder: "-c:v libx264 -crf 27 -preset ultrafast",
		},
		{
			name:     "hardware profile",
			codec:    Codec{Hardware: true},
			encoder:  "-c:v h264_nvenc -preset:v fast -tune:v hq -rc:v vbr -cq:v 19 -b:v 0 -profile:v high",
			decoder:  "-c:v h264_cuvid",
			hardware: true,
		},
		{
			name:    "override wins over hardware",
			codec:   Codec{Hardware: true, Override: " -c:v libx265  -crf 22 "},
			encoder: "-c:v libx265 -crf 22",
		},
		{
			name:    "override without hardware",
			codec:   Codec{Override: "-c:v mpeg2video"},
			encoder: "-c:v mpeg2video",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(tt.codec.EncoderArgs(), " "); got != tt.encoder {
				t.Errorf("EncoderArgs() = %q, want %q", got, tt.encoder)
			}
			if got := strings.Join(tt.codec.DecoderArgs(), " "); got != tt.decoder {
				t.Errorf("DecoderArgs() = %q, want %q", got, tt.decoder)
			}
			if got := tt.codec.UsesHardware(); got != tt.hardware {
				t.Errorf("UsesHardware() = %v, want %v", got, tt.hardware)
			}
		})
	}
}

func TestEncoderArgsDoNotAliasProfiles(t *testing.T) {
	args := Codec{}.EncoderArgs()
	args[1] = "changed"
	if SoftwareEncoder[1] != "libx264" {
		t.Fatal("profile mutated through returned slice")
	}
}

func TestFilterChain(t *testing.T) {
	tests := []struct {
		name  string
		build func() *FilterChain
		want  string
		expr  string
	}{
		{
			name:  "empty chain",
			build: NewFilterChain,
			want:  "",
			expr:  "",
		},
		{
			name: "single crop",
			build: func() *FilterChain {
				return NewFilterChain().Add(StageCrop, "crop=1920:800:0:140")
			},
			want: "crop=1920:800:0:140",
			expr: "[in]crop=1920:800:0:140[out]",
		},
		{
			name: "empty stages ignored",
			build: func() *FilterChain {
				return NewFilterChain().
					Add(StageCrop, "").
					Add(StageDeinterlace, "yadif").
					Add(StageColorspace, "format=pix_fmts=yuv420p")
			},
			want: "yadif,format=pix_fmts=yuv420p",
			expr: "[in]yadif,format=pix_fmts=yuv420p[out]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := tt.build()
			if got := chain.Build(); got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
			if got := chain.Expression(); got != tt.expr {
				t.Errorf("Expression() = %q, want %q", got, tt.expr)
			}
			if chain.IsEmpty() != (tt.want == "") {
				t.Errorf("IsEmpty() = %v", chain.IsEmpty())
			}
		})
	}
}
