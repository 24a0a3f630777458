package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit"
	"github.com/mvkit/mvkit/internal/util"
)

// visualFlags carries the frame transform options of segment and concat.
type visualFlags struct {
	width          int
	height         int
	watermark      string
	fontFile       string
	fontSize       int
	evenDimensions bool
	deinterlace    bool
	colorspace     bool
}

func (v *visualFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.IntVar(&v.width, "width", 0, "Scale to this width (requires --height)")
	f.IntVar(&v.height, "height", 0, "Scale to this height (requires --width)")
	f.StringVar(&v.watermark, "watermark", "", "Watermark text, lines separated by <EOL>")
	f.StringVar(&v.fontFile, "font", "", "Watermark font file or family")
	f.IntVar(&v.fontSize, "font-size", 0, "Watermark font size in pixels")
	f.BoolVar(&v.evenDimensions, "even-dimensions", false, "Round frame size down to even values")
	f.BoolVar(&v.deinterlace, "deinterlace", false, "Deinterlace the video")
	f.BoolVar(&v.colorspace, "colorspace", false, "Normalise the pixel format to yuv420p")
}

func (v *visualFlags) options() mvkit.VisualOptions {
	return mvkit.VisualOptions{
		Width:          v.width,
		Height:         v.height,
		Watermark:      mvkit.SplitWatermark(v.watermark),
		FontFile:       v.fontFile,
		FontSize:       v.fontSize,
		EvenDimensions: v.evenDimensions,
		Deinterlace:    v.deinterlace,
		Colorspace:     v.colorspace,
	}
}

// runOutcome is the JSON form of a finished invocation.
type runOutcome struct {
	Operation string  `json:"operation"`
	Output    string  `json:"output"`
	ExitCode  int     `json:"exit_code"`
	Attempts  int     `json:"attempts"`
	Elapsed   float64 `json:"elapsed_seconds"`
}

// execSpec builds spec and either prints the command line or runs it.
func execSpec(cmd *cobra.Command, ctx *commandContext, dryRun bool, spec mvkit.MediaSpec) error {
	kit, err := ctx.toolkit()
	if err != nil {
		return err
	}
	built, err := kit.Build(cmd.Context(), spec)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), built.String())
		return nil
	}
	res, err := kit.RunWithRetry(cmd.Context(), built)
	if err != nil {
		return err
	}
	return printOutcome(cmd, ctx, built.Output(), res)
}

func printOutcome(cmd *cobra.Command, ctx *commandContext, output string, res mvkit.Result) error {
	out := cmd.OutOrStdout()
	if ctx.flags.json {
		return json.NewEncoder(out).Encode(runOutcome{
			Operation: string(res.Operation),
			Output:    output,
			ExitCode:  res.ExitCode,
			Attempts:  res.Attempts,
			Elapsed:   res.Elapsed.Seconds(),
		})
	}
	line := fmt.Sprintf("%s -> %s (%s", res.Operation, output, util.FormatDuration(res.Elapsed.Seconds()))
	if res.Attempts > 1 {
		line += fmt.Sprintf(", %d attempts", res.Attempts)
	}
	fmt.Fprintln(out, line+")")
	return nil
}

func newExtractAudioCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "extract-audio <input> [output]",
		Short: "Extract audio with leading silence removed",
		Long: `Extract the audio track of a clip with leading silence removed. Without an
output path the audio is written next to the input as <name>_audio.wav, with
the name folded to a filesystem-safe form.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := defaultOutput(args[0], "audio", "wav")
			if len(args) == 2 {
				output = args[1]
			}
			return execSpec(cmd, ctx, dryRun, mvkit.MediaSpec{
				Kind:    mvkit.KindExtractAudio,
				Sources: []string{args[0]},
				Output:  output,
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	return cmd
}

func newConvertAudioCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		codec  string
	)
	cmd := &cobra.Command{
		Use:   "convert-audio <input> <output>",
		Short: "Re-encode an audio file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execSpec(cmd, ctx, dryRun, mvkit.MediaSpec{
				Kind:    mvkit.KindConvertAudio,
				Sources: []string{args[0]},
				Output:  args[1],
				Audio:   mvkit.AudioOptions{Codec: codec},
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().StringVar(&codec, "codec", "", "Target audio codec (default from configuration)")
	return cmd
}

func newSegmentCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		start  string
		length string
		codec  string
		visual visualFlags
	)
	cmd := &cobra.Command{
		Use:   "segment <input> <output>",
		Short: "Encode a time range of a clip into an intermediate segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			startSec, err := parseTimeFlag("start", start)
			if err != nil {
				return err
			}
			lengthSec, err := parseTimeFlag("length", length)
			if err != nil {
				return err
			}
			return execSpec(cmd, ctx, dryRun, mvkit.MediaSpec{
				Kind:    mvkit.KindSegment,
				Sources: []string{args[0]},
				Output:  args[1],
				Start:   startSec,
				Length:  lengthSec,
				Codec:   mvkit.Codec{Override: codec},
				Visual:  visual.options(),
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().StringVar(&start, "start", "0", "Start offset (seconds or HH:MM:SS.mmm)")
	cmd.Flags().StringVar(&length, "length", "", "Segment length (seconds or HH:MM:SS.mmm)")
	cmd.Flags().StringVar(&codec, "codec", "", "Encoder arguments overriding the default, e.g. \"-c:v libx265 -crf 22\"")
	visual.register(cmd)
	_ = cmd.MarkFlagRequired("length")
	return cmd
}

func newConcatCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun   bool
		list     string
		reencode bool
		codec    string
		visual   visualFlags
	)
	cmd := &cobra.Command{
		Use:   "concat <output> [segments...]",
		Short: "Join segments from a list file or from the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, files := args[0], args[1:]
			switch {
			case list != "" && len(files) > 0:
				return fmt.Errorf("use either --list or segment paths, not both")
			case list == "" && len(files) == 0:
				return fmt.Errorf("no segments given: pass --list or segment paths")
			}

			if list != "" {
				return execSpec(cmd, ctx, dryRun, mvkit.MediaSpec{
					Kind:     mvkit.KindConcat,
					Sources:  []string{list},
					Output:   output,
					Reencode: reencode,
					Codec:    mvkit.Codec{Override: codec},
					Visual:   visual.options(),
				})
			}
			if dryRun {
				return fmt.Errorf("--dry-run requires --list")
			}

			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			res, err := kit.ConcatFiles(cmd.Context(), files, output, reencode, visual.options())
			if err != nil {
				return err
			}
			return printOutcome(cmd, ctx, output, res)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().StringVar(&list, "list", "", "Concat list file (one \"file '<path>'\" line per segment)")
	cmd.Flags().BoolVar(&reencode, "reencode", false, "Re-encode instead of stream copying")
	cmd.Flags().StringVar(&codec, "codec", "", "Encoder arguments used when re-encoding")
	visual.register(cmd)
	return cmd
}

func newMuxCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun  bool
		channel string
		offset  string
	)
	cmd := &cobra.Command{
		Use:   "mux <video> <audio> <output>",
		Short: "Combine a video with a separate audio track",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			offsetSec, err := parseTimeFlag("offset", offset)
			if err != nil {
				return err
			}
			return execSpec(cmd, ctx, dryRun, mvkit.MediaSpec{
				Kind:    mvkit.KindMux,
				Sources: []string{args[0], args[1]},
				Output:  args[2],
				Audio:   mvkit.AudioOptions{Channel: channel, Offset: offsetSec},
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	cmd.Flags().StringVar(&channel, "channel", "mix", "Audio source: mix, video or audio")
	cmd.Flags().StringVar(&offset, "offset", "0", "Delay applied to the video input")
	return cmd
}

// defaultOutput names a file next to input: the sanitised input stem with
// suffix attached and the extension replaced by ext.
func defaultOutput(input, suffix, ext string) string {
	name := util.SafeFilename(util.GetFileStem(input), "", suffix)
	return filepath.Join(filepath.Dir(input), util.ReplaceExtension(name, ext))
}

func parseTimeFlag(name, value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	seconds, err := util.ParseTimestamp(value)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", name, err)
	}
	return seconds, nil
}
