package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var (
		video      bool
		audio      bool
		duration   string
		tolerance  float64
		width      int
		height     int
		hdr        bool
		sdr        bool
		audioCodec string
	)
	cmd := &cobra.Command{
		Use:   "verify <file>",
		Short: "Check a produced file for expected streams, size and duration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hdr && sdr {
				return fmt.Errorf("--hdr and --sdr are mutually exclusive")
			}
			opts := mvkit.ValidationOptions{
				RequireVideo:       video,
				RequireAudio:       audio,
				DurationTolerance:  tolerance,
				ExpectedAudioCodec: audioCodec,
			}
			if duration != "" {
				seconds, err := parseTimeFlag("duration", duration)
				if err != nil {
					return err
				}
				opts.ExpectedDuration = &seconds
			}
			if width > 0 || height > 0 {
				opts.ExpectedDimensions = &[2]int{width, height}
			}
			if hdr || sdr {
				opts.ExpectedHDR = &hdr
			}
			if opts.IsZero() {
				opts.RequireVideo = true
			}

			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			result, err := kit.Validate(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if ctx.flags.json {
				if err := json.NewEncoder(out).Encode(result); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0, len(result.Checks))
				for _, c := range result.Checks {
					state := "pass"
					if !c.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{c.Name, state, c.Details})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Details"}, rows, nil))
			}
			return result.Err()
		},
	}
	f := cmd.Flags()
	f.BoolVar(&video, "video", false, "Require a video stream")
	f.BoolVar(&audio, "audio", false, "Require an audio stream")
	f.StringVar(&duration, "duration", "", "Expected duration (seconds or HH:MM:SS.mmm)")
	f.Float64Var(&tolerance, "tolerance", 0, "Allowed duration difference in seconds (default 1.0)")
	f.IntVar(&width, "width", 0, "Expected frame width")
	f.IntVar(&height, "height", 0, "Expected frame height")
	f.BoolVar(&hdr, "hdr", false, "Expect HDR video")
	f.BoolVar(&sdr, "sdr", false, "Expect SDR video")
	f.StringVar(&audioCodec, "audio-codec", "", "Expected audio codec name")
	return cmd
}
