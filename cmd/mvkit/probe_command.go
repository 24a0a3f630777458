package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mvkit/mvkit"
)

func newProbeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Query media metadata with ffprobe",
	}
	cmd.AddCommand(newProbeDurationCommand(ctx))
	cmd.AddCommand(newProbeBitrateCommand(ctx))
	cmd.AddCommand(newProbeStreamsCommand(ctx))
	return cmd
}

type probeValue struct {
	Path     string  `json:"path"`
	Field    string  `json:"field"`
	Value    float64 `json:"value"`
	Fallback bool    `json:"fallback"`
}

func printProbeValue(cmd *cobra.Command, ctx *commandContext, v probeValue) error {
	out := cmd.OutOrStdout()
	if ctx.flags.json {
		return json.NewEncoder(out).Encode(v)
	}
	line := strconv.FormatFloat(v.Value, 'f', -1, 64)
	if v.Fallback {
		line += " (fallback)"
	}
	fmt.Fprintln(out, line)
	return nil
}

func newProbeDurationCommand(ctx *commandContext) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "duration <file>",
		Short: "Print the container duration in seconds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			res, err := kit.ProbeDuration(cmd.Context(), args[0], strict)
			if err != nil {
				return err
			}
			return printProbeValue(cmd, ctx, probeValue{Path: args[0], Field: "duration", Value: res.Value, Fallback: res.Fallback})
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail instead of falling back to 0 when the duration is unreadable")
	return cmd
}

func newProbeBitrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bitrate <file>",
		Short: "Print the container bit rate in bits per second",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			res := kit.ProbeBitrate(cmd.Context(), args[0])
			return printProbeValue(cmd, ctx, probeValue{Path: args[0], Field: "bit_rate", Value: res.Value, Fallback: res.Fallback})
		},
	}
}

func newProbeStreamsCommand(ctx *commandContext) *cobra.Command {
	var (
		streamType string
		raw        bool
	)
	cmd := &cobra.Command{
		Use:   "streams <file>",
		Short: "List the streams of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kit, err := ctx.toolkit()
			if err != nil {
				return err
			}
			dump, streams, err := kit.ProbeStreams(cmd.Context(), args[0], streamType)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case raw:
				fmt.Fprint(out, dump)
				return nil
			case ctx.flags.json:
				return json.NewEncoder(out).Encode(streams)
			}
			if len(streams) == 0 {
				fmt.Fprintln(out, "No streams found.")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Type", "Codec", "Details", "HDR"},
				streamRows(streams),
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&streamType, "select", "s", "", "Stream type to select: v, a or s")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the unparsed ffprobe output")
	return cmd
}

func streamRows(streams []mvkit.Stream) [][]string {
	rows := make([][]string, 0, len(streams))
	for _, s := range streams {
		var details string
		switch s.CodecType {
		case "video":
			details = fmt.Sprintf("%dx%d %s", s.Width, s.Height, s.PixFmt)
		case "audio":
			details = fmt.Sprintf("%d ch %d Hz", s.Channels, s.SampleRate)
		default:
			details = s.Tag("language")
		}
		hdr := ""
		if s.IsHDR() {
			hdr = "yes"
		}
		rows = append(rows, []string{strconv.Itoa(s.Index), s.CodecType, s.CodecName, details, hdr})
	}
	return rows
}
