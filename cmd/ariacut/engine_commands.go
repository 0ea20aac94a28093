package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ariacut/internal/alignment"
	"ariacut/internal/config"
	"ariacut/internal/lyrics"
	"ariacut/internal/timecode"
	"ariacut/internal/timeline"
	"ariacut/internal/transcript"
)

func newEngineCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAlignCommand(ctx),
		newMergeCommand(ctx),
		newSanitizeCommand(ctx),
		newWindowCommand(ctx),
		newCropCommand(ctx),
	}
}

func newAlignCommand(ctx *commandContext) *cobra.Command {
	var lyricPath, guidedPath, blindPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "align",
		Short: "Align a guided transcription against a lyric",
		Long: "Align a guided transcription against a lyric. When a blind transcription is\n" +
			"given and the direct alignment lands on route C, the two are merged and the\n" +
			"better result is kept.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.engineLogger()
			aligner, err := newAligner(ctx, logger)
			if err != nil {
				return err
			}
			lyric, err := readLyric(lyricPath)
			if err != nil {
				return err
			}
			guided, err := readTranscript(guidedPath, logger)
			if err != nil {
				return err
			}
			var blind []transcript.Segment
			if strings.TrimSpace(blindPath) != "" {
				if blind, err = readTranscript(blindPath, logger); err != nil {
					return err
				}
			}
			result := aligner.Reconcile(lyric.MatchLines, guided, blind)
			return printAlignment(cmd, result, jsonOutput)
		},
	}
	cmd.Flags().StringVarP(&lyricPath, "lyrics", "l", "", "Lyric text file, one line per verse")
	cmd.Flags().StringVarP(&guidedPath, "guided", "g", "", "Guided transcription JSON")
	cmd.Flags().StringVarP(&blindPath, "blind", "b", "", "Blind transcription JSON (optional)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	_ = cmd.MarkFlagRequired("lyrics")
	_ = cmd.MarkFlagRequired("guided")
	return cmd
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var lyricPath, guidedPath, blindPath string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge blind timing with guided text",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := ctx.engineLogger()
			aligner, err := newAligner(ctx, logger)
			if err != nil {
				return err
			}
			lyric, err := readLyric(lyricPath)
			if err != nil {
				return err
			}
			guided, err := readTranscript(guidedPath, logger)
			if err != nil {
				return err
			}
			blind, err := readTranscript(blindPath, logger)
			if err != nil {
				return err
			}
			return printAlignment(cmd, aligner.Merge(blind, guided, lyric.MatchLines), jsonOutput)
		},
	}
	cmd.Flags().StringVarP(&lyricPath, "lyrics", "l", "", "Lyric text file, one line per verse")
	cmd.Flags().StringVarP(&guidedPath, "guided", "g", "", "Guided transcription JSON")
	cmd.Flags().StringVarP(&blindPath, "blind", "b", "", "Blind transcription JSON")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")
	for _, name := range []string{"lyrics", "guided", "blind"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newSanitizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize <segments.json>",
		Short: "Canonicalize timestamps and remove overlaps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segs, err := readTranscript(args[0], ctx.engineLogger())
			if err != nil {
				return err
			}
			return writeTranscript(cmd, timeline.Sanitize(segs))
		},
	}
}

func newWindowCommand(ctx *commandContext) *cobra.Command {
	var startFlag, endFlag string

	cmd := &cobra.Command{
		Use:   "window <segments.json>",
		Short: "Derive the cut window from overlay or lyric segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.engineLogger()
			segs, err := readTranscript(args[0], logger)
			if err != nil {
				return err
			}
			overrides := timeline.Overrides{FallbackSpan: cfg.Window.DefaultSpanSeconds}
			if overrides.Start, err = optionalTimestamp(startFlag); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if overrides.End, err = optionalTimestamp(endFlag); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			w := timeline.DeriveWindow(segs, overrides, logger)
			if w.IsZero() {
				return errors.New("no segments and no start override; nothing to cut")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%.3f\n", timecode.Format(w.Start), timecode.Format(w.End), w.Duration())
			return nil
		},
	}
	cmd.Flags().StringVar(&startFlag, "start", "", "Start override (timestamp or seconds)")
	cmd.Flags().StringVar(&endFlag, "end", "", "End override (timestamp or seconds)")
	return cmd
}

func newCropCommand(ctx *commandContext) *cobra.Command {
	var startFlag, endFlag string

	cmd := &cobra.Command{
		Use:   "crop <segments.json>",
		Short: "Crop segments to a window and rebase them to zero",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			segs, err := readTranscript(args[0], ctx.engineLogger())
			if err != nil {
				return err
			}
			start, err := timecode.Parse(startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := timecode.Parse(endFlag)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if end <= start {
				return fmt.Errorf("window end %s must be after start %s", timecode.Format(end), timecode.Format(start))
			}
			return writeTranscript(cmd, timeline.Crop(segs, timeline.Window{Start: start, End: end}))
		},
	}
	cmd.Flags().StringVar(&startFlag, "start", "", "Window start (timestamp or seconds)")
	cmd.Flags().StringVar(&endFlag, "end", "", "Window end (timestamp or seconds)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func newTimecodeCommand() *cobra.Command {
	timecodeCmd := &cobra.Command{
		Use:         "timecode",
		Short:       "Convert between timestamps and seconds",
		Annotations: map[string]string{"skipConfigLoad": "true"},
	}
	timecodeCmd.AddCommand(&cobra.Command{
		Use:   "parse <timestamp>...",
		Short: "Print timestamps as seconds",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				seconds, err := timecode.Parse(arg)
				if err != nil {
					return fmt.Errorf("%q: %w", arg, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(seconds, 'f', 3, 64))
			}
			return nil
		},
	})
	timecodeCmd.AddCommand(&cobra.Command{
		Use:   "format <seconds>...",
		Short: "Print seconds as HH:MM:SS,mmm",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				seconds, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
				if err != nil {
					return fmt.Errorf("%q is not a number of seconds", arg)
				}
				fmt.Fprintln(cmd.OutOrStdout(), timecode.Format(seconds))
			}
			return nil
		},
	})
	return timecodeCmd
}

func newAligner(ctx *commandContext, logger *slog.Logger) (*alignment.Aligner, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return alignerFromConfig(cfg, logger)
}

func alignerFromConfig(cfg *config.Config, logger *slog.Logger) (*alignment.Aligner, error) {
	thresholds := alignment.ThresholdsFromConfig(cfg.Alignment)
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("alignment thresholds: %w", err)
	}
	return alignment.New(alignment.WithThresholds(thresholds), alignment.WithLogger(logger)), nil
}

func readLyric(path string) (lyrics.Lyric, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return lyrics.Lyric{}, fmt.Errorf("read lyric: %w", err)
	}
	lyric := lyrics.Parse(string(data))
	if lyric.Empty() {
		return lyrics.Lyric{}, fmt.Errorf("lyric file %s has no lines", path)
	}
	return lyric, nil
}

func readTranscript(path string, logger *slog.Logger) ([]transcript.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcription: %w", err)
	}
	segs, err := transcript.Decode(data, logger)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return segs, nil
}

func writeTranscript(cmd *cobra.Command, segs []transcript.Segment) error {
	data, err := transcript.Encode(segs)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)
	return err
}

func optionalTimestamp(value string) (*float64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	seconds, err := timecode.Parse(value)
	if err != nil {
		return nil, err
	}
	return &seconds, nil
}

func printAlignment(cmd *cobra.Command, result alignment.Result, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(cmd, result)
	}
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	rows := make([][]string, 0, len(result.Segments))
	for _, seg := range result.Segments {
		rows = append(rows, []string{
			strconv.Itoa(seg.Index),
			timecode.Format(seg.Start),
			timecode.Format(seg.End),
			paint(string(seg.Flag), flagColor(seg.Flag), colorize),
			strconv.FormatFloat(seg.Confidence, 'f', 3, 64),
			string(seg.TimingSource),
			seg.FinalText,
		})
	}
	fmt.Fprint(out, renderTable(
		[]string{"#", "Start", "End", "Flag", "Conf", "Timing", "Text"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	c := result.Counts
	fmt.Fprintf(out, "Route %s  mean %.3f  high %d  medium %d  low %d  unrecognized %d  extra %d  merged %s\n",
		result.Route, result.MeanConfidence, c.High, c.Medium, c.Low, c.Unrecognized, c.Extra, yesNo(result.Merged))
	return nil
}
