package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"ariacut/internal/config"
	"ariacut/internal/language"
	"ariacut/internal/queue"
	"ariacut/internal/stage"
	"ariacut/internal/timecode"
	"ariacut/internal/transcript"
)

const cliValidator = "cli"

func newEditionCommand(ctx *commandContext) *cobra.Command {
	editionCmd := &cobra.Command{
		Use:     "edition",
		Aliases: []string{"editions"},
		Short:   "Manage editions in the job store",
	}
	editionCmd.AddCommand(newEditionAddCommand(ctx))
	editionCmd.AddCommand(newEditionListCommand(ctx))
	editionCmd.AddCommand(newEditionShowCommand(ctx))
	editionCmd.AddCommand(newEditionRetryCommand(ctx))
	editionCmd.AddCommand(newEditionRemoveCommand(ctx))
	editionCmd.AddCommand(newEditionValidateCommand(ctx))
	editionCmd.AddCommand(newEditionOverlayCommand(ctx))
	return editionCmd
}

func newEditionAddCommand(ctx *commandContext) *cobra.Command {
	var req queue.NewEditionRequest

	cmd := &cobra.Command{
		Use:   "add <url>",
		Short: "Queue a performance for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SourceURL = strings.TrimSpace(args[0])
			if code, err := language.Canonical(req.Language); err == nil {
				req.Language = code
			} else {
				return fmt.Errorf("--language: %w", err)
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				edition, err := store.NewEdition(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued edition %d: %s\n", edition.ID, edition.Label())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&req.Artist, "artist", "", "Performing artist")
	cmd.Flags().StringVar(&req.Title, "title", "", "Aria or song title")
	cmd.Flags().StringVar(&req.Opera, "opera", "", "Opera the aria belongs to")
	cmd.Flags().StringVar(&req.Composer, "composer", "", "Composer")
	cmd.Flags().StringVar(&req.Category, "category", "", "Channel category")
	cmd.Flags().StringVar(&req.Language, "language", "it", "Language the aria is sung in")
	cmd.Flags().StringVar(&req.VideoID, "video-id", "", "Source video identifier")
	cmd.Flags().BoolVar(&req.Instrumental, "instrumental", false, "Skip lyrics, transcription and translation")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newEditionListCommand(ctx *commandContext) *cobra.Command {
	var statusFlags []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List editions",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]queue.Status, 0, len(statusFlags))
			for _, raw := range statusFlags {
				status, ok := queue.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q", raw)
				}
				statuses = append(statuses, status)
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				editions, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, editions)
				}
				if len(editions) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No editions")
					return nil
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Edition", "Lang", "Status", "Route", "Progress", "Updated"},
					buildEditionRows(editions),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statusFlags, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print editions as JSON")
	return cmd
}

func buildEditionRows(editions []*queue.Edition) [][]string {
	rows := make([][]string, 0, len(editions))
	for _, e := range editions {
		progress := strings.TrimSpace(e.ProgressStage)
		if e.ProgressPercent > 0 && e.ProgressPercent < 100 {
			progress = fmt.Sprintf("%s %.0f%%", progress, e.ProgressPercent)
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Label(),
			e.Language,
			string(e.Status),
			e.AlignmentRoute,
			progress,
			e.UpdatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func newEditionShowCommand(ctx *commandContext) *cobra.Command {
	var showSegments bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show an edition with its alignment, overlays and renders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEditionID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				e, err := lookupEdition(cmd, store, id)
				if err != nil {
					return err
				}
				return renderEdition(cmd, store, e, showSegments)
			})
		},
	}
	cmd.Flags().BoolVar(&showSegments, "segments", false, "Print the aligned segments")
	return cmd
}

func renderEdition(cmd *cobra.Command, store *queue.Store, e *queue.Edition, showSegments bool) error {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	for _, line := range renderSectionHeader(fmt.Sprintf("Edition %d", e.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fields := [][2]string{
		{"Edition", e.Label()},
		{"Opera", strings.TrimSpace(e.Opera + " " + e.Composer)},
		{"Language", language.DisplayName(e.Language)},
		{"Instrumental", yesNo(e.Instrumental)},
		{"Status", string(e.Status)},
		{"Resume at", string(e.ResumeStatus)},
		{"Source", e.SourceURL},
		{"Progress", strings.TrimSpace(fmt.Sprintf("%s %s", e.ProgressStage, e.ProgressMessage))},
		{"Error", e.ErrorMessage},
		{"Review", e.ReviewReason},
		{"Duration", formatSeconds(e.DurationSeconds)},
		{"Window", formatWindow(e)},
		{"Cut clip", e.CutVideoPath},
		{"Log", e.ItemLogPath},
	}
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			continue
		}
		fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f[0]+":", f[1])
	}

	ctx := cmd.Context()
	rec, err := store.LatestAlignment(ctx, e.ID)
	if err != nil {
		return err
	}
	if rec != nil {
		kind := statusWarn
		if rec.Validated {
			kind = statusOK
		}
		msg := fmt.Sprintf("route %s, mean %.3f, validated %s", rec.Route, rec.MeanConfidence, yesNo(rec.Validated))
		if rec.ValidatedBy != "" {
			msg += " by " + rec.ValidatedBy
		}
		segs, err := stage.DecodeAlignment(rec.SegmentsJSON)
		if err != nil {
			return err
		}
		review := 0
		for _, seg := range segs {
			if seg.Reviewable() {
				review++
			}
		}
		msg += fmt.Sprintf(", %d segments, %d to review", len(segs), review)
		fmt.Fprintln(out, renderStatusLine("Alignment", kind, msg, colorize))
		if showSegments {
			rows := make([][]string, 0, len(segs))
			for _, seg := range segs {
				rows = append(rows, []string{
					strconv.Itoa(seg.Index), timecode.Format(seg.Start), timecode.Format(seg.End),
					paint(string(seg.Flag), flagColor(seg.Flag), colorize), seg.FinalText,
				})
			}
			fmt.Fprint(out, renderTable([]string{"#", "Start", "End", "Flag", "Text"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft}))
		}
	}

	overlays, err := store.Overlays(ctx, e.ID)
	if err != nil {
		return err
	}
	for _, o := range overlays {
		state := "original only"
		if o.ReindexedJSON != "" {
			state = "reindexed to the cut"
		}
		fmt.Fprintln(out, renderStatusLine("Overlay "+o.Language, statusInfo, state, colorize))
	}

	translations, err := store.Translations(ctx, e.ID)
	if err != nil {
		return err
	}
	langs := make([]string, 0, len(translations))
	for lang := range translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	if len(langs) > 0 {
		fmt.Fprintln(out, renderStatusLine("Translations", statusInfo, strings.Join(langs, ", "), colorize))
	}

	renders, err := store.Renders(ctx, e.ID)
	if err != nil {
		return err
	}
	for _, r := range renders {
		kind, msg := statusOK, r.Path
		if r.Status != queue.RenderCompleted {
			kind, msg = statusError, r.ErrorMessage
		}
		fmt.Fprintln(out, renderStatusLine("Render "+r.Language, kind, msg, colorize))
	}
	return nil
}

func newEditionRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [id...]",
		Short: "Retry failed editions (or the named failed/review editions)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseEditionIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				n, err := store.Retry(cmd.Context(), ids...)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retried %d editions\n", n)
				return nil
			})
		},
	}
}

func newEditionRemoveCommand(ctx *commandContext) *cobra.Command {
	var keepFiles, force bool

	cmd := &cobra.Command{
		Use:   "remove <id>...",
		Short: "Remove editions and their working files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseEditionIDs(args)
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				for _, id := range ids {
					if !force {
						e, err := store.GetByID(cmd.Context(), id)
						if err != nil {
							return err
						}
						if e != nil && e.IsProcessing() {
							return fmt.Errorf("edition %d is %s; stop the runner or pass --force", id, e.Status)
						}
					}
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if !removed {
						fmt.Fprintf(out, "Edition %d not found\n", id)
						continue
					}
					if !keepFiles {
						if err := os.RemoveAll(cfg.EditionDir(id)); err != nil {
							return fmt.Errorf("remove working files of edition %d: %w", id, err)
						}
					}
					fmt.Fprintf(out, "Removed edition %d\n", id)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepFiles, "keep-files", false, "Keep the edition's working directory")
	cmd.Flags().BoolVar(&force, "force", false, "Remove editions even while a stage is processing them")
	return cmd
}

func newEditionValidateCommand(ctx *commandContext) *cobra.Command {
	var segmentsPath, validator, startFlag, endFlag string

	cmd := &cobra.Command{
		Use:   "validate <id>",
		Short: "Approve an edition's alignment and resume it",
		Long: "Approve the latest alignment of an edition, optionally replacing its segments\n" +
			"with a corrected JSON file and setting cut-window overrides. Editions waiting\n" +
			"in review resume at the cut stage.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEditionID(args[0])
			if err != nil {
				return err
			}
			var corrected string
			if strings.TrimSpace(segmentsPath) != "" {
				data, err := os.ReadFile(segmentsPath)
				if err != nil {
					return fmt.Errorf("read segments: %w", err)
				}
				segs, err := stage.DecodeAlignment(string(data))
				if err != nil {
					return err
				}
				if corrected, err = stage.EncodeAlignment(segs); err != nil {
					return err
				}
			}
			start, err := optionalTimestamp(startFlag)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			end, err := optionalTimestamp(endFlag)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if start != nil && end != nil && *end <= *start {
				return errors.New("--end must be after --start")
			}

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				c := cmd.Context()
				e, err := lookupEdition(cmd, store, id)
				if err != nil {
					return err
				}
				rec, err := store.LatestAlignment(c, id)
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("edition %d has no alignment yet", id)
				}
				if err := store.ValidateAlignment(c, rec.ID, corrected, validator); err != nil {
					return err
				}
				if start != nil || end != nil {
					if start != nil {
						e.WindowStartOverride = start
					}
					if end != nil {
						e.WindowEndOverride = end
					}
					if err := store.Update(c, e); err != nil {
						return err
					}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Validated alignment %d of edition %d\n", rec.ID, id)
				if e.Status == queue.StatusReview {
					if _, err := store.Retry(c, id); err != nil {
						return err
					}
					fmt.Fprintf(out, "Edition %d resumes at %s\n", id, resumeLabel(e))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&segmentsPath, "segments", "", "Corrected alignment JSON")
	cmd.Flags().StringVar(&validator, "by", cliValidator, "Reviewer name recorded with the validation")
	cmd.Flags().StringVar(&startFlag, "start", "", "Cut window start override")
	cmd.Flags().StringVar(&endFlag, "end", "", "Cut window end override")
	return cmd
}

func newEditionOverlayCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "overlay <id> <language> <overlays.json>",
		Short: "Attach editorial overlay captions to an edition",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEditionID(args[0])
			if err != nil {
				return err
			}
			lang, err := language.Canonical(args[1])
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[2])
			if err != nil {
				return fmt.Errorf("read overlays: %w", err)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				segs, err := transcript.DecodeWithHold(data, cfg.Window.OverlayHoldSeconds, ctx.engineLogger())
				if err != nil {
					return fmt.Errorf("decode overlays: %w", err)
				}
				if len(segs) == 0 {
					return errors.New("overlay file has no captions")
				}
				if _, err := lookupEdition(cmd, store, id); err != nil {
					return err
				}
				encoded, err := stage.EncodeOverlays(segs)
				if err != nil {
					return err
				}
				if err := store.SaveOverlay(cmd.Context(), id, lang, encoded); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Stored %d %s overlay captions for edition %d\n", len(segs), lang, id)
				return nil
			})
		},
	}
}

func lookupEdition(cmd *cobra.Command, store *queue.Store, id int64) (*queue.Edition, error) {
	e, err := store.GetByID(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("edition %d not found", id)
	}
	return e, nil
}

func parseEditionID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid edition id %q", raw)
	}
	return id, nil
}

func parseEditionIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseEditionID(arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func resumeLabel(e *queue.Edition) string {
	if e.ResumeStatus != "" {
		return string(e.ResumeStatus)
	}
	return string(queue.StatusPending)
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return timecode.Format(seconds)
}

func formatWindow(e *queue.Edition) string {
	var parts []string
	if e.WindowEnd > e.WindowStart {
		parts = append(parts, fmt.Sprintf("%s - %s", timecode.Format(e.WindowStart), timecode.Format(e.WindowEnd)))
	}
	if e.WindowStartOverride != nil || e.WindowEndOverride != nil {
		start, end := "auto", "auto"
		if e.WindowStartOverride != nil {
			start = timecode.Format(*e.WindowStartOverride)
		}
		if e.WindowEndOverride != nil {
			end = timecode.Format(*e.WindowEndOverride)
		}
		parts = append(parts, fmt.Sprintf("override %s - %s", start, end))
	}
	return strings.Join(parts, ", ")
}
