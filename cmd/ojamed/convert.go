// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/ojamed/internal/download"
	"github.com/pdiddy/ojamed/internal/history"
	"github.com/pdiddy/ojamed/internal/options"
	"github.com/pdiddy/ojamed/internal/selection"
	"github.com/pdiddy/ojamed/internal/session"
	"github.com/pdiddy/ojamed/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert <lecture>",
	Short: "Convert a lecture deck into a flashcard package",
	Long: `Convert uploads a PowerPoint presentation or PDF with the chosen card
options and saves the returned archive into the output directory. Progress
is an estimate; it reaches 100% only when the service has answered.

Options start from --profile (or the defaults: basic cards, level 1) and
are then overridden by any flags given.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	addConvertFlags(convertCmd)
	rootCmd.AddCommand(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSlice("card-types", nil, "card types: basic, cloze, image-occlusion")
	f.StringSlice("levels", nil, "card levels: level1, level2, level3")
	f.Int("max-masks", 0, "image occlusion: max masks per image (1-10)")
	f.Float64("confidence", 0, "image occlusion: detection confidence, 0.1-0.9 or 10-90")
	f.Int("min-mask-area", 0, "image occlusion: minimum mask area in pixels")
	f.String("mask-style", "", "image occlusion: fill, outline, or blur")
	f.String("audio", "", "lecture recording to align with the slides")
	f.Bool("emphasis", false, "audio: detect emphasized content")
	f.Bool("diarization", false, "audio: separate speakers")
	f.Bool("clips", false, "audio: attach audio clips to cards")
	f.Int("clip-length", 0, "audio: clip length in seconds (5-30)")
	f.Int("max-clips", 0, "audio: max clips per card (1-10)")
	f.String("alignment", "", "audio: semantic, keyword, or semantic+keyword")
	f.Bool("comprehensive", false, "request the complete package (deck plus study notes)")
	f.String("profile", "", "YAML option profile (see 'ojamed profile init')")
	f.String("output-dir", "", "directory for the saved archive (default: output_dir setting)")
	f.Bool("no-history", false, "do not record the attempt in the history database")
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg := clientConfig()
	if dir, _ := cmd.Flags().GetString("output-dir"); dir != "" {
		cfg.OutputDir = dir
	}

	toggles, err := togglesFromFlags(cmd)
	if err != nil {
		return err
	}

	c, err := newClient(cfg)
	if err != nil {
		return err
	}

	opts := session.Options{
		Converter:  c,
		Dispatcher: download.Dispatcher{Dir: cfg.OutputDir},
		Logger:     logger.Named("session"),
		ResetDelay: -1,
		OnChange:   newStatusPrinter(cmd.OutOrStdout()).print,
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); !noHistory && cfg.HistoryDB != "" {
		store, err := history.Open(cfg.HistoryDB)
		if err != nil {
			logger.Warn("history disabled", zap.Error(err))
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}
	ctrl := session.New(opts)
	defer ctrl.Close()

	candidate, err := selection.FromPath(args[0])
	if err != nil {
		return err
	}
	if d := ctrl.Select(candidate); !d.Accepted {
		return d.Err()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	st, err := ctrl.Submit(ctx, toggles)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("conversion cancelled")
		}
		return err
	}
	if st.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", st.Warning)
	}
	return nil
}

// togglesFromFlags starts from --profile or the defaults and applies every
// flag the user set.
func togglesFromFlags(cmd *cobra.Command) (options.Toggles, error) {
	f := cmd.Flags()

	toggles := options.DefaultToggles()
	if path, _ := f.GetString("profile"); path != "" {
		t, err := options.LoadProfile(path)
		if err != nil {
			return toggles, err
		}
		toggles = t
	}

	if f.Changed("card-types") {
		names, _ := f.GetStringSlice("card-types")
		cts := make([]types.CardType, 0, len(names))
		for _, n := range names {
			cts = append(cts, types.CardType(n))
		}
		if err := toggles.OnlyCardTypes(cts); err != nil {
			return toggles, err
		}
	}
	if f.Changed("levels") {
		names, _ := f.GetStringSlice("levels")
		levels := make([]types.CardLevel, 0, len(names))
		for _, n := range names {
			levels = append(levels, types.CardLevel(n))
		}
		if err := toggles.OnlyLevels(levels); err != nil {
			return toggles, err
		}
	}

	if f.Changed("max-masks") {
		toggles.Occlusion.MaxMasksPerImage, _ = f.GetInt("max-masks")
	}
	if f.Changed("confidence") {
		toggles.Occlusion.ConfidenceThreshold, _ = f.GetFloat64("confidence")
	}
	if f.Changed("min-mask-area") {
		toggles.Occlusion.MinMaskAreaPx, _ = f.GetInt("min-mask-area")
	}
	if f.Changed("mask-style") {
		s, _ := f.GetString("mask-style")
		toggles.Occlusion.MaskStyle = types.MaskStyle(s)
	}

	if path, _ := f.GetString("audio"); path != "" {
		audio, err := selection.FromPath(path)
		if err != nil {
			return toggles, err
		}
		if d := selection.ValidateAudio(audio); !d.Accepted {
			return toggles, d.Err()
		}
		toggles.AudioFile = &audio
	}
	if f.Changed("emphasis") {
		toggles.EmphasisDetection, _ = f.GetBool("emphasis")
	}
	if f.Changed("diarization") {
		toggles.SpeakerDiarization, _ = f.GetBool("diarization")
	}
	if f.Changed("clips") {
		toggles.ClipGeneration, _ = f.GetBool("clips")
	}
	if f.Changed("clip-length") {
		toggles.ClipLengthSeconds, _ = f.GetInt("clip-length")
	}
	if f.Changed("max-clips") {
		toggles.MaxClips, _ = f.GetInt("max-clips")
	}
	if f.Changed("alignment") {
		s, _ := f.GetString("alignment")
		toggles.AlignmentMode = types.AlignmentMode(s)
	}
	if f.Changed("comprehensive") {
		toggles.Comprehensive, _ = f.GetBool("comprehensive")
	}
	return toggles, nil
}

// statusPrinter writes one line per visible change of the session state.
type statusPrinter struct {
	w       io.Writer
	attempt string
	last    types.Progress
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{w: w}
}

func (p *statusPrinter) print(st types.SubmissionState) {
	switch st.Phase {
	case types.PhaseSubmitting:
		if st.AttemptID != p.attempt {
			p.attempt = st.AttemptID
			p.last = types.Progress{}
			fmt.Fprintln(p.w, st.Message)
		}
		if st.Progress == p.last {
			return
		}
		p.last = st.Progress
		fmt.Fprintf(p.w, "[%3d%%] %s\n", st.Progress.Percent, st.Progress.Label)
	case types.PhaseSucceeded:
		fmt.Fprintf(p.w, "converted: %s\n", st.Message)
	case types.PhaseFailed:
		fmt.Fprintf(p.w, "failed: %s\n", st.Message)
		if st.Report != nil {
			fmt.Fprintf(p.w, "  category: %s\n  hint: %s\n", st.Report.Category, st.Report.Hint)
		}
	case types.PhaseIdle:
		if st.Message != "" {
			fmt.Fprintln(p.w, st.Message)
		}
	}
}
