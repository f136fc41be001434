// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/ojamed/internal/options"
	"github.com/pdiddy/ojamed/pkg/types"
)

func parseConvertFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "convert"}
	addConvertFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestTogglesFromFlags_Defaults(t *testing.T) {
	toggles, err := togglesFromFlags(parseConvertFlags(t))
	require.NoError(t, err)
	assert.Equal(t, options.DefaultToggles(), toggles)
}

func TestTogglesFromFlags_Overrides(t *testing.T) {
	cmd := parseConvertFlags(t,
		"--card-types", "cloze,image-occlusion",
		"--levels", "level2",
		"--confidence", "40",
		"--mask-style", "blur",
		"--comprehensive",
	)
	toggles, err := togglesFromFlags(cmd)
	require.NoError(t, err)

	cfg, err := options.Build(toggles)
	require.NoError(t, err)
	assert.Equal(t, []types.CardType{types.CardCloze, types.CardImageOcclusion}, cfg.CardTypes)
	assert.Equal(t, []types.CardLevel{types.Level2}, cfg.CardLevels)
	require.NotNil(t, cfg.Occlusion)
	assert.InDelta(t, 0.4, cfg.Occlusion.ConfidenceThreshold, 1e-9)
	assert.Equal(t, types.MaskBlur, cfg.Occlusion.MaskStyle)
	assert.True(t, cfg.Comprehensive)
}

func TestTogglesFromFlags_UnknownCardType(t *testing.T) {
	_, err := togglesFromFlags(parseConvertFlags(t, "--card-types", "essay"))
	var verr *types.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTogglesFromFlags_ProfileThenFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cloze: true\nlevel3: true\n"), 0o644))

	toggles, err := togglesFromFlags(parseConvertFlags(t, "--profile", path, "--levels", "level1"))
	require.NoError(t, err)
	assert.True(t, toggles.Basic, "profile keys not set keep defaults")
	assert.True(t, toggles.Cloze)
	assert.True(t, toggles.Level1)
	assert.False(t, toggles.Level3, "flags override the profile")
}

func TestTogglesFromFlags_RejectsNonAudio(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("text"), 0o644))

	_, err := togglesFromFlags(parseConvertFlags(t, "--audio", path))
	assert.Error(t, err)
}

func TestStatusPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newStatusPrinter(&buf)

	p.print(types.SubmissionState{Phase: types.PhaseSubmitting, AttemptID: "a1", Message: "Processing lecture.pptx"})
	p.print(types.SubmissionState{Phase: types.PhaseSubmitting, AttemptID: "a1", Progress: types.Progress{Percent: 10, Label: "Extracting"}})
	p.print(types.SubmissionState{Phase: types.PhaseSubmitting, AttemptID: "a1", Progress: types.Progress{Percent: 10, Label: "Extracting"}})
	p.print(types.SubmissionState{
		Phase:   types.PhaseFailed,
		Message: "Error generating package: 413",
		Report:  &types.ErrorReport{Category: types.CategoryPayloadTooLarge, Hint: "smaller"},
	})

	assert.Equal(t, "Processing lecture.pptx\n"+
		"[ 10%] Extracting\n"+
		"failed: Error generating package: 413\n"+
		"  category: PayloadTooLarge\n  hint: smaller\n", buf.String())
}
