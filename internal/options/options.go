// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package options assembles the ProcessingConfiguration sent with a lecture
// from the user's toggles.
//
// Toggles is the editable state. It keeps every last-set value, including
// knobs whose governing card type is switched off, so re-enabling a card type
// restores its settings. Build turns Toggles into an immutable configuration
// that carries only the settings that apply.
package options

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/ojamed/pkg/types"
)

// Validation messages returned by Build.
const (
	MsgNoCardType  = "no card type selected"
	MsgNoCardLevel = "no card level selected"
)

// Toggles holds the user's option choices.
type Toggles struct {
	Basic          bool `json:"basic" yaml:"basic"`
	Cloze          bool `json:"cloze" yaml:"cloze"`
	ImageOcclusion bool `json:"image_occlusion" yaml:"image_occlusion"`

	Level1 bool `json:"level1" yaml:"level1"`
	Level2 bool `json:"level2" yaml:"level2"`
	Level3 bool `json:"level3" yaml:"level3"`

	// Occlusion is retained while ImageOcclusion is off.
	Occlusion types.OcclusionSettings `json:"occlusion" yaml:"occlusion"`

	EmphasisDetection  bool                `json:"emphasis_detection" yaml:"emphasis_detection"`
	SpeakerDiarization bool                `json:"speaker_diarization" yaml:"speaker_diarization"`
	ClipGeneration     bool                `json:"clip_generation" yaml:"clip_generation"`
	ClipLengthSeconds  int                 `json:"clip_length_seconds" yaml:"clip_length_seconds"`
	MaxClips           int                 `json:"max_clips" yaml:"max_clips"`
	AlignmentMode      types.AlignmentMode `json:"alignment_mode" yaml:"alignment_mode"`

	// AudioFile is the attached recording. Audio toggles only take effect
	// when it is set.
	AudioFile *types.SelectedFile `json:"-" yaml:"-"`

	Comprehensive bool `json:"comprehensive" yaml:"comprehensive"`
}

// DefaultToggles returns basic cards at level 1 with the service's default
// quality settings.
func DefaultToggles() Toggles {
	return Toggles{
		Basic:  true,
		Level1: true,
		Occlusion: types.OcclusionSettings{
			MaxMasksPerImage:    6,
			ConfidenceThreshold: 0.25,
			MinMaskAreaPx:       900,
			NMSIoUThreshold:     0.5,
			OverlapIoUThreshold: 0.4,
			MaskStyle:           types.MaskFill,
		},
		ClipLengthSeconds: 10,
		MaxClips:          5,
		AlignmentMode:     types.AlignSemantic,
	}
}

// SetCardType switches one card type on or off.
func (t *Toggles) SetCardType(ct types.CardType, on bool) error {
	switch ct {
	case types.CardBasic:
		t.Basic = on
	case types.CardCloze:
		t.Cloze = on
	case types.CardImageOcclusion:
		t.ImageOcclusion = on
	default:
		return types.NewValidationError("unknown card type %q", ct)
	}
	return nil
}

// SetLevel switches one card level on or off.
func (t *Toggles) SetLevel(l types.CardLevel, on bool) error {
	switch l {
	case types.Level1:
		t.Level1 = on
	case types.Level2:
		t.Level2 = on
	case types.Level3:
		t.Level3 = on
	default:
		return types.NewValidationError("unknown card level %q", l)
	}
	return nil
}

// OnlyCardTypes enables exactly the listed card types.
func (t *Toggles) OnlyCardTypes(cts []types.CardType) error {
	t.Basic, t.Cloze, t.ImageOcclusion = false, false, false
	for _, ct := range cts {
		if err := t.SetCardType(ct, true); err != nil {
			return err
		}
	}
	return nil
}

// OnlyLevels enables exactly the listed levels.
func (t *Toggles) OnlyLevels(levels []types.CardLevel) error {
	t.Level1, t.Level2, t.Level3 = false, false, false
	for _, l := range levels {
		if err := t.SetLevel(l, true); err != nil {
			return err
		}
	}
	return nil
}

// Build validates the toggles and returns the configuration to submit.
// Occlusion settings are included only when image-occlusion cards are
// enabled; audio settings only when an audio file is attached.
func Build(t Toggles) (types.ProcessingConfiguration, error) {
	var cfg types.ProcessingConfiguration

	for _, ct := range types.CardTypes {
		if t.cardType(ct) {
			cfg.CardTypes = append(cfg.CardTypes, ct)
		}
	}
	if len(cfg.CardTypes) == 0 {
		return types.ProcessingConfiguration{}, &types.ValidationError{Message: MsgNoCardType}
	}

	for _, l := range types.CardLevels {
		if t.level(l) {
			cfg.CardLevels = append(cfg.CardLevels, l)
		}
	}
	if len(cfg.CardLevels) == 0 {
		return types.ProcessingConfiguration{}, &types.ValidationError{Message: MsgNoCardLevel}
	}

	if t.ImageOcclusion {
		occ, err := occlusionSettings(t.Occlusion)
		if err != nil {
			return types.ProcessingConfiguration{}, err
		}
		cfg.Occlusion = &occ
	}

	if t.AudioFile != nil {
		audio, err := audioSettings(t)
		if err != nil {
			return types.ProcessingConfiguration{}, err
		}
		cfg.Audio = &audio
	}

	cfg.Comprehensive = t.Comprehensive
	return cfg, nil
}

func (t Toggles) cardType(ct types.CardType) bool {
	switch ct {
	case types.CardBasic:
		return t.Basic
	case types.CardCloze:
		return t.Cloze
	case types.CardImageOcclusion:
		return t.ImageOcclusion
	}
	return false
}

func (t Toggles) level(l types.CardLevel) bool {
	switch l {
	case types.Level1:
		return t.Level1
	case types.Level2:
		return t.Level2
	case types.Level3:
		return t.Level3
	}
	return false
}

func occlusionSettings(in types.OcclusionSettings) (types.OcclusionSettings, error) {
	out := in

	if out.MaxMasksPerImage < 1 || out.MaxMasksPerImage > 10 {
		return out, types.NewValidationError("max masks per image must be between 1 and 10, got %d", out.MaxMasksPerImage)
	}

	// Thresholds entered as a percentage (10-90) are normalized to a ratio.
	if out.ConfidenceThreshold >= 10 && out.ConfidenceThreshold <= 90 {
		out.ConfidenceThreshold /= 100
	}
	if out.ConfidenceThreshold < 0.1 || out.ConfidenceThreshold > 0.9 {
		return out, types.NewValidationError("confidence threshold must be between 0.1 and 0.9 (or 10-90%%), got %g", in.ConfidenceThreshold)
	}

	switch out.MaskStyle {
	case "":
		out.MaskStyle = types.MaskFill
	case types.MaskFill, types.MaskOutline, types.MaskBlur:
	default:
		return out, types.NewValidationError("mask style must be fill, outline, or blur, got %q", out.MaskStyle)
	}

	if out.MinMaskAreaPx < 0 {
		return out, types.NewValidationError("min mask area must not be negative, got %d", out.MinMaskAreaPx)
	}
	return out, nil
}

func audioSettings(t Toggles) (types.AudioSettings, error) {
	audio := types.AudioSettings{
		File:               *t.AudioFile,
		FileName:           t.AudioFile.Name,
		EmphasisDetection:  t.EmphasisDetection,
		SpeakerDiarization: t.SpeakerDiarization,
		ClipGeneration:     t.ClipGeneration,
		AlignmentMode:      t.AlignmentMode,
	}

	switch audio.AlignmentMode {
	case "":
		audio.AlignmentMode = types.AlignSemantic
	case types.AlignSemantic, types.AlignKeyword, types.AlignSemanticKeyword:
	default:
		return audio, types.NewValidationError("alignment mode must be semantic, keyword, or semantic+keyword, got %q", audio.AlignmentMode)
	}

	if t.ClipGeneration {
		if t.ClipLengthSeconds < 5 || t.ClipLengthSeconds > 30 {
			return audio, types.NewValidationError("clip length must be between 5 and 30 seconds, got %d", t.ClipLengthSeconds)
		}
		if t.MaxClips < 1 || t.MaxClips > 10 {
			return audio, types.NewValidationError("max clips must be between 1 and 10, got %d", t.MaxClips)
		}
		audio.ClipLengthSeconds = t.ClipLengthSeconds
		audio.MaxClips = t.MaxClips
	}
	return audio, nil
}

// LoadProfile reads toggles from a YAML file. Keys absent from the file keep
// their DefaultToggles values.
func LoadProfile(path string) (Toggles, error) {
	t := DefaultToggles()
	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading profile %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return t, nil
}

// SaveProfile writes toggles to a YAML file.
func SaveProfile(path string, t Toggles) error {
	data, err := yaml.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshaling profile: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
