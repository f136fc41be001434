// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// CardType is a flashcard format produced by the conversion service.
type CardType string

const (
	CardBasic          CardType = "basic"
	CardCloze          CardType = "cloze"
	CardImageOcclusion CardType = "image-occlusion"
)

// CardTypes lists every card type in display order.
var CardTypes = []CardType{CardBasic, CardCloze, CardImageOcclusion}

// CardLevel is the difficulty tier assigned to generated cards.
type CardLevel string

const (
	Level1 CardLevel = "level1"
	Level2 CardLevel = "level2"
	Level3 CardLevel = "level3"
)

// CardLevels lists every card level in display order.
var CardLevels = []CardLevel{Level1, Level2, Level3}

// MaskStyle controls how occluded regions are drawn.
type MaskStyle string

const (
	MaskFill    MaskStyle = "fill"
	MaskOutline MaskStyle = "outline"
	MaskBlur    MaskStyle = "blur"
)

// AlignmentMode selects how audio segments are matched to slides.
type AlignmentMode string

const (
	AlignSemantic        AlignmentMode = "semantic"
	AlignKeyword         AlignmentMode = "keyword"
	AlignSemanticKeyword AlignmentMode = "semantic+keyword"
)

// OcclusionSettings are the quality knobs for image-occlusion cards.
type OcclusionSettings struct {
	// MaxMasksPerImage caps the number of masked regions per image (1-10).
	MaxMasksPerImage int `json:"max_masks_per_image" yaml:"max_masks_per_image"`

	// ConfidenceThreshold is the minimum detection confidence (0.1-0.9).
	ConfidenceThreshold float64 `json:"confidence_threshold" yaml:"confidence_threshold"`

	// MinMaskAreaPx drops detected regions smaller than this many pixels.
	MinMaskAreaPx int `json:"min_mask_area_px" yaml:"min_mask_area_px"`

	// NMSIoUThreshold is the non-maximum suppression overlap threshold.
	NMSIoUThreshold float64 `json:"nms_iou_threshold" yaml:"nms_iou_threshold"`

	// OverlapIoUThreshold merges masks overlapping more than this ratio.
	OverlapIoUThreshold float64 `json:"overlap_iou_threshold" yaml:"overlap_iou_threshold"`

	MaskStyle MaskStyle `json:"mask_style" yaml:"mask_style"`
}

// AudioSettings configure lecture-audio processing. They are only part of a
// ProcessingConfiguration when an audio file is attached.
type AudioSettings struct {
	// File is the attached recording. It travels as its own multipart part,
	// not inside the serialized configuration.
	File SelectedFile `json:"-" yaml:"-"`

	// FileName echoes File.Name so the service can correlate the part.
	FileName string `json:"file_name" yaml:"file_name"`

	EmphasisDetection  bool `json:"emphasis_detection" yaml:"emphasis_detection"`
	SpeakerDiarization bool `json:"speaker_diarization" yaml:"speaker_diarization"`
	ClipGeneration     bool `json:"clip_generation" yaml:"clip_generation"`

	// ClipLengthSeconds and MaxClips are zero unless ClipGeneration is set.
	ClipLengthSeconds int `json:"clip_length_seconds,omitempty" yaml:"clip_length_seconds,omitempty"`
	MaxClips          int `json:"max_clips,omitempty" yaml:"max_clips,omitempty"`

	AlignmentMode AlignmentMode `json:"alignment_mode" yaml:"alignment_mode"`
}

// ProcessingConfiguration is the request configuration sent with a lecture.
// Values are built by the options package and are not modified afterwards.
type ProcessingConfiguration struct {
	CardTypes  []CardType  `json:"card_types" yaml:"card_types"`
	CardLevels []CardLevel `json:"card_levels" yaml:"card_levels"`

	// Occlusion is nil unless image-occlusion cards are enabled.
	Occlusion *OcclusionSettings `json:"occlusion,omitempty" yaml:"occlusion,omitempty"`

	// Audio is nil unless an audio file is attached.
	Audio *AudioSettings `json:"audio,omitempty" yaml:"audio,omitempty"`

	// Comprehensive requests the complete package (deck, CSV, and PDF notes).
	Comprehensive bool `json:"comprehensive" yaml:"comprehensive"`
}

// HasCardType reports whether t is enabled.
func (c ProcessingConfiguration) HasCardType(t CardType) bool {
	for _, ct := range c.CardTypes {
		if ct == t {
			return true
		}
	}
	return false
}
