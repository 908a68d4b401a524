// Package models defines the entities shared across the evaluation
// pipeline: scenes and samples on the input side, constraints and state in
// the middle, and the RunRecord written for every (sample, condition) pair.
package models

// SegmentKind classifies a scene segment.
type SegmentKind string

const (
	// SegmentKindNarration is descriptive prose.
	SegmentKindNarration SegmentKind = "narration"
	// SegmentKindDialogue is a spoken line, usually with a speaker.
	SegmentKindDialogue SegmentKind = "dialogue"
	// SegmentKindSFX is an onomatopoeia or sound-effect cue.
	SegmentKindSFX SegmentKind = "sfx"
)

// IsValid checks if the segment kind is valid.
func (k SegmentKind) IsValid() bool {
	return k == SegmentKindNarration || k == SegmentKindDialogue || k == SegmentKindSFX
}

// Segment is one translatable unit of a scene; order is defined by T.
type Segment struct {
	T       int         `json:"t"`
	Kind    SegmentKind `json:"kind"`
	Speaker string      `json:"speaker,omitempty"`
	Text    string      `json:"text"`
}

// Scene is a source narrative unit bundling ordered segments with shared
// constraints and metadata. Scenes are immutable during an experiment.
type Scene struct {
	SceneID     string          `json:"sceneId"`
	LangSrc     string          `json:"langSrc"`
	LangTgt     string          `json:"langTgt"`
	Segments    []Segment       `json:"segments"`
	World       map[string]any  `json:"world,omitempty"`
	Characters  map[string]any  `json:"characters,omitempty"`
	Constraints ConstraintPatch `json:"constraints,omitempty"`
	EvalTargets []string        `json:"evalTargets,omitempty"`
	Split       string          `json:"split,omitempty"`
	Tags        []string        `json:"tags,omitempty"`
}

// SourceText is the Japanese side of a sample: the segment text plus the
// preceding context window.
type SourceText struct {
	Text    string `json:"text"`
	Context string `json:"context,omitempty"`
}

// Reference carries an optional gold translation. It is visible to the
// judge only, never to the translator or verifier.
type Reference struct {
	En string `json:"en"`
}

// Sample is one (scene, segment) pairing presented to the pipeline. The
// same shape serves dataset JSONL rows and driver-expanded scene segments.
type Sample struct {
	ID          string           `json:"id"`
	JA          SourceText       `json:"ja"`
	Constraints *ConstraintPatch `json:"constraints,omitempty"`
	Reference   *Reference       `json:"reference,omitempty"`
}
