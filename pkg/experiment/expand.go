// Package experiment plans and launches stored experiments: it expands
// scenes into samples, validates the run plan, and drives the orchestrator
// through the experiment lifecycle.
package experiment

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kotoba-lab/tessa/pkg/models"
)

// contextWindow is how many preceding segments feed a sample's context.
const contextWindow = 2

// Expand turns one scene into pipeline samples, one per segment in
// timeline order. Each sample carries the scene constraints with the
// scene's target language, and a context window over the preceding
// segments.
func Expand(scene *models.Scene) []*models.Sample {
	segments := append([]models.Segment(nil), scene.Segments...)
	sort.SliceStable(segments, func(i, j int) bool { return segments[i].T < segments[j].T })

	samples := make([]*models.Sample, 0, len(segments))
	for i, segment := range segments {
		constraints := scene.Constraints
		constraints.TargetLang = scene.LangTgt

		first := i - contextWindow
		if first < 0 {
			first = 0
		}
		samples = append(samples, &models.Sample{
			ID:          scene.SceneID + ":" + strconv.Itoa(segment.T),
			JA:          models.SourceText{Text: segment.Text, Context: renderContext(segments[first:i])},
			Constraints: &constraints,
		})
	}
	return samples
}

// ExpandScenes expands every scene, preserving scene order.
func ExpandScenes(scenes []*models.Scene) []*models.Sample {
	var samples []*models.Sample
	for _, scene := range scenes {
		samples = append(samples, Expand(scene)...)
	}
	return samples
}

// renderContext formats preceding segments one per line. Dialogue lines
// drop the kind marker; unknown speakers drop the speaker prefix.
func renderContext(segments []models.Segment) string {
	var lines []string
	for _, segment := range segments {
		var b strings.Builder
		if segment.Kind != models.SegmentKindDialogue {
			b.WriteString("[" + string(segment.Kind) + "] ")
		}
		if segment.Speaker != "" {
			b.WriteString(segment.Speaker + ": ")
		}
		b.WriteString(segment.Text)
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
