package facade

import "github.com/jordigilh/kubernaut/pkg/memory/episode"

// qualityScore rates a just-completed episode on four equally weighted
// signals: whether it has enough steps to be informative, how varied
// its tool usage was, whether it carries a reflection and an outcome
// (half of that signal each), and how
// complete its task context is. The result is in [0, 1]; episodes
// scoring below Config.QualityThreshold are persisted but never
// enqueued for pattern extraction.
func qualityScore(ep *episode.Episode) float64 {
	return (stepCountScore(ep) + toolDiversityScore(ep) + reflectionScore(ep) + contextCompletenessScore(ep)) / 4
}

func stepCountScore(ep *episode.Episode) float64 {
	const target = 5
	if len(ep.Steps) >= target {
		return 1.0
	}
	return float64(len(ep.Steps)) / target
}

func toolDiversityScore(ep *episode.Episode) float64 {
	if len(ep.Steps) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(ep.Steps))
	for _, s := range ep.Steps {
		seen[s.Tool] = struct{}{}
	}
	return float64(len(seen)) / float64(len(ep.Steps))
}

func reflectionScore(ep *episode.Episode) float64 {
	score := 0.0
	if ep.Reflection != nil {
		score += 0.5
	}
	if ep.Outcome != nil {
		score += 0.5
	}
	return score
}

func contextCompletenessScore(ep *episode.Episode) float64 {
	fields := 0
	total := 4.0
	c := ep.Context
	if c.Domain != "" {
		fields++
	}
	if c.Language != "" {
		fields++
	}
	if c.Framework != "" {
		fields++
	}
	if c.Complexity != "" {
		fields++
	}
	return float64(fields) / total
}
