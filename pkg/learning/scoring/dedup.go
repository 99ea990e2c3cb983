package scoring

import (
	"github.com/jordigilh/kubernaut/pkg/memory/episode"
	"github.com/jordigilh/kubernaut/pkg/shared/mathutil"
)

// DefaultDeduplicationThreshold is the similarity above which two
// candidate patterns of the same kind are folded together rather than
// kept as distinct entries.
const DefaultDeduplicationThreshold = 0.8

// Deduplicate folds candidates into a smaller set: for each pattern,
// in order, if its signature similarity to any already-kept pattern of
// the same kind is at or above threshold, it is merged into that one
// (episode.Pattern.Merge); otherwise it starts a new kept entry.
// candidates are not mutated; Deduplicate copies each before folding.
func Deduplicate(candidates []*episode.Pattern, threshold float64) []*episode.Pattern {
	kept := make([]*episode.Pattern, 0, len(candidates))
	for _, c := range candidates {
		candidate := *c
		merged := false
		for _, k := range kept {
			if k.Kind != candidate.Kind {
				continue
			}
			if signatureSimilarity(*k, candidate) >= threshold {
				_ = k.Merge(candidate)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, &candidate)
		}
	}
	return kept
}

// signatureSimilarity compares two patterns of the same kind using the
// per-variant signature the spec calls out: tool-list equality plus
// context-tag Jaccard for ToolSequence, condition-text equality for
// DecisionPoint, error_type equality plus recovery-step Jaccard for
// ErrorRecovery, and context_features Jaccard for ContextPattern.
func signatureSimilarity(a, b episode.Pattern) float64 {
	switch a.Kind {
	case episode.PatternToolSequence:
		toolSim := 0.0
		if stringSlicesEqual(a.Tools, b.Tools) {
			toolSim = 1.0
		}
		return (toolSim + mathutil.JaccardSimilarity(a.Context.Tags, b.Context.Tags)) / 2
	case episode.PatternDecisionPoint:
		if a.Condition == b.Condition {
			return 1.0
		}
		return 0.0
	case episode.PatternErrorRecovery:
		errSim := 0.0
		if a.ErrorType == b.ErrorType {
			errSim = 1.0
		}
		return (errSim + mathutil.JaccardSimilarity(a.RecoverySteps, b.RecoverySteps)) / 2
	case episode.PatternContextPattern:
		return mathutil.JaccardSimilarity(a.ContextFeatures, b.ContextFeatures)
	default:
		return 0.0
	}
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
