package episode

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// Merge folds other into p, weighting numeric statistics by each
// pattern's occurrence count and unioning provenance (source episodes).
// Both patterns must share the same Kind. The receiver's ID and
// creation-order fields are kept; other is left unmodified.
func (p *Pattern) Merge(other Pattern) error {
	if p.Kind != other.Kind {
		return apperrors.NewInvalidStateError("cannot merge patterns of different kinds")
	}

	wp := float64(occurrenceWeight(*p))
	wo := float64(occurrenceWeight(other))
	total := wp + wo
	if total == 0 {
		wp, wo, total = 1, 1, 2
	}

	switch p.Kind {
	case PatternToolSequence:
		p.SuccessRate = weightedAvg(p.SuccessRate, wp, other.SuccessRate, wo, total)
		p.AvgLatency = time.Duration(weightedAvg(float64(p.AvgLatency), wp, float64(other.AvgLatency), wo, total))
		p.OccurrenceCount += other.OccurrenceCount
	case PatternDecisionPoint:
		p.OutcomeSuccesses += other.OutcomeSuccesses
		p.OutcomeTotal += other.OutcomeTotal
	case PatternErrorRecovery:
		p.RecoverySteps = unionStrings(p.RecoverySteps, other.RecoverySteps)
	case PatternContextPattern:
		p.ContextFeatures = unionStrings(p.ContextFeatures, other.ContextFeatures)
	}

	p.Effectiveness = mergeEffectiveness(p.Effectiveness, other.Effectiveness)
	p.SourceEpisodes = unionUUIDs(p.SourceEpisodes, other.SourceEpisodes)
	return nil
}

// occurrenceWeight returns the weight used to merge a pattern's
// numeric statistics: its OccurrenceCount for ToolSequence patterns,
// its OutcomeTotal for DecisionPoint patterns, and 1 (equal weighting)
// for the two variants with no natural occurrence count.
func occurrenceWeight(p Pattern) int {
	switch p.Kind {
	case PatternToolSequence:
		if p.OccurrenceCount > 0 {
			return p.OccurrenceCount
		}
		return 1
	case PatternDecisionPoint:
		if p.OutcomeTotal > 0 {
			return p.OutcomeTotal
		}
		return 1
	default:
		return 1
	}
}

func weightedAvg(a, wa, b, wb, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (a*wa + b*wb) / total
}

func mergeEffectiveness(a, b Effectiveness) Effectiveness {
	merged := Effectiveness{
		TimesRetrieved:          a.TimesRetrieved + b.TimesRetrieved,
		TimesApplied:            a.TimesApplied + b.TimesApplied,
		ApplicationSuccessCount: a.ApplicationSuccessCount + b.ApplicationSuccessCount,
		LastUsed:                a.LastUsed,
	}
	if b.LastUsed.After(merged.LastUsed) {
		merged.LastUsed = b.LastUsed
	}
	return merged
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range a {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func unionUUIDs(a, b []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(a))
	out := make([]uuid.UUID, 0, len(a)+len(b))
	for _, id := range a {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range b {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
