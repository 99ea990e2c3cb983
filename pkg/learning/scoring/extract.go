package scoring

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// Extractor turns a completed episode into the pattern candidates it
// exhibits, satisfying pkg/learning/queue's Extractor contract. It is
// the worker-side half of C13: the queue hands it one episode at a
// time, extraction runs synchronously inside the worker goroutine, and
// the caller (the queue) persists whatever patterns come back.
type Extractor struct{}

// Extract derives pattern candidates from ep. An episode contributes at
// most one ToolSequence pattern, one ContextPattern, zero or more
// ErrorRecovery patterns (one per error-to-recovery run found in its
// steps), and zero or more DecisionPoint patterns (one per step that
// recorded an observation, since an observation is the closest signal
// this data model carries to "the condition the agent weighed before
// acting"). ep must already be complete; Extract does not check this
// itself — the queue's InvalidState guard runs before Extract is ever
// called.
func (Extractor) Extract(_ context.Context, ep *episode.Episode) ([]*episode.Pattern, error) {
	var out []*episode.Pattern

	if p := toolSequencePattern(ep); p != nil {
		out = append(out, p)
	}
	out = append(out, errorRecoveryPatterns(ep)...)
	out = append(out, decisionPointPatterns(ep)...)
	if p := contextPattern(ep); p != nil {
		out = append(out, p)
	}

	return out, nil
}

func outcomeSuccessRate(ep *episode.Episode) float64 {
	if ep.Outcome == nil {
		return 0
	}
	switch ep.Outcome.Kind {
	case episode.OutcomeSuccess:
		return 1.0
	case episode.OutcomePartialSuccess:
		return 0.5
	default:
		return 0.0
	}
}

func newPatternBase(ep *episode.Episode, kind episode.PatternKind) *episode.Pattern {
	return &episode.Pattern{
		Kind:           kind,
		Context:        ep.Context,
		SourceEpisodes: []uuid.UUID{ep.ID},
		Effectiveness:  episode.Effectiveness{LastUsed: time.Now().UTC()},
	}
}

// toolSequencePattern generalizes the ordered list of tools an episode
// invoked. Episodes with fewer than two distinct steps carry no
// reusable sequence.
func toolSequencePattern(ep *episode.Episode) *episode.Pattern {
	if len(ep.Steps) < 2 {
		return nil
	}

	tools := make([]string, 0, len(ep.Steps))
	var totalLatency time.Duration
	for _, step := range ep.Steps {
		tools = append(tools, step.Tool)
		totalLatency += step.Latency
	}

	p := newPatternBase(ep, episode.PatternToolSequence)
	p.Tools = tools
	p.SuccessRate = outcomeSuccessRate(ep)
	p.AvgLatency = totalLatency / time.Duration(len(ep.Steps))
	p.OccurrenceCount = 1
	return p
}

// errorRecoveryPatterns finds every run of steps that starts with an
// error result and ends at the next successful step (or the end of the
// episode), and turns each into an ErrorRecovery candidate. A run with
// no steps after the error carries an empty RecoverySteps list — still
// useful as a record that this error type was seen and not recovered
// from.
func errorRecoveryPatterns(ep *episode.Episode) []*episode.Pattern {
	var out []*episode.Pattern

	i := 0
	for i < len(ep.Steps) {
		step := ep.Steps[i]
		if step.Result == nil || step.Result.Kind != episode.StepResultError {
			i++
			continue
		}

		errType := step.Result.Message
		if errType == "" {
			errType = "unknown"
		}

		var recovery []string
		j := i + 1
		for ; j < len(ep.Steps); j++ {
			recovery = append(recovery, ep.Steps[j].Tool)
			if ep.Steps[j].Result != nil && ep.Steps[j].Result.Kind == episode.StepResultSuccess {
				j++
				break
			}
		}

		p := newPatternBase(ep, episode.PatternErrorRecovery)
		p.ErrorType = errType
		p.RecoverySteps = recovery
		out = append(out, p)

		i = j
	}

	return out
}

// decisionPointPatterns treats each step that recorded an observation
// as a decision the agent made after observing something: the
// observation is the condition, the step's action is what it did, and
// the episode's outcome is the only evidence available for whether
// that decision paid off.
func decisionPointPatterns(ep *episode.Episode) []*episode.Pattern {
	var out []*episode.Pattern
	success := outcomeSuccessRate(ep) > 0

	for _, step := range ep.Steps {
		if step.Observation == "" {
			continue
		}
		p := newPatternBase(ep, episode.PatternDecisionPoint)
		p.Condition = step.Observation
		p.Action = step.Action
		p.OutcomeTotal = 1
		if success {
			p.OutcomeSuccesses = 1
		}
		out = append(out, p)
	}

	return out
}

// contextPattern folds the episode's situational envelope itself into
// a reusable recommendation: "in a domain/language/framework/tags like
// this one, here is what worked" — the recommendation text comes from
// the episode's reflection when present, falling back to the raw
// outcome verdict.
func contextPattern(ep *episode.Episode) *episode.Pattern {
	features := make([]string, 0, len(ep.Context.Tags)+3)
	if ep.Context.Domain != "" {
		features = append(features, "domain:"+ep.Context.Domain)
	}
	if ep.Context.Language != "" {
		features = append(features, "language:"+ep.Context.Language)
	}
	if ep.Context.Framework != "" {
		features = append(features, "framework:"+ep.Context.Framework)
	}
	features = append(features, ep.Context.Tags...)
	if len(features) == 0 {
		return nil
	}

	approach := ""
	if ep.Reflection != nil && len(ep.Reflection.Insights) > 0 {
		approach = ep.Reflection.Insights[0]
	} else if ep.Outcome != nil {
		approach = ep.Outcome.Verdict
	}

	p := newPatternBase(ep, episode.PatternContextPattern)
	p.ContextFeatures = features
	p.RecommendedApproach = approach
	p.SuccessRate = outcomeSuccessRate(ep)
	return p
}
