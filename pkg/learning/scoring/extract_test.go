package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

func completedEpisode(t *testing.T, steps []episode.ExecutionStep, kind episode.OutcomeKind) *episode.Episode {
	t.Helper()
	ep := episode.Begin(episode.TaskTypeDebugging, "fix the flaky test", episode.TaskContext{
		Domain: "ci", Language: "go", Tags: []string{"flaky"},
	})
	for _, s := range steps {
		if err := ep.AppendStep(s); err != nil {
			t.Fatalf("AppendStep: %v", err)
		}
	}
	if err := ep.Complete(episode.Outcome{Kind: kind, Verdict: "done"}, time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	return ep
}

func TestExtractToolSequenceRequiresTwoSteps(t *testing.T) {
	ep := completedEpisode(t, []episode.ExecutionStep{
		{Sequence: 1, Tool: "grep", Action: "search"},
	}, episode.OutcomeSuccess)

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, p := range patterns {
		if p.Kind == episode.PatternToolSequence {
			t.Fatalf("expected no ToolSequence pattern from a single step, got %+v", p)
		}
	}
}

func TestExtractToolSequenceFromMultipleSteps(t *testing.T) {
	ep := completedEpisode(t, []episode.ExecutionStep{
		{Sequence: 1, Tool: "grep", Action: "search", Latency: 10 * time.Millisecond},
		{Sequence: 2, Tool: "edit", Action: "patch", Latency: 20 * time.Millisecond},
	}, episode.OutcomeSuccess)

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var seq *episode.Pattern
	for _, p := range patterns {
		if p.Kind == episode.PatternToolSequence {
			seq = p
		}
	}
	if seq == nil {
		t.Fatal("expected a ToolSequence pattern")
	}
	if len(seq.Tools) != 2 || seq.Tools[0] != "grep" || seq.Tools[1] != "edit" {
		t.Fatalf("unexpected tool order: %v", seq.Tools)
	}
	if seq.SuccessRate != 1.0 {
		t.Fatalf("expected success rate 1.0, got %f", seq.SuccessRate)
	}
	if seq.AvgLatency != 15*time.Millisecond {
		t.Fatalf("expected avg latency 15ms, got %v", seq.AvgLatency)
	}
}

func TestExtractErrorRecoveryRun(t *testing.T) {
	ep := completedEpisode(t, []episode.ExecutionStep{
		{Sequence: 1, Tool: "run_tests", Action: "run", Result: &episode.StepResult{Kind: episode.StepResultError, Message: "timeout"}},
		{Sequence: 2, Tool: "increase_timeout", Action: "edit config"},
		{Sequence: 3, Tool: "run_tests", Action: "run", Result: &episode.StepResult{Kind: episode.StepResultSuccess}},
	}, episode.OutcomeSuccess)

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var recovery *episode.Pattern
	for _, p := range patterns {
		if p.Kind == episode.PatternErrorRecovery {
			recovery = p
		}
	}
	if recovery == nil {
		t.Fatal("expected an ErrorRecovery pattern")
	}
	if recovery.ErrorType != "timeout" {
		t.Fatalf("expected error_type timeout, got %q", recovery.ErrorType)
	}
	if len(recovery.RecoverySteps) != 2 || recovery.RecoverySteps[0] != "increase_timeout" {
		t.Fatalf("unexpected recovery steps: %v", recovery.RecoverySteps)
	}
}

func TestExtractDecisionPointFromObservation(t *testing.T) {
	ep := completedEpisode(t, []episode.ExecutionStep{
		{Sequence: 1, Tool: "inspect", Action: "read logs", Observation: "stack trace points to a nil map"},
		{Sequence: 2, Tool: "edit", Action: "initialize map"},
	}, episode.OutcomeSuccess)

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var dp *episode.Pattern
	for _, p := range patterns {
		if p.Kind == episode.PatternDecisionPoint {
			dp = p
		}
	}
	if dp == nil {
		t.Fatal("expected a DecisionPoint pattern")
	}
	if dp.Condition != "stack trace points to a nil map" || dp.Action != "read logs" {
		t.Fatalf("unexpected decision point: %+v", dp)
	}
	if dp.OutcomeTotal != 1 || dp.OutcomeSuccesses != 1 {
		t.Fatalf("expected a recorded success, got %+v", dp)
	}
}

func TestExtractContextPatternFoldsEnvelope(t *testing.T) {
	ep := completedEpisode(t, []episode.ExecutionStep{
		{Sequence: 1, Tool: "grep", Action: "search"},
	}, episode.OutcomeSuccess)

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	var cp *episode.Pattern
	for _, p := range patterns {
		if p.Kind == episode.PatternContextPattern {
			cp = p
		}
	}
	if cp == nil {
		t.Fatal("expected a ContextPattern")
	}
	if len(cp.ContextFeatures) == 0 {
		t.Fatal("expected non-empty context features")
	}
	if cp.SourceEpisodes[0] != ep.ID {
		t.Fatalf("expected provenance to name the source episode")
	}
}

func TestExtractEmptyContextYieldsNoContextPattern(t *testing.T) {
	ep := episode.Begin(episode.TaskTypeAnalysis, "blank context", episode.TaskContext{})
	if err := ep.AppendStep(episode.ExecutionStep{Sequence: 1, Tool: "noop"}); err != nil {
		t.Fatalf("AppendStep: %v", err)
	}
	if err := ep.Complete(episode.Outcome{Kind: episode.OutcomeFailure}, time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	patterns, err := (Extractor{}).Extract(context.Background(), ep)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for _, p := range patterns {
		if p.Kind == episode.PatternContextPattern {
			t.Fatalf("expected no ContextPattern for an empty envelope, got %+v", p)
		}
	}
}
