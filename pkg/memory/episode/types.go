// Package episode defines the core data model of the episodic memory
// engine: Episode, TaskContext, ExecutionStep, the four-variant Pattern
// union, Heuristic, EpisodeSummary, and Embedding, along with the
// lifecycle operations that keep their invariants.
package episode

import (
	"time"

	"github.com/google/uuid"
)

// TaskType enumerates the kinds of task an episode can represent. The
// set is open-ended; values outside these constants are kept as given.
type TaskType string

const (
	TaskTypeCodeGeneration TaskType = "code_generation"
	TaskTypeDebugging      TaskType = "debugging"
	TaskTypeRefactoring    TaskType = "refactoring"
	TaskTypeTesting        TaskType = "testing"
	TaskTypeAnalysis       TaskType = "analysis"
	TaskTypeUnknown        TaskType = "unknown"
)

// Complexity is TaskContext's coarse difficulty bucket.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// TaskContext is the situational envelope an episode executes within.
type TaskContext struct {
	Domain      string   `json:"domain"`
	Language    string   `json:"language,omitempty"`
	Framework   string   `json:"framework,omitempty"`
	Complexity  Complexity `json:"complexity,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// StepResultKind discriminates ExecutionStep's result union.
type StepResultKind string

const (
	StepResultSuccess StepResultKind = "success"
	StepResultError   StepResultKind = "error"
	StepResultTimeout StepResultKind = "timeout"
)

// StepResult is the outcome of one execution step. Exactly one of the
// kind-specific fields is meaningful, selected by Kind.
type StepResult struct {
	Kind    StepResultKind `json:"kind"`
	Output  string         `json:"output,omitempty"`
	Message string         `json:"message,omitempty"`
}

// ExecutionStep is one agent action taken inside an episode. Sequence
// uniquely identifies the step within its episode and must be strictly
// monotonic across a single episode's steps.
type ExecutionStep struct {
	Sequence    int         `json:"sequence"`
	Tool        string      `json:"tool"`
	Action      string      `json:"action"`
	Result      *StepResult `json:"result,omitempty"`
	Latency     time.Duration `json:"latency"`
	TokenCount  int         `json:"token_count,omitempty"`
	Observation string      `json:"observation,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// OutcomeKind discriminates Outcome's tagged union.
type OutcomeKind string

const (
	OutcomeSuccess        OutcomeKind = "success"
	OutcomePartialSuccess OutcomeKind = "partial_success"
	OutcomeFailure        OutcomeKind = "failure"
)

// Outcome records how an episode concluded.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	Verdict      string      `json:"verdict,omitempty"`
	Artifacts    []string    `json:"artifacts,omitempty"`
	Limitations  []string    `json:"limitations,omitempty"`
	Reason       string      `json:"reason,omitempty"`
	Details      string      `json:"details,omitempty"`
}

// Reward is the scalar feedback signal attached to a completed episode.
// Aggregate and every component must fall in [0, 1].
type Reward struct {
	Components map[string]float64 `json:"components,omitempty"`
	Aggregate  float64            `json:"aggregate"`
}

// Reflection is the agent's post-hoc self-assessment of an episode.
type Reflection struct {
	Successes    []string `json:"successes,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Insights     []string `json:"insights,omitempty"`
}

// RelationKind enumerates the directed-edge types an episode can carry
// to another episode. depends_on and parent_child participate in the
// acyclic-graph invariant; the rest are advisory cross-links.
type RelationKind string

const (
	RelationParentChild RelationKind = "parent_child"
	RelationDependsOn   RelationKind = "depends_on"
	RelationFollows     RelationKind = "follows"
	RelationRelatedTo   RelationKind = "related_to"
	RelationBlocks      RelationKind = "blocks"
	RelationDuplicates  RelationKind = "duplicates"
	RelationReferences  RelationKind = "references"
)

// Relation is one directed edge from an episode to another.
type Relation struct {
	Kind   RelationKind `json:"kind"`
	Target uuid.UUID    `json:"target"`
}

// Episode is the record of one agent task execution.
type Episode struct {
	ID               uuid.UUID         `json:"id"`
	TaskType         TaskType          `json:"task_type"`
	TaskDescription  string            `json:"task_description"`
	Context          TaskContext       `json:"context"`
	Steps            []ExecutionStep   `json:"steps"`
	Outcome          *Outcome          `json:"outcome,omitempty"`
	Reward           *Reward           `json:"reward,omitempty"`
	Reflection       *Reflection       `json:"reflection,omitempty"`
	PatternIDs       []uuid.UUID       `json:"pattern_ids,omitempty"`
	HeuristicIDs     []uuid.UUID       `json:"heuristic_ids,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	Tags             []string          `json:"tags,omitempty"`
	Relations        []Relation        `json:"relations,omitempty"`
	StartTime        time.Time         `json:"start_time"`
	EndTime          *time.Time        `json:"end_time,omitempty"`

	lastSequence int
}

// PatternKind discriminates Pattern's four-variant tagged union.
type PatternKind string

const (
	PatternToolSequence   PatternKind = "tool_sequence"
	PatternDecisionPoint  PatternKind = "decision_point"
	PatternErrorRecovery  PatternKind = "error_recovery"
	PatternContextPattern PatternKind = "context_pattern"
)

// Effectiveness tracks how well a pattern has performed when retrieved
// and applied by future episodes. Every Pattern variant carries exactly
// one.
type Effectiveness struct {
	TimesRetrieved          int       `json:"times_retrieved"`
	TimesApplied            int       `json:"times_applied"`
	ApplicationSuccessCount int       `json:"application_success_count"`
	LastUsed                time.Time `json:"last_used"`
}

// SuccessRate returns ApplicationSuccessCount / TimesApplied, or 0 if
// the pattern has never been applied.
func (e Effectiveness) SuccessRate() float64 {
	if e.TimesApplied == 0 {
		return 0
	}
	return float64(e.ApplicationSuccessCount) / float64(e.TimesApplied)
}

// Pattern is a reusable generalization extracted from one or more
// episodes. It is realized as a single struct with a Kind discriminant
// rather than an interface hierarchy, matching the teacher's
// closed-sum-type idiom: only the fields relevant to Kind are
// meaningful, the rest are the variant's zero value.
type Pattern struct {
	ID   uuid.UUID   `json:"id"`
	Kind PatternKind `json:"kind"`

	// ToolSequence fields.
	Tools           []string `json:"tools,omitempty"`
	SuccessRate     float64  `json:"success_rate,omitempty"`
	AvgLatency      time.Duration `json:"avg_latency,omitempty"`
	OccurrenceCount int      `json:"occurrence_count,omitempty"`

	// DecisionPoint fields.
	Condition        string `json:"condition,omitempty"`
	Action           string `json:"action,omitempty"`
	OutcomeSuccesses int    `json:"outcome_successes,omitempty"`
	OutcomeTotal     int    `json:"outcome_total,omitempty"`

	// ErrorRecovery fields.
	ErrorType     string   `json:"error_type,omitempty"`
	RecoverySteps []string `json:"recovery_steps,omitempty"`

	// ContextPattern fields.
	ContextFeatures     []string `json:"context_features,omitempty"`
	RecommendedApproach string   `json:"recommended_approach,omitempty"`

	// Shared across variants.
	Context       TaskContext   `json:"context"`
	Effectiveness Effectiveness `json:"effectiveness"`
	SourceEpisodes []uuid.UUID  `json:"source_episodes,omitempty"`
}

// Heuristic is a condition/action rule distilled from accumulated
// episode evidence.
type Heuristic struct {
	ID          uuid.UUID `json:"id"`
	Condition   string    `json:"condition"`
	Action      string    `json:"action"`
	Confidence  float64   `json:"confidence"`
	EpisodeIDs  []uuid.UUID `json:"episode_ids"`
	SuccessRate float64   `json:"success_rate"`
	SampleSize  int       `json:"sample_size"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EpisodeSummary is a condensed projection of an Episode used for
// display and lexical search.
type EpisodeSummary struct {
	EpisodeID        uuid.UUID `json:"episode_id"`
	SummaryText      string    `json:"summary_text"`
	KeyConcepts      []string  `json:"key_concepts,omitempty"`
	KeySteps         []string  `json:"key_steps,omitempty"`
	SummaryEmbedding []float32 `json:"summary_embedding,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// MaxEmbeddingBytes bounds the serialized size of a single Embedding,
// per the storage contract's 64 KiB cap.
const MaxEmbeddingBytes = 64 * 1024

// Embedding is a fixed-dimension vector keyed by a stable string id
// (episode id, pattern id, or query hash).
type Embedding struct {
	Key       string    `json:"key"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}
