package episode

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// Begin creates a new Episode in progress, stamping its id and start
// time. The episode has no steps and no outcome until later calls.
func Begin(taskType TaskType, description string, context TaskContext) *Episode {
	return &Episode{
		ID:              uuid.New(),
		TaskType:        taskType,
		TaskDescription: description,
		Context:         context,
		Steps:           nil,
		Metadata:        make(map[string]string),
		StartTime:       time.Now().UTC(),
	}
}

// IsComplete reports whether the episode has an outcome attached.
func (e *Episode) IsComplete() bool {
	return e.Outcome != nil
}

// IsArchived reports whether the episode carries the archived_at
// metadata marker.
func (e *Episode) IsArchived() bool {
	_, ok := e.Metadata["archived_at"]
	return ok
}

// Archive sets the archived_at metadata marker to the given time. It
// applies whether or not the episode is complete.
func (e *Episode) Archive(at time.Time) {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata["archived_at"] = at.UTC().Format(time.RFC3339)
}

// AppendStep appends an execution step to the episode. The step's
// Sequence must be strictly greater than the sequence of every
// previously appended step; AppendStep rejects the call once the
// episode is complete.
func (e *Episode) AppendStep(step ExecutionStep) error {
	if e.IsComplete() {
		return apperrors.NewInvalidStateError("cannot append a step to a completed episode")
	}
	if len(e.Steps) > 0 && step.Sequence <= e.lastSequence {
		return apperrors.NewInvalidInputError("step sequence numbers must be strictly monotonic")
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now().UTC()
	}
	e.Steps = append(e.Steps, step)
	e.lastSequence = step.Sequence
	return nil
}

// Complete attaches the episode's outcome, freezing task_description
// and context, and stamps end_time. end_time must not precede
// start_time. Calling Complete on an already-complete episode fails.
func (e *Episode) Complete(outcome Outcome, endTime time.Time) error {
	if e.IsComplete() {
		return apperrors.NewInvalidStateError("episode is already complete")
	}
	if endTime.Before(e.StartTime) {
		return apperrors.NewInvalidInputError("end_time must not precede start_time")
	}
	e.Outcome = &outcome
	t := endTime.UTC()
	e.EndTime = &t
	return nil
}

// AttachReward attaches a reward score to a completed episode. Every
// component and the aggregate must fall within [0, 1].
func (e *Episode) AttachReward(reward Reward) error {
	if !e.IsComplete() {
		return apperrors.NewInvalidStateError("cannot attach a reward before the episode is complete")
	}
	if reward.Aggregate < 0 || reward.Aggregate > 1 {
		return apperrors.NewInvalidInputError("reward aggregate must be in [0, 1]")
	}
	for name, v := range reward.Components {
		if v < 0 || v > 1 {
			return apperrors.NewInvalidInputError("reward component " + name + " must be in [0, 1]")
		}
	}
	e.Reward = &reward
	return nil
}

// AttachReflection attaches a post-hoc self-assessment to a completed
// episode.
func (e *Episode) AttachReflection(reflection Reflection) error {
	if !e.IsComplete() {
		return apperrors.NewInvalidStateError("cannot attach a reflection before the episode is complete")
	}
	e.Reflection = &reflection
	return nil
}

// AddRelation appends a directed relation to another episode. For the
// two kinds that participate in the acyclic graph (depends_on,
// parent_child), the caller must use RelationGraph.Add instead, which
// rejects edges that would introduce a cycle; AddRelation itself does
// not check for cycles and is safe for the advisory relation kinds.
func (e *Episode) AddRelation(kind RelationKind, target uuid.UUID) {
	e.Relations = append(e.Relations, Relation{Kind: kind, Target: target})
}

// LastSequence returns the sequence number of the most recently
// appended step, or -1 if the episode has no steps.
func (e *Episode) LastSequence() int {
	if len(e.Steps) == 0 {
		return -1
	}
	return e.lastSequence
}
