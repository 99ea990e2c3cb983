// Package filter implements the episode filter engine: a conjunctive
// multi-predicate matcher over the episode model, supporting exact,
// fuzzy, and regex text search across a configurable set of fields.
package filter

import (
	"time"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// SearchField selects which parts of an episode participate in text
// search.
type SearchField string

const (
	SearchFieldDescription SearchField = "description"
	SearchFieldSteps       SearchField = "steps"
	SearchFieldOutcome     SearchField = "outcome"
	SearchFieldTags        SearchField = "tags"
	SearchFieldDomain      SearchField = "domain"
	SearchFieldAll         SearchField = "all"
)

// SearchModeKind discriminates SearchMode's tagged union.
type SearchModeKind string

const (
	SearchModeExact SearchModeKind = "exact"
	SearchModeFuzzy SearchModeKind = "fuzzy"
	SearchModeRegex SearchModeKind = "regex"
)

// SearchMode selects how search_text is matched against candidate
// fields. Threshold is only meaningful for SearchModeFuzzy, in [0, 1].
type SearchMode struct {
	Kind      SearchModeKind
	Threshold float64
}

// Exact returns the exact-substring search mode.
func Exact() SearchMode { return SearchMode{Kind: SearchModeExact} }

// Fuzzy returns the fuzzy search mode with the given similarity threshold.
func Fuzzy(threshold float64) SearchMode { return SearchMode{Kind: SearchModeFuzzy, Threshold: threshold} }

// Regex returns the regex search mode.
func Regex() SearchMode { return SearchMode{Kind: SearchModeRegex} }

// OutcomeType mirrors episode.OutcomeKind for filter predicates, kept
// distinct so a filter can express "no outcome type constraint" simply
// by leaving the field nil.
type OutcomeType string

const (
	OutcomeTypeSuccess        OutcomeType = "success"
	OutcomeTypePartialSuccess OutcomeType = "partial_success"
	OutcomeTypeFailure        OutcomeType = "failure"
)

// Filter is a conjunction of optional predicates over an episode. A nil
// field means "no constraint"; every non-nil field must be satisfied
// for Matches to return true.
type Filter struct {
	WithAnyTags    []string
	WithAllTags    []string
	TaskTypes      []episode.TaskType
	Domains        []string
	DateFrom       *time.Time
	DateTo         *time.Time
	CompletedOnly  *bool
	ArchivedOnly   *bool
	ExcludeArchived *bool
	SuccessOnly    *bool
	OutcomeType    *OutcomeType
	MinReward      *float64
	MaxReward      *float64
	SearchText     *string
	SearchMode     *SearchMode
	SearchFields   []SearchField
}
