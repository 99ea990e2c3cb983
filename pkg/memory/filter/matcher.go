package filter

import (
	"strings"

	"github.com/jordigilh/kubernaut/pkg/memory/episode"
)

// Matches reports whether ep satisfies every predicate set on f. Each
// predicate is checked in a fixed order and short-circuits on the
// first failure, mirroring a conjunctive filter chain rather than a
// generic predicate tree.
func (f *Filter) Matches(ep *episode.Episode) bool {
	if len(f.WithAnyTags) > 0 && !containsAny(ep.Context.Tags, f.WithAnyTags) {
		return false
	}

	if len(f.WithAllTags) > 0 && !containsAll(ep.Context.Tags, f.WithAllTags) {
		return false
	}

	if f.TaskTypes != nil && !containsTaskType(f.TaskTypes, ep.TaskType) {
		return false
	}

	if f.Domains != nil && !containsString(f.Domains, ep.Context.Domain) {
		return false
	}

	if f.DateFrom != nil && ep.StartTime.Before(*f.DateFrom) {
		return false
	}

	if f.DateTo != nil && ep.StartTime.After(*f.DateTo) {
		return false
	}

	if f.CompletedOnly != nil && *f.CompletedOnly && !ep.IsComplete() {
		return false
	}

	isArchived := ep.IsArchived()

	if f.ArchivedOnly != nil && *f.ArchivedOnly && !isArchived {
		return false
	}

	if f.ExcludeArchived != nil && *f.ExcludeArchived && isArchived {
		return false
	}

	if f.SuccessOnly != nil && *f.SuccessOnly {
		if ep.Outcome == nil || ep.Outcome.Kind != episode.OutcomeSuccess {
			return false
		}
	}

	if f.OutcomeType != nil {
		if ep.Outcome == nil || !outcomeTypeMatches(*f.OutcomeType, ep.Outcome.Kind) {
			return false
		}
	}

	if f.MinReward != nil {
		if ep.Reward == nil || ep.Reward.Aggregate < *f.MinReward {
			return false
		}
	}

	if f.MaxReward != nil {
		if ep.Reward == nil || ep.Reward.Aggregate > *f.MaxReward {
			return false
		}
	}

	if f.SearchText != nil && !f.matchesSearchText(ep, *f.SearchText) {
		return false
	}

	return true
}

func outcomeTypeMatches(want OutcomeType, got episode.OutcomeKind) bool {
	switch want {
	case OutcomeTypeSuccess:
		return got == episode.OutcomeSuccess
	case OutcomeTypePartialSuccess:
		return got == episode.OutcomePartialSuccess
	case OutcomeTypeFailure:
		return got == episode.OutcomeFailure
	default:
		return false
	}
}

func (f *Filter) matchesSearchText(ep *episode.Episode, search string) bool {
	mode := Exact()
	if f.SearchMode != nil {
		mode = *f.SearchMode
	}
	fields := f.SearchFields
	if len(fields) == 0 {
		fields = []SearchField{SearchFieldDescription}
	}

	texts := collectSearchableTexts(ep, fields)
	return searchInTexts(texts, search, mode)
}

func collectSearchableTexts(ep *episode.Episode, fields []SearchField) []string {
	var texts []string
	for _, field := range fields {
		switch field {
		case SearchFieldDescription:
			texts = append(texts, ep.TaskDescription)
		case SearchFieldSteps:
			texts = append(texts, collectStepTexts(ep)...)
		case SearchFieldOutcome:
			texts = append(texts, collectOutcomeText(ep)...)
		case SearchFieldTags:
			texts = append(texts, ep.Context.Tags...)
		case SearchFieldDomain:
			texts = append(texts, ep.Context.Domain)
		case SearchFieldAll:
			texts = append(texts, ep.TaskDescription)
			texts = append(texts, ep.Context.Domain)
			texts = append(texts, ep.Context.Tags...)
			texts = append(texts, collectStepTexts(ep)...)
			texts = append(texts, collectOutcomeText(ep)...)
		}
	}
	return texts
}

func collectStepTexts(ep *episode.Episode) []string {
	var texts []string
	for _, step := range ep.Steps {
		texts = append(texts, step.Action)
		if step.Result != nil {
			switch step.Result.Kind {
			case episode.StepResultSuccess:
				texts = append(texts, step.Result.Output)
			case episode.StepResultError:
				texts = append(texts, step.Result.Message)
			case episode.StepResultTimeout:
				// no text to search
			}
		}
	}
	return texts
}

func collectOutcomeText(ep *episode.Episode) []string {
	if ep.Outcome == nil {
		return nil
	}
	switch ep.Outcome.Kind {
	case episode.OutcomeSuccess, episode.OutcomePartialSuccess:
		return []string{ep.Outcome.Verdict}
	case episode.OutcomeFailure:
		return []string{ep.Outcome.Reason}
	default:
		return nil
	}
}

func searchInTexts(texts []string, query string, mode SearchMode) bool {
	switch mode.Kind {
	case SearchModeFuzzy:
		for _, text := range texts {
			if FuzzyMatches(text, query, mode.Threshold) {
				return true
			}
		}
		return false
	case SearchModeRegex:
		for _, text := range texts {
			if matches, err := RegexSearch(text, query); err == nil && len(matches) > 0 {
				return true
			}
		}
		return false
	default:
		searchLower := strings.ToLower(query)
		for _, text := range texts {
			if strings.Contains(strings.ToLower(text), searchLower) {
				return true
			}
		}
		return false
	}
}

func containsAny(haystack, any []string) bool {
	for _, want := range any {
		if containsString(haystack, want) {
			return true
		}
	}
	return false
}

func containsAll(haystack, all []string) bool {
	for _, want := range all {
		if !containsString(haystack, want) {
			return false
		}
	}
	return true
}

func containsString(haystack []string, want string) bool {
	for _, s := range haystack {
		if s == want {
			return true
		}
	}
	return false
}

func containsTaskType(haystack []episode.TaskType, want episode.TaskType) bool {
	for _, t := range haystack {
		if t == want {
			return true
		}
	}
	return false
}

// Apply returns the subset of episodes matching f, preserving order.
func (f *Filter) Apply(episodes []*episode.Episode) []*episode.Episode {
	out := make([]*episode.Episode, 0, len(episodes))
	for _, ep := range episodes {
		if f.Matches(ep) {
			out = append(out, ep)
		}
	}
	return out
}

// CountMatches counts how many episodes match f without allocating a
// result slice.
func (f *Filter) CountMatches(episodes []*episode.Episode) int {
	count := 0
	for _, ep := range episodes {
		if f.Matches(ep) {
			count++
		}
	}
	return count
}
