package filter

import (
	"fmt"
	"regexp"

	apperrors "github.com/jordigilh/kubernaut/internal/errors"
)

// maxPatternLength and maxRepetitions bound the regex patterns this
// engine accepts. Go's regexp package compiles to RE2, which runs in
// time linear in input length and cannot suffer the catastrophic
// backtracking these limits originally guarded against; the caps are
// kept anyway as an explicit input-quality gate on pathological
// patterns (e.g. absurd repetition counts that would still blow up
// memory or latency even under RE2).
const (
	maxPatternLength = 1000
	maxRepetitions   = 100
)

var nestedQuantifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\([^)]*\+[^)]*\)\+`),
	regexp.MustCompile(`\([^)]*\*[^)]*\)\*`),
	regexp.MustCompile(`\([^)]*\+[^)]*\)\*`),
	regexp.MustCompile(`\([^)]*\*[^)]*\)\+`),
}

var repetitionCountPattern = regexp.MustCompile(`\{(\d+),?(\d+)?\}`)

// ValidateRegexPattern rejects empty, oversized, or pathologically
// structured patterns before compilation.
func ValidateRegexPattern(pattern string) error {
	if pattern == "" {
		return apperrors.NewInvalidInputError("regex pattern cannot be empty")
	}
	if len(pattern) > maxPatternLength {
		return apperrors.NewInvalidInputError(fmt.Sprintf("regex pattern too long (%d chars, max %d)", len(pattern), maxPatternLength))
	}

	for _, nested := range nestedQuantifierPatterns {
		if nested.MatchString(pattern) {
			return apperrors.NewInvalidInputError(fmt.Sprintf("pattern contains a nested quantifier: %s", pattern))
		}
	}

	for _, m := range repetitionCountPattern.FindAllStringSubmatch(pattern, -1) {
		if err := checkRepetitionCount(m[1]); err != nil {
			return err
		}
		if err := checkRepetitionCount(m[2]); err != nil {
			return err
		}
	}

	if _, err := regexp.Compile(pattern); err != nil {
		return apperrors.NewInvalidInputError(fmt.Sprintf("invalid regex pattern: %v", err))
	}
	return nil
}

func checkRepetitionCount(captured string) error {
	if captured == "" {
		return nil
	}
	var count int
	if _, err := fmt.Sscanf(captured, "%d", &count); err != nil {
		return nil
	}
	if count > maxRepetitions {
		return apperrors.NewInvalidInputError(fmt.Sprintf("repetition count %d exceeds maximum %d", count, maxRepetitions))
	}
	return nil
}

// RegexSearch returns every match of pattern in text as (start offset,
// matched substring) pairs, after validating the pattern.
func RegexSearch(text, pattern string) ([]RegexMatch, error) {
	if err := ValidateRegexPattern(pattern); err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperrors.NewInvalidInputError(fmt.Sprintf("failed to compile regex: %v", err))
	}

	locs := re.FindAllStringIndex(text, -1)
	matches := make([]RegexMatch, 0, len(locs))
	for _, loc := range locs {
		matches = append(matches, RegexMatch{Start: loc[0], Text: text[loc[0]:loc[1]]})
	}
	return matches, nil
}

// RegexMatch is one match returned by RegexSearch.
type RegexMatch struct {
	Start int
	Text  string
}

// RegexMatches reports whether pattern matches anywhere in text.
func RegexMatches(text, pattern string) (bool, error) {
	if err := ValidateRegexPattern(pattern); err != nil {
		return false, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, apperrors.NewInvalidInputError(fmt.Sprintf("failed to compile regex: %v", err))
	}
	return re.MatchString(text), nil
}
