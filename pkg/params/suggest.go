package params

import (
	"strings"
	"unicode/utf8"
)

// maxSuggestions caps the "did you mean" list in ParameterMissingError.
const maxSuggestions = 3

// suggestKeys returns up to maxSuggestions candidates from available that
// resemble target, preserving the order of available. A candidate matches
// when its lowercased form contains the lowercased target, or vice versa,
// or when both start with the same lowercased rune.
func suggestKeys(target string, available []string) []string {
	if target == "" || len(available) == 0 {
		return nil
	}

	lowerTarget := strings.ToLower(target)
	var suggestions []string
	for _, key := range available {
		if key == "" {
			continue
		}
		if resemblesKey(lowerTarget, strings.ToLower(key)) {
			suggestions = append(suggestions, key)
			if len(suggestions) == maxSuggestions {
				break
			}
		}
	}
	return suggestions
}

// resemblesKey expects both arguments already lowercased.
func resemblesKey(target, candidate string) bool {
	if strings.Contains(candidate, target) || strings.Contains(target, candidate) {
		return true
	}
	tr, _ := utf8.DecodeRuneInString(target)
	cr, _ := utf8.DecodeRuneInString(candidate)
	return tr == cr
}
