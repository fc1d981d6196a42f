// Package suggest ranks candidate names by their similarity to a given input.
package suggest

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"go.minekube.com/brigodier"
)

type suggestion struct {
	text  string
	score float64
}

// minScore is the similarity below which a candidate is not suggested.
const minScore = 0.2

// Build adds the candidates most similar to the last argument of input to builder.
func Build(builder *brigodier.SuggestionsBuilder, input string, candidates []string) *brigodier.Suggestions {
	given := input[strings.LastIndex(input, " ")+1:]
	for _, s := range rank(given, candidates, Score) {
		builder.Suggest(s.text)
	}
	return builder.Build()
}

// Closest returns the candidate most similar to given as a whole,
// case-insensitively. It returns false if no candidate is similar enough.
func Closest(given string, candidates []string) (string, bool) {
	result := rank(strings.ToLower(given), candidates, func(given, c string) float64 {
		return levenshtein.Similarity(given, strings.ToLower(c), nil)
	})
	if len(result) == 0 || result[0].score < 0.5 {
		return "", false
	}
	return result[0].text, true
}

func rank(given string, candidates []string, score func(given, candidate string) float64) []suggestion {
	var result []suggestion
	for _, text := range candidates {
		s := score(given, text)
		if s < minScore {
			continue
		}
		result = append(result, suggestion{
			text:  text,
			score: s,
		})
	}
	sortSuggestions(result)
	return result
}

func sortSuggestions(s []suggestion) {
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].score > s[j].score
	})
}

// Score rates how well suggestion completes the prefix given.
func Score(given, suggestion string) float64 {
	i := len(given)
	if len(suggestion) < i {
		i = len(suggestion)
	}
	return levenshtein.Similarity(strings.ToLower(given), strings.ToLower(suggestion[:i]), nil)
}

type ProviderFunc func(
	c *brigodier.CommandContext,
	b *brigodier.SuggestionsBuilder) *brigodier.Suggestions

var _ brigodier.SuggestionProvider = (*ProviderFunc)(nil)

func (s ProviderFunc) Suggestions(
	c *brigodier.CommandContext,
	b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
	return s(c, b)
}
