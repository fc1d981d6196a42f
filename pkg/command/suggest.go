package command

import (
	"go.minekube.com/brigodier"

	"github.com/veilmc/veil/pkg/internal/suggest"
)

// SuggestFunc provides argument suggestions from a command Context.
type SuggestFunc func(c *Context, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions

var _ brigodier.SuggestionProvider = SuggestFunc(nil)

// Suggestions implements brigodier.SuggestionProvider.
func (s SuggestFunc) Suggestions(c *brigodier.CommandContext, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
	return s(createContext(c), b)
}

// SuggestNames suggests the names returned by names that are close to the typed argument.
// A nil result suggests nothing.
func SuggestNames(names func(c *Context) []string) SuggestFunc {
	return func(c *Context, b *brigodier.SuggestionsBuilder) *brigodier.Suggestions {
		candidates := names(c)
		if len(candidates) == 0 {
			return b.Build()
		}
		return suggest.Build(b, b.Input, candidates)
	}
}
