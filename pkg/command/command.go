// Package command dispatches in-game relay commands using brigodier.
package command

import (
	"context"
	"errors"
	"strings"

	"go.minekube.com/brigodier"
	"go.minekube.com/common/minecraft/component"
)

// Manager is a command manager for
// registering and executing relay commands.
type Manager struct{ brigodier.Dispatcher }

// Source is the invoker of a command,
// usually the player typing into chat.
type Source interface {
	// SendMessage sends a message component to the invoker.
	SendMessage(msg component.Component) error
}

// SourceFromContext retrieves the Source from a command's context.
func SourceFromContext(ctx context.Context) Source {
	src, _ := ctx.Value(sourceCtxKey).(Source)
	return src
}

// Context wraps the context for a brigodier.Command.
type Context struct {
	*brigodier.CommandContext
	Source
}

// Command wraps the context for a brigodier.Command.
func Command(fn func(c *Context) error) brigodier.Command {
	return brigodier.CommandFunc(func(c *brigodier.CommandContext) error {
		return fn(createContext(c))
	})
}

func createContext(c *brigodier.CommandContext) *Context {
	return &Context{
		CommandContext: c,
		Source:         SourceFromContext(c),
	}
}

// ParseResults are the parse results of a parsed command input.
//
// It overlays brigodier.ParseResults to make clear that Manager.Execute
// must only get parse results returned by Manager.Parse.
type ParseResults brigodier.ParseResults

// Parse stores a required command invoker Source in ctx,
// parses the command and returns parse results for use with Execute.
func (m *Manager) Parse(ctx context.Context, src Source, command string) *ParseResults {
	ctx = context.WithValue(ctx, sourceCtxKey, src)
	return (*ParseResults)(m.Dispatcher.ParseReader(ctx, &brigodier.StringReader{String: command}))
}

// Do does a Parse and Execute.
func (m *Manager) Do(ctx context.Context, src Source, command string) error {
	return m.Execute(m.Parse(ctx, src, command))
}

// Execute ensures parse context has a Source and executes it.
func (m *Manager) Execute(parse *ParseResults) error {
	if SourceFromContext(parse.Context) == nil {
		return errors.New("context misses command source")
	}
	return m.Dispatcher.Execute((*brigodier.ParseResults)(parse))
}

// Has indicates whether the specified command is registered.
func (m *Manager) Has(command string) bool {
	_, ok := m.Dispatcher.Root.Children()[strings.ToLower(command)]
	return ok
}

// Commands returns the names of all registered commands.
func (m *Manager) Commands() []string {
	children := m.Dispatcher.Root.Children()
	names := make([]string, 0, len(children))
	for name := range children {
		names = append(names, name)
	}
	return names
}

// OfferSuggestions returns completion suggestions for cmdline.
func (m *Manager) OfferSuggestions(ctx context.Context, source Source, cmdline string) ([]string, error) {
	suggestions, err := m.Dispatcher.CompletionSuggestions((*brigodier.ParseResults)(m.Parse(ctx, source, cmdline)))
	if err != nil {
		return nil, err
	}
	s := make([]string, 0, len(suggestions.Suggestions))
	for _, suggestion := range suggestions.Suggestions {
		s = append(s, suggestion.Text)
	}
	return s, nil
}

// IsUnknown reports whether err was returned for input matching no command.
func IsUnknown(err error) bool {
	return errors.Is(err, brigodier.ErrDispatcherUnknownCommand)
}

type sourceCtx struct{}

var sourceCtxKey = &sourceCtx{}
