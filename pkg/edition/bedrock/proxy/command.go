package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sandertv/gophertunnel/minecraft/protocol/packet"
	"go.minekube.com/brigodier"
	"go.minekube.com/common/minecraft/color"
	"go.minekube.com/common/minecraft/component"
	"go.minekube.com/common/minecraft/component/codec/legacy"

	"github.com/veilmc/veil/pkg/command"
	"github.com/veilmc/veil/pkg/edition/bedrock/module"
	"github.com/veilmc/veil/pkg/internal/suggest"
	"github.com/veilmc/veil/pkg/runtime/event"
)

// commandsOwner owns the chat handler of relay commands on a session bus.
// It is not a valid module name and can never collide with one.
const commandsOwner = "veil:commands"

// relayCommands are the in-game commands typed into chat with the command prefix,
// e.g. ".toggle KillAura". They never reach the remote server.
type relayCommands struct {
	prefix   string
	registry *module.Registry
	mgr      command.Manager
}

func newRelayCommands(prefix string, registry *module.Registry) *relayCommands {
	c := &relayCommands{prefix: prefix, registry: registry}
	c.mgr.Register(c.toggleCmd())
	c.mgr.Register(c.setCmd())
	c.mgr.Register(c.modulesCmd())
	c.mgr.Register(c.helpCmd())
	return c
}

// bind intercepts chat messages starting with the command prefix.
func (c *relayCommands) bind(s *Session) {
	if c.prefix == "" {
		return
	}
	event.Subscribe(s.bus, commandsOwner, func(e *PacketOutboundEvent) {
		text, ok := e.Packet().(*packet.Text)
		if !ok || text.TextType != packet.TextTypeChat || !strings.HasPrefix(text.Message, c.prefix) {
			return
		}
		e.Cancel()
		c.execute(s, strings.TrimPrefix(text.Message, c.prefix))
	})
}

func (c *relayCommands) execute(s *Session, input string) {
	src := &chatSource{session: s}
	err := c.mgr.Do(context.Background(), src, input)
	if err == nil {
		return
	}
	var syntaxErr *brigodier.CommandSyntaxError
	switch {
	case command.IsUnknown(err):
		msg := fmt.Sprintf("Unknown command. Type %shelp for help.", c.prefix)
		name, _, _ := strings.Cut(input, " ")
		if closest, ok := suggest.Closest(name, c.mgr.Commands()); ok {
			msg = fmt.Sprintf("Unknown command. Did you mean %s%s?", c.prefix, closest)
		}
		_ = src.SendMessage(&component.Text{Content: msg, S: component.Style{Color: color.Red}})
	case errors.As(err, &syntaxErr):
		_ = src.SendMessage(&component.Text{Content: syntaxErr.Error(), S: component.Style{Color: color.Red}})
	default:
		s.log.Error(err, "error executing relay command", "input", input)
		_ = src.SendMessage(&component.Text{Content: "An internal error occurred.", S: component.Style{Color: color.Red}})
	}
}

// chatSource replies to commands with client bound raw chat messages.
type chatSource struct{ session *Session }

var _ command.Source = (*chatSource)(nil)

func (s *chatSource) SendMessage(msg component.Component) error {
	b := new(strings.Builder)
	if err := (&legacy.Legacy{}).Marshal(b, msg); err != nil {
		return err
	}
	return s.session.ClientBound(&packet.Text{
		TextType: packet.TextTypeRaw,
		Message:  b.String(),
	})
}

func (c *relayCommands) moduleArg(ctx *command.Context) (module.Module, bool) {
	name := ctx.String("module")
	m, ok := c.registry.Get(name)
	if ok {
		return m, true
	}
	msg := fmt.Sprintf("Module %q doesn't exist.", name)
	if closest, ok := suggest.Closest(name, c.registry.Names()); ok {
		msg = fmt.Sprintf("Module %q doesn't exist. Did you mean %s?", name, closest)
	}
	_ = ctx.SendMessage(&component.Text{Content: msg, S: component.Style{Color: color.Red}})
	return nil, false
}

func (c *relayCommands) moduleSuggestions() brigodier.SuggestionProvider {
	return command.SuggestNames(func(*command.Context) []string { return c.registry.Names() })
}

func (c *relayCommands) toggleCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("toggle").Then(
		brigodier.Argument("module", brigodier.String).
			Suggests(c.moduleSuggestions()).
			Executes(command.Command(func(ctx *command.Context) error {
				m, ok := c.moduleArg(ctx)
				if !ok {
					return nil
				}
				return ctx.SendMessage(moduleState(m, c.registry.Toggle(m)))
			})),
	)
}

func moduleState(m module.Module, enabled bool) component.Component {
	state := &component.Text{Content: "disabled", S: component.Style{Color: color.Red}}
	if enabled {
		state = &component.Text{Content: "enabled", S: component.Style{Color: color.Green}}
	}
	return &component.Text{
		Content: m.Name() + " ",
		S:       component.Style{Color: color.Gray},
		Extra:   []component.Component{state},
	}
}

func (c *relayCommands) setCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("set").Then(
		brigodier.Argument("module", brigodier.String).
			Suggests(c.moduleSuggestions()).
			Then(brigodier.Argument("setting", brigodier.String).
				Suggests(command.SuggestNames(func(ctx *command.Context) []string {
					if m, ok := c.registry.Get(ctx.String("module")); ok {
						return m.Settings().Names()
					}
					return nil
				})).
				Then(brigodier.Argument("value", brigodier.StringPhrase).
					Executes(command.Command(func(ctx *command.Context) error {
						m, ok := c.moduleArg(ctx)
						if !ok {
							return nil
						}
						name := ctx.String("setting")
						st, err := c.registry.Set(m, name, ctx.String("value"))
						if errors.Is(err, module.ErrUnknownSetting) {
							return ctx.SendMessage(&component.Text{
								Content: fmt.Sprintf("%s has no setting %q. Settings: %s",
									m.Name(), name, strings.Join(m.Settings().Names(), ", ")),
								S: component.Style{Color: color.Red},
							})
						}
						if err != nil {
							return ctx.SendMessage(&component.Text{Content: err.Error(), S: component.Style{Color: color.Red}})
						}
						return ctx.SendMessage(&component.Text{
							Content: fmt.Sprintf("%s %s = ", m.Name(), st.Name()),
							S:       component.Style{Color: color.Gray},
							Extra: []component.Component{&component.Text{
								Content: fmt.Sprint(st.Value()),
								S:       component.Style{Color: color.Yellow},
							}},
						})
					})),
				),
			),
	)
}

func (c *relayCommands) modulesCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("modules").
		Executes(command.Command(func(ctx *command.Context) error {
			modules := c.registry.All()
			list := &component.Text{
				Content: fmt.Sprintf("Modules (%d):", len(modules)),
				S:       component.Style{Color: color.Aqua},
			}
			for _, m := range modules {
				entry := moduleState(m, m.Enabled()).(*component.Text)
				entry.Content = "\n" + entry.Content
				if info := m.StatusInfo(); info != "" {
					entry.Extra = append(entry.Extra, &component.Text{Content: " [" + info + "]", S: component.Style{Color: color.DarkGray}})
				}
				list.Extra = append(list.Extra, entry)
			}
			return ctx.SendMessage(list)
		}))
}

func (c *relayCommands) helpCmd() brigodier.LiteralNodeBuilder {
	return brigodier.Literal("help").
		Executes(command.Command(func(ctx *command.Context) error {
			p := c.prefix
			return ctx.SendMessage(&component.Text{
				Content: "Relay commands:",
				S:       component.Style{Color: color.Aqua},
				Extra: []component.Component{
					&component.Text{Content: fmt.Sprintf("\n%stoggle <module>", p), S: component.Style{Color: color.Gray}},
					&component.Text{Content: fmt.Sprintf("\n%sset <module> <setting> <value>", p), S: component.Style{Color: color.Gray}},
					&component.Text{Content: fmt.Sprintf("\n%smodules", p), S: component.Style{Color: color.Gray}},
					&component.Text{Content: fmt.Sprintf("\n%shelp", p), S: component.Style{Color: color.Gray}},
				},
			})
		}))
}
