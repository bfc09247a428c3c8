package engine

import (
	"context"
	"fmt"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/chat"
	"showrunner/internal/eventbus"
	"showrunner/internal/script"
	"showrunner/pkg/logx"
)

// Emote is one channel emote usable as an ephemeral throwable.
type Emote struct {
	ID       string
	Name     string
	ImageURL string
}

// EmoteProvider fetches a user's channel emote set from the platform API.
type EmoteProvider interface {
	ChannelEmotes(ctx context.Context, userID string) ([]Emote, error)
}

// Resolver turns a gated automation's configured outcome plus the event
// context into a concrete bus message, or performs the side effect in-band
// (chat sends, script runs) and returns nil.
type Resolver struct {
	catalog catalog.Catalog
	chat    chat.Sender
	scripts script.Runner
	emotes  EmoteProvider
	log     logx.Logger
}

func NewResolver(cat catalog.Catalog, sender chat.Sender, runner script.Runner, emotes EmoteProvider, log logx.Logger) *Resolver {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Resolver{catalog: cat, chat: sender, scripts: runner, emotes: emotes, log: log}
}

// Resolve handles event-triggered automations.
func (r *Resolver) Resolve(ctx context.Context, a automation.Automation, data automation.EventData) (*eventbus.Message, error) {
	return r.resolve(ctx, a, data, nil)
}

// ResolveCommand handles command-triggered automations: script outcomes get
// the command invocation context, everything else resolves as usual.
func (r *Resolver) ResolveCommand(ctx context.Context, a automation.Automation, data automation.EventData, cmd script.CommandContext) (*eventbus.Message, error) {
	return r.resolve(ctx, a, data, &cmd)
}

func (r *Resolver) resolve(ctx context.Context, a automation.Automation, data automation.EventData, cmd *script.CommandContext) (*eventbus.Message, error) {
	out := a.Outcome
	switch out.Kind {
	case automation.OutcomeThrowBits:
		if out.ThrowBits == nil {
			return nil, fmt.Errorf("automation %s: throw_bits outcome without payload", a.ID)
		}
		return r.resolveThrowBits(ctx, *out.ThrowBits, data)

	case automation.OutcomeThrowable:
		if out.Throwable == nil {
			return nil, fmt.Errorf("automation %s: throwable outcome without payload", a.ID)
		}
		return r.resolveThrowable(ctx, *out.Throwable, data)

	case automation.OutcomeTriggerHotkey:
		if out.TriggerHotkey == nil {
			return nil, fmt.Errorf("automation %s: hotkey outcome without payload", a.ID)
		}
		msg := eventbus.NewTriggerHotkey(out.TriggerHotkey.HotkeyID)
		return &msg, nil

	case automation.OutcomePlaySound:
		if out.PlaySound == nil {
			return nil, fmt.Errorf("automation %s: play_sound outcome without payload", a.ID)
		}
		snd, err := r.catalog.Sound(ctx, out.PlaySound.SoundID)
		if err != nil {
			return nil, err
		}
		msg := eventbus.NewPlaySound(*snd)
		return &msg, nil

	case automation.OutcomeSendChat:
		if out.SendChat == nil {
			return nil, fmt.Errorf("automation %s: send_chat outcome without payload", a.ID)
		}
		text := renderTemplate(out.SendChat.Template, data)
		return nil, r.chat.Send(ctx, text)

	case automation.OutcomeScript:
		if out.Script == nil {
			return nil, fmt.Errorf("automation %s: script outcome without payload", a.ID)
		}
		if cmd != nil {
			return nil, r.scripts.ExecuteCommand(ctx, a.ID, out.Script.Source, *cmd)
		}
		return nil, r.scripts.Execute(ctx, a.ID, out.Script.Source, a.Trigger.Kind, data)

	case automation.OutcomeChannelEmotes:
		if out.ChannelEmotes == nil {
			return nil, fmt.Errorf("automation %s: channel_emotes outcome without payload", a.ID)
		}
		return r.resolveChannelEmotes(ctx, *out.ChannelEmotes, data)

	default:
		return nil, fmt.Errorf("automation %s: unknown outcome kind %q", a.ID, out.Kind)
	}
}

func (r *Resolver) resolveThrowBits(ctx context.Context, cfg automation.ThrowBitsOutcome, data automation.EventData) (*eventbus.Message, error) {
	var bits int64
	if data.Input.Kind == automation.InputBits && data.Input.Bits != nil {
		bits = data.Input.Bits.Bits
	}

	var spec eventbus.ThrowSpec
	if iconID, ok := resolveTierIcon(cfg.TierIcons, bits); ok {
		items, err := r.catalog.Items(ctx, []string{iconID})
		if err != nil {
			return nil, err
		}
		if len(items) > 0 {
			sounds, err := r.catalog.SoundsByIDs(ctx, items[0].ImpactSounds)
			if err != nil {
				return nil, err
			}
			spec = eventbus.ThrowSpec{Item: items[0], Sounds: sounds}
		}
	}
	if spec.Item.ID == "" {
		// No configured icon survived; use the built-in for this bracket.
		spec = eventbus.ThrowSpec{Item: defaultBitIcon(bits), Sounds: defaultImpactSounds}
	}

	behavior := eventbus.ThrowBehavior{Kind: eventbus.ThrowAll, Amount: resolveBitsAmount(cfg.Amount, bits)}
	msg := eventbus.NewThrowItem([]eventbus.ThrowSpec{spec}, behavior)
	return &msg, nil
}

func (r *Resolver) resolveThrowable(ctx context.Context, cfg automation.ThrowableOutcome, data automation.EventData) (*eventbus.Message, error) {
	items, err := r.catalog.Items(ctx, cfg.ItemIDs)
	if err != nil {
		return nil, err
	}
	specs := make([]eventbus.ThrowSpec, 0, len(items))
	for _, it := range items {
		sounds, err := r.catalog.SoundsByIDs(ctx, it.ImpactSounds)
		if err != nil {
			return nil, err
		}
		specs = append(specs, eventbus.ThrowSpec{Item: it, Sounds: sounds})
	}
	msg := eventbus.NewThrowItem(specs, throwBehavior(cfg.Amount, data))
	return &msg, nil
}

func (r *Resolver) resolveChannelEmotes(ctx context.Context, cfg automation.ChannelEmotesOutcome, data automation.EventData) (*eventbus.Message, error) {
	if data.User == nil || data.User.ID == "" {
		return nil, fmt.Errorf("channel_emotes outcome requires a resolved user")
	}
	if r.emotes == nil {
		return nil, fmt.Errorf("channel_emotes outcome: no emote provider configured")
	}
	emotes, err := r.emotes.ChannelEmotes(ctx, data.User.ID)
	if err != nil {
		return nil, err
	}

	specs := make([]eventbus.ThrowSpec, 0, len(emotes))
	for _, e := range emotes {
		item := automation.Item{
			ID:       "emote:" + e.ID,
			Name:     e.Name,
			ImageURL: e.ImageURL,
			Scale:    1,
		}
		specs = append(specs, eventbus.ThrowSpec{Item: item, Sounds: defaultImpactSounds})
	}
	msg := eventbus.NewThrowItem(specs, throwBehavior(cfg.Amount, data))
	return &msg, nil
}
