// Package engine is the trigger-matching, gating, outcome-resolution and
// timer-scheduling core. It sits between the platform transport and the
// execution sinks (outcome bus, chat client, script sandbox).
package engine

import (
	"context"
	"strings"

	"showrunner/internal/automation"
	"showrunner/internal/catalog"
	"showrunner/internal/platform"
	"showrunner/internal/script"
	"showrunner/pkg/logx"
)

// CommandMatch is one command automation matched against a chat invocation.
type CommandMatch struct {
	Automation automation.Automation
	Context    script.CommandContext
}

// MatchResult is the candidate set for one platform event.
type MatchResult struct {
	Events   []automation.Automation
	Commands []CommandMatch
	Data     automation.EventData
}

// Matcher maps one raw platform event to its candidate automations plus a
// normalized event context. Catalog read failures degrade to an empty
// candidate set; absence of matches is a normal empty result.
type Matcher struct {
	catalog catalog.Catalog
	log     logx.Logger
}

func NewMatcher(cat catalog.Catalog, log logx.Logger) *Matcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Matcher{catalog: cat, log: log}
}

func (m *Matcher) Match(ctx context.Context, ev platform.Event) MatchResult {
	switch e := ev.(type) {
	case platform.Redeem:
		data := automation.EventData{
			User: userRef(e.User),
			Input: automation.EventInput{Kind: automation.InputRedeem, Redeem: &automation.RedeemInput{
				RewardID: e.RewardID, RewardName: e.RewardName, Cost: e.Cost, UserText: e.UserText,
			}},
		}
		candidates := m.byTrigger(ctx, automation.TriggerRedeem)
		matched := candidates[:0]
		for _, a := range candidates {
			if a.Trigger.Redeem != nil && a.Trigger.Redeem.RewardID == e.RewardID {
				matched = append(matched, a)
			}
		}
		return MatchResult{Events: matched, Data: data}

	case platform.CheerBits:
		data := automation.EventData{
			User: anonymousUser(e.Anonymous, e.UserID, e.UserName, e.UserDisplayName),
			Input: automation.EventInput{Kind: automation.InputBits, Bits: &automation.BitsInput{
				Bits: e.Bits, Anonymous: e.Anonymous, Message: e.Message,
			}},
		}
		candidates := m.byTrigger(ctx, automation.TriggerBits)
		matched := candidates[:0]
		for _, a := range candidates {
			if a.Trigger.Bits == nil || e.Bits >= a.Trigger.Bits.MinBits {
				matched = append(matched, a)
			}
		}
		return MatchResult{Events: matched, Data: data}

	case platform.Follow:
		data := automation.EventData{User: userRef(e.User), Input: automation.EventInput{Kind: automation.InputNone}}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerFollow), Data: data}

	case platform.Subscription:
		data := automation.EventData{
			User: userRef(e.User),
			Input: automation.EventInput{Kind: automation.InputSub, Sub: &automation.SubInput{
				Tier: e.Tier, Gifted: e.Gifted,
			}},
		}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerSub), Data: data}

	case platform.ReSubscription:
		data := automation.EventData{
			User: userRef(e.User),
			Input: automation.EventInput{Kind: automation.InputReSub, ReSub: &automation.ReSubInput{
				Tier: e.Tier, CumulativeMonths: e.CumulativeMonths,
				DurationMonths: e.DurationMonths, Message: e.Message,
			}},
		}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerSub), Data: data}

	case platform.GiftedSubscription:
		data := automation.EventData{
			User: anonymousUser(e.Anonymous, e.UserID, e.UserName, e.UserDisplayName),
			Input: automation.EventInput{Kind: automation.InputGiftSub, GiftSub: &automation.GiftSubInput{
				Tier: e.Tier, Total: e.Total, Anonymous: e.Anonymous,
			}},
		}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerGiftedSub), Data: data}

	case platform.Raid:
		data := automation.EventData{
			User:  userRef(e.User),
			Input: automation.EventInput{Kind: automation.InputRaid, Raid: &automation.RaidInput{Viewers: e.Viewers}},
		}
		candidates := m.byTrigger(ctx, automation.TriggerRaid)
		matched := candidates[:0]
		for _, a := range candidates {
			if a.Trigger.Raid == nil || e.Viewers >= a.Trigger.Raid.MinRaiders {
				matched = append(matched, a)
			}
		}
		return MatchResult{Events: matched, Data: data}

	case platform.AdBreakBegin:
		data := automation.EventData{
			Input: automation.EventInput{Kind: automation.InputAdBreak, AdBreak: &automation.AdBreakInput{
				DurationSeconds: e.DurationSeconds,
			}},
		}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerAdBreak), Data: data}

	case platform.ShoutoutReceive:
		data := automation.EventData{
			User:  userRef(e.User),
			Input: automation.EventInput{Kind: automation.InputShoutout, Shoutout: &automation.ShoutoutInput{Viewers: e.Viewers}},
		}
		return MatchResult{Events: m.byTrigger(ctx, automation.TriggerShoutout), Data: data}

	case platform.ChatMessage:
		return m.matchChat(ctx, e)

	default:
		return MatchResult{Data: automation.EventData{Input: automation.EventInput{Kind: automation.InputNone}}}
	}
}

func (m *Matcher) matchChat(ctx context.Context, e platform.ChatMessage) MatchResult {
	text := strings.TrimSpace(e.Text)
	fields := strings.Fields(text)

	data := automation.EventData{
		User: userRef(e.User),
		Input: automation.EventInput{Kind: automation.InputChat, Chat: &automation.ChatInput{
			Text: text, Fragments: e.Fragments, Cheer: e.Cheer,
		}},
	}
	if len(fields) == 0 {
		return MatchResult{Data: data}
	}

	word := strings.ToLower(strings.TrimSpace(fields[0]))
	residual := strings.TrimSpace(strings.TrimPrefix(text, fields[0]))
	args := fields[1:]

	cmds, err := m.catalog.CommandsByWord(ctx, word)
	if err != nil {
		m.log.Warn("command lookup failed", logx.String("word", word), logx.Err(err))
		return MatchResult{Data: data}
	}

	matches := make([]CommandMatch, 0, len(cmds))
	for _, a := range cmds {
		matches = append(matches, CommandMatch{
			Automation: a,
			Context: script.CommandContext{
				FullMessage: text,
				Message:     residual,
				Args:        args,
				User:        data.User,
				Input:       data.Input,
			},
		})
	}
	return MatchResult{Commands: matches, Data: data}
}

func (m *Matcher) byTrigger(ctx context.Context, kind automation.TriggerKind) []automation.Automation {
	list, err := m.catalog.AutomationsByTrigger(ctx, kind)
	if err != nil {
		// Fail-open: a flaky catalog read costs one match attempt, not the event loop.
		m.log.Warn("automation lookup failed", logx.String("kind", string(kind)), logx.Err(err))
		return nil
	}
	return list
}

func userRef(u automation.UserRef) *automation.UserRef {
	if u.ID == "" {
		return nil
	}
	cp := u
	return &cp
}

// anonymousUser drops identity when the event is anonymous or any identity
// field is absent.
func anonymousUser(anonymous bool, id, name, display string) *automation.UserRef {
	if anonymous || id == "" || name == "" || display == "" {
		return nil
	}
	return &automation.UserRef{ID: id, Name: name, DisplayName: display}
}
