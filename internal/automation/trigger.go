package automation

import "time"

// TriggerKind discriminates the closed set of trigger variants.
type TriggerKind string

const (
	TriggerRedeem    TriggerKind = "redeem"
	TriggerCommand   TriggerKind = "command"
	TriggerFollow    TriggerKind = "follow"
	TriggerSub       TriggerKind = "subscription"
	TriggerGiftedSub TriggerKind = "gifted_subscription"
	TriggerBits      TriggerKind = "bits"
	TriggerRaid      TriggerKind = "raid"
	TriggerTimer     TriggerKind = "timer"
	TriggerAdBreak   TriggerKind = "ad_break_begin"
	TriggerShoutout  TriggerKind = "shoutout_receive"
)

// Trigger is a tagged union; exactly one payload pointer matching Kind is set.
// Variants without configuration (follow, subscription, ...) carry no payload.
type Trigger struct {
	Kind TriggerKind `json:"kind"`

	Redeem  *RedeemTrigger  `json:"redeem,omitempty"`
	Command *CommandTrigger `json:"command,omitempty"`
	Bits    *BitsTrigger    `json:"bits,omitempty"`
	Raid    *RaidTrigger    `json:"raid,omitempty"`
	Timer   *TimerTrigger   `json:"timer,omitempty"`
}

type RedeemTrigger struct {
	RewardID string `json:"reward_id"`
}

// CommandTrigger carries the invocation text configured on the trigger
// itself. Matching is case-insensitive on the trimmed first chat token: the
// catalog folds this text into the command-word index next to the
// automation's invocation word and aliases, and lookups hit that index.
type CommandTrigger struct {
	InvocationText string `json:"invocation_text"`
}

type BitsTrigger struct {
	MinBits int64 `json:"min_bits"`
}

type RaidTrigger struct {
	MinRaiders int64 `json:"min_raiders"`
}

type TimerTrigger struct {
	IntervalSeconds int64 `json:"interval_seconds"`
	MinChatMessages int64 `json:"min_chat_messages"`
}

// Interval returns the timer period as a duration.
func (t TimerTrigger) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}
