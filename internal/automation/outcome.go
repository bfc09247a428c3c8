package automation

import "time"

// OutcomeKind discriminates the closed set of outcome variants.
type OutcomeKind string

const (
	OutcomeThrowBits     OutcomeKind = "throw_bits"
	OutcomeThrowable     OutcomeKind = "throwable"
	OutcomeTriggerHotkey OutcomeKind = "trigger_hotkey"
	OutcomePlaySound     OutcomeKind = "play_sound"
	OutcomeSendChat      OutcomeKind = "send_chat_message"
	OutcomeScript        OutcomeKind = "script"
	OutcomeChannelEmotes OutcomeKind = "channel_emotes"
)

// Outcome is a tagged union; exactly one payload pointer matching Kind is set.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`

	ThrowBits     *ThrowBitsOutcome     `json:"throw_bits,omitempty"`
	Throwable     *ThrowableOutcome     `json:"throwable,omitempty"`
	TriggerHotkey *TriggerHotkeyOutcome `json:"trigger_hotkey,omitempty"`
	PlaySound     *PlaySoundOutcome     `json:"play_sound,omitempty"`
	SendChat      *SendChatOutcome      `json:"send_chat,omitempty"`
	Script        *ScriptOutcome        `json:"script,omitempty"`
	ChannelEmotes *ChannelEmotesOutcome `json:"channel_emotes,omitempty"`
}

// ThrowBitsOutcome throws a bit icon picked by cheer tier. TierIcons holds one
// optional item id per tier bracket; empty slots fall back to lower tiers and
// finally to a built-in default.
type ThrowBitsOutcome struct {
	TierIcons [5]string  `json:"tier_icons"`
	Amount    BitsAmount `json:"amount"`
}

type ThrowableOutcome struct {
	ItemIDs []string    `json:"item_ids"`
	Amount  ThrowAmount `json:"amount"`
}

type TriggerHotkeyOutcome struct {
	HotkeyID string `json:"hotkey_id"`
}

type PlaySoundOutcome struct {
	SoundID string `json:"sound_id"`
}

type SendChatOutcome struct {
	Template string `json:"template"`
}

type ScriptOutcome struct {
	Source string `json:"source"`
}

type ChannelEmotesOutcome struct {
	Amount ThrowAmount `json:"amount"`
}

// BitsAmountKind discriminates how a ThrowBits outcome sizes its throw.
type BitsAmountKind string

const (
	BitsAmountFixed   BitsAmountKind = "fixed"
	BitsAmountDynamic BitsAmountKind = "dynamic"
)

type BitsAmount struct {
	Kind BitsAmountKind `json:"kind"`

	// Fixed amount, used verbatim.
	Amount int64 `json:"amount,omitempty"`
	// Dynamic cap: throw min(input bits, MaxAmount).
	MaxAmount int64 `json:"max_amount,omitempty"`
}

// ThrowAmountKind discriminates throwable amount policies.
type ThrowAmountKind string

const (
	ThrowAmountThrow   ThrowAmountKind = "throw"
	ThrowAmountBarrage ThrowAmountKind = "barrage"
)

type ThrowAmount struct {
	Kind ThrowAmountKind `json:"kind"`

	Throw   *ThrowConfig   `json:"throw,omitempty"`
	Barrage *BarrageConfig `json:"barrage,omitempty"`
}

type ThrowConfig struct {
	Amount         int64             `json:"amount"`
	UseInputAmount bool              `json:"use_input_amount"`
	InputAmount    InputAmountConfig `json:"input_amount"`
}

type BarrageConfig struct {
	AmountPerThrow int64             `json:"amount_per_throw"`
	FrequencyMS    int64             `json:"frequency_ms"`
	Amount         int64             `json:"amount"`
	UseInputAmount bool              `json:"use_input_amount"`
	InputAmount    InputAmountConfig `json:"input_amount"`
}

// Frequency returns the barrage cadence as a duration.
func (b BarrageConfig) Frequency() time.Duration {
	return time.Duration(b.FrequencyMS) * time.Millisecond
}

// InputAmountConfig scales a trigger-derived input amount before clamping.
type InputAmountConfig struct {
	Multiplier float64     `json:"multiplier"`
	Range      AmountRange `json:"range"`
}

type AmountRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}
