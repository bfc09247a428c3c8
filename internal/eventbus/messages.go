package eventbus

import "showrunner/internal/automation"

// ThrowSpec pairs a throwable item with its resolved impact sounds.
type ThrowSpec struct {
	Item   automation.Item
	Sounds []automation.Sound
}

// ThrowBehaviorKind selects between one burst and a timed barrage.
type ThrowBehaviorKind string

const (
	ThrowAll     ThrowBehaviorKind = "all"
	ThrowBarrage ThrowBehaviorKind = "barrage"
)

// ThrowBehavior tells the renderer how many items to throw and at what
// cadence. Amount is the total; AmountPerThrow/FrequencyMS only apply to
// barrages.
type ThrowBehavior struct {
	Kind           ThrowBehaviorKind
	Amount         int64
	AmountPerThrow int64
	FrequencyMS    int64
}

type ThrowItemPayload struct {
	Items  []ThrowSpec
	Config ThrowBehavior
}

type TriggerHotkeyPayload struct {
	HotkeyID string
}

type PlaySoundPayload struct {
	Sound automation.Sound
}

// NewThrowItem builds a throw message.
func NewThrowItem(items []ThrowSpec, cfg ThrowBehavior) Message {
	return Message{Kind: KindThrowItem, ThrowItem: &ThrowItemPayload{Items: items, Config: cfg}}
}

// NewTriggerHotkey builds a hotkey message.
func NewTriggerHotkey(id string) Message {
	return Message{Kind: KindTriggerHotkey, TriggerHotkey: &TriggerHotkeyPayload{HotkeyID: id}}
}

// NewPlaySound builds a sound message.
func NewPlaySound(snd automation.Sound) Message {
	return Message{Kind: KindPlaySound, PlaySound: &PlaySoundPayload{Sound: snd}}
}
