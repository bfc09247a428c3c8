package engine

import (
	"math"

	"showrunner/internal/automation"
	"showrunner/internal/eventbus"
)

// bitsTierIndex maps a cheer amount to its tier bracket index 0..4.
func bitsTierIndex(bits int64) int {
	switch {
	case bits >= 10000:
		return 4
	case bits >= 5000:
		return 3
	case bits >= 1000:
		return 2
	case bits >= 100:
		return 1
	default:
		return 0
	}
}

// resolveTierIcon walks the configured tier icons from the bracket of bits
// downward toward index 0 and returns the first configured slot. ok is false
// when no slot at or below the bracket is configured.
func resolveTierIcon(icons [5]string, bits int64) (string, bool) {
	for i := bitsTierIndex(bits); i >= 0; i-- {
		if icons[i] != "" {
			return icons[i], true
		}
	}
	return "", false
}

// resolveBitsAmount sizes a ThrowBits throw: fixed verbatim, dynamic capped
// by the input cheer.
func resolveBitsAmount(cfg automation.BitsAmount, bits int64) int64 {
	switch cfg.Kind {
	case automation.BitsAmountDynamic:
		if bits < cfg.MaxAmount {
			return bits
		}
		return cfg.MaxAmount
	default:
		return cfg.Amount
	}
}

// inputAmountFor extracts the trigger-specific input amount used by
// use_input_amount policies. Nil means the trigger carries no usable amount
// and the configured amount applies instead.
func inputAmountFor(data automation.EventData) *int64 {
	in := data.Input
	switch in.Kind {
	case automation.InputBits:
		if in.Bits != nil {
			return &in.Bits.Bits
		}
	case automation.InputGiftSub:
		if in.GiftSub != nil {
			return &in.GiftSub.Total
		}
	case automation.InputSub:
		one := int64(1)
		return &one
	case automation.InputReSub:
		if in.ReSub != nil {
			return &in.ReSub.CumulativeMonths
		}
	case automation.InputChat:
		if in.Chat != nil && in.Chat.Cheer > 0 {
			return &in.Chat.Cheer
		}
	case automation.InputRaid:
		if in.Raid != nil {
			return &in.Raid.Viewers
		}
	}
	return nil
}

// scaledAmount applies the input-amount derivation: input x multiplier,
// floored, clamped into the configured range. Falls back to configured when
// the trigger supplies no input.
func scaledAmount(configured int64, useInput bool, cfg automation.InputAmountConfig, input *int64) int64 {
	if !useInput {
		return configured
	}
	if input == nil {
		return configured
	}
	v := int64(math.Floor(float64(*input) * cfg.Multiplier))
	return clampAmount(v, cfg.Range)
}

func clampAmount(v int64, r automation.AmountRange) int64 {
	if v < r.Min {
		return r.Min
	}
	if r.Max > 0 && v > r.Max {
		return r.Max
	}
	return v
}

// throwBehavior derives the renderer-facing throw config from an amount
// policy plus the event context. Barrage cadence fields pass through
// unmodified; only the total amount is derived.
func throwBehavior(cfg automation.ThrowAmount, data automation.EventData) eventbus.ThrowBehavior {
	input := inputAmountFor(data)
	switch cfg.Kind {
	case automation.ThrowAmountBarrage:
		b := cfg.Barrage
		if b == nil {
			return eventbus.ThrowBehavior{Kind: eventbus.ThrowAll}
		}
		return eventbus.ThrowBehavior{
			Kind:           eventbus.ThrowBarrage,
			Amount:         scaledAmount(b.Amount, b.UseInputAmount, b.InputAmount, input),
			AmountPerThrow: b.AmountPerThrow,
			FrequencyMS:    b.FrequencyMS,
		}
	default:
		t := cfg.Throw
		if t == nil {
			return eventbus.ThrowBehavior{Kind: eventbus.ThrowAll}
		}
		return eventbus.ThrowBehavior{
			Kind:   eventbus.ThrowAll,
			Amount: scaledAmount(t.Amount, t.UseInputAmount, t.InputAmount, input),
		}
	}
}
