package engine

import (
	"strconv"
	"strings"

	"showrunner/internal/automation"
)

// renderTemplate substitutes {placeholder} tokens with values from the event
// context. Which placeholders resolve depends on the input variant; unmatched
// tokens are left verbatim.
func renderTemplate(tpl string, data automation.EventData) string {
	pairs := make([]string, 0, 16)

	if u := data.User; u != nil {
		name := u.DisplayName
		if name == "" {
			name = u.Name
		}
		pairs = append(pairs, "{user}", name)
	}

	in := data.Input
	switch in.Kind {
	case automation.InputRedeem:
		if r := in.Redeem; r != nil {
			pairs = append(pairs,
				"{reward_name}", r.RewardName,
				"{cost}", strconv.FormatInt(r.Cost, 10),
				"{user_text}", r.UserText,
			)
		}
	case automation.InputBits:
		if b := in.Bits; b != nil {
			pairs = append(pairs,
				"{bits}", strconv.FormatInt(b.Bits, 10),
				"{message}", b.Message,
			)
		}
	case automation.InputSub:
		if s := in.Sub; s != nil {
			pairs = append(pairs, "{tier}", s.Tier)
		}
	case automation.InputGiftSub:
		if g := in.GiftSub; g != nil {
			pairs = append(pairs,
				"{tier}", g.Tier,
				"{total}", strconv.FormatInt(g.Total, 10),
			)
		}
	case automation.InputReSub:
		if r := in.ReSub; r != nil {
			pairs = append(pairs,
				"{tier}", r.Tier,
				"{cumulative_months}", strconv.FormatInt(r.CumulativeMonths, 10),
				"{duration_months}", strconv.FormatInt(r.DurationMonths, 10),
				"{message}", r.Message,
			)
		}
	case automation.InputRaid:
		if r := in.Raid; r != nil {
			pairs = append(pairs, "{viewers}", strconv.FormatInt(r.Viewers, 10))
		}
	case automation.InputShoutout:
		if s := in.Shoutout; s != nil {
			pairs = append(pairs, "{viewers}", strconv.FormatInt(s.Viewers, 10))
		}
	case automation.InputAdBreak:
		if a := in.AdBreak; a != nil {
			pairs = append(pairs, "{duration}", strconv.FormatInt(a.DurationSeconds, 10))
		}
	}

	if len(pairs) == 0 {
		return tpl
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}
