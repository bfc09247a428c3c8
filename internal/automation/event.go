package automation

// UserRef identifies the chatter behind an event.
type UserRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// InputKind discriminates EventInput variants. It mirrors the trigger kinds,
// with distinct chat/resub variants the matcher can produce.
type InputKind string

const (
	InputNone     InputKind = "none"
	InputRedeem   InputKind = "redeem"
	InputBits     InputKind = "bits"
	InputSub      InputKind = "subscription"
	InputGiftSub  InputKind = "gifted_subscription"
	InputReSub    InputKind = "resubscription"
	InputChat     InputKind = "chat"
	InputRaid     InputKind = "raid"
	InputAdBreak  InputKind = "ad_break"
	InputShoutout InputKind = "shoutout"
)

// EventInput carries the payload-specific context of one occurrence.
// Ephemeral: only ever persisted as part of ExecutionRecord metadata.
type EventInput struct {
	Kind InputKind `json:"kind"`

	Redeem   *RedeemInput   `json:"redeem,omitempty"`
	Bits     *BitsInput     `json:"bits,omitempty"`
	Sub      *SubInput      `json:"sub,omitempty"`
	GiftSub  *GiftSubInput  `json:"gift_sub,omitempty"`
	ReSub    *ReSubInput    `json:"resub,omitempty"`
	Chat     *ChatInput     `json:"chat,omitempty"`
	Raid     *RaidInput     `json:"raid,omitempty"`
	AdBreak  *AdBreakInput  `json:"ad_break,omitempty"`
	Shoutout *ShoutoutInput `json:"shoutout,omitempty"`
}

type RedeemInput struct {
	RewardID   string `json:"reward_id"`
	RewardName string `json:"reward_name"`
	Cost       int64  `json:"cost"`
	UserText   string `json:"user_text"`
}

type BitsInput struct {
	Bits      int64  `json:"bits"`
	Anonymous bool   `json:"anonymous"`
	Message   string `json:"message"`
}

type SubInput struct {
	Tier   string `json:"tier"`
	Gifted bool   `json:"gifted"`
}

type GiftSubInput struct {
	Tier      string `json:"tier"`
	Total     int64  `json:"total"`
	Anonymous bool   `json:"anonymous"`
}

type ReSubInput struct {
	Tier             string `json:"tier"`
	CumulativeMonths int64  `json:"cumulative_months"`
	DurationMonths   int64  `json:"duration_months"`
	Message          string `json:"message"`
}

type ChatInput struct {
	// Text is the full trimmed message line. The command residual lives in
	// the script CommandContext, not here.
	Text      string   `json:"text"`
	Fragments []string `json:"fragments,omitempty"`
	Cheer     int64    `json:"cheer"`
}

type RaidInput struct {
	Viewers int64 `json:"viewers"`
}

type AdBreakInput struct {
	DurationSeconds int64 `json:"duration_seconds"`
}

type ShoutoutInput struct {
	Viewers int64 `json:"viewers"`
}

// EventData is the normalized context handed through gates and resolution.
type EventData struct {
	User  *UserRef   `json:"user,omitempty"`
	Input EventInput `json:"input"`
}
