// Package platform defines the inbound event surface delivered by the
// platform transport collaborator, plus the cached role-list provider the
// permission gate reads from.
package platform

import "showrunner/internal/automation"

// Event is the closed union of inbound platform events and internal signals.
// The transport collaborator produces these; the dispatcher consumes them.
type Event interface{ isEvent() }

type Redeem struct {
	User       automation.UserRef
	RewardID   string
	RewardName string
	Cost       int64
	UserText   string
}

type CheerBits struct {
	// User identity may be partially absent for anonymous cheers.
	UserID          string
	UserName        string
	UserDisplayName string
	Bits            int64
	Anonymous       bool
	Message         string
}

type Follow struct {
	User automation.UserRef
}

type Subscription struct {
	User   automation.UserRef
	Tier   string
	Gifted bool
}

type GiftedSubscription struct {
	// Identity may be absent for anonymous gifters.
	UserID          string
	UserName        string
	UserDisplayName string
	Tier            string
	Total           int64
	Anonymous       bool
}

type ReSubscription struct {
	User             automation.UserRef
	Tier             string
	CumulativeMonths int64
	DurationMonths   int64
	Message          string
}

type ChatMessage struct {
	User      automation.UserRef
	MessageID string
	Text      string
	Fragments []string
	Cheer     int64
}

type Raid struct {
	User    automation.UserRef
	Viewers int64
}

type AdBreakBegin struct {
	DurationSeconds int64
}

type ShoutoutReceive struct {
	User    automation.UserRef
	Viewers int64
}

// Internal signals. These trigger collaborator cache reloads, not matching.

type ModeratorsChanged struct{}

type VipsChanged struct{}

type RewardsChanged struct{}

type Reset struct{}

func (Redeem) isEvent()             {}
func (CheerBits) isEvent()          {}
func (Follow) isEvent()             {}
func (Subscription) isEvent()       {}
func (GiftedSubscription) isEvent() {}
func (ReSubscription) isEvent()     {}
func (ChatMessage) isEvent()        {}
func (Raid) isEvent()               {}
func (AdBreakBegin) isEvent()       {}
func (ShoutoutReceive) isEvent()    {}
func (ModeratorsChanged) isEvent()  {}
func (VipsChanged) isEvent()        {}
func (RewardsChanged) isEvent()     {}
func (Reset) isEvent()              {}
