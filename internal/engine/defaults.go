package engine

import "showrunner/internal/automation"

// Built-in assets used when configuration leaves a slot empty. The overlay
// renderer resolves builtin:// sources from its bundled asset pack.

var defaultBitIcons = [5]automation.Item{
	{ID: "builtin.bits.gray", Name: "Bits 1+", ImageURL: "builtin://bits/gray.png", Scale: 1},
	{ID: "builtin.bits.purple", Name: "Bits 100+", ImageURL: "builtin://bits/purple.png", Scale: 1},
	{ID: "builtin.bits.green", Name: "Bits 1000+", ImageURL: "builtin://bits/green.png", Scale: 1},
	{ID: "builtin.bits.blue", Name: "Bits 5000+", ImageURL: "builtin://bits/blue.png", Scale: 1},
	{ID: "builtin.bits.red", Name: "Bits 10000+", ImageURL: "builtin://bits/red.png", Scale: 1},
}

var defaultImpactSounds = []automation.Sound{
	{ID: "builtin.impact.soft", Name: "Soft impact", Src: "builtin://sounds/impact-soft.mp3", Volume: 1},
	{ID: "builtin.impact.thud", Name: "Thud", Src: "builtin://sounds/impact-thud.mp3", Volume: 1},
}

// defaultBitIcon returns the built-in icon for a cheer amount's bracket.
func defaultBitIcon(bits int64) automation.Item {
	return defaultBitIcons[bitsTierIndex(bits)]
}
