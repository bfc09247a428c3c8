package automation

// Item is a configured throwable: an image plus its impact sounds.
// Items referenced by outcomes live in the catalog; ChannelEmotes outcomes
// synthesize ephemeral ones that never touch storage.
type Item struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	ImageURL      string   `json:"image_url"`
	Scale         float64  `json:"scale"`
	PixelateLevel int64    `json:"pixelate_level"`
	ImpactSounds  []string `json:"impact_sounds,omitempty"`
}

// Sound is a configured audio clip playable by outcomes or item impacts.
type Sound struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Src    string  `json:"src"`
	Volume float64 `json:"volume"`
}
