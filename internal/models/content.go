// Package models defines the content block union used by screens.
package models

// ContentKind tags a ContentBlock variant.
type ContentKind string

const (
	// ContentImage is a standalone remote image.
	ContentImage ContentKind = "image"
	// ContentBackgroundImage is a full-screen background image.
	ContentBackgroundImage ContentKind = "backgroundImage"
	// ContentBackgroundVideo is a full-screen looping background video.
	ContentBackgroundVideo ContentKind = "backgroundVideo"
	// ContentList is a vertical list whose items may carry images.
	ContentList ContentKind = "list"
	// ContentGrid is a multi-column grid whose items may carry images.
	ContentGrid ContentKind = "grid"
	// ContentText is styled text; it never contributes assets.
	ContentText ContentKind = "text"
	// ContentCustom is a host-defined block; it never contributes assets.
	ContentCustom ContentKind = "custom"
)

// IsValidContentKind checks if the given content kind is supported.
func IsValidContentKind(k ContentKind) bool {
	switch k {
	case ContentImage, ContentBackgroundImage, ContentBackgroundVideo,
		ContentList, ContentGrid, ContentText, ContentCustom:
		return true
	default:
		return false
	}
}

// ContentItem is one entry of a list or grid block.
type ContentItem struct {
	Label    string `json:"label,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// ContentBlock is a tagged union over the screen content variants. Only
// the fields matching Kind are populated; the rest stay zero.
type ContentBlock struct {
	Kind  ContentKind   `json:"kind"`
	URL   string        `json:"url,omitempty"`
	Items []ContentItem `json:"items,omitempty"`
	Text  string        `json:"text,omitempty"`
}
