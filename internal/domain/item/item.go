// Package item provides the Item domain entity.
package item

import (
	"fmt"
	"time"
)

// Item represents one playlist entry of a channel.
// Contains only information parsed from the channel source document.
type Item struct {
	Title        string  // Item title
	Presenter    string  // Presenter (metadata.author)
	Description  string  // Plain-text description
	Timecode     float64 // Seconds offset at which the item becomes active
	ThumbnailURL string  // Thumbnail URL (empty if absent)
	MediaSource  string  // Per-item media source override (empty if absent)
}

// Offset returns the timecode as a duration.
func (i *Item) Offset() time.Duration {
	return time.Duration(i.Timecode * float64(time.Second))
}

// HasMediaSource reports whether the item overrides the channel media source.
func (i *Item) HasMediaSource() bool {
	return i.MediaSource != ""
}

// FormatTimecode formats the timecode as h:mm:ss, or m:ss below one hour.
func (i *Item) FormatTimecode() string {
	total := int(i.Offset() / time.Second)
	if total < 0 {
		total = 0
	}
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
