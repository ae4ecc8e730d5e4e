package item

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItem_FormatTimecode(t *testing.T) {
	tests := []struct {
		name     string
		timecode float64
		expected string
	}{
		{
			name:     "zero",
			timecode: 0,
			expected: "0:00",
		},
		{
			name:     "under a minute",
			timecode: 45,
			expected: "0:45",
		},
		{
			name:     "fractional seconds truncated",
			timecode: 90.9,
			expected: "1:30",
		},
		{
			name:     "over an hour",
			timecode: 3725,
			expected: "1:02:05",
		},
		{
			name:     "negative clamps to zero",
			timecode: -3,
			expected: "0:00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := Item{Timecode: tt.timecode}
			assert.Equal(t, tt.expected, it.FormatTimecode())
		})
	}
}

func TestItem_Offset(t *testing.T) {
	it := Item{Timecode: 1.5}
	assert.Equal(t, 1500*time.Millisecond, it.Offset())
}

func TestItem_HasMediaSource(t *testing.T) {
	assert.False(t, (&Item{}).HasMediaSource())
	assert.True(t, (&Item{MediaSource: "https://example.com/v.mp4"}).HasMediaSource())
}
