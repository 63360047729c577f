package clip

import (
	"fmt"
	"strconv"
	"strings"
)

// TrackMode distinguishes automatic, disabled, and explicit track selection.
type TrackMode int

const (
	TrackAuto TrackMode = iota
	TrackDisabled
	TrackIndex
)

// Track selects one video, audio, or subtitle track for extraction.
type Track struct {
	Mode  TrackMode
	Index int
}

// Auto selects the track the extraction tool would pick by default.
func Auto() Track { return Track{Mode: TrackAuto} }

// Disabled drops the track kind entirely.
func Disabled() Track { return Track{Mode: TrackDisabled} }

// Index selects an explicit track id.
func Index(id int) Track { return Track{Mode: TrackIndex, Index: id} }

// ParseTrack accepts "auto", "no"/"disabled"/"off", or a non-negative track id.
// Empty input means auto.
func ParseTrack(value string) (Track, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "", "auto":
		return Auto(), nil
	case "no", "disabled", "off", "none":
		return Disabled(), nil
	}
	id, err := strconv.Atoi(trimmed)
	if err != nil || id < 0 {
		return Track{}, fmt.Errorf("invalid track selector %q (want auto, no, or a track id)", value)
	}
	return Index(id), nil
}

// String renders the selector the way mpv expects it on the command line.
func (t Track) String() string {
	switch t.Mode {
	case TrackDisabled:
		return "no"
	case TrackIndex:
		return strconv.Itoa(t.Index)
	default:
		return "auto"
	}
}
