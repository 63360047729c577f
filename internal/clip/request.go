package clip

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"av1clip/internal/services"
)

// Opus bitrate bounds accepted by libopus, in bits per second.
const (
	MinAudioBitrate = 500
	MaxAudioBitrate = 512000
)

// Tuning carries SvtAv1EncApp parameters. They only affect the encode stage.
type Tuning struct {
	CRF                  int
	Preset               int
	TileRows             int
	TileColumns          int
	FilmGrain            int
	SceneChangeDetection bool
}

type bound struct {
	name     string
	value    int
	min, max int
}

// Validate checks each parameter against the encoder's supported range.
func (t Tuning) Validate() error {
	for _, b := range []bound{
		{"crf", t.CRF, 0, 63},
		{"preset", t.Preset, 0, 8},
		{"tile rows", t.TileRows, 0, 6},
		{"tile columns", t.TileColumns, 0, 4},
		{"film grain", t.FilmGrain, 0, 50},
	} {
		if b.value < b.min || b.value > b.max {
			return services.Wrap(services.ErrConfiguration, "request", b.name,
				fmt.Sprintf("%d out of range [%d-%d]", b.value, b.min, b.max), nil)
		}
	}
	return nil
}

// Request is the immutable description of one clip run.
type Request struct {
	Source       string
	Start        string
	End          string
	Video        Track
	Audio        Track
	Subtitle     Track
	Width        int
	Height       int
	AudioBitrate int
	Tuning       Tuning
	// Output overrides the derived destination path when set.
	Output string
}

// ParseAudioBitrate parses values such as "256k" or "96000" into bits per
// second and enforces the Opus range.
func ParseAudioBitrate(value string) (int, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	multiplier := 1
	if strings.HasSuffix(trimmed, "k") {
		trimmed = strings.TrimSuffix(trimmed, "k")
		multiplier = 1000
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "request", "audio bitrate",
			fmt.Sprintf("cannot parse %q", value), nil)
	}
	// Bound n before scaling so huge inputs cannot wrap into range.
	if n < 0 || n > MaxAudioBitrate/multiplier {
		return 0, unsupportedBitrate(value)
	}
	bps := n * multiplier
	if bps < MinAudioBitrate {
		return 0, unsupportedBitrate(value)
	}
	return bps, nil
}

func unsupportedBitrate(value string) error {
	return services.Wrap(services.ErrConfiguration, "request", "audio bitrate",
		fmt.Sprintf("libopus: the bit rate %s is unsupported, choose a value between %d and %d bps", strings.TrimSpace(value), MinAudioBitrate, MaxAudioBitrate), nil)
}

// Validate rejects configuration errors and unusable sources. It stats the
// source but never launches a process.
func (r Request) Validate() error {
	if r.Width < 0 {
		return services.Wrap(services.ErrConfiguration, "request", "width", "must be a positive integer", nil)
	}
	if r.Height < 0 {
		return services.Wrap(services.ErrConfiguration, "request", "height", "must be a positive integer", nil)
	}
	if r.AudioBitrate < MinAudioBitrate || r.AudioBitrate > MaxAudioBitrate {
		return services.Wrap(services.ErrConfiguration, "request", "audio bitrate",
			fmt.Sprintf("%d bps outside [%d-%d]", r.AudioBitrate, MinAudioBitrate, MaxAudioBitrate), nil)
	}
	if err := r.Tuning.Validate(); err != nil {
		return err
	}

	source := strings.TrimSpace(r.Source)
	if source == "" {
		return services.Wrap(services.ErrInput, "input", "", "source path is required", nil)
	}
	info, err := os.Stat(source)
	if err != nil {
		return services.Wrap(services.ErrInput, "input", "stat", fmt.Sprintf("'%s' is not a file", source), err)
	}
	if !info.Mode().IsRegular() {
		return services.Wrap(services.ErrInput, "input", "stat", fmt.Sprintf("'%s' is not a file", source), nil)
	}
	return nil
}

// AbsSource returns the absolute, cleaned source path.
func (r Request) AbsSource() string {
	abs, err := filepath.Abs(strings.TrimSpace(r.Source))
	if err != nil {
		return filepath.Clean(r.Source)
	}
	return abs
}

// SourceRange describes the requested slice for file names and metadata:
// "start-end" with colons replaced by dots, "0.0-end" when only an end is
// given, "start" when only a start is given, and "" for the complete source.
func (r Request) SourceRange() string {
	start := strings.TrimSpace(r.Start)
	end := strings.TrimSpace(r.End)
	var out string
	if start != "" {
		out = strings.ReplaceAll(start, ":", ".")
	}
	if end != "" {
		if start == "" {
			out = "0.0"
		}
		out += "-" + strings.ReplaceAll(end, ":", ".")
	}
	return out
}

// RangeTag is SourceRange with "complete" substituted for an unbounded clip.
func (r Request) RangeTag() string {
	if rng := r.SourceRange(); rng != "" {
		return rng
	}
	return "complete"
}

// OutputPath returns the destination WebM path. Without an explicit Output it
// sits beside the source as "<stem> AV1[ <range>].webm".
func (r Request) OutputPath() string {
	if out := strings.TrimSpace(r.Output); out != "" {
		return out
	}
	source := strings.TrimSpace(r.Source)
	dest := strings.TrimSuffix(source, filepath.Ext(source)) + " AV1"
	if rng := r.SourceRange(); rng != "" {
		dest += " " + rng
	}
	return dest + ".webm"
}
