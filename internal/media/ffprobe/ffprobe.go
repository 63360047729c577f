package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoVideoStream is returned when a probed file carries no video stream.
var ErrNoVideoStream = errors.New("no video stream")

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index             int    `json:"index"`
	CodecName         string `json:"codec_name"`
	CodecType         string `json:"codec_type"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	PixFmt            string `json:"pix_fmt"`
	RFrameRate        string `json:"r_frame_rate"`
	AvgFrameRate      string `json:"avg_frame_rate"`
	SampleAspectRatio string `json:"sample_aspect_ratio"`
	BitsPerRawSample  string `json:"bits_per_raw_sample"`
	Duration          string `json:"duration"`
	BitRate           string `json:"bit_rate"`
	SampleRate        string `json:"sample_rate"`
	Channels          int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Rational is a numerator/denominator pair as ffprobe reports them.
type Rational struct {
	Num int
	Den int
}

// Float returns the ratio, or 0 when the rational is undefined.
func (r Rational) Float() float64 {
	if r.Num <= 0 || r.Den <= 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// String renders the rational as num/den.
func (r Rational) String() string {
	return fmt.Sprintf("%d/%d", r.Num, r.Den)
}

// ParseRational accepts "N/D" and "N:D" forms.
func ParseRational(value string) (Rational, error) {
	cleaned := strings.TrimSpace(value)
	sep := strings.IndexAny(cleaned, "/:")
	if sep <= 0 || sep == len(cleaned)-1 {
		return Rational{}, fmt.Errorf("invalid rational %q", value)
	}
	num, err := strconv.Atoi(cleaned[:sep])
	if err != nil {
		return Rational{}, fmt.Errorf("invalid rational %q: %w", value, err)
	}
	den, err := strconv.Atoi(cleaned[sep+1:])
	if err != nil {
		return Rational{}, fmt.Errorf("invalid rational %q: %w", value, err)
	}
	return Rational{Num: num, Den: den}, nil
}

// StreamDescriptor is the video stream metadata consumed by geometry
// resolution and the encoder.
type StreamDescriptor struct {
	Width             int
	Height            int
	FrameRate         Rational
	SampleAspectRatio Rational
	BitDepth          int
	PixelFormat       string
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON payload.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

// VideoDescriptor builds a StreamDescriptor from the first video stream.
//
// An unset or zero sample aspect ratio is treated as square pixels, and a
// missing bits_per_raw_sample falls back to the pixel format.
func (r Result) VideoDescriptor() (StreamDescriptor, error) {
	for _, stream := range r.Streams {
		if !strings.EqualFold(stream.CodecType, "video") {
			continue
		}
		if stream.Width <= 0 || stream.Height <= 0 {
			return StreamDescriptor{}, fmt.Errorf("video stream %d: invalid dimensions %dx%d", stream.Index, stream.Width, stream.Height)
		}
		rate, err := ParseRational(stream.RFrameRate)
		if err != nil || rate.Float() == 0 {
			rate, err = ParseRational(stream.AvgFrameRate)
			if err != nil || rate.Float() == 0 {
				return StreamDescriptor{}, fmt.Errorf("video stream %d: frame rate %q unusable", stream.Index, stream.RFrameRate)
			}
		}
		return StreamDescriptor{
			Width:             stream.Width,
			Height:            stream.Height,
			FrameRate:         rate,
			SampleAspectRatio: sampleAspect(stream.SampleAspectRatio),
			BitDepth:          bitDepth(stream),
			PixelFormat:       stream.PixFmt,
		}, nil
	}
	return StreamDescriptor{}, ErrNoVideoStream
}

// DurationSeconds returns the container duration in seconds, or 0 when unavailable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

func sampleAspect(value string) Rational {
	sar, err := ParseRational(value)
	if err != nil || sar.Float() == 0 {
		return Rational{Num: 1, Den: 1}
	}
	return sar
}

func bitDepth(stream Stream) int {
	if depth, err := strconv.Atoi(strings.TrimSpace(stream.BitsPerRawSample)); err == nil && depth > 0 {
		return depth
	}
	if strings.HasSuffix(stream.PixFmt, "10le") || strings.HasSuffix(stream.PixFmt, "10be") {
		return 10
	}
	return 8
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
