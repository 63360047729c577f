package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 720, "height": 480,
     "pix_fmt": "yuv420p10le", "r_frame_rate": "24000/1001", "sample_aspect_ratio": "32:27"},
    {"index": 1, "codec_name": "opus", "codec_type": "audio", "sample_rate": "48000", "channels": 2}
  ],
  "format": {"filename": "clip.mkv", "nb_streams": 2, "duration": "12.5", "size": "2048"}
}`

func TestResultHelpers(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 1 {
		t.Fatalf("expected 1 audio stream, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 12.5 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 2048 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func TestVideoDescriptor(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	desc, err := result.VideoDescriptor()
	if err != nil {
		t.Fatalf("VideoDescriptor: %v", err)
	}
	if desc.Width != 720 || desc.Height != 480 {
		t.Fatalf("unexpected dimensions %dx%d", desc.Width, desc.Height)
	}
	if desc.FrameRate != (Rational{Num: 24000, Den: 1001}) {
		t.Fatalf("unexpected frame rate %v", desc.FrameRate)
	}
	if desc.SampleAspectRatio != (Rational{Num: 32, Den: 27}) {
		t.Fatalf("unexpected sar %v", desc.SampleAspectRatio)
	}
	if desc.BitDepth != 10 {
		t.Fatalf("expected pix_fmt fallback depth 10, got %d", desc.BitDepth)
	}
}

func TestVideoDescriptorDefaults(t *testing.T) {
	cases := []struct {
		name  string
		sar   string
		bits  string
		pix   string
		depth int
	}{
		{"missing sar", "", "", "yuv420p", 8},
		{"zero sar", "0:1", "8", "yuv420p", 8},
		{"na sar", "N/A", "10", "yuv420p", 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Result{Streams: []Stream{{
				CodecType:         "video",
				Width:             1920,
				Height:            1080,
				RFrameRate:        "30/1",
				SampleAspectRatio: tc.sar,
				BitsPerRawSample:  tc.bits,
				PixFmt:            tc.pix,
			}}}
			desc, err := result.VideoDescriptor()
			if err != nil {
				t.Fatalf("VideoDescriptor: %v", err)
			}
			if desc.SampleAspectRatio != (Rational{Num: 1, Den: 1}) {
				t.Fatalf("expected square pixels, got %v", desc.SampleAspectRatio)
			}
			if desc.BitDepth != tc.depth {
				t.Fatalf("expected depth %d, got %d", tc.depth, desc.BitDepth)
			}
		})
	}
}

func TestVideoDescriptorErrors(t *testing.T) {
	if _, err := (Result{Streams: []Stream{{CodecType: "audio"}}}).VideoDescriptor(); !errors.Is(err, ErrNoVideoStream) {
		t.Fatalf("expected ErrNoVideoStream, got %v", err)
	}
	bad := Result{Streams: []Stream{{CodecType: "video", Width: 10, Height: 10, RFrameRate: "0/0"}}}
	if _, err := bad.VideoDescriptor(); err == nil {
		t.Fatal("expected frame rate error")
	}
}

func TestParseRational(t *testing.T) {
	for _, value := range []string{"", "5", "/2", "3/", "a/b"} {
		if _, err := ParseRational(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
	got, err := ParseRational("16:9")
	if err != nil || got != (Rational{Num: 16, Den: 9}) {
		t.Fatalf("ParseRational(16:9) = %v, %v", got, err)
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "out.json")
	if err := os.WriteFile(payload, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	script := filepath.Join(dir, "ffprobe")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat '"+payload+"'\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	result, err := Inspect(context.Background(), script, "/any/file.mkv")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("unexpected streams: %+v", result.Streams)
	}

	failing := filepath.Join(dir, "broken")
	if err := os.WriteFile(failing, []byte("#!/bin/sh\necho nope >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	if _, err := Inspect(context.Background(), failing, "/any/file.mkv"); err == nil {
		t.Fatal("expected inspect failure")
	}
}
