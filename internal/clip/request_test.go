package clip_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"av1clip/internal/clip"
	"av1clip/internal/services"
)

func validRequest(t *testing.T) clip.Request {
	t.Helper()
	source := filepath.Join(t.TempDir(), "movie.mkv")
	if err := os.WriteFile(source, []byte("data"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	return clip.Request{
		Source:       source,
		AudioBitrate: 256000,
		Tuning:       clip.Tuning{CRF: 30, Preset: 3, TileRows: 2, TileColumns: 2, FilmGrain: 8},
	}
}

func TestParseTrack(t *testing.T) {
	cases := map[string]string{
		"":         "auto",
		"auto":     "auto",
		"AUTO":     "auto",
		"no":       "no",
		"disabled": "no",
		"2":        "2",
		" 0 ":      "0",
	}
	for input, want := range cases {
		track, err := clip.ParseTrack(input)
		if err != nil {
			t.Fatalf("ParseTrack(%q) error: %v", input, err)
		}
		if track.String() != want {
			t.Fatalf("ParseTrack(%q) = %q, want %q", input, track.String(), want)
		}
	}
	for _, bad := range []string{"-1", "first", "1.5"} {
		if _, err := clip.ParseTrack(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestParseAudioBitrate(t *testing.T) {
	cases := map[string]int{
		"256k":   256000,
		"96000":  96000,
		"500":    500,
		"512K":   512000,
		" 64k  ": 64000,
	}
	for input, want := range cases {
		got, err := clip.ParseAudioBitrate(input)
		if err != nil {
			t.Fatalf("ParseAudioBitrate(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseAudioBitrate(%q) = %d, want %d", input, got, want)
		}
	}
	for _, bad := range []string{"499", "513k", "fast", "", "-256k", "18446744073709553k", "9223372036854775807"} {
		_, err := clip.ParseAudioBitrate(bad)
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("expected configuration error for %q, got %v", bad, err)
		}
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validRequest(t).Validate(); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}
}

func TestValidateRejectsConfigurationErrors(t *testing.T) {
	cases := map[string]func(*clip.Request){
		"negative width": func(r *clip.Request) { r.Width = -1 },
		"crf":            func(r *clip.Request) { r.Tuning.CRF = 70 },
		"preset":         func(r *clip.Request) { r.Tuning.Preset = -1 },
		"tile rows":      func(r *clip.Request) { r.Tuning.TileRows = 9 },
		"film grain":     func(r *clip.Request) { r.Tuning.FilmGrain = 51 },
		"bitrate":        func(r *clip.Request) { r.AudioBitrate = 100 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validRequest(t)
			mutate(&req)
			err := req.Validate()
			if !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestValidateRejectsMissingOrIrregularSource(t *testing.T) {
	req := validRequest(t)
	req.Source = filepath.Join(t.TempDir(), "missing.mkv")
	if err := req.Validate(); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for missing file, got %v", err)
	}
	req.Source = t.TempDir()
	if err := req.Validate(); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for directory, got %v", err)
	}
	req.Source = ""
	if err := req.Validate(); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for empty source, got %v", err)
	}
}

func TestSourceRangeAndOutputPath(t *testing.T) {
	cases := []struct {
		start, end string
		rng        string
		output     string
	}{
		{"", "", "", "/v/Show AV1.webm"},
		{"1:02", "", "1.02", "/v/Show AV1 1.02.webm"},
		{"", "0:30", "0.0-0.30", "/v/Show AV1 0.0-0.30.webm"},
		{"1:00", "1:30.5", "1.00-1.30.5", "/v/Show AV1 1.00-1.30.5.webm"},
	}
	for _, tc := range cases {
		req := clip.Request{Source: "/v/Show.mkv", Start: tc.start, End: tc.end}
		if got := req.SourceRange(); got != tc.rng {
			t.Fatalf("SourceRange(%q,%q) = %q, want %q", tc.start, tc.end, got, tc.rng)
		}
		if got := req.OutputPath(); got != tc.output {
			t.Fatalf("OutputPath(%q,%q) = %q, want %q", tc.start, tc.end, got, tc.output)
		}
	}
	if tag := (clip.Request{Source: "/v/a.mkv"}).RangeTag(); tag != "complete" {
		t.Fatalf("expected complete range tag, got %q", tag)
	}
	explicit := clip.Request{Source: "/v/a.mkv", Output: "/out/x.webm"}
	if explicit.OutputPath() != "/out/x.webm" {
		t.Fatalf("expected explicit output, got %q", explicit.OutputPath())
	}
}
