package clipcache

import (
	"testing"

	"av1clip/internal/clip"
)

func baseRequest() clip.Request {
	return clip.Request{
		Source:       "/media/show.mkv",
		Start:        "1:00",
		End:          "1:30",
		Video:        clip.Auto(),
		Audio:        clip.Auto(),
		Subtitle:     clip.Auto(),
		AudioBitrate: 256000,
		Tuning:       clip.Tuning{CRF: 30, Preset: 3, TileRows: 2, TileColumns: 2, FilmGrain: 8, SceneChangeDetection: false},
	}
}

func TestComputeIgnoresEncodeOnlyFields(t *testing.T) {
	base := baseRequest()
	other := base
	other.Width = 1280
	other.Height = 720
	other.Tuning.CRF = 20
	other.Tuning.Preset = 8
	other.Tuning.FilmGrain = 0
	other.Output = "/elsewhere/out.webm"
	if Compute(base) != Compute(other) {
		t.Fatal("encode-only fields changed the fingerprint")
	}
	if len(Compute(base)) != 32 {
		t.Fatalf("expected 32 hex chars, got %q", Compute(base))
	}
}

func TestComputeDistinguishesCacheFields(t *testing.T) {
	mutations := map[string]func(*clip.Request){
		"source":      func(r *clip.Request) { r.Source = "/media/other.mkv" },
		"start":       func(r *clip.Request) { r.Start = "1:01" },
		"no start":    func(r *clip.Request) { r.Start = "" },
		"end":         func(r *clip.Request) { r.End = "1:31" },
		"no end":      func(r *clip.Request) { r.End = "" },
		"video off":   func(r *clip.Request) { r.Video = clip.Disabled() },
		"video 2":     func(r *clip.Request) { r.Video = clip.Index(2) },
		"audio off":   func(r *clip.Request) { r.Audio = clip.Disabled() },
		"audio 1":     func(r *clip.Request) { r.Audio = clip.Index(1) },
		"audio 2":     func(r *clip.Request) { r.Audio = clip.Index(2) },
		"subs off":    func(r *clip.Request) { r.Subtitle = clip.Disabled() },
		"subs 3":      func(r *clip.Request) { r.Subtitle = clip.Index(3) },
		"bitrate":     func(r *clip.Request) { r.AudioBitrate = 128000 },
		"shift range": func(r *clip.Request) { r.Start = "1:001"; r.End = ":30" },
	}
	seen := map[Fingerprint]string{Compute(baseRequest()): "base"}
	for name, mutate := range mutations {
		req := baseRequest()
		mutate(&req)
		fp := Compute(req)
		if prev, ok := seen[fp]; ok {
			t.Fatalf("%s collides with %s", name, prev)
		}
		seen[fp] = name
	}
}

func TestComputeUsesAbsoluteSource(t *testing.T) {
	t.Chdir(t.TempDir())
	rel := baseRequest()
	rel.Source = "show.mkv"
	abs := baseRequest()
	abs.Source = rel.AbsSource()
	if Compute(rel) != Compute(abs) {
		t.Fatal("relative and absolute forms of the same path should match")
	}
}
