package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"av1clip/internal/clipcache"
	"av1clip/internal/services"
	"av1clip/internal/testsupport"
)

func TestClipCommandProducesOutputAndSummary(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithHistory())

	stdout, _, err := env.run(t, "clip", env.source, "-s", "0:05", "-e", "0:10", "--keep", "--skip-checks")
	if err != nil {
		t.Fatalf("clip: %v", err)
	}
	output := filepath.Join(filepath.Dir(env.source), "Show AV1 0.05-0.10.webm")
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output %s: %v", output, err)
	}
	for _, want := range []string{"[OK] " + output, "Fingerprint:", "extract", "frames", "encode", "mux"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("summary missing %q:\n%s", want, stdout)
		}
	}

	list, _, err := env.run(t, "cache", "list")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(list, "Entries: 1 (0 in progress)") || !strings.Contains(list, "ready") {
		t.Fatalf("unexpected cache list:\n%s", list)
	}

	hist, _, err := env.run(t, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(hist, "Show.mkv [0.05-0.10]") || !strings.Contains(hist, "succeeded") {
		t.Fatalf("unexpected history:\n%s", hist)
	}
}

func TestClipCommandDiscardsIntermediateByDefault(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "clip", env.source, "--skip-checks", "-o", filepath.Join(t.TempDir(), "out.webm")); err != nil {
		t.Fatalf("clip: %v", err)
	}
	manager := clipcache.NewManager(env.cfg, nil)
	stats, err := manager.Stats(t.Context())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Entries != 0 {
		t.Fatalf("expected discarded intermediate, got %+v", stats)
	}
}

func TestClipCommandFlagsOverrideEncodeDefaults(t *testing.T) {
	env := setupCLITestEnv(t)

	args := []string{"clip", env.source, "--skip-checks", "--crf", "40", "--preset", "6", "-g", "0", "--scd", "-b", "96k", "--aid", "2", "--sid", "no"}
	if _, _, err := env.run(t, args...); err != nil {
		t.Fatalf("clip: %v", err)
	}
	encodes := testsupport.Invocations(t, env.logPath, "SvtAv1EncApp")
	if len(encodes) != 1 {
		t.Fatalf("expected one encode, got %v", encodes)
	}
	for _, want := range []string{"--crf 40", "--preset 6", "--film-grain 0", "--scd 1"} {
		if !strings.Contains(encodes[0], want) {
			t.Fatalf("encoder args missing %q: %s", want, encodes[0])
		}
	}
	extracts := testsupport.Invocations(t, env.logPath, "mpv")
	if len(extracts) != 1 {
		t.Fatalf("expected one extraction, got %v", extracts)
	}
	for _, want := range []string{"--aid=2", "--sid=no", "--oacopts-add=b=96000"} {
		if !strings.Contains(extracts[0], want) {
			t.Fatalf("extraction args missing %q: %s", want, extracts[0])
		}
	}
	ffmpeg := strings.Join(testsupport.Invocations(t, env.logPath, "ffmpeg"), "\n")
	if !strings.Contains(ffmpeg, "BITRATE=96000 VBR") {
		t.Fatalf("expected bitrate tag in mux args: %s", ffmpeg)
	}
}

func TestClipCommandInputErrorExitCode(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "clip", filepath.Join(t.TempDir(), "missing.mkv"), "--skip-checks")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
	if calls := testsupport.Invocations(t, env.logPath, "mpv"); len(calls) != 0 {
		t.Fatalf("no stage should start on input error, got %v", calls)
	}
}

func TestClipCommandValidatesSourceBeforeChecks(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "clip", filepath.Join(t.TempDir(), "missing.mkv"))
	if !errors.Is(err, services.ErrInput) || errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected input error ahead of preflight, got %v", err)
	}
	if code := services.ExitCode(err); code != 2 {
		t.Fatalf("exit code = %d, want 2", code)
	}
}

func TestClipCommandRejectsInvalidSettings(t *testing.T) {
	env := setupCLITestEnv(t)

	cases := [][]string{
		{"-b", "600k"},
		{"--crf", "64"},
		{"--vid", "first"},
		{"--width", "-1"},
	}
	for _, extra := range cases {
		args := append([]string{"clip", env.source, "--skip-checks"}, extra...)
		_, _, err := env.run(t, args...)
		if !errors.Is(err, services.ErrConfiguration) {
			t.Fatalf("%v: expected configuration error, got %v", extra, err)
		}
		if code := services.ExitCode(err); code != 1 {
			t.Fatalf("%v: exit code = %d, want 1", extra, code)
		}
	}
	if calls := testsupport.Invocations(t, env.logPath, "mpv"); len(calls) != 0 {
		t.Fatalf("no stage should start on configuration error, got %v", calls)
	}
}

func TestClipCommandKeepAndDiscardExclusive(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := env.run(t, "clip", env.source, "--keep", "--discard"); err == nil {
		t.Fatal("expected error for --keep with --discard")
	}
}

func TestClipCommandEncodeFailureKeepsCache(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.InstallTools(t, env.cfg, testsupport.FakeTools{SvtAV1: "cat >/dev/null\necho 'Svt[error]: bad input' >&2\nexit 3\n"})
	env.writeConfig(t)

	stdout, _, err := env.run(t, "clip", env.source, "--skip-checks", "--discard")
	if !errors.Is(err, services.ErrStageFailure) {
		t.Fatalf("expected stage failure, got %v", err)
	}
	if !strings.Contains(stdout, "[ERROR] failed") {
		t.Fatalf("summary should report failure:\n%s", stdout)
	}
	if !strings.Contains(stdout, "encode") || !strings.Contains(stdout, "failed") {
		t.Fatalf("stage table should show the encode failure:\n%s", stdout)
	}

	list, _, err := env.run(t, "cache", "list", "--json")
	if err != nil {
		t.Fatalf("cache list: %v", err)
	}
	if !strings.Contains(list, `"entries": 1`) {
		t.Fatalf("failed run must keep the intermediate:\n%s", list)
	}
}

func TestCacheRemoveClearAndPrune(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := env.cfg.Paths.CacheDir
	testsupport.WriteFile(t, filepath.Join(dir, "av1clip-aaaa0000000000000000000000000000-temp.mkv"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "av1clip-bbbb0000000000000000000000000000-temp.mkv"), 64)
	testsupport.WriteFile(t, filepath.Join(dir, "av1clip-cccc0000000000000000000000000000-run.processing.mkv"), 64)

	out, _, err := env.run(t, "cache", "remove", "AAAA")
	if err != nil {
		t.Fatalf("cache remove: %v", err)
	}
	if !strings.Contains(out, "Removed 1 cache file(s)") {
		t.Fatalf("unexpected remove output: %s", out)
	}

	_, _, err = env.run(t, "cache", "remove", "ffff")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error for unknown fingerprint, got %v", err)
	}

	out, _, err = env.run(t, "cache", "prune", "--max-age", "0s")
	if err != nil {
		t.Fatalf("cache prune: %v", err)
	}
	if !strings.Contains(out, "Pruned 1 orphaned processing file(s)") {
		t.Fatalf("unexpected prune output: %s", out)
	}

	out, _, err = env.run(t, "cache", "clear")
	if err != nil {
		t.Fatalf("cache clear: %v", err)
	}
	if !strings.Contains(out, "Removed 1 cache file(s)") {
		t.Fatalf("unexpected clear output: %s", out)
	}
}

func TestHistoryDisabled(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "history")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCheckCommandReportsMissingTool(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Tools.SvtAV1 = filepath.Join(t.TempDir(), "SvtAv1EncApp")
	env.writeConfig(t)

	out, _, err := env.run(t, "check")
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(out, "v0.38.0-test") {
		t.Fatalf("expected mpv version in output:\n%s", out)
	}
	if !strings.Contains(out, "Missing tools:") || !strings.Contains(out, "SVT-AV1") {
		t.Fatalf("expected missing SVT-AV1 line:\n%s", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "av1clip", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("unexpected init output: %s", out)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config exists without --overwrite")
	}

	t.Setenv("AV1CLIP_CACHE_DIR", t.TempDir())
	t.Setenv("HOME", t.TempDir())
	out, _, err = runCLI(t, []string{"config", "show"}, target)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	for _, want := range []string{"# Config path: " + target, "[pipeline]", "grace_period_seconds = 10"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}
}
