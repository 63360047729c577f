package deps

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"av1clip/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Unset", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}

	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}

	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}

	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected status for unset command: %#v", results[2])
	}
}

func TestRequirementsFollowConfig(t *testing.T) {
	reqs := Requirements(config.Tools{MPV: "/opt/mpv", FFmpeg: "ff", FFprobe: "fp", SvtAV1: "svt"})
	if len(reqs) != 4 {
		t.Fatalf("expected 4 requirements, got %d", len(reqs))
	}
	if reqs[0].Command != "/opt/mpv" || reqs[3].Command != "svt" {
		t.Fatalf("unexpected commands: %#v", reqs)
	}
}

func TestVersion(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(stub, []byte("#!/bin/sh\necho 'ffmpeg version 7.1 Copyright (c) 2000-2024'\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	got, err := Version(context.Background(), Requirement{Name: "ffmpeg", Command: stub, VersionArgs: []string{"-version"}, VersionField: 2})
	if err != nil || got != "7.1" {
		t.Fatalf("Version = %q, %v", got, err)
	}

	got, err = Version(context.Background(), Requirement{Name: "short", Command: stub, VersionArgs: []string{"-version"}, VersionField: 9})
	if err == nil || got != UnknownVersion {
		t.Fatalf("expected unknown with error, got %q, %v", got, err)
	}

	got, err = Version(context.Background(), Requirement{Name: "missing", Command: filepath.Join(dir, "nope"), VersionArgs: []string{"--version"}})
	if err == nil || got != UnknownVersion {
		t.Fatalf("expected unknown for missing binary, got %q, %v", got, err)
	}

	got, err = Version(context.Background(), Requirement{Name: "ffprobe", Command: stub})
	if err != nil || got != UnknownVersion {
		t.Fatalf("expected unknown without version args, got %q, %v", got, err)
	}
}
